package assistant

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"auron/internal/commands"
	"auron/internal/history"
	"auron/internal/llm"
	"auron/internal/tts"
	"auron/pkg/stt"
)

type fakeGen struct {
	mu       sync.Mutex
	reply    string
	err      error
	calls    int
	lastUser string
	lastSys  string
}

func (g *fakeGen) Generate(_ context.Context, system, user string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	g.lastSys = system
	g.lastUser = user
	return g.reply, g.err
}

type fakeSpeaker struct {
	mu     sync.Mutex
	spoken []string
}

func (s *fakeSpeaker) Speak(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.spoken = append(s.spoken, text)
	return nil
}

func (s *fakeSpeaker) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.spoken)
}

type fakeRecorder struct {
	pcm   []float32
	err   error
	delay time.Duration
	calls atomic.Int32
}

func (r *fakeRecorder) RecordAuto() ([]float32, error) {
	r.calls.Add(1)
	if r.delay > 0 {
		time.Sleep(r.delay)
	}
	return r.pcm, r.err
}

type fakeTranscriber struct {
	text string
	err  error
}

func (t *fakeTranscriber) TranscribePCM(context.Context, []float32, stt.Options) (stt.Result, error) {
	return stt.Result{Text: t.text, Language: "en"}, t.err
}

type fakeWake struct {
	mu        sync.Mutex
	listening bool
	starts    int
	pauses    int
	resumes   int
	closed    bool
}

func (w *fakeWake) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.starts++
	w.listening = true
	return nil
}

func (w *fakeWake) Pause() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pauses++
	w.listening = false
}

func (w *fakeWake) Resume() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.resumes++
	w.listening = true
}

func (w *fakeWake) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
}

func (w *fakeWake) Listening() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.listening
}

type fakeBridge struct {
	started atomic.Bool
}

func (b *fakeBridge) Start() error { b.started.Store(true); return nil }
func (b *fakeBridge) Stop() error  { b.started.Store(false); return nil }

func newTestController(t *testing.T, gen *fakeGen, speaker *fakeSpeaker, deps *Deps) *Controller {
	t.Helper()

	router := commands.NewRouter()
	require.NoError(t, router.Register(`\bopen\s+youtube\b`, func(string) string { return "Opening YouTube." }))

	d := Deps{
		Store:        history.NewStore(50, 50),
		Router:       router,
		NewGenerator: func() (llm.Generator, error) { return gen, nil },
		NewSpeaker:   func() (tts.Speaker, error) { return speaker, nil },
		SystemPrompt: "You are Auron.",
		TTSEnabled:   true,
	}
	if deps != nil {
		d.Recorder = deps.Recorder
		d.Transcriber = deps.Transcriber
		d.Wake = deps.Wake
		d.TTSEnabled = deps.TTSEnabled
	}

	c, err := New(d)
	require.NoError(t, err)
	return c
}

func TestHandleCommandInternal(t *testing.T) {
	gen := &fakeGen{reply: "should not be used"}
	speaker := &fakeSpeaker{}
	c := newTestController(t, gen, speaker, nil)

	reply, err := c.HandleCommand(context.Background(), "web", "please open youtube")
	require.NoError(t, err)
	assert.Equal(t, "Opening YouTube.", reply)
	assert.Zero(t, gen.calls)

	st := c.Status()
	assert.Equal(t, 2, st.ChatLength) // user + assistant
}

func TestHandleCommandLLMFallback(t *testing.T) {
	gen := &fakeGen{reply: "42"}
	c := newTestController(t, gen, &fakeSpeaker{}, nil)

	reply, err := c.HandleCommand(context.Background(), "web", "meaning of life?")
	require.NoError(t, err)
	assert.Equal(t, "42", reply)
	assert.Equal(t, 1, gen.calls)
	assert.Equal(t, "You are Auron.", gen.lastSys)
	assert.Equal(t, "meaning of life?", gen.lastUser)
}

func TestHandleCommandEmpty(t *testing.T) {
	c := newTestController(t, &fakeGen{}, &fakeSpeaker{}, nil)
	_, err := c.HandleCommand(context.Background(), "web", "   ")
	assert.Error(t, err)
}

func TestHandleCommandLLMError(t *testing.T) {
	gen := &fakeGen{err: errors.New("boom")}
	c := newTestController(t, gen, &fakeSpeaker{}, nil)

	_, err := c.HandleCommand(context.Background(), "web", "hi")
	assert.Error(t, err)
}

func TestSpeakRespectsTTSToggle(t *testing.T) {
	gen := &fakeGen{reply: "spoken"}
	speaker := &fakeSpeaker{}
	c := newTestController(t, gen, speaker, &Deps{TTSEnabled: false})

	_, err := c.HandleCommand(context.Background(), "web", "hi")
	require.NoError(t, err)
	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, speaker.count())

	c.SetTTS(true)
	_, err = c.HandleCommand(context.Background(), "web", "hi again")
	require.NoError(t, err)
	assert.Eventually(t, func() bool { return speaker.count() == 1 },
		time.Second, 10*time.Millisecond)
}

func TestWakePipeline(t *testing.T) {
	gen := &fakeGen{reply: "it is sunny"}
	wake := &fakeWake{}
	rec := &fakeRecorder{pcm: make([]float32, 1600)}
	c := newTestController(t, gen, &fakeSpeaker{}, &Deps{
		Recorder:    rec,
		Transcriber: &fakeTranscriber{text: "what's the weather"},
		Wake:        wake,
		TTSEnabled:  true,
	})

	require.NoError(t, c.StartVoice())
	assert.True(t, c.VoiceEnabled())

	c.OnWake()

	assert.Eventually(t, func() bool {
		gen.mu.Lock()
		defer gen.mu.Unlock()
		return gen.calls == 1
	}, time.Second, 10*time.Millisecond)

	gen.mu.Lock()
	assert.Equal(t, "what's the weather", gen.lastUser)
	gen.mu.Unlock()

	// engine paused during capture, resumed after
	assert.Eventually(t, func() bool { return wake.Listening() },
		time.Second, 10*time.Millisecond)
}

func TestWakeBusyGate(t *testing.T) {
	rec := &fakeRecorder{pcm: make([]float32, 160), delay: 200 * time.Millisecond}
	c := newTestController(t, &fakeGen{reply: "ok"}, &fakeSpeaker{}, &Deps{
		Recorder:    rec,
		Transcriber: &fakeTranscriber{text: "hello"},
		Wake:        &fakeWake{},
	})
	require.NoError(t, c.StartVoice())

	c.OnWake()
	time.Sleep(20 * time.Millisecond)
	c.OnWake() // dropped: pipeline busy

	assert.Eventually(t, func() bool { return rec.calls.Load() == 1 },
		time.Second, 10*time.Millisecond)
	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, int32(1), rec.calls.Load())
}

func TestStartVoiceWithoutWake(t *testing.T) {
	c := newTestController(t, &fakeGen{}, &fakeSpeaker{}, nil)
	assert.Error(t, c.StartVoice())
}

func TestStopVoicePausesEngine(t *testing.T) {
	wake := &fakeWake{}
	c := newTestController(t, &fakeGen{}, &fakeSpeaker{}, &Deps{Wake: wake})

	require.NoError(t, c.StartVoice())
	c.StopVoice()

	assert.False(t, c.VoiceEnabled())
	assert.False(t, wake.Listening())

	// restart resumes instead of re-initializing
	require.NoError(t, c.StartVoice())
	wake.mu.Lock()
	defer wake.mu.Unlock()
	assert.Equal(t, 1, wake.starts)
	assert.Equal(t, 1, wake.resumes)
}

func TestRestartLLMSwapsGenerator(t *testing.T) {
	first := &fakeGen{reply: "old"}
	gens := []*fakeGen{first, {reply: "new"}}
	i := 0

	router := commands.NewRouter()
	c, err := New(Deps{
		Store:  history.NewStore(10, 10),
		Router: router,
		NewGenerator: func() (llm.Generator, error) {
			g := gens[i]
			i++
			return g, nil
		},
	})
	require.NoError(t, err)

	require.NoError(t, c.RestartLLM())
	reply, err := c.HandleCommand(context.Background(), "web", "hi")
	require.NoError(t, err)
	assert.Equal(t, "new", reply)
	assert.Zero(t, first.calls)
}

func TestDiscordLifecycle(t *testing.T) {
	c := newTestController(t, &fakeGen{}, &fakeSpeaker{}, nil)

	assert.Error(t, c.StartDiscord()) // no factory configured

	bridge := &fakeBridge{}
	c.SetBridgeFactory(func() (Bridge, error) { return bridge, nil })

	require.NoError(t, c.StartDiscord())
	assert.True(t, c.DiscordEnabled())
	assert.True(t, bridge.started.Load())

	c.StopDiscord()
	assert.False(t, c.DiscordEnabled())
	assert.False(t, bridge.started.Load())
}

func TestTogglesNotifyState(t *testing.T) {
	store := history.NewStore(10, 10)
	var states []history.State
	store.SetNotify(func(ev history.Event) {
		if ev.Kind == "state" {
			states = append(states, *ev.State)
		}
	})

	c, err := New(Deps{
		Store:        store,
		Router:       commands.NewRouter(),
		NewGenerator: func() (llm.Generator, error) { return &fakeGen{}, nil },
		Wake:         &fakeWake{},
	})
	require.NoError(t, err)
	c.SetBridgeFactory(func() (Bridge, error) { return &fakeBridge{}, nil })

	require.NoError(t, c.StartVoice())
	c.SetTTS(true)
	require.NoError(t, c.StartDiscord())
	c.StopDiscord()
	c.StopVoice()

	require.Len(t, states, 5)
	assert.True(t, states[0].VoiceEnabled)
	assert.True(t, states[1].TTSEnabled)
	assert.True(t, states[2].DiscordEnabled)
	assert.False(t, states[3].DiscordEnabled)
	assert.False(t, states[4].VoiceEnabled)
	// every frame carries the full snapshot
	assert.True(t, states[4].TTSEnabled)
}

func TestStatus(t *testing.T) {
	c := newTestController(t, &fakeGen{reply: "ok"}, &fakeSpeaker{}, nil)

	st := c.Status()
	assert.False(t, st.VoiceEnabled)
	assert.True(t, st.TTSEnabled)
	assert.False(t, st.DiscordEnabled)
	assert.Zero(t, st.ChatLength)
}
