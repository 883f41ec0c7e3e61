// Package assistant wires the subsystems into the wake → record →
// transcribe → route → reply pipeline and owns the runtime toggles.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"auron/internal/commands"
	"auron/internal/history"
	"auron/internal/llm"
	"auron/internal/tts"
	"auron/pkg/audioconv"
	"auron/pkg/stt"
)

// Recorder captures one end-pointed utterance from the microphone.
type Recorder interface {
	RecordAuto() ([]float32, error)
}

// Transcriber turns mono 16 kHz PCM into text.
type Transcriber interface {
	TranscribePCM(ctx context.Context, pcm []float32, opt stt.Options) (stt.Result, error)
}

// WakeEngine is the always-on keyword spotter.
type WakeEngine interface {
	Start() error
	Pause()
	Resume()
	Close()
	Listening() bool
}

// Ducker lowers and restores the volume of other audio streams.
type Ducker interface {
	DuckOthers(ctx context.Context, factor float64, duration time.Duration) error
	UnduckOthers(ctx context.Context, duration time.Duration) error
}

// Bridge is an external chat integration (Discord).
type Bridge interface {
	Start() error
	Stop() error
}

const (
	pipelineTimeout = 60 * time.Second
	duckFactor      = 0.3
	duckFade        = 200 * time.Millisecond
)

// Deps carries everything the controller needs. Recorder, Transcriber,
// Wake, Ducker and Chime may be nil; the matching features degrade to
// text-only operation.
type Deps struct {
	Store       *history.Store
	Router      *commands.Router
	Recorder    Recorder
	Transcriber Transcriber
	Wake        WakeEngine
	Ducker      Ducker
	Chime       func() error

	NewGenerator func() (llm.Generator, error)
	NewSpeaker   func() (tts.Speaker, error)

	STTOptions   stt.Options
	SystemPrompt string
	TTSEnabled   bool
}

type Status struct {
	VoiceEnabled   bool `json:"voice_enabled"`
	TTSEnabled     bool `json:"tts_enabled"`
	DiscordEnabled bool `json:"discord_enabled"`
	ChatLength     int  `json:"chat_length"`
	LogLength      int  `json:"log_length"`
}

type Controller struct {
	log    *slog.Logger
	store  *history.Store
	router *commands.Router

	recorder    Recorder
	transcriber Transcriber
	ducker      Ducker
	chime       func() error

	sttOpts      stt.Options
	systemPrompt string

	newGenerator func() (llm.Generator, error)
	newSpeaker   func() (tts.Speaker, error)
	newBridge    func() (Bridge, error)

	busy sync.Mutex // held while a wake pipeline is in flight

	mu           sync.RWMutex
	wake         WakeEngine
	wakeStarted  bool
	voiceEnabled bool
	ttsEnabled   bool
	gen          llm.Generator
	speaker      tts.Speaker
	bridge       Bridge
}

func New(deps Deps) (*Controller, error) {
	if deps.Store == nil {
		return nil, errors.New("nil history store")
	}
	if deps.Router == nil {
		return nil, errors.New("nil command router")
	}
	if deps.NewGenerator == nil {
		return nil, errors.New("nil generator factory")
	}
	if deps.NewSpeaker == nil {
		deps.NewSpeaker = func() (tts.Speaker, error) { return tts.Noop{}, nil }
	}

	gen, err := deps.NewGenerator()
	if err != nil {
		return nil, fmt.Errorf("init generator: %w", err)
	}
	speaker, err := deps.NewSpeaker()
	if err != nil {
		return nil, fmt.Errorf("init speaker: %w", err)
	}

	return &Controller{
		log:          slog.Default(),
		store:        deps.Store,
		router:       deps.Router,
		recorder:     deps.Recorder,
		transcriber:  deps.Transcriber,
		wake:         deps.Wake,
		ducker:       deps.Ducker,
		chime:        deps.Chime,
		sttOpts:      deps.STTOptions,
		systemPrompt: deps.SystemPrompt,
		newGenerator: deps.NewGenerator,
		newSpeaker:   deps.NewSpeaker,
		gen:          gen,
		speaker:      speaker,
		ttsEnabled:   deps.TTSEnabled,
	}, nil
}

// SetBridgeFactory installs the Discord constructor. Set from main after
// the controller exists (the bridge needs the controller back).
func (c *Controller) SetBridgeFactory(fn func() (Bridge, error)) {
	c.mu.Lock()
	c.newBridge = fn
	c.mu.Unlock()
}

// HandleCommand routes one utterance and returns the reply. Internal
// commands win over the LLM; both legs land in the chat history and are
// spoken when TTS is on.
func (c *Controller) HandleCommand(ctx context.Context, source, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", errors.New("empty command")
	}

	c.log.Info("User command", "source", source, "text", text)
	c.store.AppendMessage("user", text)

	if reply, ok := c.router.Route(text); ok {
		c.store.AppendMessage("assistant", reply)
		c.speakAsync(reply)
		return reply, nil
	}

	c.mu.RLock()
	gen := c.gen
	c.mu.RUnlock()

	reply, err := gen.Generate(ctx, c.systemPrompt, text)
	if err != nil {
		c.log.Error("LLM request failed", "err", err)
		return "", fmt.Errorf("generate reply: %w", err)
	}

	c.log.Info("Assistant response", "text", reply)
	c.store.AppendMessage("assistant", reply)
	c.speakAsync(reply)
	return reply, nil
}

// OnWake is the wake engine callback. Overlapping wakes are dropped: a
// second trigger while the pipeline runs means the user is still being
// recorded or answered.
func (c *Controller) OnWake() {
	if !c.busy.TryLock() {
		c.log.Debug("Wake ignored, pipeline busy")
		return
	}
	go c.processWake()
}

func (c *Controller) processWake() {
	defer c.busy.Unlock()

	if c.recorder == nil || c.transcriber == nil {
		c.log.Warn("Wake fired without recorder/transcriber")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), pipelineTimeout)
	defer cancel()

	// free the microphone for the recorder, resume no matter what
	c.pauseWake()
	defer c.resumeWake()

	if c.chime != nil {
		if err := c.chime(); err != nil {
			c.log.Warn("Chime failed", "err", err)
		}
	}

	if c.ducker != nil {
		if err := c.ducker.DuckOthers(ctx, duckFactor, duckFade); err != nil {
			c.log.Warn("Duck failed", "err", err)
		}
		defer func() {
			if err := c.ducker.UnduckOthers(ctx, duckFade); err != nil {
				c.log.Warn("Unduck failed", "err", err)
			}
		}()
	}

	c.log.Info("Recording command")
	pcm, err := c.recorder.RecordAuto()
	if err != nil {
		c.log.Error("Recording failed", "err", err)
		return
	}
	c.log.Info("Recorded", "samples", len(pcm))

	res, err := c.transcriber.TranscribePCM(ctx, pcm, c.sttOpts)
	if err != nil {
		c.log.Error("Transcription failed", "err", err)
		return
	}
	if strings.TrimSpace(res.Text) == "" {
		c.log.Warn("Nothing transcribed")
		return
	}
	c.log.Info("Transcribed", "text", res.Text, "lang", res.Language)

	if _, err := c.HandleCommand(ctx, "voice", res.Text); err != nil {
		c.log.Error("Command handling failed", "err", err)
	}
}

// TranscribeFile decodes an audio file and transcribes it. Used by the
// web upload endpoint and the Discord attachment path.
func (c *Controller) TranscribeFile(ctx context.Context, path string) (string, error) {
	if c.transcriber == nil {
		return "", errors.New("transcription not available")
	}

	pcm, err := audioconv.DecodeFile(path, audioconv.Options{})
	if err != nil {
		return "", fmt.Errorf("decode audio: %w", err)
	}

	res, err := c.transcriber.TranscribePCM(ctx, pcm, c.sttOpts)
	if err != nil {
		return "", fmt.Errorf("transcribe: %w", err)
	}
	return res.Text, nil
}

// ---- voice lifecycle ----

func (c *Controller) StartVoice() error {
	c.mu.Lock()
	if c.wake == nil {
		c.mu.Unlock()
		return errors.New("voice recognition not configured")
	}
	if c.voiceEnabled {
		c.mu.Unlock()
		return nil
	}

	if !c.wakeStarted {
		if err := c.wake.Start(); err != nil {
			c.mu.Unlock()
			return err
		}
		c.wakeStarted = true
	} else {
		c.wake.Resume()
	}
	c.voiceEnabled = true
	c.mu.Unlock()

	c.log.Info("Voice recognition enabled")
	c.notifyState()
	return nil
}

func (c *Controller) StopVoice() {
	c.mu.Lock()
	if c.wake == nil || !c.voiceEnabled {
		c.mu.Unlock()
		return
	}
	c.wake.Pause()
	c.voiceEnabled = false
	c.mu.Unlock()

	c.log.Info("Voice recognition disabled")
	c.notifyState()
}

func (c *Controller) VoiceEnabled() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.voiceEnabled
}

func (c *Controller) pauseWake() {
	c.mu.RLock()
	wake := c.wake
	c.mu.RUnlock()
	if wake != nil {
		wake.Pause()
	}
}

func (c *Controller) resumeWake() {
	c.mu.RLock()
	wake, enabled := c.wake, c.voiceEnabled
	c.mu.RUnlock()
	if wake != nil && enabled {
		wake.Resume()
	}
}

// ---- TTS ----

func (c *Controller) TTSEnabled() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ttsEnabled
}

func (c *Controller) SetTTS(enabled bool) {
	c.mu.Lock()
	c.ttsEnabled = enabled
	c.mu.Unlock()
	c.log.Info("TTS toggled", "enabled", enabled)
	c.notifyState()
}

func (c *Controller) RestartTTS() error {
	speaker, err := c.newSpeaker()
	if err != nil {
		c.log.Error("Failed to restart TTS", "err", err)
		return err
	}
	c.mu.Lock()
	c.speaker = speaker
	c.mu.Unlock()
	c.log.Info("TTS engine restarted")
	return nil
}

func (c *Controller) speakAsync(text string) {
	c.mu.RLock()
	speaker, enabled := c.speaker, c.ttsEnabled
	c.mu.RUnlock()

	if !enabled || text == "" {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), pipelineTimeout)
		defer cancel()

		if c.ducker != nil {
			if err := c.ducker.DuckOthers(ctx, duckFactor, duckFade); err != nil {
				c.log.Warn("Duck failed", "err", err)
			}
			defer func() {
				if err := c.ducker.UnduckOthers(ctx, duckFade); err != nil {
					c.log.Warn("Unduck failed", "err", err)
				}
			}()
		}
		if err := speaker.Speak(text); err != nil {
			c.log.Error("TTS playback failed", "err", err)
		}
	}()
}

// ---- LLM ----

func (c *Controller) RestartLLM() error {
	gen, err := c.newGenerator()
	if err != nil {
		c.log.Error("Failed to restart LLM client", "err", err)
		return err
	}
	c.mu.Lock()
	c.gen = gen
	c.mu.Unlock()
	c.log.Info("LLM client restarted")
	return nil
}

// ---- Discord ----

func (c *Controller) StartDiscord() error {
	c.mu.Lock()
	if c.bridge != nil {
		c.mu.Unlock()
		return nil
	}
	if c.newBridge == nil {
		c.mu.Unlock()
		return errors.New("discord bridge not configured")
	}

	bridge, err := c.newBridge()
	if err != nil {
		c.mu.Unlock()
		return err
	}
	if err := bridge.Start(); err != nil {
		c.mu.Unlock()
		return err
	}
	c.bridge = bridge
	c.mu.Unlock()

	c.log.Info("Discord bridge started")
	c.notifyState()
	return nil
}

func (c *Controller) StopDiscord() {
	c.mu.Lock()
	bridge := c.bridge
	c.bridge = nil
	c.mu.Unlock()

	if bridge == nil {
		return
	}
	if err := bridge.Stop(); err != nil {
		c.log.Error("Failed to stop Discord bridge", "err", err)
	}
	c.log.Info("Discord bridge stopped")
	c.notifyState()
}

func (c *Controller) DiscordEnabled() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.bridge != nil
}

// notifyState pushes the current toggle snapshot through the store so
// websocket listeners see flips regardless of which surface made them.
// Callers must not hold c.mu.
func (c *Controller) notifyState() {
	st := c.Status()
	c.store.NotifyState(history.State{
		VoiceEnabled:   st.VoiceEnabled,
		TTSEnabled:     st.TTSEnabled,
		DiscordEnabled: st.DiscordEnabled,
	})
}

// ---- status / shutdown ----

func (c *Controller) Status() Status {
	chat, logs := c.store.Counts()
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Status{
		VoiceEnabled:   c.voiceEnabled,
		TTSEnabled:     c.ttsEnabled,
		DiscordEnabled: c.bridge != nil,
		ChatLength:     chat,
		LogLength:      logs,
	}
}

func (c *Controller) Close() {
	c.StopDiscord()

	c.mu.Lock()
	wake := c.wake
	c.wake = nil
	c.voiceEnabled = false
	c.mu.Unlock()

	if wake != nil {
		wake.Close()
	}
}
