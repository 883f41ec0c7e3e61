package wakeword

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	porcupine "github.com/Picovoice/porcupine/binding/go/v2"
	"github.com/gordonklaus/portaudio"

	"auron/internal/config"
)

// Engine listens continuously for the wake word. The trigger callback
// runs on its own goroutine; a cooldown window debounces repeat triggers
// while the last one is still being handled.
type Engine struct {
	p        porcupine.Porcupine
	onWake   func()
	cooldown time.Duration

	mu        sync.Mutex
	stream    *portaudio.Stream
	buf       []int16
	listening bool
	last      time.Time
	done      chan struct{}
}

func New(cfg config.Wake, onWake func()) (*Engine, error) {
	if cfg.AccessKey == "" {
		return nil, errors.New("missing Picovoice AccessKey (ACCESS_KEY)")
	}
	if cfg.KeywordPath == "" {
		return nil, errors.New("missing keyword path (WAKEWORD_PATH)")
	}
	if cfg.ModelPath == "" {
		return nil, errors.New("missing base model path (PORC_MODEL)")
	}
	if onWake == nil {
		return nil, errors.New("nil wake callback")
	}

	p := porcupine.Porcupine{
		AccessKey:     cfg.AccessKey,
		KeywordPaths:  []string{cfg.KeywordPath},
		ModelPath:     cfg.ModelPath,
		Sensitivities: []float32{cfg.Sensitivity},
	}
	if err := p.Init(); err != nil {
		return nil, fmt.Errorf("init porcupine: %w", err)
	}

	cooldown := cfg.Cooldown
	if cooldown <= 0 {
		cooldown = time.Second
	}

	return &Engine{
		p:        p,
		onWake:   onWake,
		cooldown: cooldown,
		buf:      make([]int16, porcupine.FrameLength),
		done:     make(chan struct{}),
	}, nil
}

// Start opens the input stream and begins spotting. Safe to call once.
// portaudio.Initialize must have been called first (the recorder's Init
// does this; standalone users have to initialize portaudio themselves).
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.stream != nil {
		return errors.New("wake engine already started")
	}

	stream, err := portaudio.OpenDefaultStream(1, 0, float64(porcupine.SampleRate), len(e.buf), e.buf)
	if err != nil {
		return fmt.Errorf("open input stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return fmt.Errorf("start input stream: %w", err)
	}

	e.stream = stream
	e.listening = true
	go e.loop()

	slog.Debug("Wake engine listening", "rate", porcupine.SampleRate, "frame", porcupine.FrameLength)
	return nil
}

// Pause releases the microphone without tearing the engine down, so the
// recorder can take over the input device.
func (e *Engine) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.stream == nil || !e.listening {
		return
	}
	if err := e.stream.Stop(); err != nil {
		slog.Warn("Failed to stop wake stream", "err", err)
	}
	e.listening = false
}

// Resume restarts spotting after a Pause.
func (e *Engine) Resume() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.stream == nil || e.listening {
		return
	}
	if err := e.stream.Start(); err != nil {
		slog.Error("Failed to restart wake stream", "err", err)
		return
	}
	e.listening = true
}

func (e *Engine) Listening() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.listening
}

// Close stops the loop and releases porcupine and the stream.
func (e *Engine) Close() {
	e.mu.Lock()
	if e.stream != nil {
		if e.listening {
			e.stream.Stop()
			e.listening = false
		}
		e.stream.Close()
		e.stream = nil
	}
	e.mu.Unlock()

	close(e.done)
	e.p.Delete()
}

func (e *Engine) loop() {
	for {
		select {
		case <-e.done:
			return
		default:
		}

		e.mu.Lock()
		stream, listening := e.stream, e.listening
		e.mu.Unlock()

		if stream == nil {
			return
		}
		if !listening {
			time.Sleep(20 * time.Millisecond)
			continue
		}

		if err := stream.Read(); err != nil {
			// Pause may stop the stream between the check and the read.
			time.Sleep(20 * time.Millisecond)
			continue
		}

		idx, err := e.p.Process(e.buf)
		if err != nil {
			slog.Error("Porcupine process failed", "err", err)
			continue
		}
		if idx < 0 {
			continue
		}

		e.mu.Lock()
		now := time.Now()
		fire := now.Sub(e.last) >= e.cooldown
		if fire {
			e.last = now
		}
		e.mu.Unlock()

		if fire {
			slog.Info("Wake word detected")
			go e.onWake()
		}
	}
}
