package audio

import (
	"errors"
	"math"
	"time"

	"github.com/gordonklaus/portaudio"
)

const (
	sampleRate = 16000
	frameSize  = 320 // 20ms at 16 kHz
)

// RecordConfig tunes the end-pointing of RecordAuto.
type RecordConfig struct {
	SilenceThreshold float64       // frame RMS below this counts as silence
	TrailingSilence  time.Duration // this much silence after speech stops the take
	MaxDuration      time.Duration // hard cap on the whole recording
}

func DefaultRecordConfig() RecordConfig {
	return RecordConfig{
		SilenceThreshold: 0.015,
		TrailingSilence:  600 * time.Millisecond,
		MaxDuration:      10 * time.Second,
	}
}

// Recorder captures mono 16 kHz float32 from the default input device.
// Init must be called once before recording and Close once at shutdown.
type Recorder struct {
	cfg RecordConfig
}

func NewRecorder(cfg RecordConfig) *Recorder {
	if cfg.SilenceThreshold <= 0 {
		cfg.SilenceThreshold = 0.015
	}
	if cfg.TrailingSilence <= 0 {
		cfg.TrailingSilence = 600 * time.Millisecond
	}
	if cfg.MaxDuration <= 0 {
		cfg.MaxDuration = 10 * time.Second
	}
	return &Recorder{cfg: cfg}
}

func (r *Recorder) Init() error {
	return portaudio.Initialize()
}

func (r *Recorder) Close() {
	portaudio.Terminate()
}

// RecordAuto records until the speaker goes quiet. Frames before the
// first speech frame are dropped; trailing silence up to the configured
// span is kept so words are not clipped.
func (r *Recorder) RecordAuto() ([]float32, error) {
	buf := make([]float32, frameSize)
	out := make([]float32, 0, sampleRate*3)

	stream, err := portaudio.OpenDefaultStream(1, 0, sampleRate, len(buf), buf)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return nil, err
	}
	defer stream.Stop()

	var (
		speaking      bool
		silenceFrames int
	)

	frameDur := time.Duration(frameSize) * time.Second / sampleRate
	maxFrames := int(r.cfg.MaxDuration / frameDur)
	stopAfter := int(r.cfg.TrailingSilence / frameDur)

	for i := 0; i < maxFrames; i++ {
		if err := stream.Read(); err != nil {
			return nil, err
		}

		if frameRMS(buf) > r.cfg.SilenceThreshold {
			speaking = true
			silenceFrames = 0
			out = append(out, buf...)
			continue
		}

		if speaking {
			silenceFrames++
			if silenceFrames >= stopAfter {
				break
			}
			out = append(out, buf...)
		}
	}

	if len(out) == 0 {
		return nil, errors.New("no speech recorded")
	}
	return out, nil
}

func frameRMS(f []float32) float64 {
	if len(f) == 0 {
		return 0
	}
	var s float64
	for _, x := range f {
		s += float64(x * x)
	}
	return math.Sqrt(s / float64(len(f)))
}
