package tts

import "log/slog"

// Speaker synthesizes text to the default audio output. Implementations
// must treat empty text as a no-op.
type Speaker interface {
	Speak(text string) error
}

// Noop is the speaker used when synthesis is unavailable or disabled.
type Noop struct{}

func (Noop) Speak(text string) error {
	if text != "" {
		slog.Debug("TTS unavailable, dropping utterance", "len", len(text))
	}
	return nil
}
