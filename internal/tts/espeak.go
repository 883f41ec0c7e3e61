package tts

/*
#cgo LDFLAGS: -lespeak-ng
#include <stdlib.h>
#include <string.h>
#include <espeak-ng/speak_lib.h>

int
auron_say(const char *text, const char *voice)
{
	if (!text)
	{ return -1; }

	if (espeak_Initialize(AUDIO_OUTPUT_SYNCH_PLAYBACK, 500, NULL, 0) < 0)
	{ return -2; }

	if (voice && voice[0])
	{ espeak_SetVoiceByName(voice); }

	espeak_Synth(text, strlen(text) + 1, 0, 0, 0, espeakCHARS_AUTO, NULL, NULL);
	espeak_Synchronize();
	espeak_Terminate();

	return 0;
}
*/
import "C"

import (
	"fmt"
	"sync"
	"unsafe"
)

// ESpeak speaks through espeak-ng. Synthesis is synchronous and the
// engine is not reentrant, so calls are serialized.
type ESpeak struct {
	mu    sync.Mutex
	voice string
}

func NewESpeak(voice string) *ESpeak {
	return &ESpeak{voice: voice}
}

func (e *ESpeak) Speak(text string) error {
	if text == "" {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	ctext := C.CString(text)
	defer C.free(unsafe.Pointer(ctext))
	cvoice := C.CString(e.voice)
	defer C.free(unsafe.Pointer(cvoice))

	rc := C.auron_say(ctext, cvoice)
	if rc != 0 {
		return fmt.Errorf("espeak synth failed: %d", int(rc))
	}

	return nil
}
