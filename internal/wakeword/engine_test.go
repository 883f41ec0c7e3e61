package wakeword

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"auron/internal/config"
)

func TestNewRequiresCredentials(t *testing.T) {
	cb := func() {}

	_, err := New(config.Wake{}, cb)
	assert.ErrorContains(t, err, "ACCESS_KEY")

	_, err = New(config.Wake{AccessKey: "k"}, cb)
	assert.ErrorContains(t, err, "WAKEWORD_PATH")

	_, err = New(config.Wake{AccessKey: "k", KeywordPath: "kw.ppn"}, cb)
	assert.ErrorContains(t, err, "PORC_MODEL")

	_, err = New(config.Wake{AccessKey: "k", KeywordPath: "kw.ppn", ModelPath: "m.pv"}, nil)
	assert.ErrorContains(t, err, "callback")
}
