package bridge

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopAssistant struct{}

func (nopAssistant) HandleCommand(context.Context, string, string) (string, error) {
	return "", nil
}

func (nopAssistant) TranscribeFile(context.Context, string) (string, error) {
	return "", nil
}

func TestNewRequiresToken(t *testing.T) {
	_, err := New("", nopAssistant{})
	assert.ErrorContains(t, err, "token")
}

func TestNewRequiresAssistant(t *testing.T) {
	_, err := New("tok", nil)
	assert.ErrorContains(t, err, "assistant")
}

func TestNewBuildsSession(t *testing.T) {
	b, err := New("tok", nopAssistant{})
	require.NoError(t, err)
	assert.NotNil(t, b.session)
}
