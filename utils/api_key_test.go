package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchAPIKey(t *testing.T) {
	allowed := []string{"hackathon-demo-key-2024", "eden-pm-challenge-key"}

	assert.True(t, MatchAPIKey("eden-pm-challenge-key", allowed))
	assert.False(t, MatchAPIKey("eden-pm-challenge", allowed))
	assert.False(t, MatchAPIKey("", allowed))
	assert.False(t, MatchAPIKey("anything", nil))
}

func TestMaskKey(t *testing.T) {
	assert.Equal(t, "wrong-ke...", MaskKey("wrong-key-123"))
	assert.Equal(t, "short...", MaskKey("short"))
}

func TestComputeHMACSHA256(t *testing.T) {
	a := ComputeHMACSHA256("secret", "key-a")
	assert.Len(t, a, 64)
	assert.Equal(t, a, ComputeHMACSHA256("secret", "key-a"))
	assert.NotEqual(t, a, ComputeHMACSHA256("secret", "key-b"))
	assert.NotEqual(t, a, ComputeHMACSHA256("other", "key-a"))
}
