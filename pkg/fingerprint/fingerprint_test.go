package fingerprint_test

import (
	"testing"

	"github.com/arborflow/arbor/pkg/fingerprint"
	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	assert.Equal(t, "hello world", fingerprint.Normalize("  Hello \t\n World "))
	assert.Equal(t, "hello", fingerprint.Normalize("HELLO"))
	assert.Equal(t, "", fingerprint.Normalize("   "))
}

func TestNew_StableAcrossFormatting(t *testing.T) {
	a := fingerprint.New("Hello   World", "default")
	b := fingerprint.New("hello world", "default")
	assert.Equal(t, a, b)
}

func TestNew_AgentSeparation(t *testing.T) {
	a := fingerprint.New("hello", "default")
	b := fingerprint.New("hello", "support")
	assert.NotEqual(t, a, b, "same text under a different agent must not share a cache key")
}

func TestNew_NoDelimiterConfusion(t *testing.T) {
	// Input text must not be able to impersonate another agent's key.
	a := fingerprint.New("hello", "xagent")
	b := fingerprint.New("hellox", "agent")
	assert.NotEqual(t, a, b)
}
