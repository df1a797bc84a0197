package cmd

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inov8tr/ecolab/internal/llm"
)

func TestNotesDrafter_NoKey(t *testing.T) {
	testEnv(t)
	t.Setenv("ANTHROPIC_API_KEY", "")

	assert.Nil(t, notesDrafter())
}

func TestNotesDrafter_ConfigKey(t *testing.T) {
	testEnv(t)
	t.Setenv("ANTHROPIC_API_KEY", "")
	viper.Set("anthropic.api_key", "sk-test")

	d := notesDrafter()
	require.NotNil(t, d)
	_, ok := d.(*llm.Client)
	assert.True(t, ok)
}

func TestNotesDrafter_EnvKey(t *testing.T) {
	testEnv(t)
	t.Setenv("ANTHROPIC_API_KEY", "sk-env")

	assert.NotNil(t, notesDrafter())
}
