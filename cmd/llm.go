package cmd

import (
	"os"

	"github.com/spf13/viper"

	"github.com/inov8tr/ecolab/internal/lifecycle"
	"github.com/inov8tr/ecolab/internal/llm"
)

// notesDrafter returns the Anthropic-backed summary notes drafter, or nil
// when neither anthropic.api_key nor ANTHROPIC_API_KEY is set. Summaries
// are created without draft notes in that case.
func notesDrafter() lifecycle.NotesDrafter {
	apiKey := viper.GetString("anthropic.api_key")
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if apiKey == "" {
		return nil
	}
	model := viper.GetString("anthropic.model")
	ui.VerboseLog("Drafting summary notes with %s", model)
	return llm.NewClient(apiKey, model)
}
