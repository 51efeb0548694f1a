package cmd

import (
	"context"
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/aoba-labs/mocabot/internal/chat"
	"github.com/aoba-labs/mocabot/internal/rag"
	"github.com/aoba-labs/mocabot/internal/summarize"
)

var summarizeConcurrency int

var summarizeCmd = &cobra.Command{
	Use:   "summarize",
	Short: "Backfill summaries for story records",
	Long: `Ask the chat model to summarize every story record that has no
Summary field yet. Output goes next to each source file with a
.with_summary.json suffix; records that already carry a summary are
skipped, so the run is safe to repeat.

Required environment variables:
  OPENAI_API_KEY     - API key for chat completions
  STORY_DIR          - Story corpus directory (default: story)`,
	Args: cobra.NoArgs,
	RunE: runSummarize,
}

func init() {
	rootCmd.AddCommand(summarizeCmd)
	summarizeCmd.Flags().IntVar(&summarizeConcurrency, "concurrency", 10, "Maximum in-flight completions")
}

func runSummarize(cmd *cobra.Command, args []string) error {
	successStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#50FA7B"))

	// Summaries want low temperature regardless of the chat setting.
	config := chat.DefaultConfig()
	config.Temperature = 0.2

	completer, err := chat.NewOpenAICompleter(config)
	if err != nil {
		return err
	}

	opts := summarize.DefaultOptions(rag.DefaultConfig().StoryDir)
	opts.Concurrency = summarizeConcurrency

	stats, err := summarize.Run(context.Background(), completer, opts)
	if err != nil {
		return err
	}

	fmt.Println(successStyle.Render(fmt.Sprintf(
		"All done: %d summarized, %d skipped", stats.Summarized, stats.Skipped)))
	return nil
}
