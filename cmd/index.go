package cmd

import (
	"context"
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/aoba-labs/mocabot/internal/rag"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Rebuild the story embedding index",
	Long: `Scan the story corpus, embed every summary and write the cache
artifacts. Run this after adding or editing story files; chatting will
otherwise keep using the previous cache.

Required environment variables:
  OPENAI_API_KEY     - API key for embeddings
  STORY_DIR          - Story corpus directory (default: story)`,
	Args: cobra.NoArgs,
	RunE: runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	successStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#50FA7B"))

	config := rag.DefaultConfig()
	retriever := rag.NewRetriever(config)

	if err := retriever.Rebuild(context.Background()); err != nil {
		return fmt.Errorf("failed to rebuild index: %w", err)
	}

	fmt.Println(successStyle.Render(fmt.Sprintf(
		"Index rebuilt from %s: vectors in %s, metadata in %s",
		config.StoryDir, config.VectorCachePath, config.MetaCachePath)))
	return nil
}
