package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/aoba-labs/mocabot/internal/corpus"
	"github.com/aoba-labs/mocabot/internal/rag"
)

var summariesCmd = &cobra.Command{
	Use:   "summaries",
	Short: "List the summaries in the story corpus",
	Long: `Print every story record's summary, flagging records that have
none yet. Useful for eyeballing the corpus before rebuilding the index.`,
	Args: cobra.NoArgs,
	RunE: runSummaries,
}

func init() {
	rootCmd.AddCommand(summariesCmd)
}

func runSummaries(cmd *cobra.Command, args []string) error {
	var (
		fileStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#8BE9FD")).
				Bold(true)
		summaryStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#E9E9F4"))
		missingStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#FF5555")).
				Italic(true)
	)

	storyDir := rag.DefaultConfig().StoryDir
	entries, err := os.ReadDir(storyDir)
	if err != nil {
		return fmt.Errorf("failed to read story directory: %w", err)
	}

	total, missing := 0, 0
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}

		record, err := corpus.ReadRecord(filepath.Join(storyDir, name))
		if err != nil {
			fmt.Println(fileStyle.Render(name) + " " + missingStyle.Render("(unreadable: "+err.Error()+")"))
			continue
		}
		total++

		summary := strings.TrimSpace(record.Summary.Text)
		if summary == "" {
			missing++
			fmt.Println(fileStyle.Render(name) + " " + missingStyle.Render("(no summary)"))
			continue
		}
		fmt.Println(fileStyle.Render(name))
		fmt.Println("  " + summaryStyle.Render(summary))
	}

	fmt.Println()
	fmt.Printf("%d records, %d without summaries\n", total, missing)
	return nil
}
