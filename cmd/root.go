package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "mocabot",
	Short: "Mocabot - Persona chatbot with story retrieval",
	Long: `Mocabot replies to group chat messages in character, grounded in a
story corpus.

Each incoming message is matched against embedded story summaries, the
best scene is injected into the system prompt, and the persona either
answers or stays silent when the chatter is not meant for it.`,
}

// Execute runs the root command
func Execute() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
