package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/aoba-labs/mocabot/internal/chat"
	"github.com/aoba-labs/mocabot/internal/engine"
	"github.com/aoba-labs/mocabot/internal/rag"
)

var chatAuthor string

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the persona in an interactive session",
	Long: `Start an interactive chat session with the persona.

Each message is matched against the story corpus before the persona
answers. When the persona judges a message irrelevant it stays silent,
shown here as (NO REPLY).

Required environment variables:
  OPENAI_API_KEY     - API key for embeddings and chat completions
  OPENAI_BASE_URL    - Optional OpenAI-compatible endpoint (e.g. DeepSeek)

Examples:
  mocabot chat
  mocabot chat --author Ran`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().StringVar(&chatAuthor, "author", "Tester", "Author name attached to your messages")
}

func runChat(cmd *cobra.Command, args []string) error {
	// Styling
	var (
		personaColor = lipgloss.Color("#F780FF") // Bright pink
		userColor    = lipgloss.Color("#8BE9FD") // Cyan
		silentColor  = lipgloss.Color("#6272A4") // Muted purple
		errorColor   = lipgloss.Color("#FF5555") // Red
	)

	personaStyle := lipgloss.NewStyle().
		Foreground(personaColor).
		Bold(true)

	userStyle := lipgloss.NewStyle().
		Foreground(userColor)

	silentStyle := lipgloss.NewStyle().
		Foreground(silentColor).
		Italic(true)

	errorStyle := lipgloss.NewStyle().
		Foreground(errorColor).
		Bold(true)

	config := engine.DefaultConfig()
	config.KnowledgeBase = loadKnowledgeBase()

	retriever := rag.NewRetriever(rag.DefaultConfig())

	completer, err := chat.NewOpenAICompleter(chat.DefaultConfig())
	if err != nil {
		return fmt.Errorf("%s %w", errorStyle.Render("Error:"), err)
	}

	eng, err := engine.New(config, retriever, completer)
	if err != nil {
		return fmt.Errorf("%s %w", errorStyle.Render("Error:"), err)
	}
	defer eng.Close()

	inbox := engine.NewInbox(eng, 16)
	defer inbox.Close()

	fmt.Println()
	fmt.Println(personaStyle.Render(config.PersonaFullName) + " is here. Empty line quits, /reset clears the conversation.")
	fmt.Println()

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print(userStyle.Render(chatAuthor + " > "))
		if !scanner.Scan() {
			break
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			break
		}
		if text == "/reset" {
			eng.ResetConversation()
			fmt.Println(silentStyle.Render("(conversation cleared)"))
			continue
		}

		outcome := inbox.Submit(engine.Incoming{
			Author:    chatAuthor,
			Text:      text,
			Timestamp: time.Now().Format(time.RFC3339),
		})

		prefix := personaStyle.Render(config.PersonaName + " > ")
		if outcome.Sent {
			fmt.Println(prefix + outcome.Reply)
		} else {
			fmt.Println(prefix + silentStyle.Render("(NO REPLY)"))
		}
	}

	return scanner.Err()
}

// loadKnowledgeBase reads the persona lore file. A missing file just
// means an empty knowledge base.
func loadKnowledgeBase() string {
	path := os.Getenv("KNOWLEDGE_PATH")
	if path == "" {
		path = "knowledge.txt"
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return string(data)
}
