package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ashureev/rommaana-agents/internal/agent"
	"github.com/ashureev/rommaana-agents/internal/domain"
	"github.com/ashureev/rommaana-agents/internal/llm"
)

var (
	chatAgent        string
	chatLanguage     string
	chatConversation string
	chatJSON         bool
)

var chatCmd = &cobra.Command{
	Use:   "chat [message]",
	Short: "Chat with an agent",
	Long: `Sends one message to an agent and prints the reply. Without a message
argument, lines are read from stdin and sent as successive turns of the
same conversation.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringVarP(&chatAgent, "agent", "a", string(agent.TypeSupport), "agent type: claims, policy, support or compliance")
	chatCmd.Flags().StringVarP(&chatLanguage, "language", "l", string(domain.LanguageEnglish), "reply language: en, ar or both")
	chatCmd.Flags().StringVar(&chatConversation, "conversation", "", "conversation id (random when empty)")
	chatCmd.Flags().BoolVar(&chatJSON, "json", false, "print the full response envelope as JSON")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	lang, ok := domain.ParseLanguage(chatLanguage)
	if !ok {
		return fmt.Errorf("unknown language %q", chatLanguage)
	}

	ctx, cancel := setupContext()
	defer cancel()

	a, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	target, err := a.Agents.Lookup(chatAgent)
	if err != nil {
		return err
	}
	if chatConversation == "" {
		chatConversation = "cli-" + uuid.NewString()
	}
	ac := domain.AgentContext{
		ConversationID: chatConversation,
		Language:       lang,
		Metadata:       map[string]any{"channel": "cli"},
	}

	turn := func(message string) error {
		resp, err := target.Chat(ctx, message, ac)
		if err != nil {
			if llm.IsRateLimited(err) {
				return fmt.Errorf("%s: %w", llm.HighLoadMessage, err)
			}
			return err
		}
		if chatJSON {
			return printJSON(cmd.OutOrStdout(), resp)
		}
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, resp.Message)
		if resp.Reasoning != "" {
			fmt.Fprintf(out, "\n(reasoning: %s)\n", resp.Reasoning)
		}
		if len(resp.SuggestedNext) > 0 {
			fmt.Fprintf(out, "\nSuggested: %s\n", strings.Join(resp.SuggestedNext, " | "))
		}
		return nil
	}

	if len(args) == 1 {
		return turn(args[0])
	}

	scanner := bufio.NewScanner(cmd.InOrStdin())
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if err := turn(line); err != nil {
			return err
		}
	}
	return scanner.Err()
}
