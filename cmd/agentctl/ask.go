package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ashureev/rommaana-agents/internal/domain"
	"github.com/ashureev/rommaana-agents/internal/knowledge"
)

var (
	askMaxResults int
	askLanguage   string
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer a regulatory question from the knowledge base",
	Args:  cobra.ExactArgs(1),
	RunE:  runAsk,
}

func init() {
	askCmd.Flags().IntVarP(&askMaxResults, "max-results", "n", 5, "maximum passages to retrieve")
	askCmd.Flags().StringVarP(&askLanguage, "language", "l", string(domain.LanguageBoth), "answer language: en, ar or both")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	lang, ok := domain.ParseLanguage(askLanguage)
	if !ok {
		return fmt.Errorf("unknown language %q", askLanguage)
	}

	ctx, cancel := setupContext()
	defer cancel()

	a, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	answer, err := a.Knowledge.Query(ctx, knowledge.Query{
		Question:   args[0],
		MaxResults: askMaxResults,
		Language:   lang,
	})
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), answer)
}
