package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ashureev/rommaana-agents/internal/knowledge"
)

var (
	indexTitle  string
	indexSource string
	indexType   string
	indexDate   string
)

var indexCmd = &cobra.Command{
	Use:   "index <file>",
	Short: "Chunk a regulation text file and add it to the knowledge base",
	Args:  cobra.ExactArgs(1),
	RunE:  runIndex,
}

func init() {
	indexCmd.Flags().StringVar(&indexTitle, "title", "", "document title (defaults to the file name)")
	indexCmd.Flags().StringVar(&indexSource, "source", "Insurance Authority", "issuing body")
	indexCmd.Flags().StringVar(&indexType, "type", "regulation", "document type")
	indexCmd.Flags().StringVar(&indexDate, "date", "", "publication date")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	content, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read %s: %w", args[0], err)
	}
	if strings.TrimSpace(string(content)) == "" {
		return fmt.Errorf("%s is empty", args[0])
	}

	title := indexTitle
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
	}

	ctx, cancel := setupContext()
	defer cancel()

	a, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	if !a.Retriever.Heartbeat(ctx) {
		return fmt.Errorf("vector store at %s is unreachable", cfg.Knowledge.ChromaURL)
	}

	chunks, err := a.Knowledge.IndexDocument(ctx, string(content), knowledge.DocumentMeta{
		ID:     "doc-" + uuid.NewString()[:8],
		Title:  title,
		Source: indexSource,
		Type:   indexType,
		Date:   indexDate,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Indexed %q into %s (%d chunks)\n", title, cfg.Knowledge.Collection, chunks)
	return nil
}
