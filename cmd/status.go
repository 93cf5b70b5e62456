package cmd

import (
	"fmt"
	"sort"

	"github.com/guara-ai/guara/internal/document"
)

// runStatus prints knowledge base statistics.
func runStatus(_ []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	status, err := a.pipeline.Status(ctx)
	if err != nil {
		return fmt.Errorf("reading status: %w", err)
	}

	fmt.Printf("Documentos: %d\n", status.Documents)
	fmt.Printf("Chunks: %d\n", status.Chunks)
	if status.LastUpdated != nil {
		fmt.Printf("Última atualização: %s\n", status.LastUpdated.Format("2006-01-02 15:04:05"))
	} else {
		fmt.Println("Última atualização: nunca")
	}

	if len(status.ByCategory) == 0 {
		return nil
	}

	categories := make([]string, 0, len(status.ByCategory))
	for cat := range status.ByCategory {
		categories = append(categories, string(cat))
	}
	sort.Strings(categories)

	fmt.Println()
	fmt.Println("Por categoria:")
	for _, cat := range categories {
		fmt.Printf("  %-15s %d\n", cat, status.ByCategory[document.Category(cat)])
	}
	return nil
}
