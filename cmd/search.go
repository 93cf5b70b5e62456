package cmd

import (
	"flag"
	"fmt"
	"strings"

	"github.com/guara-ai/guara/internal/config"
	"github.com/guara-ai/guara/internal/document"
	"github.com/guara-ai/guara/internal/knowledge"
)

// searchParams is the resolved search invocation: flags parsed against the
// configured defaults.
type searchParams struct {
	query         string
	topK          int
	category      document.Category
	minSimilarity float64
	hybrid        bool
}

// parseSearchArgs parses search flags. Defaults come from the configuration
// (search_top_k, search_min_similarity, search_hybrid); flags override.
func parseSearchArgs(cfg *config.Config, args []string) (searchParams, error) {
	fs := flag.NewFlagSet("search", flag.ContinueOnError)
	topK := fs.Int("k", cfg.SearchTopK, "number of results")
	category := fs.String("category", "", "restrict to one category")
	minSimilarity := fs.Float64("min-similarity", cfg.SearchMinSimilarity, "similarity floor (0 to 1)")
	semanticOnly := fs.Bool("semantic-only", !cfg.SearchHybrid, "disable full-text ranking")
	if err := fs.Parse(args); err != nil {
		return searchParams{}, err
	}

	query := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if query == "" {
		return searchParams{}, fmt.Errorf("usage: guara search [flags] <query>")
	}

	p := searchParams{
		query:         query,
		topK:          *topK,
		minSimilarity: *minSimilarity,
		hybrid:        !*semanticOnly,
	}
	if *category != "" {
		cat := document.Category(*category)
		if !cat.Valid() {
			return searchParams{}, fmt.Errorf("unknown category %q", *category)
		}
		p.category = cat
	}
	return p, nil
}

func (p searchParams) options() []knowledge.SearchOption {
	opts := []knowledge.SearchOption{
		knowledge.WithTopK(p.topK),
		knowledge.WithMinSimilarity(p.minSimilarity),
		knowledge.WithHybrid(p.hybrid),
	}
	if p.category != "" {
		opts = append(opts, knowledge.WithCategory(p.category))
	}
	return opts
}

// runSearch queries the knowledge base and prints matching chunks.
func runSearch(args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	params, err := parseSearchArgs(cfg, args)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	a, err := buildApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close()

	results, err := a.retriever.Search(ctx, params.query, params.options()...)
	if err != nil {
		return err
	}

	if len(results) == 0 {
		fmt.Println("Nenhum resultado encontrado.")
		return nil
	}

	for i, r := range results {
		fmt.Printf("%d. %s [%s] (similaridade %.3f)\n", i+1, r.Title, r.Category, r.Similarity)
		if r.SectionTitle != "" {
			fmt.Printf("   Seção: %s\n", r.SectionTitle)
		}
		fmt.Printf("   Fonte: %s\n", r.FilePath)
		fmt.Println(indent(snippet(r.Content, 400), "   "))
		fmt.Println()
	}
	return nil
}

// snippet truncates s to at most max runes, appending an ellipsis.
func snippet(s string, max int) string {
	runes := []rune(strings.TrimSpace(s))
	if len(runes) <= max {
		return string(runes)
	}
	return string(runes[:max]) + "..."
}

func indent(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = prefix + line
	}
	return strings.Join(lines, "\n")
}
