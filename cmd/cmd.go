// Package cmd provides the guara CLI commands.
//
// Commands:
//   - index: ingest a documentation file or directory into the knowledge base
//   - reindex: wipe the knowledge base and ingest from scratch
//   - search: query the knowledge base
//   - status: show knowledge base statistics
//
// All commands install a signal-aware context so Ctrl+C cancels in-flight
// database and embedding calls.
package cmd

import (
	"fmt"
	"os"
)

// Execute is the main entry point for the guara CLI.
func Execute() error {
	if len(os.Args) < 2 {
		runHelp()
		return nil
	}

	args := os.Args[2:]
	switch os.Args[1] {
	case "index":
		return runIndex(args)
	case "reindex":
		return runReindex(args)
	case "search":
		return runSearch(args)
	case "status":
		return runStatus(args)
	case "version", "--version", "-v":
		runVersion()
		return nil
	case "help", "--help", "-h":
		runHelp()
		return nil
	default:
		return fmt.Errorf("unknown command: %s (run 'guara help')", os.Args[1])
	}
}

// runHelp displays the help message.
func runHelp() {
	fmt.Println("Guara - documentation knowledge base for the school platform assistant")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  guara index [path]        Ingest a markdown file or directory (default: docs_dir)")
	fmt.Println("  guara reindex [path]      Wipe the knowledge base and ingest from scratch")
	fmt.Println("  guara search <query>      Search the knowledge base")
	fmt.Println("  guara status              Show knowledge base statistics")
	fmt.Println("  guara --version           Show version information")
	fmt.Println("  guara --help              Show this help")
	fmt.Println()
	fmt.Println("Search flags:")
	fmt.Println("  -k N                      Number of results (default: search_top_k, max 20)")
	fmt.Println("  -category NAME            Restrict to one category (ex: financeiro)")
	fmt.Println("  -min-similarity X         Similarity floor, 0 to 1 (default: search_min_similarity)")
	fmt.Println("  -semantic-only            Disable the full-text ranking component")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  GEMINI_API_KEY            Required: Gemini API key for embeddings")
	fmt.Println("  DATABASE_URL              Optional: overrides postgres_* config values")
	fmt.Println("  GUARA_LOG_LEVEL           Optional: debug, info, warn, error")
}
