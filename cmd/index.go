package cmd

import (
	"fmt"

	"github.com/guara-ai/guara/internal/ingest"
)

// runIndex ingests a markdown file or directory into the knowledge base.
func runIndex(args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	path := resolveDocsPath(args, a.cfg)
	dir, err := isDir(path)
	if err != nil {
		return fmt.Errorf("checking path %q: %w", path, err)
	}

	if !dir {
		result := a.pipeline.IngestFile(ctx, path)
		printResult(result)
		if !result.Success {
			return fmt.Errorf("ingestion failed: %s", result.Message)
		}
		return nil
	}

	results, err := a.pipeline.IngestDirectory(ctx, path)
	if err != nil {
		return err
	}
	printSummary(results)
	return nil
}

// runReindex wipes the knowledge base and ingests from scratch.
func runReindex(args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	path := resolveDocsPath(args, a.cfg)
	results, err := a.pipeline.ReindexAll(ctx, path)
	if err != nil {
		return err
	}
	printSummary(results)
	return nil
}

func printResult(r ingest.Result) {
	status := "ok"
	if !r.Success {
		status = "falhou"
	}
	line := fmt.Sprintf("[%s] %s", status, r.FilePath)
	if r.Success {
		line += fmt.Sprintf(" (%d chunks)", r.ChunksCreated)
	}
	if r.Message != "" {
		line += " - " + r.Message
	}
	fmt.Println(line)
}

func printSummary(results []ingest.Result) {
	succeeded, failed, chunks := 0, 0, 0
	for _, r := range results {
		printResult(r)
		if r.Success {
			succeeded++
			chunks += r.ChunksCreated
		} else {
			failed++
		}
	}
	fmt.Println()
	fmt.Printf("Arquivos: %d ok, %d com falha. Chunks criados: %d\n", succeeded, failed, chunks)
}
