// Package document parses raw documentation files into structured metadata
// plus body text.
//
// Three metadata conventions are supported, tried in order (first match wins):
//
//  1. A fenced frontmatter block ("---" delimited key: value lines)
//  2. Inline bracket tags ([Documento: ...], [Menu: ...], [Rota: ...])
//     within the first ten lines
//  3. No metadata at all: the title is derived from the file name and the
//     category is inferred from the source path
//
// Parsing never fails: a malformed frontmatter block is logged and the
// parser degrades to the next convention.
package document

import (
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"
)

// Frontmatter is the metadata envelope parsed from a document. Known fields
// are typed; anything else from a frontmatter block lands in Extra so
// forward-compatible keys survive a round trip through ingestion.
type Frontmatter struct {
	ID           string
	Title        string
	Category     Category
	Route        string
	RoutePattern string
	MenuPath     string
	Tags         []string
	Permissions  []string
	RelatedPages []string
	LastUpdated  string
	Extra        map[string]string
}

// Parser turns raw file text into (Frontmatter, body).
type Parser struct {
	logger *slog.Logger
}

// NewParser creates a Parser. A nil logger falls back to slog.Default.
func NewParser(logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{logger: logger}
}

const (
	frontmatterDelimiter = "---"

	// bracketTagScanLimit bounds how far into the document the inline tag
	// convention is allowed to reach.
	bracketTagScanLimit = 10
)

var (
	documentTagRe = regexp.MustCompile(`(?i)^\[documento:\s*(.+?)\]\s*$`)
	menuTagRe     = regexp.MustCompile(`(?i)^\[menu:\s*(.+?)\]\s*$`)
	routeTagRe    = regexp.MustCompile(`(?i)^\[rota:\s*(.+?)\]\s*$`)
)

// Parse extracts metadata and body from raw document text. sourceKey is the
// document's path, used for category inference and fallback titles.
// Parse never returns an error: each convention degrades to the next.
func (p *Parser) Parse(raw, sourceKey string) (Frontmatter, string) {
	if fm, body, ok := p.parseHeaderBlock(raw, sourceKey); ok {
		return fm, body
	}
	if fm, body, ok := p.parseBracketTags(raw, sourceKey); ok {
		return fm, body
	}
	return p.fallback(sourceKey), raw
}

// parseHeaderBlock handles the fenced "---" convention. The block is a flat
// key: value map; list-valued keys accept "[a, b]" or comma-separated form.
func (p *Parser) parseHeaderBlock(raw, sourceKey string) (Frontmatter, string, bool) {
	lines := strings.Split(raw, "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) != frontmatterDelimiter {
		return Frontmatter{}, "", false
	}

	closing := -1
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == frontmatterDelimiter {
			closing = i
			break
		}
	}
	if closing < 0 {
		p.logger.Debug("unterminated frontmatter block, falling back",
			"source", sourceKey)
		return Frontmatter{}, "", false
	}

	fields := make(map[string]string)
	for _, line := range lines[1:closing] {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		key, value, found := strings.Cut(trimmed, ":")
		if !found {
			p.logger.Debug("skipping malformed frontmatter line",
				"source", sourceKey, "line", trimmed)
			continue
		}
		fields[strings.ToLower(strings.TrimSpace(key))] = strings.TrimSpace(value)
	}
	if len(fields) == 0 {
		p.logger.Debug("empty frontmatter block, falling back", "source", sourceKey)
		return Frontmatter{}, "", false
	}

	fm := p.coerce(fields, sourceKey)
	body := strings.Join(lines[closing+1:], "\n")
	return fm, strings.TrimLeft(body, "\n"), true
}

// coerce maps a flat key/value set onto Frontmatter, applying the default
// chain: missing id → filename, missing title → id, missing category →
// path inference.
func (p *Parser) coerce(fields map[string]string, sourceKey string) Frontmatter {
	fm := Frontmatter{Extra: make(map[string]string)}

	for key, value := range fields {
		switch key {
		case "id":
			fm.ID = value
		case "title", "titulo":
			fm.Title = value
		case "category", "categoria":
			fm.Category = Category(strings.ToLower(value))
		case "route", "rota":
			fm.Route = value
		case "routepattern", "route_pattern":
			fm.RoutePattern = value
		case "menupath", "menu_path", "menu":
			fm.MenuPath = value
		case "tags":
			fm.Tags = parseList(value)
		case "permissions", "permissoes":
			fm.Permissions = parseList(value)
		case "relatedpages", "related_pages":
			fm.RelatedPages = parseList(value)
		case "lastupdated", "last_updated":
			fm.LastUpdated = value
		default:
			fm.Extra[key] = value
		}
	}

	if fm.ID == "" {
		fm.ID = keyFromPath(sourceKey)
	}
	if fm.Title == "" {
		fm.Title = fm.ID
	}
	if !fm.Category.Valid() {
		if fm.Category != "" {
			p.logger.Debug("unknown category in frontmatter, inferring from path",
				"source", sourceKey, "category", fm.Category)
		}
		fm.Category = InferCategory(sourceKey)
	}
	return fm
}

// parseBracketTags handles the inline tag convention. Scanning stops at the
// first non-tag, non-blank line; a [Documento: ...] tag is required for the
// convention to match at all.
func (p *Parser) parseBracketTags(raw, sourceKey string) (Frontmatter, string, bool) {
	lines := strings.Split(raw, "\n")

	fm := Frontmatter{}
	stop := 0
	found := false

scan:
	for i, line := range lines {
		if i >= bracketTagScanLimit {
			stop = i
			break
		}
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "":
			// Blank lines between tags are fine.
		case documentTagRe.MatchString(trimmed):
			fm.Title = documentTagRe.FindStringSubmatch(trimmed)[1]
			found = true
		case menuTagRe.MatchString(trimmed):
			fm.MenuPath = menuTagRe.FindStringSubmatch(trimmed)[1]
		case routeTagRe.MatchString(trimmed):
			fm.Route = routeTagRe.FindStringSubmatch(trimmed)[1]
		default:
			stop = i
			break scan
		}
		stop = i + 1
	}

	if !found {
		return Frontmatter{}, "", false
	}

	fm.ID = keyFromPath(sourceKey)
	fm.Category = InferCategory(sourceKey)
	body := strings.Join(lines[stop:], "\n")
	return fm, strings.TrimLeft(body, "\n"), true
}

// fallback is the last parsing stage: no metadata at all.
func (p *Parser) fallback(sourceKey string) Frontmatter {
	id := keyFromPath(sourceKey)
	return Frontmatter{
		ID:       id,
		Title:    id,
		Category: InferCategory(sourceKey),
	}
}

// keyFromPath derives a stable document key from a source path: the file
// name without its extension.
func keyFromPath(sourceKey string) string {
	base := filepath.Base(filepathToSlash(sourceKey))
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// parseList splits a "[a, b]" or "a, b" value into trimmed items.
func parseList(value string) []string {
	value = strings.TrimSpace(value)
	value = strings.TrimPrefix(value, "[")
	value = strings.TrimSuffix(value, "]")
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	items := make([]string, 0, len(parts))
	for _, part := range parts {
		if item := strings.Trim(strings.TrimSpace(part), `"'`); item != "" {
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		return nil
	}
	return items
}
