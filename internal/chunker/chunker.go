// Package chunker splits document bodies into embedding-sized fragments.
//
// The splitter is heading-aware: the body is divided into sections at
// markdown headings, each section is budgeted against a maximum token count,
// and oversized sections are split at paragraph boundaries with a bounded
// overlap carried between adjacent pieces. Fragment token counts come from
// EstimateTokens and are approximations, not exact tokenizer output.
//
// Sections estimated below Config.MinTokens are dropped rather than merged
// into a neighbor. That mirrors the platform's reference behavior: a
// fragment too small to stand alone retrieves poorly and mostly adds noise.
// It does mean a short but meaningful section (a one-line FAQ answer, say)
// is lost; tune MinTokens down if that matters for a given corpus. The one
// exception is a document that produces a single section in total, which is
// kept regardless of the floor so small documents remain ingestable.
package chunker

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/guara-ai/guara/internal/document"
)

// Config holds the chunking budget. Zero values take the defaults below.
type Config struct {
	// MaxTokens is the per-fragment budget (default 512).
	MaxTokens int
	// MinTokens is the floor below which a section is dropped (default 100).
	MinTokens int
	// OverlapTokens is carried from a split fragment into its successor
	// (default 50).
	OverlapTokens int
	// TokensPerWord is the estimator multiplier (default 1.3, pt-BR).
	TokensPerWord float64
}

// Default budget values, matching the platform's embedding model limits.
const (
	DefaultMaxTokens     = 512
	DefaultMinTokens     = 100
	DefaultOverlapTokens = 50
)

func (c Config) withDefaults() Config {
	if c.MaxTokens <= 0 {
		c.MaxTokens = DefaultMaxTokens
	}
	if c.MinTokens <= 0 {
		c.MinTokens = DefaultMinTokens
	}
	if c.OverlapTokens < 0 {
		c.OverlapTokens = 0
	} else if c.OverlapTokens == 0 {
		c.OverlapTokens = DefaultOverlapTokens
	}
	if c.TokensPerWord <= 0 {
		c.TokensPerWord = DefaultTokensPerWord
	}
	return c
}

// Fragment is one bounded slice of a document body. Content carries the
// rendered context header; TokenCount is the estimate for the raw fragment
// text before the header is prepended.
type Fragment struct {
	Index        int
	Content      string
	SectionTitle string
	TokenCount   int
	HeadingLevel int
	IsSplit      bool
}

// Chunker splits bodies according to a fixed Config. A Chunker is stateless
// and safe for concurrent use; Chunk is a pure function of its inputs.
type Chunker struct {
	cfg Config
}

// New creates a Chunker, filling unset Config fields with defaults.
func New(cfg Config) *Chunker {
	return &Chunker{cfg: cfg.withDefaults()}
}

var headingRe = regexp.MustCompile(`^(#{1,6})\s+(.*)$`)

// section is a heading plus the text until the next heading.
type section struct {
	title string
	level int
	body  string
}

// Chunk splits body into ordered fragments. Fragment indexes are assigned in
// emission order and restart at zero on every call.
func (c *Chunker) Chunk(body string, fm document.Frontmatter) []Fragment {
	sections := extractSections(body, fm.Title)

	singleSection := len(sections) == 1

	var frags []Fragment
	for _, sec := range sections {
		text := strings.TrimSpace(sec.body)
		if text == "" {
			continue
		}

		est := EstimateTokens(text, c.cfg.TokensPerWord)
		switch {
		case est <= c.cfg.MaxTokens && (est >= c.cfg.MinTokens || singleSection):
			frags = append(frags, Fragment{
				Index:        len(frags),
				Content:      formatContent(fm, sec.title, text),
				SectionTitle: sec.title,
				TokenCount:   est,
				HeadingLevel: sec.level,
			})
		case est > c.cfg.MaxTokens:
			frags = c.splitSection(frags, fm, sec, text)
		default:
			// Below the floor: dropped. See the package comment.
		}
	}
	return frags
}

// splitSection breaks an oversized section at paragraph boundaries, greedily
// filling each fragment up to the token budget and seeding every fragment
// after the first with overlap from its predecessor.
func (c *Chunker) splitSection(frags []Fragment, fm document.Frontmatter, sec section, text string) []Fragment {
	paragraphs := splitParagraphs(text, c.maxWordsPerFragment(), c.cfg.TokensPerWord)

	overlapWords := int(float64(c.cfg.OverlapTokens) * 0.75)

	var buf []string
	bufTokens := 0
	emitted := 0

	flush := func(force bool) {
		if len(buf) == 0 {
			return
		}
		// The tail of a split section still honors the floor unless it is
		// the only fragment the section produced.
		if force && emitted > 0 && bufTokens < c.cfg.MinTokens {
			buf, bufTokens = nil, 0
			return
		}
		chunkText := strings.Join(buf, "\n\n")
		frags = append(frags, Fragment{
			Index:        len(frags),
			Content:      formatContent(fm, sec.title, chunkText),
			SectionTitle: sec.title,
			TokenCount:   bufTokens,
			HeadingLevel: sec.level,
			IsSplit:      emitted > 0,
		})
		emitted++

		if overlapWords > 0 {
			seed := tailWords(chunkText, overlapWords)
			buf = []string{seed}
			bufTokens = EstimateTokens(seed, c.cfg.TokensPerWord)
		} else {
			buf, bufTokens = nil, 0
		}
	}

	for _, para := range paragraphs {
		paraTokens := EstimateTokens(para, c.cfg.TokensPerWord)
		if len(buf) > 0 && bufTokens+paraTokens > c.cfg.MaxTokens {
			flush(false)
			// A paragraph near the budget cannot share a fragment with the
			// overlap seed; emitting the seed alone would duplicate content,
			// so discard it instead.
			if len(buf) > 0 && bufTokens+paraTokens > c.cfg.MaxTokens {
				buf, bufTokens = nil, 0
			}
		}
		buf = append(buf, para)
		bufTokens += paraTokens
	}
	flush(true)

	return frags
}

// maxWordsPerFragment converts the token budget back into a word budget for
// hard-splitting paragraphs that alone exceed MaxTokens.
func (c *Chunker) maxWordsPerFragment() int {
	return int(float64(c.cfg.MaxTokens) / c.cfg.TokensPerWord)
}

// extractSections splits body at markdown headings. A heading-less body
// becomes a single section titled after the document.
func extractSections(body, docTitle string) []section {
	lines := strings.Split(body, "\n")

	var sections []section
	current := section{title: docTitle}
	var buf []string
	started := false

	for _, line := range lines {
		if m := headingRe.FindStringSubmatch(line); m != nil {
			if started || strings.TrimSpace(strings.Join(buf, "\n")) != "" {
				current.body = strings.Join(buf, "\n")
				sections = append(sections, current)
			}
			current = section{title: strings.TrimSpace(m[2]), level: len(m[1])}
			buf = buf[:0]
			started = true
			continue
		}
		buf = append(buf, line)
	}
	current.body = strings.Join(buf, "\n")
	if started || strings.TrimSpace(current.body) != "" {
		sections = append(sections, current)
	}

	if len(sections) == 0 {
		// Degenerate input (empty or whitespace-only body): keep the
		// single-section shape so callers see an empty fragment list
		// rather than a panic path.
		sections = append(sections, section{title: docTitle, body: body})
	}
	return sections
}

// splitParagraphs splits text on blank lines. A single paragraph whose
// estimate exceeds the fragment budget is hard-split into word windows so
// the token bound holds for every fragment.
func splitParagraphs(text string, maxWords int, tokensPerWord float64) []string {
	raw := regexp.MustCompile(`\n\s*\n`).Split(text, -1)

	var out []string
	for _, para := range raw {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		words := strings.Fields(para)
		if maxWords <= 0 || len(words) <= maxWords {
			out = append(out, para)
			continue
		}
		for start := 0; start < len(words); start += maxWords {
			end := min(start+maxWords, len(words))
			out = append(out, strings.Join(words[start:end], " "))
		}
	}
	return out
}

// tailWords returns the last n whitespace-delimited words of text.
func tailWords(text string, n int) string {
	words := strings.Fields(text)
	if len(words) <= n {
		return strings.Join(words, " ")
	}
	return strings.Join(words[len(words)-n:], " ")
}

// formatContent prepends the rendered context header so a fragment can be
// understood in isolation by a consumer that never sees the parent document
// row.
func formatContent(fm document.Frontmatter, sectionTitle, text string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[Documento: %s]\n", fm.Title)
	if fm.MenuPath != "" {
		fmt.Fprintf(&b, "[Menu: %s]\n", fm.MenuPath)
	}
	if route := firstNonEmpty(fm.Route, fm.RoutePattern); route != "" {
		fmt.Fprintf(&b, "[Rota: %s]\n", route)
	}
	if sectionTitle != "" && sectionTitle != fm.Title {
		fmt.Fprintf(&b, "[Seção: %s]\n", sectionTitle)
	}
	b.WriteString("\n")
	b.WriteString(text)
	return b.String()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
