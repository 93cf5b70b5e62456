package document

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guara-ai/guara/internal/log"
)

func TestParseFrontmatterBlock(t *testing.T) {
	raw := `---
id: mensalidades
title: Gestão de Mensalidades
category: financeiro
route: /financeiro/mensalidades
menu_path: Financeiro > Mensalidades
tags: [cobranca, boleto, pix]
permissions: admin, financeiro
last_updated: 2026-03-10
autor: equipe-docs
---

# Mensalidades

Conteúdo do documento.`

	p := NewParser(log.NewNop())
	fm, body := p.Parse(raw, "docs/financeiro/mensalidades.md")

	assert.Equal(t, "mensalidades", fm.ID)
	assert.Equal(t, "Gestão de Mensalidades", fm.Title)
	assert.Equal(t, CategoryFinanceiro, fm.Category)
	assert.Equal(t, "/financeiro/mensalidades", fm.Route)
	assert.Equal(t, "Financeiro > Mensalidades", fm.MenuPath)
	assert.Equal(t, []string{"cobranca", "boleto", "pix"}, fm.Tags)
	assert.Equal(t, []string{"admin", "financeiro"}, fm.Permissions)
	assert.Equal(t, "2026-03-10", fm.LastUpdated)
	assert.Equal(t, "equipe-docs", fm.Extra["autor"])

	require.True(t, strings.HasPrefix(body, "# Mensalidades"))
	assert.NotContains(t, body, "---")
}

func TestParseFrontmatterDefaults(t *testing.T) {
	raw := `---
tags: [turmas]
---
Corpo.`

	p := NewParser(log.NewNop())
	fm, _ := p.Parse(raw, "docs/academico/turmas.md")

	// Missing id falls back to the file name, missing title to the id,
	// missing category to path inference.
	assert.Equal(t, "turmas", fm.ID)
	assert.Equal(t, "turmas", fm.Title)
	assert.Equal(t, CategoryAcademico, fm.Category)
}

func TestParseFrontmatterUnknownCategory(t *testing.T) {
	raw := `---
title: Avisos
category: naoexiste
---
Corpo.`

	p := NewParser(log.NewNop())
	fm, _ := p.Parse(raw, "docs/comunicacao/avisos.md")

	assert.Equal(t, CategoryComunicacao, fm.Category)
}

func TestParseBracketTags(t *testing.T) {
	raw := `[Documento: Painel Principal]
[Menu: Início > Painel]
[Rota: /dashboard]

Visão geral do painel.`

	p := NewParser(log.NewNop())
	fm, body := p.Parse(raw, "docs/dashboard/painel.md")

	assert.Equal(t, "Painel Principal", fm.Title)
	assert.Equal(t, "Início > Painel", fm.MenuPath)
	assert.Equal(t, "/dashboard", fm.Route)
	assert.Equal(t, "painel", fm.ID)
	assert.Equal(t, CategoryDashboard, fm.Category)
	assert.Equal(t, "Visão geral do painel.", strings.TrimSpace(body))
}

func TestParseBracketTagsRequireDocumento(t *testing.T) {
	// Menu and Rota tags alone do not trigger the convention.
	raw := "[Menu: Início]\n[Rota: /x]\n\nCorpo."

	p := NewParser(log.NewNop())
	fm, body := p.Parse(raw, "docs/geral/intro.md")

	assert.Equal(t, "intro", fm.Title)
	assert.Empty(t, fm.MenuPath)
	assert.Equal(t, raw, body)
}

func TestParseBracketTagsBeyondScanLimit(t *testing.T) {
	// A Documento tag past the scan window is plain content.
	raw := strings.Repeat("linha de texto\n", 12) + "[Documento: Tarde Demais]\n"

	p := NewParser(log.NewNop())
	fm, body := p.Parse(raw, "docs/geral/tarde.md")

	assert.Equal(t, "tarde", fm.Title)
	assert.Equal(t, raw, body)
}

func TestParseFallback(t *testing.T) {
	raw := "# Sem metadados\n\nApenas markdown puro."

	p := NewParser(log.NewNop())
	fm, body := p.Parse(raw, "docs/secretaria/matricula-rapida.md")

	assert.Equal(t, "matricula-rapida", fm.ID)
	assert.Equal(t, "matricula-rapida", fm.Title)
	assert.Equal(t, CategorySecretaria, fm.Category)
	assert.Equal(t, raw, body)
}

func TestParseUnterminatedFrontmatter(t *testing.T) {
	raw := "---\ntitle: Quebrada\n\nSem delimitador de fechamento."

	p := NewParser(log.NewNop())
	fm, body := p.Parse(raw, "docs/geral/quebrada.md")

	// Malformed block degrades to the fallback convention with the raw
	// text intact.
	assert.Equal(t, "quebrada", fm.Title)
	assert.Equal(t, raw, body)
}

func TestParseDeterministic(t *testing.T) {
	raw := `---
title: Relatórios
category: relatorios
tags: [pdf, excel]
---
Corpo do documento.`

	p := NewParser(log.NewNop())
	first, firstBody := p.Parse(raw, "docs/relatorios/exportar.md")
	second, secondBody := p.Parse(raw, "docs/relatorios/exportar.md")

	assert.Equal(t, first, second)
	assert.Equal(t, firstBody, secondBody)
}

func TestParseList(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"[a, b, c]", []string{"a", "b", "c"}},
		{"a, b", []string{"a", "b"}},
		{`["pix", 'boleto']`, []string{"pix", "boleto"}},
		{"[]", nil},
		{"", nil},
		{" , , ", nil},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, parseList(tc.in), "input %q", tc.in)
	}
}
