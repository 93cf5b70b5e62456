package document

import "strings"

// Category classifies a document within the platform's documentation tree.
type Category string

// Known documentation categories.
const (
	CategoryGeral         Category = "geral"
	CategoryDashboard     Category = "dashboard"
	CategoryIA            Category = "ia"
	CategoryAcademico     Category = "academico"
	CategoryFinanceiro    Category = "financeiro"
	CategoryComunicacao   Category = "comunicacao"
	CategorySecretaria    Category = "secretaria"
	CategoryRelatorios    Category = "relatorios"
	CategoryConfiguracoes Category = "configuracoes"
)

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryGeral, CategoryDashboard, CategoryIA, CategoryAcademico,
		CategoryFinanceiro, CategoryComunicacao, CategorySecretaria,
		CategoryRelatorios, CategoryConfiguracoes:
		return true
	}
	return false
}

// categoryRule maps path substrings to a category. Rules are evaluated in
// order; the first match wins, so more specific prefixes must come first.
type categoryRule struct {
	substrings []string
	category   Category
}

var categoryRules = []categoryRule{
	{[]string{"/dashboard/", "/painel/"}, CategoryDashboard},
	{[]string{"/ia/", "/agente"}, CategoryIA},
	{[]string{"/academico/", "/turmas/", "/alunos/", "/professores/"}, CategoryAcademico},
	{[]string{"/financeiro/", "/cobranca", "/mensalidade"}, CategoryFinanceiro},
	{[]string{"/comunicacao/", "/mensagens/", "/avisos/"}, CategoryComunicacao},
	{[]string{"/secretaria/", "/matricula"}, CategorySecretaria},
	{[]string{"/relatorios/"}, CategoryRelatorios},
	{[]string{"/configuracoes/", "/ajustes/"}, CategoryConfiguracoes},
}

// InferCategory derives a category from a document's source path.
// Matching is case-insensitive and deterministic: the same path always
// yields the same category, and a path matching several rules takes the
// first rule in declaration order. Paths matching no rule fall back to
// CategoryGeral.
func InferCategory(path string) Category {
	lower := strings.ToLower(filepathToSlash(path))
	for _, rule := range categoryRules {
		for _, sub := range rule.substrings {
			if strings.Contains(lower, sub) {
				return rule.category
			}
		}
	}
	return CategoryGeral
}

// filepathToSlash normalizes Windows separators so the substring rules
// only need to know about forward slashes.
func filepathToSlash(path string) string {
	return strings.ReplaceAll(path, `\`, "/")
}
