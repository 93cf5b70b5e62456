package document

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInferCategory(t *testing.T) {
	cases := []struct {
		path string
		want Category
	}{
		{"docs/dashboard/visao-geral.md", CategoryDashboard},
		{"docs/painel/widgets.md", CategoryDashboard},
		{"docs/ia/assistente.md", CategoryIA},
		{"docs/academico/notas.md", CategoryAcademico},
		{"docs/turmas/criar.md", CategoryAcademico},
		{"docs/financeiro/boletos.md", CategoryFinanceiro},
		{"docs/geral/cobranca-automatica.md", CategoryFinanceiro},
		{"docs/comunicacao/mural.md", CategoryComunicacao},
		{"docs/avisos/enviar.md", CategoryComunicacao},
		{"docs/secretaria/documentos.md", CategorySecretaria},
		{"docs/matricula-online.md", CategorySecretaria},
		{"docs/relatorios/frequencia.md", CategoryRelatorios},
		{"docs/configuracoes/perfil.md", CategoryConfiguracoes},
		{"docs/introducao.md", CategoryGeral},
		{"README.md", CategoryGeral},
		{`docs\FINANCEIRO\pix.md`, CategoryFinanceiro},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, InferCategory(tc.path), "path %q", tc.path)
	}
}

func TestInferCategoryFirstRuleWins(t *testing.T) {
	// A path matching several rules resolves by declaration order.
	assert.Equal(t, CategoryDashboard, InferCategory("docs/dashboard/financeiro.md"))
}

func TestCategoryValid(t *testing.T) {
	for _, c := range []Category{
		CategoryGeral, CategoryDashboard, CategoryIA, CategoryAcademico,
		CategoryFinanceiro, CategoryComunicacao, CategorySecretaria,
		CategoryRelatorios, CategoryConfiguracoes,
	} {
		assert.True(t, c.Valid(), "category %q", c)
	}
	assert.False(t, Category("").Valid())
	assert.False(t, Category("Financeiro").Valid())
	assert.False(t, Category("outra").Valid())
}
