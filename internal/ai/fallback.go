package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/MarcusFernando/Bh-licit/internal/filter"
)

// ContingencyAnalyzer is the deterministic last rung of the chain. It never
// fails and never calls the network, so a batch always gets a verdict even
// with every provider down.
type ContingencyAnalyzer struct{}

func NewContingencyAnalyzer() *ContingencyAnalyzer {
	return &ContingencyAnalyzer{}
}

func (a *ContingencyAnalyzer) Name() string { return "contingency" }

// goldTerms mark the product lines with the best historical margin.
var goldTerms = []string{"luva", "seringa", "cateter", "soro", "compressa", "gaze", "agulha", "esparadrapo"}

func (a *ContingencyAnalyzer) Analyze(ctx context.Context, items []Item) ([]Analysis, error) {
	out := make([]Analysis, 0, len(items))
	for _, it := range items {
		out = append(out, a.analyzeOne(it))
	}
	return out, nil
}

func (a *ContingencyAnalyzer) analyzeOne(it Item) Analysis {
	text := it.Titulo + " " + it.Texto

	// Geography overrides everything else: a tender outside the coverage
	// area is a logistics risk no matter how good the object looks.
	if !filter.GeographicOK(it.Estado) || filter.MentionsForbiddenRegion(text) {
		return Analysis{
			ID:     it.ID,
			Resumo: summarize(it),
			Nota:   0,
			Risco:  "ALTO: órgão fora da região de atuação (MA/PI/PA), custo logístico inviável.",
		}
	}

	score := 40 // inside the coverage area
	var hits []string
	lower := strings.ToLower(text)
	for _, term := range goldTerms {
		if strings.Contains(lower, term) {
			hits = append(hits, term)
		}
	}
	if len(hits) > 0 {
		score += 50
	}

	risco := "MÉDIO: análise automática local, revisar edital antes de cotar."
	if score >= 90 {
		risco = fmt.Sprintf("BAIXO: região atendida e itens de linha própria (%s).", strings.Join(hits, ", "))
	}

	return Analysis{
		ID:     it.ID,
		Resumo: summarize(it),
		Nota:   score,
		Risco:  risco,
	}
}

func summarize(it Item) string {
	objeto := strings.TrimSpace(it.Titulo)
	if objeto == "" {
		objeto = truncate(strings.TrimSpace(it.Texto), 200)
	}
	if it.Orgao != "" {
		return fmt.Sprintf("Objeto: %s. Órgão: %s.", truncate(objeto, 220), it.Orgao)
	}
	return "Objeto: " + truncate(objeto, 220) + "."
}
