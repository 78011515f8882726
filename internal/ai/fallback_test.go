package ai

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestContingencyGeographyOverridesGoodObject(t *testing.T) {
	a := NewContingencyAnalyzer()
	got, err := a.Analyze(context.Background(), []Item{
		{ID: "1", Titulo: "Aquisição de luvas e seringas", Estado: "SP"},
		{ID: "2", Titulo: "Aquisição de luvas", Texto: "Entrega em São Paulo", Estado: "MA"},
	})
	if err != nil {
		t.Fatalf("contingency must not fail: %v", err)
	}
	for i, an := range got {
		if !strings.HasPrefix(an.Risco, "ALTO") {
			t.Errorf("case %d: out-of-region tender must be flagged ALTO, got %q", i, an.Risco)
		}
		if an.Nota != 0 {
			t.Errorf("case %d: out-of-region tender must grade 0, got %d", i, an.Nota)
		}
	}
}

func TestContingencyGoldTermsLowerRisk(t *testing.T) {
	a := NewContingencyAnalyzer()
	got, _ := a.Analyze(context.Background(), []Item{
		{ID: "1", Titulo: "Registro de preços para seringas e agulhas", Estado: "PI", Orgao: "Hospital Regional"},
	})
	if len(got) != 1 {
		t.Fatalf("expected 1 analysis, got %d", len(got))
	}
	if !strings.HasPrefix(got[0].Risco, "BAIXO") {
		t.Errorf("in-region gold-term tender should be BAIXO, got %q", got[0].Risco)
	}
	if got[0].Nota != 90 {
		t.Errorf("gold-term tender should grade 90, got %d", got[0].Nota)
	}
	if !strings.Contains(got[0].Resumo, "Hospital Regional") {
		t.Errorf("summary should name the organ, got %q", got[0].Resumo)
	}
}

func TestContingencyInRegionWithoutGoldTerms(t *testing.T) {
	a := NewContingencyAnalyzer()
	got, _ := a.Analyze(context.Background(), []Item{
		{ID: "1", Titulo: "Aquisição de equipamentos de raio-x", Estado: "PA"},
	})
	if !strings.HasPrefix(got[0].Risco, "MÉDIO") {
		t.Errorf("expected MÉDIO risk, got %q", got[0].Risco)
	}
}

func TestParseAnalysesHandlesFencesAndProse(t *testing.T) {
	cases := []struct {
		name string
		in   string
	}{
		{"plain", `[{"id_interno":"a","resumo":"r","risco":"x"}]`},
		{"fenced", "```json\n[{\"id_interno\":\"a\",\"resumo\":\"r\",\"risco\":\"x\"}]\n```"},
		{"prose", `Segue a análise: [{"id_interno":"a","resumo":"r","risco":"x"}] Espero ter ajudado.`},
		{"nested brackets", `[{"id_interno":"a","resumo":"itens [1] e [2]","risco":"x"}]`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := parseAnalyses(tc.in)
			if err != nil {
				t.Fatalf("parse failed: %v", err)
			}
			if len(got) != 1 || got[0].ID != "a" {
				t.Errorf("unexpected result: %+v", got)
			}
		})
	}
}

func TestTruncateKeepsValidUTF8(t *testing.T) {
	in := strings.Repeat("x", 1499) + "ção"
	got := truncate(in, 1500)
	if !utf8.ValidString(got) {
		t.Fatalf("truncated prompt text is not valid UTF-8: %x", got[len(got)-4:])
	}
	if len(got) > 1500 {
		t.Errorf("result exceeds limit: %d bytes", len(got))
	}
}

func TestParseAnalysesAcceptsSingleObject(t *testing.T) {
	got, err := parseAnalyses(`{"id_interno":"a","resumo":"r","risco":"x"}`)
	if err != nil {
		t.Fatalf("single-object response should parse: %v", err)
	}
	if len(got) != 1 || got[0].ID != "a" {
		t.Errorf("unexpected result: %+v", got)
	}
}

func TestParseAnalysesRejectsGarbage(t *testing.T) {
	for _, in := range []string{"", "desculpe, não posso ajudar", `{"foo":"bar"}`} {
		if _, err := parseAnalyses(in); err == nil {
			t.Errorf("expected error for %q", in)
		}
	}
}
