package ai

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type stubAnalyzer struct {
	name string
	out  []Analysis
	err  error
	hits int
}

func (s *stubAnalyzer) Name() string { return s.name }

func (s *stubAnalyzer) Analyze(ctx context.Context, items []Item) ([]Analysis, error) {
	s.hits++
	return s.out, s.err
}

func batchOf(ids ...CorrelationID) []Item {
	items := make([]Item, 0, len(ids))
	for _, id := range ids {
		items = append(items, Item{ID: id, Titulo: "Aquisição de luvas", Estado: "MA"})
	}
	return items
}

func TestAnalyzeBatchFirstProviderWins(t *testing.T) {
	items := batchOf("a", "b")
	first := &stubAnalyzer{name: "first", out: []Analysis{
		{ID: "a", Resumo: "resumo a", Risco: "baixo"},
		{ID: "b", Resumo: "resumo b", Risco: "baixo"},
	}}
	second := &stubAnalyzer{name: "second"}

	o := NewOrchestrator([]Analyzer{first, second})
	got := o.AnalyzeBatch(context.Background(), items)

	if len(got) != 2 {
		t.Fatalf("expected 2 analyses, got %d", len(got))
	}
	if got[0].Resumo != "resumo a" || got[1].Resumo != "resumo b" {
		t.Errorf("unexpected analyses: %+v", got)
	}
	if second.hits != 0 {
		t.Errorf("second analyzer should not run when the first succeeds")
	}
}

func TestAnalyzeBatchFailoverOnError(t *testing.T) {
	items := batchOf("a")
	broken := &stubAnalyzer{name: "broken", err: errors.New("rate limited")}
	backup := &stubAnalyzer{name: "backup", out: []Analysis{{ID: "a", Resumo: "from backup", Risco: "baixo"}}}

	o := NewOrchestrator([]Analyzer{broken, backup})
	got := o.AnalyzeBatch(context.Background(), items)

	if len(got) != 1 || got[0].Resumo != "from backup" {
		t.Errorf("expected backup analysis, got %+v", got)
	}
}

func TestAnalyzeBatchDiscardsForeignIDs(t *testing.T) {
	items := batchOf("a", "b")
	// A provider that echoes ids from some other batch entirely.
	confused := &stubAnalyzer{name: "confused", out: []Analysis{
		{ID: "x", Resumo: "wrong", Risco: "alto"},
		{ID: "y", Resumo: "wrong", Risco: "alto"},
	}}
	backup := &stubAnalyzer{name: "backup", out: []Analysis{
		{ID: "a", Resumo: "right a", Risco: "baixo"},
		{ID: "b", Resumo: "right b", Risco: "baixo"},
	}}

	o := NewOrchestrator([]Analyzer{confused, backup})
	got := o.AnalyzeBatch(context.Background(), items)

	for _, a := range got {
		if strings.Contains(a.Resumo, "wrong") {
			t.Fatalf("foreign-id output must be discarded, got %+v", got)
		}
	}
	if backup.hits != 1 {
		t.Errorf("backup should have been consulted once, got %d", backup.hits)
	}
}

func TestAnalyzeBatchFillsPartialCoverage(t *testing.T) {
	items := batchOf("a", "b", "c")
	partial := &stubAnalyzer{name: "partial", out: []Analysis{
		{ID: "b", Resumo: "provider b", Risco: "baixo"},
	}}

	o := NewOrchestrator([]Analyzer{partial})
	got := o.AnalyzeBatch(context.Background(), items)

	if len(got) != len(items) {
		t.Fatalf("expected %d analyses, got %d", len(items), len(got))
	}
	if got[1].Resumo != "provider b" {
		t.Errorf("matched item should keep the provider verdict, got %+v", got[1])
	}
	for i, idx := range []int{0, 2} {
		if got[idx].Resumo == "" || got[idx].Risco == "" {
			t.Errorf("gap %d should be filled locally, got %+v", i, got[idx])
		}
		if got[idx].ID != items[idx].ID {
			t.Errorf("filled analysis %d has wrong id %s", idx, got[idx].ID)
		}
	}
}

func TestAnalyzeBatchDuplicateIDsFirstWins(t *testing.T) {
	items := batchOf("a")
	noisy := &stubAnalyzer{name: "noisy", out: []Analysis{
		{ID: "a", Resumo: "first", Risco: "baixo"},
		{ID: "a", Resumo: "second", Risco: "alto"},
	}}

	o := NewOrchestrator([]Analyzer{noisy})
	got := o.AnalyzeBatch(context.Background(), items)

	if len(got) != 1 || got[0].Resumo != "first" {
		t.Errorf("expected the first duplicate to win, got %+v", got)
	}
}

func TestAnalyzeBatchAllProvidersDown(t *testing.T) {
	items := batchOf("a", "b")
	chain := NewChain(Config{}) // no keys configured, contingency only

	o := NewOrchestrator(chain)
	got := o.AnalyzeBatch(context.Background(), items)

	if len(got) != 2 {
		t.Fatalf("expected 2 analyses, got %d", len(got))
	}
	for i, a := range got {
		if a.ID != items[i].ID {
			t.Errorf("analysis %d has id %s, want %s", i, a.ID, items[i].ID)
		}
		if a.Resumo == "" || a.Risco == "" {
			t.Errorf("contingency output must be complete, got %+v", a)
		}
	}
}
