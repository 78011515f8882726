package ai

import (
	"context"
	"log"
)

// Orchestrator runs a batch down the analyzer chain. The first analyzer
// that answers wins; its output is then reconciled against the input so
// every tender leaves with exactly one verdict, echoed ids deciding the
// mapping rather than response order.
type Orchestrator struct {
	chain       []Analyzer
	contingency *ContingencyAnalyzer
}

func NewOrchestrator(chain []Analyzer) *Orchestrator {
	return &Orchestrator{
		chain:       chain,
		contingency: NewContingencyAnalyzer(),
	}
}

// AnalyzeBatch always returns len(items) analyses, in input order.
func (o *Orchestrator) AnalyzeBatch(ctx context.Context, items []Item) []Analysis {
	if len(items) == 0 {
		return nil
	}

	for _, analyzer := range o.chain {
		got, err := analyzer.Analyze(ctx, items)
		if err != nil {
			log.Printf("[AI] %s failed for batch of %d: %v", analyzer.Name(), len(items), err)
			continue
		}

		byID := make(map[CorrelationID]Analysis, len(got))
		for _, a := range got {
			if a.ID == "" {
				continue
			}
			// First answer per id wins, duplicates are provider noise.
			if _, dup := byID[a.ID]; !dup {
				byID[a.ID] = a
			}
		}

		matched := 0
		for _, it := range items {
			if _, ok := byID[it.ID]; ok {
				matched++
			}
		}
		if matched == 0 {
			// Nothing the provider said maps back to our batch. Treat the
			// whole response as garbage and try the next analyzer.
			log.Printf("[AI] %s returned %d analyses with no matching ids, discarding", analyzer.Name(), len(got))
			continue
		}

		return o.reconcile(items, byID, analyzer.Name(), matched)
	}

	// Unreachable when the chain ends with the contingency analyzer, but a
	// hand-built chain may not.
	out, _ := o.contingency.Analyze(ctx, items)
	return out
}

func (o *Orchestrator) reconcile(items []Item, byID map[CorrelationID]Analysis, provider string, matched int) []Analysis {
	if matched < len(items) {
		log.Printf("[AI] %s covered %d/%d items, filling the rest locally", provider, matched, len(items))
	}

	out := make([]Analysis, 0, len(items))
	for _, it := range items {
		if a, ok := byID[it.ID]; ok {
			out = append(out, a)
			continue
		}
		out = append(out, o.contingency.analyzeOne(it))
	}
	return out
}
