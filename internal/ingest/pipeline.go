package ingest

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/MarcusFernando/Bh-licit/internal/ai"
	"github.com/MarcusFernando/Bh-licit/internal/filter"
	"github.com/MarcusFernando/Bh-licit/internal/models"
)

const enrichBatchSize = 5

// Storage is the slice of the persistence layer the pipeline needs.
type Storage interface {
	InsertLicitacao(ctx context.Context, l models.Licitacao) (int64, bool, error)
	UpdateAnalysis(ctx context.Context, id int64, resumo, risco string) error
	ListPendingAnalysis(ctx context.Context, limit int) ([]models.Licitacao, error)
	RecordRunStart(ctx context.Context) string
	RecordRunFinish(ctx context.Context, runID, status string, found, created, rejected, errCount int)
}

// SyncStats summarizes one collection run.
type SyncStats struct {
	RunID    string `json:"run_id"`
	Found    int    `json:"found"`
	New      int    `json:"new"`
	Rejected int    `json:"rejected"`
	Enriched int    `json:"enriched"`
	Errors   int    `json:"errors"`
}

// Pipeline drives a full radar cycle: collect, classify, persist, enrich.
type Pipeline struct {
	Store   Storage
	Sources []Source
	AI      *ai.Orchestrator
}

func NewPipeline(store Storage, sources []Source, orchestrator *ai.Orchestrator) *Pipeline {
	return &Pipeline{Store: store, Sources: sources, AI: orchestrator}
}

// pendingRow ties a freshly inserted record to the raw candidate so the
// enrichment batch can be built without re-reading the database.
type pendingRow struct {
	id     int64
	status string
	cand   RawCandidate
}

// RunSync executes one radar cycle over the last N days of publications.
// A failing source is logged and skipped; the run only fails when every
// source fails.
func (p *Pipeline) RunSync(ctx context.Context, days int) (SyncStats, error) {
	stats := SyncStats{RunID: p.Store.RecordRunStart(ctx)}
	if stats.RunID == "" {
		stats.RunID = newRunID()
	}
	log.Printf("[Sync] Run %s started (window=%dd, sources=%d)", stats.RunID, days, len(p.Sources))

	window := WindowLastDays(time.Now(), days)
	var pending []pendingRow
	sourceFailures := 0

	for _, src := range p.Sources {
		candidates, err := src.Collect(ctx, window)
		if err != nil {
			log.Printf("[Sync] source %s failed: %v", src.Name(), err)
			sourceFailures++
			stats.Errors++
			continue
		}
		stats.Found += len(candidates)

		for _, cand := range candidates {
			row, inserted, err := p.persistCandidate(ctx, cand)
			if err != nil {
				log.Printf("[Sync] persist %s failed: %v", cand.PNCPID, err)
				stats.Errors++
				continue
			}
			if !inserted {
				continue
			}
			stats.New++
			if row.status == models.StatusRejeitado {
				stats.Rejected++
				continue
			}
			pending = append(pending, row)
		}
	}

	if sourceFailures == len(p.Sources) && len(p.Sources) > 0 {
		p.Store.RecordRunFinish(ctx, stats.RunID, "failed", stats.Found, stats.New, stats.Rejected, stats.Errors)
		return stats, fmt.Errorf("all %d sources failed", len(p.Sources))
	}

	stats.Enriched = p.enrichRows(ctx, pending)

	status := "completed"
	p.Store.RecordRunFinish(ctx, stats.RunID, status, stats.Found, stats.New, stats.Rejected, stats.Errors)
	log.Printf("[Sync] Run %s done: found=%d new=%d rejected=%d enriched=%d errors=%d",
		stats.RunID, stats.Found, stats.New, stats.Rejected, stats.Enriched, stats.Errors)
	return stats, nil
}

func (p *Pipeline) persistCandidate(ctx context.Context, cand RawCandidate) (pendingRow, bool, error) {
	decision := filter.Classify(filter.Candidate{
		Titulo:      cand.Titulo,
		Texto:       cand.Texto,
		EstadoSigla: cand.EstadoSigla,
	})

	l := models.Licitacao{
		PNCPID:           cand.PNCPID,
		Titulo:           cand.Titulo,
		OrgaoNome:        cand.OrgaoNome,
		OrgaoCNPJ:        cand.OrgaoCNPJ,
		EstadoSigla:      cand.EstadoSigla,
		Cidade:           cand.Cidade,
		DataPublicacao:   cand.DataPublicacao,
		DataAbertura:     cand.DataAbertura,
		LinkEdital:       cand.LinkEdital,
		Categoria:        cand.Categoria,
		Status:           decision.Status,
		RejectionReason:  decision.RejectionReason,
		IsMeEppExclusive: decision.MeEppExclusive,
		Priority:         decision.Priority,
		Score:            decision.Score,
	}

	id, inserted, err := p.Store.InsertLicitacao(ctx, l)
	if err != nil {
		return pendingRow{}, false, err
	}
	if !inserted {
		return pendingRow{}, false, nil
	}

	return pendingRow{id: id, status: decision.Status, cand: cand}, true, nil
}

// enrichRows runs admitted records through the analyzer chain in small
// batches, committing each batch's verdicts before starting the next so a
// mid-run crash keeps everything already analyzed.
func (p *Pipeline) enrichRows(ctx context.Context, rows []pendingRow) int {
	if p.AI == nil || len(rows) == 0 {
		return 0
	}

	enriched := 0
	for start := 0; start < len(rows); start += enrichBatchSize {
		end := start + enrichBatchSize
		if end > len(rows) {
			end = len(rows)
		}
		batch := rows[start:end]

		items := make([]ai.Item, 0, len(batch))
		idByCorr := make(map[ai.CorrelationID]int64, len(batch))
		for _, row := range batch {
			corr := ai.NewCorrelationID()
			idByCorr[corr] = row.id
			items = append(items, ai.Item{
				ID:     corr,
				Titulo: row.cand.Titulo,
				Orgao:  row.cand.OrgaoNome,
				Estado: row.cand.EstadoSigla,
				Cidade: row.cand.Cidade,
				Texto:  row.cand.Texto,
			})
		}

		for _, analysis := range p.AI.AnalyzeBatch(ctx, items) {
			id, ok := idByCorr[analysis.ID]
			if !ok {
				continue
			}
			if err := p.Store.UpdateAnalysis(ctx, id, analysis.Resumo, analysis.Risco); err != nil {
				log.Printf("[Sync] analysis save for %d failed: %v", id, err)
				continue
			}
			enriched++
		}
	}
	return enriched
}

// EnrichPending backfills analyses for admitted records that missed their
// enrichment pass (provider outage, crashed run).
func (p *Pipeline) EnrichPending(ctx context.Context, limit int) (int, error) {
	if p.AI == nil {
		return 0, nil
	}
	records, err := p.Store.ListPendingAnalysis(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("listing pending analyses: %w", err)
	}

	rows := make([]pendingRow, 0, len(records))
	for _, l := range records {
		rows = append(rows, pendingRow{
			id: l.ID,
			cand: RawCandidate{
				PNCPID:      l.PNCPID,
				Titulo:      l.Titulo,
				Texto:       l.Titulo,
				OrgaoNome:   l.OrgaoNome,
				EstadoSigla: l.EstadoSigla,
				Cidade:      l.Cidade,
			},
		})
	}
	return p.enrichRows(ctx, rows), nil
}
