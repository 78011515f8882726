package ingest

import (
	"context"
	"time"
)

// RawCandidate is an unclassified tender as delivered by a source, before
// any admission decision is made.
type RawCandidate struct {
	PNCPID         string
	Titulo         string
	Texto          string // free text the classifier runs over (objeto + extras)
	OrgaoNome      string
	OrgaoCNPJ      string
	EstadoSigla    string
	Cidade         string
	DataPublicacao *time.Time
	DataAbertura   *time.Time
	LinkEdital     string
	Categoria      string
	SourceName     string
}

// Window is the publication window a collection run covers.
type Window struct {
	Start time.Time
	End   time.Time
}

// WindowLastDays builds a window ending now and starting N days back.
func WindowLastDays(now time.Time, days int) Window {
	if days <= 0 {
		days = 1
	}
	return Window{Start: now.AddDate(0, 0, -days), End: now}
}

// Source collects raw tender candidates for a publication window. A source
// failure is isolated by the pipeline: one bad source never aborts a run.
type Source interface {
	Name() string
	Collect(ctx context.Context, window Window) ([]RawCandidate, error)
}
