package ai

import (
	"context"
	"os"

	"github.com/google/uuid"
)

// CorrelationID ties an analyzer verdict back to the tender it was issued
// for. Providers echo it; positional matching is never trusted.
type CorrelationID string

func NewCorrelationID() CorrelationID {
	return CorrelationID(uuid.NewString())
}

// Item is one tender handed to an analyzer batch.
type Item struct {
	ID     CorrelationID
	Titulo string
	Orgao  string
	Estado string
	Cidade string
	Texto  string
}

// Analysis is a per-item verdict: a short summary, a 0-100 opportunity
// grade and a risk note.
type Analysis struct {
	ID     CorrelationID `json:"id_interno"`
	Resumo string        `json:"resumo"`
	Nota   int           `json:"nota"`
	Risco  string        `json:"risco"`
}

// Analyzer produces analyses for a batch of tenders. Implementations either
// cover the batch or fail it, the orchestrator handles partial output.
type Analyzer interface {
	Name() string
	Analyze(ctx context.Context, items []Item) ([]Analysis, error)
}

type Config struct {
	GroqAPIKey    string
	GroqModel     string
	GeminiAPIKey  string
	GeminiModel   string
	GeminiEnabled bool
}

func ConfigFromEnv() Config {
	return Config{
		GroqAPIKey:    os.Getenv("GROQ_API_KEY"),
		GroqModel:     os.Getenv("GROQ_MODEL"),
		GeminiAPIKey:  os.Getenv("GEMINI_API_KEY"),
		GeminiModel:   os.Getenv("GEMINI_MODEL"),
		GeminiEnabled: os.Getenv("GEMINI_ENABLED") == "true",
	}
}

// NewChain builds the ordered analyzer list from configuration. Whether a
// provider participates is decided here, once, not per call. The chain
// always ends with the deterministic analyzer, so it never comes up empty.
func NewChain(cfg Config) []Analyzer {
	var chain []Analyzer
	if cfg.GroqAPIKey != "" {
		chain = append(chain, NewGroqClient(cfg.GroqAPIKey, cfg.GroqModel))
	}
	if cfg.GeminiEnabled && cfg.GeminiAPIKey != "" {
		chain = append(chain, NewGeminiClient(cfg.GeminiAPIKey, cfg.GeminiModel))
	}
	chain = append(chain, NewContingencyAnalyzer())
	return chain
}
