package ingest

import (
	"embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed config/sources.yaml
var sourcesYAML embed.FS

// Registry holds the configuration for all data sources.
type Registry struct {
	Sources []SourceConfig `yaml:"sources"`
}

// FetchConfig defines HTTP fetching configuration for a source.
type FetchConfig struct {
	TimeoutSeconds int     `yaml:"timeout_seconds,omitempty"`
	MaxRetries     int     `yaml:"max_retries,omitempty"`
	RateLimitRPS   float64 `yaml:"rate_limit_rps,omitempty"`
}

// SourceConfig defines a single data source for collection runs.
type SourceConfig struct {
	ID          string   `yaml:"id"`
	Name        string   `yaml:"name"`
	Kind        string   `yaml:"kind"` // "pncp_api", "google_news"
	BaseURL     string   `yaml:"base_url,omitempty"`
	States      []string `yaml:"states,omitempty"`
	Modalities  []int    `yaml:"modalities,omitempty"`
	Keywords    []string `yaml:"keywords,omitempty"`
	Queries     []string `yaml:"queries,omitempty"`
	PageSize    int      `yaml:"page_size,omitempty"`
	Active      bool     `yaml:"active"`
	Description string   `yaml:"description,omitempty"`

	Fetch FetchConfig `yaml:"fetch,omitempty"`
}

// LoadRegistry reads the embedded sources.yaml and returns a Registry.
// The path parameter is a filesystem fallback for local development.
func LoadRegistry(path string) (*Registry, error) {
	data, err := sourcesYAML.ReadFile("config/sources.yaml")
	if err != nil {
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, err
		}
	}

	// Expand environment variables within the YAML content (e.g. ${PNCP_UFS})
	expanded := os.ExpandEnv(string(data))

	var reg Registry
	if err := yaml.Unmarshal([]byte(expanded), &reg); err != nil {
		return nil, err
	}

	return &reg, nil
}

// BuildSources instantiates collectors for every active source in the
// registry.
func BuildSources(reg *Registry) ([]Source, error) {
	var sources []Source
	for _, cfg := range reg.Sources {
		if !cfg.Active {
			continue
		}
		switch cfg.Kind {
		case "pncp_api":
			sources = append(sources, NewPNCPSource(cfg))
		case "google_news":
			sources = append(sources, NewNewsSource(cfg))
		default:
			return nil, fmt.Errorf("unknown source kind %q (id=%s)", cfg.Kind, cfg.ID)
		}
	}
	return sources, nil
}
