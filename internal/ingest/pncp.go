package ingest

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// maxPagesPerQuery caps pagination for a single state/modality query so a
// misbehaving totalPaginas can never loop a run forever.
const maxPagesPerQuery = 100

// PNCPSource collects published tenders from the official PNCP consulta API.
type PNCPSource struct {
	Client     *http.Client
	BaseURL    string
	States     []string
	Modalities []int
	PageSize   int
	Keywords   []string // coarse pre-filter on the object text, empty = keep all
}

func NewPNCPSource(cfg SourceConfig) *PNCPSource {
	timeout := 60 * time.Second
	if cfg.Fetch.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.Fetch.TimeoutSeconds) * time.Second
	}
	base := cfg.BaseURL
	if base == "" {
		base = "https://pncp.gov.br/api/consulta/v1/contratacoes/publicacao"
	}
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}
	states := cfg.States
	if len(states) == 0 {
		states = []string{"MA", "PI", "PA"}
	}
	modalities := cfg.Modalities
	if len(modalities) == 0 {
		// pregão eletrônico, dispensa, leilão eletrônico
		modalities = []int{6, 8, 13}
	}
	return &PNCPSource{
		Client:     &http.Client{Timeout: timeout},
		BaseURL:    base,
		States:     states,
		Modalities: modalities,
		PageSize:   pageSize,
		Keywords:   cfg.Keywords,
	}
}

func (s *PNCPSource) Name() string { return "pncp_api" }

// pncpRecord mirrors the consulta API publication payload.
type pncpRecord struct {
	AnoCompra            int    `json:"anoCompra"`
	SequencialCompra     int    `json:"sequencialCompra"`
	ObjetoCompra         string `json:"objetoCompra"`
	ModalidadeNome       string `json:"modalidadeNome"`
	DataPublicacaoPncp   string `json:"dataPublicacaoPncp"`
	DataAberturaProposta string `json:"dataAberturaProposta"`
	LinkSistemaOrigem    string `json:"linkSistemaOrigem"`
	OrgaoEntidade        struct {
		CNPJ        string `json:"cnpj"`
		RazaoSocial string `json:"razaoSocial"`
	} `json:"orgaoEntidade"`
	UnidadeOrgao struct {
		UFSigla       string `json:"ufSigla"`
		MunicipioNome string `json:"municipioNome"`
	} `json:"unidadeOrgao"`
}

type pncpPage struct {
	Data          []pncpRecord `json:"data"`
	TotalRegistros int         `json:"totalRegistros"`
	TotalPaginas   int         `json:"totalPaginas"`
	NumeroPagina   int         `json:"numeroPagina"`
	Empty          bool        `json:"empty"`
}

// Collect walks every state/modality pair over the window, paginating until
// the API reports no more pages. A failed query logs and moves on so one
// bad combination does not sink the whole run.
func (s *PNCPSource) Collect(ctx context.Context, window Window) ([]RawCandidate, error) {
	var out []RawCandidate
	seen := make(map[string]bool)
	failures := 0
	queries := 0

	for _, uf := range s.States {
		for _, modalidade := range s.Modalities {
			queries++
			records, err := s.collectQuery(ctx, window, uf, modalidade)
			if err != nil {
				log.Printf("[PNCP] query uf=%s modalidade=%d failed: %v", uf, modalidade, err)
				failures++
				continue
			}
			for _, cand := range records {
				if seen[cand.PNCPID] {
					continue
				}
				seen[cand.PNCPID] = true
				out = append(out, cand)
			}
		}
	}

	if failures == queries && queries > 0 {
		return nil, fmt.Errorf("all %d PNCP queries failed", queries)
	}

	log.Printf("[PNCP] Collected %d candidates (%d/%d queries ok)", len(out), queries-failures, queries)
	return out, nil
}

func (s *PNCPSource) collectQuery(ctx context.Context, window Window, uf string, modalidade int) ([]RawCandidate, error) {
	var out []RawCandidate

	for pagina := 1; pagina <= maxPagesPerQuery; pagina++ {
		page, err := s.fetchPage(ctx, window, uf, modalidade, pagina)
		if err != nil {
			return nil, err
		}
		if page.Empty || len(page.Data) == 0 {
			break
		}

		for _, rec := range page.Data {
			cand, ok := s.toCandidate(rec)
			if !ok {
				continue
			}
			out = append(out, cand)
		}

		if page.TotalPaginas > 0 && pagina >= page.TotalPaginas {
			break
		}
	}

	return out, nil
}

func (s *PNCPSource) fetchPage(ctx context.Context, window Window, uf string, modalidade, pagina int) (*pncpPage, error) {
	params := url.Values{}
	params.Set("dataInicial", window.Start.Format("20060102"))
	params.Set("dataFinal", window.End.Format("20060102"))
	params.Set("codigoModalidadeContratacao", strconv.Itoa(modalidade))
	params.Set("uf", uf)
	params.Set("pagina", strconv.Itoa(pagina))
	params.Set("tamanhoPagina", strconv.Itoa(s.PageSize))

	req, err := http.NewRequestWithContext(ctx, "GET", s.BaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	// 204 means an empty window, not an error.
	if resp.StatusCode == http.StatusNoContent {
		return &pncpPage{Empty: true}, nil
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("API returned %d: %s", resp.StatusCode, string(body))
	}

	var page pncpPage
	if err := decodeJSON(resp.Body, &page); err != nil {
		return nil, fmt.Errorf("decoding page %d: %w", pagina, err)
	}
	return &page, nil
}

func (s *PNCPSource) toCandidate(rec pncpRecord) (RawCandidate, bool) {
	if rec.OrgaoEntidade.CNPJ == "" || rec.SequencialCompra == 0 {
		return RawCandidate{}, false
	}
	objeto := strings.TrimSpace(rec.ObjetoCompra)
	if objeto == "" {
		return RawCandidate{}, false
	}
	if len(s.Keywords) > 0 && !containsAnyFold(objeto, s.Keywords) {
		return RawCandidate{}, false
	}

	cand := RawCandidate{
		PNCPID:      fmt.Sprintf("%s-%d-%d", rec.OrgaoEntidade.CNPJ, rec.AnoCompra, rec.SequencialCompra),
		Titulo:      TruncateText(objeto, 300),
		Texto:       objeto + " " + rec.ModalidadeNome,
		OrgaoNome:   rec.OrgaoEntidade.RazaoSocial,
		OrgaoCNPJ:   rec.OrgaoEntidade.CNPJ,
		EstadoSigla: rec.UnidadeOrgao.UFSigla,
		Cidade:      rec.UnidadeOrgao.MunicipioNome,
		LinkEdital:  rec.LinkSistemaOrigem,
		Categoria:   rec.ModalidadeNome,
		SourceName:  s.Name(),
	}
	if t, ok := parsePNCPTime(rec.DataPublicacaoPncp); ok {
		cand.DataPublicacao = &t
	}
	if t, ok := parsePNCPTime(rec.DataAberturaProposta); ok {
		cand.DataAbertura = &t
	}
	if cand.LinkEdital == "" {
		cand.LinkEdital = "https://pncp.gov.br/app/editais?q=" + url.QueryEscape(cand.PNCPID)
	}
	return cand, true
}

// parsePNCPTime accepts the API's timestamp variants.
func parsePNCPTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{"2006-01-02T15:04:05", time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func containsAnyFold(text string, terms []string) bool {
	lower := strings.ToLower(text)
	for _, term := range terms {
		if term != "" && strings.Contains(lower, strings.ToLower(term)) {
			return true
		}
	}
	return false
}

// newRunID tags a collection run for log correlation.
func newRunID() string {
	return uuid.NewString()
}
