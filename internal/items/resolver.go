package items

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/MarcusFernando/Bh-licit/internal/models"
)

const itemPageSize = 50

// maxItemPages bounds pagination for a single variant probe.
const maxItemPages = 100

// Storage is the slice of the persistence layer the resolver needs.
type Storage interface {
	GetItems(ctx context.Context, licitacaoID int64) ([]models.LicitacaoItem, error)
	InsertItems(ctx context.Context, licitacaoID int64, items []models.LicitacaoItem) error
}

// Scraper is the portal fallback for tenders whose items never appear on
// either API generation.
type Scraper interface {
	ScrapeItems(ctx context.Context, editalURL string) ([]models.LicitacaoItem, error)
}

// Resolver locates the item list of a tender. The PNCP exposes items under
// two API generations and is inconsistent about zero-padding the purchase
// sequence, so the resolver probes padding variants against both
// generations until one answers.
type Resolver struct {
	Client       *http.Client
	APIBase      string // current generation
	ConsultaBase string // legacy consulta generation
	Store        Storage
	Fallback     Scraper
}

func NewResolver(store Storage, fallback Scraper) *Resolver {
	return &Resolver{
		Client:       &http.Client{Timeout: 60 * time.Second},
		APIBase:      "https://pncp.gov.br/pncp-api/v1",
		ConsultaBase: "https://pncp.gov.br/api/consulta/v1",
		Store:        store,
		Fallback:     fallback,
	}
}

// Resolve returns the item list for a tender, fetching and persisting it on
// first call. Already-resolved tenders are answered from the database with
// no network traffic.
func (r *Resolver) Resolve(ctx context.Context, l *models.Licitacao) ([]models.LicitacaoItem, error) {
	existing, err := r.Store.GetItems(ctx, l.ID)
	if err != nil {
		return nil, fmt.Errorf("checking stored items for %s: %w", l.PNCPID, err)
	}
	if len(existing) > 0 {
		return existing, nil
	}

	items, err := r.fetch(ctx, l)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("no items found for %s", l.PNCPID)
	}

	if err := r.Store.InsertItems(ctx, l.ID, items); err != nil {
		return nil, fmt.Errorf("persisting items for %s: %w", l.PNCPID, err)
	}
	return items, nil
}

func (r *Resolver) fetch(ctx context.Context, l *models.Licitacao) ([]models.LicitacaoItem, error) {
	id, err := models.ParsePNCPID(l.PNCPID)
	if err != nil {
		// Scraped records carry synthetic ids; the portal page is the only
		// place their items can come from.
		return r.scrapeFallback(ctx, l, fmt.Errorf("unparseable control number: %w", err))
	}

	// Every sequence spelling is tried against the current generation
	// before the legacy consulta API is touched at all.
	for _, base := range []string{r.APIBase, r.ConsultaBase} {
		for _, seq := range id.SeqVariants() {
			items, err := r.fetchVariant(ctx, base, id, seq)
			if err != nil {
				log.Printf("[Items] %s seq=%s via %s: %v", l.PNCPID, seq, base, err)
				continue
			}
			if len(items) > 0 {
				log.Printf("[Items] %s resolved with seq=%s (%d items)", l.PNCPID, seq, len(items))
				return items, nil
			}
		}
	}

	return r.scrapeFallback(ctx, l, fmt.Errorf("all sequence variants exhausted"))
}

func (r *Resolver) scrapeFallback(ctx context.Context, l *models.Licitacao, cause error) ([]models.LicitacaoItem, error) {
	if r.Fallback == nil || l.LinkEdital == "" {
		return nil, fmt.Errorf("items unavailable for %s: %w", l.PNCPID, cause)
	}
	log.Printf("[Items] %s falling back to portal scrape: %v", l.PNCPID, cause)
	items, err := r.Fallback.ScrapeItems(ctx, l.LinkEdital)
	if err != nil {
		return nil, fmt.Errorf("portal scrape for %s failed: %w", l.PNCPID, err)
	}
	return items, nil
}

// fetchVariant pulls every item page for one sequence spelling. The page
// set is returned as a whole or not at all: a failure mid-pagination
// discards the partial list so the store never sees a truncated batch.
func (r *Resolver) fetchVariant(ctx context.Context, base string, id models.PNCPID, seq string) ([]models.LicitacaoItem, error) {
	var out []models.LicitacaoItem

	for pagina := 1; pagina <= maxItemPages; pagina++ {
		url := fmt.Sprintf("%s/orgaos/%s/compras/%s/%s/itens?pagina=%d&tamanhoPagina=%d",
			base, id.CNPJ, id.Ano, seq, pagina, itemPageSize)

		page, status, err := r.fetchItemPage(ctx, url)
		if err != nil {
			return nil, err
		}
		if status == http.StatusNotFound || status == http.StatusNoContent {
			break
		}
		if len(page) == 0 {
			break
		}

		out = append(out, page...)
		if len(page) < itemPageSize {
			break
		}
	}

	return out, nil
}

func (r *Resolver) fetchItemPage(ctx context.Context, url string) ([]models.LicitacaoItem, int, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.Client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("item request failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound, http.StatusNoContent:
		return nil, resp.StatusCode, nil
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return nil, resp.StatusCode, fmt.Errorf("item API returned %d: %s", resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("reading item page: %w", err)
	}
	rows, err := itemRows(body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("decoding item page: %w", err)
	}

	items := make([]models.LicitacaoItem, 0, len(rows))
	for i, raw := range rows {
		item, err := mapItemPayload(raw)
		if err != nil {
			// One bad row is the API's problem, not a reason to drop the page.
			log.Printf("[Items] skipping malformed row %d at %s: %v", i, url, err)
			continue
		}
		items = append(items, item)
	}
	return items, resp.StatusCode, nil
}

// itemRows accepts the payload shapes both generations produce: a bare
// array, or an object wrapping it under "data" or "items".
func itemRows(body []byte) ([]json.RawMessage, error) {
	var rows []json.RawMessage
	if err := json.Unmarshal(body, &rows); err == nil {
		return rows, nil
	}

	var wrapped struct {
		Data  []json.RawMessage `json:"data"`
		Items []json.RawMessage `json:"items"`
	}
	if err := json.Unmarshal(body, &wrapped); err != nil {
		return nil, err
	}
	if wrapped.Data != nil {
		return wrapped.Data, nil
	}
	return wrapped.Items, nil
}

// itemPayload mirrors the item endpoints of both API generations. Field
// presence varies between them, so everything important is optional.
type itemPayload struct {
	NumeroItem            *int            `json:"numeroItem"`
	Descricao             string          `json:"descricao"`
	Quantidade            *float64        `json:"quantidade"`
	ValorUnitarioEstimado *float64        `json:"valorUnitarioEstimado"`
	UnidadeMedida         string          `json:"unidadeMedida"`
	CodigoItem            json.RawMessage `json:"codigoItem"` // string in one generation, number in the other
}

// mapItemPayload applies the permissive defaults: missing quantity means
// one unit, missing price means unpriced, missing unit means "UN".
func mapItemPayload(raw json.RawMessage) (models.LicitacaoItem, error) {
	var p itemPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return models.LicitacaoItem{}, err
	}

	item := models.LicitacaoItem{
		NumeroItem:    1,
		Descricao:     "Sem descrição",
		Quantidade:    1.0,
		Unidade:       "UN",
		ValorUnitario: 0.0,
		CodigoItem:    rawToString(p.CodigoItem),
	}
	if p.NumeroItem != nil {
		item.NumeroItem = *p.NumeroItem
	}
	if p.Descricao != "" {
		item.Descricao = p.Descricao
	}
	if p.Quantidade != nil && *p.Quantidade > 0 {
		item.Quantidade = *p.Quantidade
	}
	if p.ValorUnitarioEstimado != nil && *p.ValorUnitarioEstimado >= 0 {
		item.ValorUnitario = *p.ValorUnitarioEstimado
	}
	if p.UnidadeMedida != "" {
		item.Unidade = p.UnidadeMedida
	}
	return item, nil
}

func rawToString(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}
