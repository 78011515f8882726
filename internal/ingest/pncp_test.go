package ingest

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func pncpTestConfig(baseURL string) SourceConfig {
	return SourceConfig{
		Kind:       "pncp_api",
		BaseURL:    baseURL,
		States:     []string{"MA"},
		Modalities: []int{6},
		PageSize:   50,
	}
}

func TestPNCPCollectMapsRecords(t *testing.T) {
	var gotParams []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		gotParams = append(gotParams, fmt.Sprintf("uf=%s modalidade=%s pagina=%s",
			q.Get("uf"), q.Get("codigoModalidadeContratacao"), q.Get("pagina")))

		if q.Get("dataInicial") == "" || len(q.Get("dataInicial")) != 8 {
			t.Errorf("dataInicial must be YYYYMMDD, got %q", q.Get("dataInicial"))
		}

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"data": [{
				"anoCompra": 2025,
				"sequencialCompra": 94,
				"objetoCompra": "Aquisição de luvas cirúrgicas",
				"modalidadeNome": "Pregão Eletrônico",
				"dataPublicacaoPncp": "2025-08-20T10:30:00",
				"linkSistemaOrigem": "https://example.org/edital/94",
				"orgaoEntidade": {"cnpj": "12345678000190", "razaoSocial": "Prefeitura de Caxias"},
				"unidadeOrgao": {"ufSigla": "MA", "municipioNome": "Caxias"}
			}],
			"totalRegistros": 1,
			"totalPaginas": 1,
			"numeroPagina": 1
		}`)
	}))
	defer server.Close()

	src := NewPNCPSource(pncpTestConfig(server.URL))
	window := Window{Start: time.Date(2025, 8, 18, 0, 0, 0, 0, time.UTC), End: time.Date(2025, 8, 21, 0, 0, 0, 0, time.UTC)}

	got, err := src.Collect(context.Background(), window)
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(got))
	}

	cand := got[0]
	if cand.PNCPID != "12345678000190-2025-94" {
		t.Errorf("control number assembled wrong: %s", cand.PNCPID)
	}
	if cand.EstadoSigla != "MA" || cand.Cidade != "Caxias" {
		t.Errorf("location mapping wrong: %s/%s", cand.EstadoSigla, cand.Cidade)
	}
	if cand.DataPublicacao == nil || cand.DataPublicacao.Day() != 20 {
		t.Errorf("publication date not parsed: %v", cand.DataPublicacao)
	}
	if cand.LinkEdital != "https://example.org/edital/94" {
		t.Errorf("link mapping wrong: %s", cand.LinkEdital)
	}
	if len(gotParams) != 1 || gotParams[0] != "uf=MA modalidade=6 pagina=1" {
		t.Errorf("unexpected queries: %v", gotParams)
	}
}

func TestPNCPCollectEmptyWindow(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	src := NewPNCPSource(pncpTestConfig(server.URL))
	got, err := src.Collect(context.Background(), WindowLastDays(time.Now(), 3))
	if err != nil {
		t.Fatalf("204 must not be an error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no candidates, got %d", len(got))
	}
}

func TestPNCPCollectKeywordPrefilter(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"data": [
				{"anoCompra": 2025, "sequencialCompra": 1, "objetoCompra": "Aquisição de material hospitalar",
				 "orgaoEntidade": {"cnpj": "1"}, "unidadeOrgao": {"ufSigla": "MA"}},
				{"anoCompra": 2025, "sequencialCompra": 2, "objetoCompra": "Serviço de capina e roçagem",
				 "orgaoEntidade": {"cnpj": "1"}, "unidadeOrgao": {"ufSigla": "MA"}}
			],
			"totalPaginas": 1
		}`)
	}))
	defer server.Close()

	cfg := pncpTestConfig(server.URL)
	cfg.Keywords = []string{"hospitalar", "medicamento"}
	src := NewPNCPSource(cfg)

	got, err := src.Collect(context.Background(), WindowLastDays(time.Now(), 3))
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("pre-filter should keep 1 of 2, got %d", len(got))
	}
	if got[0].PNCPID != "1-2025-1" {
		t.Errorf("wrong record survived: %s", got[0].PNCPID)
	}
}

func TestPNCPCollectPaginationCap(t *testing.T) {
	pages := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pages++
		w.Header().Set("Content-Type", "application/json")
		// Always claims more pages exist.
		fmt.Fprintf(w, `{
			"data": [{"anoCompra": 2025, "sequencialCompra": %d, "objetoCompra": "Material hospitalar",
			          "orgaoEntidade": {"cnpj": "1"}, "unidadeOrgao": {"ufSigla": "MA"}}],
			"totalPaginas": 9999
		}`, pages)
	}))
	defer server.Close()

	src := NewPNCPSource(pncpTestConfig(server.URL))
	if _, err := src.Collect(context.Background(), WindowLastDays(time.Now(), 3)); err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	if pages != maxPagesPerQuery {
		t.Errorf("pagination must stop at the cap, visited %d pages", pages)
	}
}
