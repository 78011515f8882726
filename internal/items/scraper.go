package items

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/MarcusFernando/Bh-licit/internal/models"
	"github.com/gocolly/colly/v2"
)

// PortalScraper extracts item tables from procurement portal pages. It is
// strictly a fallback: the layout heuristics are loose and the output is
// only as good as the portal's HTML.
type PortalScraper struct {
	UserAgent string
	Timeout   time.Duration
	Delay     time.Duration
}

func NewPortalScraper() *PortalScraper {
	return &PortalScraper{
		UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		Timeout:   30 * time.Second,
		Delay:     time.Second,
	}
}

func (s *PortalScraper) ScrapeItems(ctx context.Context, editalURL string) ([]models.LicitacaoItem, error) {
	c := colly.NewCollector(
		colly.UserAgent(s.UserAgent),
		colly.AllowURLRevisit(),
	)
	c.Limit(&colly.LimitRule{DomainGlob: "*", Parallelism: 1, Delay: s.Delay})
	c.SetRequestTimeout(s.Timeout)

	var items []models.LicitacaoItem
	var scrapeErr error

	c.OnHTML("table tr", func(e *colly.HTMLElement) {
		var cells []string
		e.ForEach("td", func(_ int, td *colly.HTMLElement) {
			cells = append(cells, strings.TrimSpace(td.Text))
		})
		if item, ok := rowToItem(cells); ok {
			items = append(items, item)
		}
	})

	c.OnError(func(r *colly.Response, err error) {
		scrapeErr = fmt.Errorf("portal fetch failed (%d): %w", r.StatusCode, err)
	})

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := c.Visit(editalURL); err != nil {
		return nil, fmt.Errorf("visit failed: %w", err)
	}
	c.Wait()

	if scrapeErr != nil {
		return nil, scrapeErr
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("no item table recognized at %s", editalURL)
	}

	// Renumber when the page did not carry usable item numbers.
	for i := range items {
		if items[i].NumeroItem == 0 {
			items[i].NumeroItem = i + 1
		}
	}
	return items, nil
}

// rowToItem interprets a table row as numero/descricao/quantidade/unidade/
// valor. Rows that do not look like item rows (headers, notes, pagination)
// are dropped.
func rowToItem(cells []string) (models.LicitacaoItem, bool) {
	if len(cells) < 3 {
		return models.LicitacaoItem{}, false
	}

	numero, err := strconv.Atoi(strings.TrimSpace(cells[0]))
	if err != nil || numero <= 0 {
		return models.LicitacaoItem{}, false
	}
	descricao := strings.TrimSpace(cells[1])
	if descricao == "" {
		return models.LicitacaoItem{}, false
	}

	item := models.LicitacaoItem{
		NumeroItem: numero,
		Descricao:  descricao,
		Quantidade: 1.0,
		Unidade:    "UN",
	}
	if v, ok := ParseBRNumber(cells[2]); ok && v > 0 {
		item.Quantidade = v
	}
	if len(cells) > 3 && cells[3] != "" {
		item.Unidade = cells[3]
	}
	if len(cells) > 4 {
		if v, ok := ParseBRNumber(cells[4]); ok {
			item.ValorUnitario = v
		}
	}
	return item, true
}

// ParseBRNumber parses Brazilian-formatted numbers ("R$ 1.234,56", "10,5",
// "1.000"). Dots are thousands separators, the comma is the decimal mark.
func ParseBRNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "R$")
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}

	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	} else if strings.Count(s, ".") > 1 {
		s = strings.ReplaceAll(s, ".", "")
	} else if idx := strings.Index(s, "."); idx != -1 && len(s)-idx-1 == 3 {
		// A single dot with exactly three trailing digits is a thousands
		// separator in this locale, not a decimal point.
		s = strings.ReplaceAll(s, ".", "")
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
