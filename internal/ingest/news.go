package ingest

import (
	"context"
	"crypto/md5"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"
)

// NewsSource scrapes the Google News RSS feed for tender announcements that
// never reached the official API, or reached it late. Records carry a
// synthetic hash id instead of a PNCP control number.
type NewsSource struct {
	BaseURL  string
	Queries  []string
	MaxItems int
	Delay    time.Duration
	timeout  time.Duration
}

func NewNewsSource(cfg SourceConfig) *NewsSource {
	base := cfg.BaseURL
	if base == "" {
		base = "https://news.google.com/rss/search"
	}
	queries := cfg.Queries
	if len(queries) == 0 {
		queries = []string{"licitação hospital Maranhão", "pregão eletrônico material médico"}
	}
	timeout := 30 * time.Second
	if cfg.Fetch.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.Fetch.TimeoutSeconds) * time.Second
	}
	delay := time.Second
	if cfg.Fetch.RateLimitRPS > 0 {
		delay = time.Duration(float64(time.Second) / cfg.Fetch.RateLimitRPS)
	}
	return &NewsSource{
		BaseURL:  base,
		Queries:  queries,
		MaxItems: 30,
		Delay:    delay,
		timeout:  timeout,
	}
}

func (s *NewsSource) Name() string { return "google_news" }

// junkTerms discards announcement-shaped headlines that are not tenders.
var junkTerms = []string{"fraude", "suspeita", "investigação", "operação", "denúncia", "cancelada"}

func (s *NewsSource) Collect(ctx context.Context, window Window) ([]RawCandidate, error) {
	var out []RawCandidate
	seen := make(map[string]bool)
	failures := 0

	for _, query := range s.Queries {
		items, err := s.scrapeQuery(ctx, query)
		if err != nil {
			log.Printf("[News] query %q failed: %v", query, err)
			failures++
			continue
		}
		for _, cand := range items {
			if cand.DataPublicacao != nil && cand.DataPublicacao.Before(window.Start) {
				continue
			}
			if seen[cand.PNCPID] {
				continue
			}
			seen[cand.PNCPID] = true
			out = append(out, cand)
		}
	}

	if failures == len(s.Queries) && len(s.Queries) > 0 {
		return nil, fmt.Errorf("all %d news queries failed", len(s.Queries))
	}

	log.Printf("[News] Collected %d candidates from %d queries", len(out), len(s.Queries))
	return out, nil
}

func (s *NewsSource) scrapeQuery(ctx context.Context, query string) ([]RawCandidate, error) {
	feedURL := fmt.Sprintf("%s?q=%s&hl=pt-BR&gl=BR&ceid=BR:pt-419", s.BaseURL, url.QueryEscape(query))

	c := colly.NewCollector(
		colly.UserAgent("Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"),
		colly.AllowURLRevisit(),
	)
	c.Limit(&colly.LimitRule{DomainGlob: "*", Parallelism: 1, Delay: s.Delay})
	c.SetRequestTimeout(s.timeout)

	var items []RawCandidate
	var scrapeErr error

	c.OnXML("//item", func(e *colly.XMLElement) {
		if s.MaxItems > 0 && len(items) >= s.MaxItems {
			return
		}
		title := cleanText(sanitizeText(e.ChildText("title")))
		link := strings.TrimSpace(e.ChildText("link"))
		if title == "" || link == "" {
			return
		}
		if containsAnyFold(title, junkTerms) {
			return
		}

		desc := HTMLToText(sanitizeText(e.ChildText("description")))
		cand := RawCandidate{
			PNCPID:     newsHashID(title, link),
			Titulo:     TruncateText(title, 300),
			Texto:      title + " " + desc,
			LinkEdital: link,
			OrgaoNome:  cleanText(e.ChildText("source")),
			Categoria:  "noticia",
			SourceName: s.Name(),
		}
		if t, err := time.Parse(time.RFC1123, e.ChildText("pubDate")); err == nil {
			cand.DataPublicacao = &t
		} else if t, err := time.Parse(time.RFC1123Z, e.ChildText("pubDate")); err == nil {
			cand.DataPublicacao = &t
		}
		items = append(items, cand)
	})

	c.OnError(func(r *colly.Response, err error) {
		scrapeErr = fmt.Errorf("feed fetch failed (%d): %w", r.StatusCode, err)
	})

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := c.Visit(feedURL); err != nil {
		return nil, fmt.Errorf("visit failed: %w", err)
	}
	c.Wait()

	if scrapeErr != nil {
		return nil, scrapeErr
	}
	return items, nil
}

// newsHashID builds the synthetic id namespace for scraped records. These
// ids never parse as PNCP control numbers, which keeps them out of the
// item resolver's probe path.
func newsHashID(title, link string) string {
	sum := md5.Sum([]byte(title + "|" + link))
	return fmt.Sprintf("hash_%x", sum[:8])
}
