package items

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/MarcusFernando/Bh-licit/internal/models"
	rpdf "rsc.io/pdf"
)

// maxPDFBytes bounds edital downloads; anything larger is not an item list.
const maxPDFBytes = 20 * 1024 * 1024

// itemLineRegex matches "1 - Luva de procedimento 500 CX 12,50" style lines
// in edital item annexes: number, description, then quantity/unit/price.
var itemLineRegex = regexp.MustCompile(`(?m)^\s*(\d{1,4})\s*[-–.]?\s+(.{10,200}?)\s+([\d.,]+)\s+([A-ZÇ]{2,10})\s+([\d.,]+)\s*$`)

// PDFExtractor pulls item tables out of edital PDFs. Last resort after both
// API generations and the portal page: edital layouts vary wildly and the
// parser panics on some malformed files, which is caught and reported as an
// ordinary error.
type PDFExtractor struct {
	Client *http.Client
}

func NewPDFExtractor() *PDFExtractor {
	return &PDFExtractor{Client: &http.Client{Timeout: 60 * time.Second}}
}

// ExtractFromURL downloads the edital and extracts item lines from it.
func (e *PDFExtractor) ExtractFromURL(ctx context.Context, pdfURL string) ([]models.LicitacaoItem, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", pdfURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := e.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("edital download failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("edital download returned %d", resp.StatusCode)
	}

	content, err := io.ReadAll(io.LimitReader(resp.Body, maxPDFBytes))
	if err != nil {
		return nil, fmt.Errorf("reading edital: %w", err)
	}

	return ExtractItems(content)
}

// ExtractItems parses a PDF byte slice into item lines.
func ExtractItems(content []byte) ([]models.LicitacaoItem, error) {
	text, err := extractPDFText(content)
	if err != nil {
		return nil, err
	}
	items := parseItemLines(text)
	if len(items) == 0 {
		return nil, fmt.Errorf("no item lines recognized in edital text")
	}
	return items, nil
}

func extractPDFText(content []byte) (text string, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("pdf parser panic: %v", recovered)
			text = ""
		}
	}()

	reader, err := rpdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", err
	}

	var builder strings.Builder
	for pageIndex := 1; pageIndex <= reader.NumPage(); pageIndex++ {
		page := reader.Page(pageIndex)
		if page.V.IsNull() {
			continue
		}
		lastY := -1.0
		for _, fragment := range page.Content().Text {
			if lastY >= 0 && fragment.Y != lastY {
				builder.WriteString("\n")
			}
			builder.WriteString(fragment.S)
			builder.WriteString(" ")
			lastY = fragment.Y
		}
		builder.WriteString("\n")
	}

	return builder.String(), nil
}

func parseItemLines(text string) []models.LicitacaoItem {
	var items []models.LicitacaoItem
	seen := make(map[int]bool)

	for _, m := range itemLineRegex.FindAllStringSubmatch(text, -1) {
		numero := 0
		fmt.Sscanf(m[1], "%d", &numero)
		if numero <= 0 || seen[numero] {
			continue
		}

		item := models.LicitacaoItem{
			NumeroItem: numero,
			Descricao:  strings.TrimSpace(m[2]),
			Quantidade: 1.0,
			Unidade:    "UN",
		}
		if v, ok := ParseBRNumber(m[3]); ok && v > 0 {
			item.Quantidade = v
		}
		if m[4] != "" {
			item.Unidade = m[4]
		}
		if v, ok := ParseBRNumber(m[5]); ok {
			item.ValorUnitario = v
		}

		seen[numero] = true
		items = append(items, item)
	}
	return items
}
