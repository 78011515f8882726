package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"github.com/MarcusFernando/Bh-licit/internal/db"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

func main() {
	status := flag.String("status", "", "filter by status (recebido, aprovado, rejeitado)")
	priority := flag.String("priority", "", "filter by priority (alta, media, baixa)")
	days := flag.Int("days", 0, "only tenders published in the last N days")
	search := flag.String("q", "", "free-text search over titulo, orgao and cidade")
	limit := flag.Int("limit", 30, "max rows")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := db.Connect(ctx)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	store := db.NewStore(pool)
	result, err := store.ListLicitacoes(ctx, db.ListParams{
		Status:   *status,
		Priority: *priority,
		Days:     *days,
		Search:   *search,
		Limit:    *limit,
	})
	if err != nil {
		log.Fatalf("Query failed: %v", err)
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"ID", "Prioridade", "Score", "UF", "Cidade", "Órgão", "Objeto", "Abertura"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Órgão", WidthMax: 30},
		{Name: "Objeto", WidthMax: 50},
	})

	for _, l := range result.Items {
		abertura := "-"
		if l.DataAbertura != nil {
			abertura = l.DataAbertura.Format("02/01 15:04")
		}
		row := table.Row{l.ID, l.Priority, l.Score, l.EstadoSigla, l.Cidade, l.OrgaoNome, l.Titulo, abertura}
		t.AppendRow(row)
	}
	t.SetStyle(table.StyleLight)
	t.Style().Format.Header = text.FormatTitle
	t.Render()

	log.Printf("%d of %d licitacoes shown", len(result.Items), result.Total)
}
