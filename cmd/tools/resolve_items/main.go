package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"github.com/MarcusFernando/Bh-licit/internal/db"
	"github.com/MarcusFernando/Bh-licit/internal/items"
	"github.com/MarcusFernando/Bh-licit/internal/models"
	"github.com/jedib0t/go-pretty/v6/table"
)

func main() {
	id := flag.Int64("id", 0, "licitacao row id to resolve items for")
	pncpID := flag.String("pncp", "", "resolve by pncp_id instead of row id")
	flag.Parse()

	if *id == 0 && *pncpID == "" {
		log.Fatal("Provide -id or -pncp")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	pool, err := db.Connect(ctx)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	store := db.NewStore(pool)

	var l *models.Licitacao
	if *pncpID != "" {
		l, err = store.GetLicitacaoByPNCPID(ctx, *pncpID)
	} else {
		l, err = store.GetLicitacao(ctx, *id)
	}
	if err != nil {
		log.Fatalf("Licitacao not found: %v", err)
	}

	resolver := items.NewResolver(store, items.NewPortalScraper())
	list, err := resolver.Resolve(ctx, l)
	if err != nil {
		log.Fatalf("Resolution failed for %s: %v", l.PNCPID, err)
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"#", "Descrição", "Qtd", "Un", "Valor Unit."})
	for _, it := range list {
		desc := it.Descricao
		if r := []rune(desc); len(r) > 60 {
			desc = string(r[:57]) + "..."
		}
		t.AppendRow(table.Row{it.NumeroItem, desc, it.Quantidade, it.Unidade, it.ValorUnitario})
	}
	t.Render()
	log.Printf("%d itens for %s", len(list), l.PNCPID)
}
