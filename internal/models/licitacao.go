package models

import (
	"time"
)

// Status values assigned by the filter engine at creation time. After that,
// only an explicit operator override may change them.
const (
	StatusRecebido  = "recebido"
	StatusAprovado  = "aprovado"
	StatusRejeitado = "rejeitado"
)

// Priority bands derived from the keyword score.
const (
	PriorityAlta  = "alta"
	PriorityMedia = "media"
	PriorityBaixa = "baixa"
)

// Licitacao is a public procurement notice tracked by the radar.
type Licitacao struct {
	ID               int64      `json:"id"`
	PNCPID           string     `json:"pncp_id"`
	Titulo           string     `json:"titulo"`
	OrgaoNome        string     `json:"orgao_nome"`
	OrgaoCNPJ        string     `json:"orgao_cnpj"`
	EstadoSigla      string     `json:"estado_sigla"`
	Cidade           string     `json:"cidade"`
	DataPublicacao   *time.Time `json:"data_publicacao"`
	DataAbertura     *time.Time `json:"data_abertura"`
	LinkEdital       string     `json:"link_edital"`
	Categoria        string     `json:"categoria"`
	Status           string     `json:"status"`
	RejectionReason  string     `json:"rejection_reason,omitempty"`
	IsMeEppExclusive bool       `json:"is_me_epp_exclusive"`
	Priority         string     `json:"priority"`
	Score            int        `json:"score"`
	ResumoIA         string     `json:"resumo_ia,omitempty"`
	RiscoIA          string     `json:"risco_ia,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// LicitacaoItem is a single priced entry in a tender's bill of materials.
// Items are write-once: a resolution pass either commits the full set or
// nothing, and re-resolution is a no-op once rows exist.
type LicitacaoItem struct {
	ID            int64   `json:"id"`
	LicitacaoID   int64   `json:"licitacao_id"`
	NumeroItem    int     `json:"numero_item"`
	Descricao     string  `json:"descricao"`
	Quantidade    float64 `json:"quantidade"`
	Unidade       string  `json:"unidade"`
	ValorUnitario float64 `json:"valor_unitario"`
	CodigoItem    string  `json:"codigo_item,omitempty"`
}
