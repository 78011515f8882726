package filter

import (
	"strings"

	"github.com/MarcusFernando/Bh-licit/internal/models"
)

// Rejection reasons recorded on the stored record. The listing API groups
// on these strings, so they are part of the contract.
const (
	ReasonOutsideRegion  = "outside target region"
	ReasonBlacklist      = "blacklist match"
	ReasonNotInDomain    = "not in target domain"
	ReasonMeEppExclusive = "small-business exclusive"
)

// AllowedStates is the geographic admission set. Everything else is
// rejected outright, whatever the text says.
var AllowedStates = []string{"MA", "PI", "PA"}

// ForbiddenRegionTokens catches text-level region leakage: a record whose
// free text names a southern/southeastern state is rejected before the
// state-code gate even runs. Tokens are matched against upper-cased text,
// sigla tokens padded to avoid matching inside words.
var ForbiddenRegionTokens = []string{
	"SÃO PAULO", " SP ", "RIO DE JANEIRO", " RJ ", "MINAS GERAIS", " MG ",
	"PARANÁ", " PR ", "SANTA CATARINA", " SC ", "BRASÍLIA", " DF ",
}

// whiteList admits target-domain tenders. Terms are stems on purpose
// ("medicament" catches medicamento/medicamentos).
var whiteList = []string{
	"medicament", "farmac", "hospital", "enfermagem", "saude", "odontol",
	"laborator", "cirurg", "ortoped", "fisioterap", "penso", "gaze",
	"luva", "seringa", "cateter", "agulha", "algodao", "infusao",
	"sonda", "curativo", "diagnostico", "reagente", "teste rapido",
	"equipamento medico", "material medico",
}

// blackList rejects immediately, overriding any whitelist co-occurrence.
var blackList = []string{
	"obra", "engenharia", "transporte", "locação", "limpeza", "vigilância",
	"buffet", "alimentação", "merenda", "carro", "veículo", "automotivo",
	"peça", "pneu", "manutenção", "ar condicionado", "impressora",
	"cartucho", "papel", "expediente", "informática", "computador",
	"motorista", "copeira", "jardinagem", "dedetização", "internet",
	"telefonia", "segurança", "combustível", "lubrificante",
}

// highValueTerms score 30 per match (core products).
var highValueTerms = []string{
	"medicament", "farmac", "hospital", "enfermagem", "cirurg",
	"ortoped", "fisioterap", "reagente", "equipamento medico",
}

// mediumValueTerms score 10 per match (consumables).
var mediumValueTerms = []string{
	"luva", "seringa", "cateter", "agulha", "algodao", "gaze",
	"penso", "curativo", "material medico",
}

// Candidate is the minimal view of a raw record the engine needs.
type Candidate struct {
	Titulo      string
	Texto       string // free-text body/summary, may be empty
	EstadoSigla string
}

// Decision is the admission outcome. Score and Priority are computed for
// every candidate, rejected ones included: downstream audit views rely on
// seeing a score next to the rejection reason.
type Decision struct {
	Status          string
	RejectionReason string
	Priority        string
	Score           int
	MeEppExclusive  bool
}

// Classify runs the admission gates in strict order. First matching
// rejection wins; scoring runs regardless of the outcome.
func Classify(c Candidate) Decision {
	d := Decision{}
	d.Priority, d.Score = Score(c.Titulo)

	if MentionsForbiddenRegion(c.Titulo + " " + c.Texto) {
		d.Status = models.StatusRejeitado
		d.RejectionReason = ReasonOutsideRegion
		return d
	}
	if !GeographicOK(c.EstadoSigla) {
		d.Status = models.StatusRejeitado
		d.RejectionReason = ReasonOutsideRegion
		return d
	}

	titulo := strings.ToLower(c.Titulo)
	for _, term := range blackList {
		if strings.Contains(titulo, term) {
			d.Status = models.StatusRejeitado
			d.RejectionReason = ReasonBlacklist
			return d
		}
	}

	whitelisted := false
	for _, term := range whiteList {
		if strings.Contains(titulo, term) {
			whitelisted = true
			break
		}
	}
	if !whitelisted {
		d.Status = models.StatusRejeitado
		d.RejectionReason = ReasonNotInDomain
		return d
	}

	if exclusive := meEppExclusive(c.Titulo + " " + c.Texto); exclusive {
		d.Status = models.StatusRejeitado
		d.RejectionReason = ReasonMeEppExclusive
		d.MeEppExclusive = true
		return d
	}

	d.Status = models.StatusRecebido
	return d
}

// GeographicOK reports whether the state code is in the admission set.
func GeographicOK(uf string) bool {
	uf = strings.ToUpper(strings.TrimSpace(uf))
	for _, allowed := range AllowedStates {
		if uf == allowed {
			return true
		}
	}
	return false
}

// MentionsForbiddenRegion scans free text for disallowed region names.
func MentionsForbiddenRegion(text string) bool {
	// Pad so the two-letter sigla tokens can match at the boundaries too.
	upper := " " + strings.ToUpper(text) + " "
	for _, token := range ForbiddenRegionTokens {
		if strings.Contains(upper, token) {
			return true
		}
	}
	return false
}

// meEppExclusive detects tenders legally reserved for micro and small
// enterprises (ME/EPP under LC 123/2006).
func meEppExclusive(text string) bool {
	lower := strings.ToLower(text)
	if !strings.Contains(lower, "exclusiv") {
		return false
	}
	if strings.Contains(lower, "me/epp") || strings.Contains(lower, "epp") {
		return true
	}
	return containsWord(lower, "me")
}

func containsWord(text, word string) bool {
	for _, field := range strings.FieldsFunc(text, func(r rune) bool {
		return !('a' <= r && r <= 'z' || '0' <= r && r <= '9')
	}) {
		if field == word {
			return true
		}
	}
	return false
}

// Score accumulates points per matched keyword category and clamps to 100.
// Band thresholds: >=30 alta, >=10 media, else baixa.
func Score(titulo string) (priority string, score int) {
	lower := strings.ToLower(titulo)

	for _, term := range highValueTerms {
		if strings.Contains(lower, term) {
			score += 30
		}
	}
	for _, term := range mediumValueTerms {
		if strings.Contains(lower, term) {
			score += 10
		}
	}
	if score > 100 {
		score = 100
	}

	switch {
	case score >= 30:
		return models.PriorityAlta, score
	case score >= 10:
		return models.PriorityMedia, score
	default:
		return models.PriorityBaixa, score
	}
}
