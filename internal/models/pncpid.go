package models

import (
	"fmt"
	"strconv"
	"strings"
)

// PNCPID identifies a tender at the upstream source as the triple
// issuing-entity CNPJ, purchase year and sequence number, serialized as
// "cnpj-ano-seq". The sequence keeps its original (possibly zero-padded)
// form because the upstream is inconsistent about padding.
type PNCPID struct {
	CNPJ string
	Ano  string
	Seq  string
}

// ParsePNCPID splits a "cnpj-ano-seq" identifier. Hash-based ids produced
// for scraper-sourced records do not parse and that is intentional: they
// have no item sub-resource to resolve.
func ParsePNCPID(s string) (PNCPID, error) {
	parts := strings.Split(strings.TrimSpace(s), "-")
	if len(parts) < 3 {
		return PNCPID{}, fmt.Errorf("invalid pncp id %q: want cnpj-ano-seq", s)
	}
	id := PNCPID{CNPJ: parts[0], Ano: parts[1], Seq: parts[2]}
	if id.CNPJ == "" || id.Ano == "" || id.Seq == "" {
		return PNCPID{}, fmt.Errorf("invalid pncp id %q: empty component", s)
	}
	if _, err := strconv.Atoi(id.Seq); err != nil {
		return PNCPID{}, fmt.Errorf("invalid pncp id %q: non-numeric sequence", s)
	}
	return id, nil
}

func (id PNCPID) String() string {
	return id.CNPJ + "-" + id.Ano + "-" + id.Seq
}

// SeqVariants returns the plausible representations of the sequence number
// in probe order: bare integer, as given, 5-digit and 6-digit zero-padded.
// Duplicates are removed while preserving order.
func (id PNCPID) SeqVariants() []string {
	n, err := strconv.Atoi(id.Seq)
	if err != nil {
		return []string{id.Seq}
	}
	candidates := []string{
		strconv.Itoa(n),
		id.Seq,
		fmt.Sprintf("%05d", n),
		fmt.Sprintf("%06d", n),
	}
	variants := make([]string, 0, len(candidates))
	seen := make(map[string]bool, len(candidates))
	for _, v := range candidates {
		if !seen[v] {
			variants = append(variants, v)
			seen[v] = true
		}
	}
	return variants
}
