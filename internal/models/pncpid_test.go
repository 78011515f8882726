package models

import (
	"reflect"
	"testing"
)

func TestParsePNCPID(t *testing.T) {
	id, err := ParsePNCPID("12345678000190-2025-94")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id.CNPJ != "12345678000190" || id.Ano != "2025" || id.Seq != "94" {
		t.Fatalf("unexpected parse result: %+v", id)
	}
	if id.String() != "12345678000190-2025-94" {
		t.Fatalf("round trip mismatch: %s", id.String())
	}
}

func TestParsePNCPID_Invalid(t *testing.T) {
	for _, s := range []string{"", "hash_abc123", "12345678000190-2025", "cnpj-ano-seq"} {
		if _, err := ParsePNCPID(s); err == nil {
			t.Errorf("expected error for %q", s)
		}
	}
}

func TestSeqVariants_ProbeOrder(t *testing.T) {
	id := PNCPID{CNPJ: "12345678000190", Ano: "2025", Seq: "94"}
	got := id.SeqVariants()
	want := []string{"94", "00094", "000094"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestSeqVariants_PaddedInputKeepsGivenForm(t *testing.T) {
	id := PNCPID{CNPJ: "12345678000190", Ano: "2025", Seq: "00094"}
	got := id.SeqVariants()
	want := []string{"94", "00094", "000094"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}
