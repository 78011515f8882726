package db

import (
	"strings"
	"testing"
)

func TestBuildListWhereDefaultHidesRejected(t *testing.T) {
	where, args := buildListWhere(ListParams{})
	if !strings.Contains(where, "status <> 'rejeitado'") {
		t.Errorf("default view must hide rejected records, got: %s", where)
	}
	if len(args) != 0 {
		t.Errorf("default view should take no arguments, got %d", len(args))
	}
}

func TestBuildListWhereExplicitStatus(t *testing.T) {
	where, args := buildListWhere(ListParams{Status: "rejeitado"})
	if !strings.Contains(where, "status = $1") {
		t.Errorf("explicit status filter missing: %s", where)
	}
	if strings.Contains(where, "status <> 'rejeitado'") {
		t.Errorf("explicit status view must not also hide rejected records: %s", where)
	}
	if len(args) != 1 || args[0] != "rejeitado" {
		t.Errorf("unexpected args: %v", args)
	}
}

func TestBuildListWherePriorityExcludesRejected(t *testing.T) {
	where, args := buildListWhere(ListParams{Priority: "alta"})
	if !strings.Contains(where, "priority = $1") {
		t.Errorf("priority filter missing: %s", where)
	}
	if !strings.Contains(where, "status <> 'rejeitado'") {
		t.Errorf("priority view must still hide rejected records: %s", where)
	}
	if len(args) != 1 || args[0] != "alta" {
		t.Errorf("unexpected args: %v", args)
	}
}

func TestBuildListWhereDaysAndSearch(t *testing.T) {
	where, args := buildListWhere(ListParams{Days: 7, Search: "hospital"})
	if !strings.Contains(where, "data_publicacao >= NOW()") {
		t.Errorf("days window missing: %s", where)
	}
	if !strings.Contains(where, "ILIKE") {
		t.Errorf("search clause missing: %s", where)
	}
	// status hidden clause takes no placeholder, so days is $1, search $2.
	if len(args) != 2 {
		t.Fatalf("expected 2 args, got %d: %v", len(args), args)
	}
	if args[0] != 7 || args[1] != "hospital" {
		t.Errorf("unexpected args: %v", args)
	}
	if !strings.Contains(where, "$1") || !strings.Contains(where, "$2") {
		t.Errorf("placeholder numbering wrong: %s", where)
	}
}

func TestBuildListWhereSearchTrimmed(t *testing.T) {
	where, args := buildListWhere(ListParams{Search: "   "})
	if strings.Contains(where, "ILIKE") {
		t.Errorf("blank search must not add a clause: %s", where)
	}
	if len(args) != 0 {
		t.Errorf("blank search must not add args: %v", args)
	}
}
