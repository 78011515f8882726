package filter

import (
	"testing"

	"github.com/MarcusFernando/Bh-licit/internal/models"
)

func TestClassify_GeographicGate(t *testing.T) {
	tests := []struct {
		name string
		c    Candidate
	}{
		{"state code outside allow-set", Candidate{Titulo: "Aquisição de medicamentos", EstadoSigla: "SP"}},
		{"empty state code", Candidate{Titulo: "Aquisição de medicamentos"}},
		{"forbidden region in free text", Candidate{
			Titulo:      "Aquisição de medicamentos",
			Texto:       "Entrega na capital de São Paulo",
			EstadoSigla: "MA",
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Classify(tt.c)
			if d.Status != models.StatusRejeitado {
				t.Fatalf("expected rejeitado, got %s", d.Status)
			}
			if d.RejectionReason != ReasonOutsideRegion {
				t.Fatalf("expected %q, got %q", ReasonOutsideRegion, d.RejectionReason)
			}
		})
	}
}

func TestClassify_BlacklistBeatsWhitelist(t *testing.T) {
	d := Classify(Candidate{
		Titulo:      "Contratação de serviço de limpeza hospitalar",
		EstadoSigla: "PA",
	})
	if d.Status != models.StatusRejeitado {
		t.Fatalf("expected rejeitado, got %s", d.Status)
	}
	if d.RejectionReason != ReasonBlacklist {
		t.Fatalf("expected %q, got %q", ReasonBlacklist, d.RejectionReason)
	}
	// "hospitalar" still scores: audit views expect it.
	if d.Score == 0 {
		t.Fatal("expected non-zero score on blacklist rejection")
	}
}

func TestClassify_NeitherListRejects(t *testing.T) {
	d := Classify(Candidate{Titulo: "Aquisição de bandeiras comemorativas", EstadoSigla: "PI"})
	if d.Status != models.StatusRejeitado {
		t.Fatalf("expected rejeitado, got %s", d.Status)
	}
	if d.RejectionReason != ReasonNotInDomain {
		t.Fatalf("expected %q, got %q", ReasonNotInDomain, d.RejectionReason)
	}
}

func TestClassify_MeEppExclusive(t *testing.T) {
	d := Classify(Candidate{
		Titulo:      "Aquisição de seringas descartáveis",
		Texto:       "Participação exclusiva para ME/EPP nos termos da LC 123/2006",
		EstadoSigla: "MA",
	})
	if d.Status != models.StatusRejeitado {
		t.Fatalf("expected rejeitado, got %s", d.Status)
	}
	if d.RejectionReason != ReasonMeEppExclusive {
		t.Fatalf("expected %q, got %q", ReasonMeEppExclusive, d.RejectionReason)
	}
	if !d.MeEppExclusive {
		t.Fatal("expected MeEppExclusive flag")
	}
}

func TestClassify_SurgicalGlovesAdmitted(t *testing.T) {
	d := Classify(Candidate{Titulo: "Aquisição de luvas cirúrgicas", EstadoSigla: "MA"})
	if d.Status != models.StatusRecebido {
		t.Fatalf("expected recebido, got %s (%s)", d.Status, d.RejectionReason)
	}
	if d.Score <= 0 {
		t.Fatalf("expected positive score, got %d", d.Score)
	}
	if d.Priority != models.PriorityAlta && d.Priority != models.PriorityMedia {
		t.Fatalf("expected alta or media, got %s", d.Priority)
	}
}

func TestClassify_GeographyCheckedBeforeSemantics(t *testing.T) {
	// "Obra" is blacklisted, but the record is off-region first.
	d := Classify(Candidate{Titulo: "Obra de reforma", EstadoSigla: "SP"})
	if d.RejectionReason != ReasonOutsideRegion {
		t.Fatalf("expected %q, got %q", ReasonOutsideRegion, d.RejectionReason)
	}
}

func TestScore_ClampAndBands(t *testing.T) {
	tests := []struct {
		titulo       string
		wantPriority string
		wantMinScore int
	}{
		{"Material de expediente diverso", models.PriorityBaixa, 0},
		{"Aquisição de seringas", models.PriorityMedia, 10},
		{"Aquisição de medicamentos hospitalares", models.PriorityAlta, 30},
		{"Medicamentos farmácia hospitalar enfermagem cirúrgico ortopédico fisioterapia reagente equipamento medico luva seringa", models.PriorityAlta, 100},
	}

	for _, tt := range tests {
		t.Run(tt.titulo, func(t *testing.T) {
			priority, score := Score(tt.titulo)
			if priority != tt.wantPriority {
				t.Fatalf("expected priority %s, got %s (score %d)", tt.wantPriority, priority, score)
			}
			if score < tt.wantMinScore || score > 100 {
				t.Fatalf("score %d out of expected range [%d,100]", score, tt.wantMinScore)
			}
		})
	}
}

func TestScore_PriorityConsistentWithThresholds(t *testing.T) {
	titles := []string{
		"Aquisição de luvas cirúrgicas",
		"Contratação de serviço de limpeza hospitalar",
		"Obra de reforma",
		"Aquisição de gaze e algodão",
		"Pregão para medicamentos",
		"Compra de veículos",
	}
	for _, titulo := range titles {
		priority, score := Score(titulo)
		var want string
		switch {
		case score >= 30:
			want = models.PriorityAlta
		case score >= 10:
			want = models.PriorityMedia
		default:
			want = models.PriorityBaixa
		}
		if priority != want {
			t.Errorf("%q: score %d should map to %s, got %s", titulo, score, want, priority)
		}
	}
}
