package otrs

import (
	"testing"

	"github.com/boozedog/ticketflow/internal/ticket"
)

func TestTranslateDefaults(t *testing.T) {
	table := DefaultPriorities()
	tests := []struct {
		label string
		want  ticket.Priority
	}{
		{"1 muito baixo", ticket.PriorityLow},
		{"2 baixo", ticket.PriorityLow},
		{"3 normal", ticket.PriorityLow},
		{"4 alto", ticket.PriorityHigh},
		{"5 muito alto", ticket.PriorityIncident},
		{"  5 MUITO ALTO ", ticket.PriorityIncident},
		{"", ticket.PriorityLow},
		{"urgentissimo", ticket.PriorityLow},
	}
	for _, tt := range tests {
		if got := table.Translate(tt.label); got != tt.want {
			t.Errorf("Translate(%q) = %q, want %q", tt.label, got, tt.want)
		}
	}
}

func TestNewPriorityTableOverrides(t *testing.T) {
	table := NewPriorityTable(map[string]string{
		"3 Normal":  "Média",
		"Very High": "Incidente",
		"4 alto":    "bogus",
	})

	if got := table.Translate("3 normal"); got != ticket.PriorityMedium {
		t.Errorf("override = %q, want Média", got)
	}
	if got := table.Translate("very high"); got != ticket.PriorityIncident {
		t.Errorf("new label = %q, want Incidente", got)
	}
	if got := table.Translate("4 alto"); got != ticket.PriorityHigh {
		t.Errorf("invalid override should keep default, got %q", got)
	}
	if got := DefaultPriorities().Translate("3 normal"); got != ticket.PriorityLow {
		t.Errorf("defaults mutated: %q", got)
	}
}
