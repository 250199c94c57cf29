package otrs

import (
	"strings"

	"github.com/boozedog/ticketflow/internal/ticket"
)

// PriorityTable maps OTRS priority labels to board priorities. Keys are
// compared lower-cased and trimmed.
type PriorityTable map[string]ticket.Priority

// DefaultPriorities is the mapping observed from the OTRS queue the extension
// scrapes. Override it with [sync.priorities] in config.toml.
func DefaultPriorities() PriorityTable {
	return PriorityTable{
		"1 muito baixo": ticket.PriorityLow,
		"2 baixo":       ticket.PriorityLow,
		"3 normal":      ticket.PriorityLow,
		"4 alto":        ticket.PriorityHigh,
		"5 muito alto":  ticket.PriorityIncident,
	}
}

// NewPriorityTable returns the defaults overlaid with overrides. Override
// values that are not valid priorities are dropped.
func NewPriorityTable(overrides map[string]string) PriorityTable {
	table := DefaultPriorities()
	for label, p := range overrides {
		if !ticket.ValidPriorities[ticket.Priority(p)] {
			continue
		}
		table[normalizeLabel(label)] = ticket.Priority(p)
	}
	return table
}

// Translate maps an external label, failing open to the lowest severity.
func (pt PriorityTable) Translate(label string) ticket.Priority {
	if p, ok := pt[normalizeLabel(label)]; ok {
		return p
	}
	return ticket.DefaultPriority
}

func normalizeLabel(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
