// Package workflow resolves the status and priority names users type.
package workflow

import (
	"fmt"
	"strings"

	"github.com/boozedog/ticketflow/internal/ticket"
)

// ValidateTransition rejects unknown targets and no-op moves. Any status may
// follow any other, as in OTRS.
func ValidateTransition(from, to ticket.Status) error {
	if !ticket.ValidStatuses[to] {
		return fmt.Errorf("invalid status %q", to)
	}
	if from == to {
		return fmt.Errorf("ticket is already %s", from)
	}
	return nil
}

var statusAliases = map[string]ticket.Status{
	"pendente": ticket.StatusPending,
	"pending":  ticket.StatusPending,
	"open":     ticket.StatusPending,
	"reopen":   ticket.StatusPending,

	"atendimento": ticket.StatusInService,
	"working":     ticket.StatusInService,
	"start":       ticket.StatusInService,

	"aguardando": ticket.StatusAwaiting,
	"waiting":    ticket.StatusAwaiting,

	"encerrado": ticket.StatusClosed,
	"done":      ticket.StatusClosed,
	"close":     ticket.StatusClosed,
	"closed":    ticket.StatusClosed,

	"movido": ticket.StatusMoved,
	"moved":  ticket.StatusMoved,

	"desbloqueado": ticket.StatusUnblocked,
	"unblocked":    ticket.StatusUnblocked,
}

// StatusFromAlias resolves status aliases to canonical status values.
// Canonical names match case-insensitively.
func StatusFromAlias(s string) (ticket.Status, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	if status, ok := statusAliases[key]; ok {
		return status, nil
	}

	for status := range ticket.ValidStatuses {
		if strings.ToLower(string(status)) == key {
			return status, nil
		}
	}

	return "", fmt.Errorf("unknown status %q (use one of: pendente, atendimento, aguardando, encerrado, movido, desbloqueado)", s)
}

var priorityAliases = map[string]ticket.Priority{
	"baixa":     ticket.PriorityLow,
	"low":       ticket.PriorityLow,
	"media":     ticket.PriorityMedium,
	"medium":    ticket.PriorityMedium,
	"alta":      ticket.PriorityHigh,
	"high":      ticket.PriorityHigh,
	"incidente": ticket.PriorityIncident,
	"incident":  ticket.PriorityIncident,
}

// PriorityFromAlias resolves a priority name, accepting English names and
// "media" without the accent.
func PriorityFromAlias(s string) (ticket.Priority, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	if p, ok := priorityAliases[key]; ok {
		return p, nil
	}
	for p := range ticket.ValidPriorities {
		if strings.ToLower(string(p)) == key {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown priority %q (use one of: baixa, media, alta, incidente)", s)
}
