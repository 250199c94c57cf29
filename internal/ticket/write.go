package ticket

import (
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// frontmatterData is the YAML-serializable frontmatter structure.
// We use a separate struct to control field ordering and render timestamps.
type frontmatterData struct {
	ID         int      `yaml:"id"`
	TicketID   string   `yaml:"ticket-id"`
	Title      string   `yaml:"title"`
	Owner      string   `yaml:"owner"`
	Priority   Priority `yaml:"priority"`
	Status     Status   `yaml:"status"`
	Age        string   `yaml:"age"`
	OrderIndex int      `yaml:"order-index"`
	LastSync   string   `yaml:"last-sync,omitempty"`
	ClosedAt   string   `yaml:"closed-at,omitempty"`
}

// Render serializes a Ticket to markdown bytes: YAML frontmatter followed by
// the note as the body.
func Render(t Ticket) ([]byte, error) {
	fm := frontmatterData{
		ID:         t.ID,
		TicketID:   t.TicketID,
		Title:      t.Title,
		Owner:      t.Owner,
		Priority:   t.Priority,
		Status:     t.Status,
		Age:        FormatAge(t.Age),
		OrderIndex: t.OrderIndex,
	}
	if t.LastSync != 0 {
		fm.LastSync = time.UnixMilli(t.LastSync).UTC().Format(time.RFC3339)
	}
	if closed, ok := t.ClosedTime(); ok {
		fm.ClosedAt = closed.UTC().Format(time.RFC3339)
	}

	yamlBytes, err := yaml.Marshal(fm)
	if err != nil {
		return nil, fmt.Errorf("marshal frontmatter: %w", err)
	}

	var b strings.Builder
	b.WriteString("---\n")
	b.Write(yamlBytes)
	b.WriteString("---\n")

	if t.Note != "" {
		b.WriteString("\n")
		b.WriteString(t.Note)
		if !strings.HasSuffix(t.Note, "\n") {
			b.WriteString("\n")
		}
	}

	return []byte(b.String()), nil
}
