package ticket

import (
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func TestRender(t *testing.T) {
	closed := Millis(time.Date(2026, 2, 2, 15, 30, 0, 0, time.UTC))
	tk := Ticket{
		ID:         3,
		TicketID:   "2026020210000011",
		Title:      "Impressora do RH",
		Owner:      "fabio",
		Priority:   PriorityHigh,
		Status:     StatusClosed,
		Age:        2*1440 + 180,
		OrderIndex: 4,
		ClosedAt:   &closed,
		Note:       "Trocado o **toner**.",
	}

	data, err := Render(tk)
	if err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	out := string(data)

	if !strings.HasPrefix(out, "---\n") {
		t.Fatalf("missing opening delimiter:\n%s", out)
	}
	front, body, found := strings.Cut(out[4:], "---\n")
	if !found {
		t.Fatalf("missing closing delimiter:\n%s", out)
	}

	var fm map[string]any
	if err := yaml.Unmarshal([]byte(front), &fm); err != nil {
		t.Fatalf("frontmatter is not YAML: %v", err)
	}
	if fm["ticket-id"] != "2026020210000011" {
		t.Errorf("ticket-id = %v", fm["ticket-id"])
	}
	if fm["age"] != "2 d 3 hrs" {
		t.Errorf("age = %v, want %q", fm["age"], "2 d 3 hrs")
	}
	if fm["closed-at"] != "2026-02-02T15:30:00Z" {
		t.Errorf("closed-at = %v", fm["closed-at"])
	}
	if !strings.Contains(body, "Trocado o **toner**.") {
		t.Errorf("body = %q, want note", body)
	}
}

func TestRenderOmitsEmptyTimestamps(t *testing.T) {
	data, err := Render(NewEmpty(1, 0, time.Time{}))
	if err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	if strings.Contains(string(data), "closed-at") {
		t.Errorf("open ticket rendered closed-at:\n%s", data)
	}
}
