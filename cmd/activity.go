package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/boozedog/ticketflow/internal/event"
)

var activityCmd = &cobra.Command{
	Use:   "activity",
	Short: "Show the activity log",
	Args:  cobra.NoArgs,
	RunE:  runActivity,
}

var (
	activityTicket string
	activityLimit  int
)

func init() {
	activityCmd.Flags().StringVar(&activityTicket, "ticket", "", "only events for this board ID")
	activityCmd.Flags().IntVar(&activityLimit, "limit", 20, "number of most recent events")
	rootCmd.AddCommand(activityCmd)
}

func runActivity(_ *cobra.Command, _ []string) error {
	q := event.Query{Limit: activityLimit}
	if activityTicket != "" {
		id, err := parseID(activityTicket)
		if err != nil {
			return err
		}
		q.Ticket = id
	}

	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	eventsDir, err := s.cfg.EventsDir()
	if err != nil {
		return err
	}
	events, err := event.QueryEvents(eventsDir, q)
	if err != nil {
		return fmt.Errorf("query events: %w", err)
	}
	if len(events) == 0 {
		fmt.Println("No activity.")
		return nil
	}

	loc := s.cfg.Location()
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for _, e := range events {
		ticketCol := ""
		if e.Ticket != 0 {
			ticketCol = fmt.Sprintf("#%d", e.Ticket)
		}
		if _, err := fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			e.TS.In(loc).Format("2006-01-02 15:04:05"), e.Event, ticketCol, e.Actor); err != nil {
			return err
		}
	}
	return w.Flush()
}
