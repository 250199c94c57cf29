package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/boozedog/ticketflow/internal/ticket"
	"github.com/boozedog/ticketflow/internal/view"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List tickets on the board",
	Long:  `Lists in-progress tickets in manual order, or finished tickets grouped by the day they were closed with --done.`,
	Args:  cobra.NoArgs,
	RunE:  runList,
}

var (
	listDone   bool
	listSearch string
	listSort   string
	listDesc   bool
)

func init() {
	listCmd.Flags().BoolVar(&listDone, "done", false, "show finished tickets")
	listCmd.Flags().StringVar(&listSearch, "search", "", "filter by text in any column")
	listCmd.Flags().StringVar(&listSort, "sort", "", "sort by id, ticket, title, owner, priority, age or closed")
	listCmd.Flags().BoolVar(&listDesc, "desc", false, "sort descending")
	rootCmd.AddCommand(listCmd)
}

func runList(_ *cobra.Command, _ []string) error {
	key, err := view.ParseSortKey(listSort)
	if err != nil {
		return err
	}

	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	tickets := s.board.Tickets()
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)

	if !listDone {
		rows := view.InProgress(tickets, listSearch)
		if key != view.SortOrder {
			view.Sort(rows, key, listDesc)
		}
		if len(rows) == 0 {
			fmt.Println("No tickets found.")
			return nil
		}
		for _, tk := range rows {
			if err := writeRow(w, tk, ticket.FormatAge(tk.Age)); err != nil {
				return err
			}
		}
		return w.Flush()
	}

	rows := view.Done(tickets, listSearch)
	if key != view.SortOrder {
		view.Sort(rows, key, listDesc)
	}
	if len(rows) == 0 {
		fmt.Println("No tickets found.")
		return nil
	}
	loc := s.cfg.Location()
	for _, g := range view.GroupDone(rows, time.Now(), loc) {
		if _, err := fmt.Fprintf(w, "%s\n", g.Label); err != nil {
			return err
		}
		for _, tk := range g.Tickets {
			closed := ""
			if ts, ok := tk.ClosedTime(); ok {
				closed = ts.In(loc).Format("15:04")
			}
			if err := writeRow(w, tk, closed); err != nil {
				return err
			}
		}
	}
	return w.Flush()
}

func writeRow(w *tabwriter.Writer, tk ticket.Ticket, last string) error {
	_, err := fmt.Fprintf(w, "#%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
		tk.ID, tk.TicketID, truncate(tk.Title, 40), tk.Owner, tk.Priority, tk.Status, last)
	return err
}
