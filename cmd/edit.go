package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/boozedog/ticketflow/internal/ticket"
	"github.com/boozedog/ticketflow/internal/workflow"
)

var editCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Edit ticket fields",
	Long:  `Changes only the fields whose flags are given. Age accepts minutes or a label such as "2 d 3 hrs".`,
	Args:  cobra.ExactArgs(1),
	RunE:  runEdit,
}

var (
	editTitle    string
	editOwner    string
	editPriority string
	editTicketID string
	editNote     string
	editAge      string
)

func init() {
	editCmd.Flags().StringVar(&editTitle, "title", "", "ticket title")
	editCmd.Flags().StringVar(&editOwner, "owner", "", "ticket owner")
	editCmd.Flags().StringVar(&editPriority, "priority", "", "priority (baixa, media, alta, incidente)")
	editCmd.Flags().StringVar(&editTicketID, "ticket-id", "", "OTRS ticket number")
	editCmd.Flags().StringVar(&editNote, "note", "", "markdown note")
	editCmd.Flags().StringVar(&editAge, "age", "", "age in minutes or as a label")
	rootCmd.AddCommand(editCmd)
}

func runEdit(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	var priority ticket.Priority
	if flags.Changed("priority") {
		if priority, err = workflow.PriorityFromAlias(editPriority); err != nil {
			return err
		}
	}

	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	tk, err := s.board.Update(s.ctx, id, func(t *ticket.Ticket) {
		if flags.Changed("title") {
			t.Title = editTitle
		}
		if flags.Changed("owner") {
			t.Owner = editOwner
		}
		if flags.Changed("ticket-id") {
			t.TicketID = editTicketID
		}
		if flags.Changed("note") {
			t.Note = editNote
		}
		if flags.Changed("age") {
			t.Age = ticket.ParseAgeInput(editAge)
		}
		if priority != "" {
			t.Priority = priority
		}
	})
	if err != nil {
		return err
	}

	fmt.Printf("Updated #%d: %s\n", tk.ID, tk.Title)
	return nil
}
