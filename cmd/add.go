package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/boozedog/ticketflow/internal/ticket"
	"github.com/boozedog/ticketflow/internal/workflow"
)

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a ticket to the end of the board",
	Args:  cobra.NoArgs,
	RunE:  runAdd,
}

var (
	addTitle    string
	addOwner    string
	addPriority string
	addTicketID string
	addNote     string
)

func init() {
	addCmd.Flags().StringVar(&addTitle, "title", "", "ticket title")
	addCmd.Flags().StringVar(&addOwner, "owner", "", "ticket owner")
	addCmd.Flags().StringVar(&addPriority, "priority", "baixa", "priority (baixa, media, alta, incidente)")
	addCmd.Flags().StringVar(&addTicketID, "ticket-id", "", "OTRS ticket number")
	addCmd.Flags().StringVar(&addNote, "note", "", "markdown note")
	rootCmd.AddCommand(addCmd)
}

func runAdd(_ *cobra.Command, _ []string) error {
	priority, err := workflow.PriorityFromAlias(addPriority)
	if err != nil {
		return err
	}

	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	tk, err := s.board.Add(s.ctx, ticket.Ticket{
		TicketID: addTicketID,
		Title:    addTitle,
		Owner:    addOwner,
		Priority: priority,
		Note:     addNote,
	})
	if err != nil {
		return err
	}

	fmt.Printf("Created #%d: %s\n", tk.ID, tk.Title)
	return nil
}
