package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/boozedog/ticketflow/internal/ticket"
)

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show full ticket detail",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

func init() {
	rootCmd.AddCommand(showCmd)
}

func runShow(_ *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	tk, err := s.board.Get(id)
	if err != nil {
		return fmt.Errorf("get ticket: %w", err)
	}

	data, err := ticket.Render(tk)
	if err != nil {
		return fmt.Errorf("render ticket: %w", err)
	}

	_, err = os.Stdout.Write(data)
	return err
}
