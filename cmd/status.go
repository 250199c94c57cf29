package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/boozedog/ticketflow/internal/workflow"
)

var statusCmd = &cobra.Command{
	Use:   "status <id> <status>",
	Short: "Change a ticket's status",
	Long: `Moves a ticket to another status. Aliases are accepted:
  pendente, atendimento, aguardando, encerrado, movido, desbloqueado
  pending, working, waiting, done, moved, unblocked`,
	Args: cobra.ExactArgs(2),
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(_ *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	target, err := workflow.StatusFromAlias(args[1])
	if err != nil {
		return err
	}

	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	before, err := s.board.Get(id)
	if err != nil {
		return err
	}
	if _, err := s.board.SetStatus(s.ctx, id, target); err != nil {
		return err
	}

	fmt.Printf("#%d: %s → %s\n", id, before.Status, target)
	return nil
}
