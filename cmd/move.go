package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var moveCmd = &cobra.Command{
	Use:   "move <id> <position>",
	Short: "Move an in-progress ticket to a position in the manual order",
	Long:  `Positions start at 1, the top of the "Em andamento" tab.`,
	Args:  cobra.ExactArgs(2),
	RunE:  runMove,
}

func init() {
	rootCmd.AddCommand(moveCmd)
}

func runMove(_ *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	position, err := strconv.Atoi(args[1])
	if err != nil || position < 1 {
		return fmt.Errorf("invalid position %q", args[1])
	}

	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.board.Move(s.ctx, id, position-1); err != nil {
		return err
	}

	fmt.Printf("Moved #%d to position %d\n", id, position)
	return nil
}
