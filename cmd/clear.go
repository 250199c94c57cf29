package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every ticket from the board",
	Long:  `Empties the board. The previous board can be restored with "tf undo" until the undo window closes.`,
	Args:  cobra.NoArgs,
	RunE:  runClear,
}

var undoCmd = &cobra.Command{
	Use:   "undo",
	Short: "Restore the board removed by the last clear",
	Args:  cobra.NoArgs,
	RunE:  runUndo,
}

func init() {
	rootCmd.AddCommand(clearCmd)
	rootCmd.AddCommand(undoCmd)
}

func runClear(_ *cobra.Command, _ []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	count := len(s.board.Tickets())
	if err := s.board.Clear(s.ctx); err != nil {
		return err
	}

	fmt.Printf("Cleared %d tickets. Run \"tf undo\" within %s to restore them.\n", count, s.cfg.UndoWindow())
	return nil
}

func runUndo(_ *cobra.Command, _ []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	ok, err := s.board.Undo(s.ctx)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Println("Nothing to undo.")
		return nil
	}

	fmt.Printf("Restored board: %d tickets\n", len(s.board.Tickets()))
	return nil
}
