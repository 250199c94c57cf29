package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/boozedog/ticketflow/internal/board"
	"github.com/boozedog/ticketflow/internal/event"
	"github.com/boozedog/ticketflow/internal/otrs"
)

var syncCmd = &cobra.Command{
	Use:   "sync <payload.json|->",
	Short: "Merge a scraped OTRS ticket list into the board",
	Long: `Reads a sync message ({"type": "OTRS_TICKETS_SYNC", "payload": [...]}) or a
bare array of tickets from a file, or from stdin with "-".

Finished tickets are never reopened silently. Pass --reopen with the board IDs
to reopen, or --reopen-all; otherwise conflicting tickets stay finished.`,
	Args: cobra.ExactArgs(1),
	RunE: runSync,
}

var (
	syncReopen    string
	syncReopenAll bool
)

func init() {
	syncCmd.Flags().StringVar(&syncReopen, "reopen", "", "comma-separated board IDs to reopen on conflict")
	syncCmd.Flags().BoolVar(&syncReopenAll, "reopen-all", false, "reopen every conflicting ticket")
	rootCmd.AddCommand(syncCmd)
}

func runSync(_ *cobra.Command, args []string) error {
	reopen, err := parseIDs(syncReopen)
	if err != nil {
		return err
	}

	data, err := readPayload(args[0])
	if err != nil {
		return err
	}
	records, err := otrs.DecodePayload(data)
	if err != nil {
		return err
	}

	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	res, err := s.board.Sync(board.WithActor(s.ctx, event.ActorSync), records)
	if err != nil {
		return err
	}
	fmt.Printf("Synced %d records: %d new, %d updated\n", len(records), res.Inserted, res.Updated)

	if len(res.Conflicts) == 0 {
		return nil
	}
	fmt.Printf("%d finished tickets in the payload:\n", len(res.Conflicts))
	for _, tk := range res.Conflicts {
		fmt.Printf("  #%d  %s  %s  (%s)\n", tk.ID, tk.TicketID, truncate(tk.Title, 40), tk.Status)
	}

	if syncReopenAll {
		reopen = s.board.PendingReopen().IDs()
	}
	if len(reopen) == 0 {
		s.board.DeclineReopen(s.ctx)
		fmt.Println("Kept finished. Use --reopen <ids> or --reopen-all to reopen.")
		return nil
	}

	reopened, err := s.board.ConfirmReopen(s.ctx, reopen)
	if err != nil {
		return err
	}
	for _, tk := range reopened {
		fmt.Printf("Reopened #%d: %s\n", tk.ID, tk.Title)
	}
	return nil
}

func readPayload(path string) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read payload: %w", err)
	}
	return data, nil
}
