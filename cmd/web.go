package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/boozedog/ticketflow/internal/web"
)

var webCmd = &cobra.Command{
	Use:   "web",
	Short: "Start the web UI",
	Long:  `Starts a local web server with the board, ticket detail pages, live refresh, and the sync endpoint used by the browser extension.`,
	RunE:  runWeb,
}

var webPort int

func init() {
	webCmd.Flags().IntVar(&webPort, "port", 0, "port to listen on (default from config, 8080)")
	rootCmd.AddCommand(webCmd)
}

func runWeb(_ *cobra.Command, _ []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	port := webPort
	if port == 0 {
		port = s.cfg.Web.Port
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := web.NewServer(s.cfg, s.board, port)
	return srv.ListenAndServe(ctx)
}
