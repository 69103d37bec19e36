package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/statlab-cli/internal/app"
	"github.com/KaramelBytes/statlab-cli/internal/dataset"
	"github.com/KaramelBytes/statlab-cli/internal/server"
)

var (
	serveAddr      string
	serveSource    sourceFlags
	serveNarration narrationFlags
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the dashboard API over HTTP",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr := serveAddr
		if addr == "" && cfg != nil {
			addr = cfg.ServerAddr
		}
		if addr == "" {
			addr = "127.0.0.1:8080"
		}

		nar, err := serveNarration.narrator()
		if err != nil {
			return err
		}
		records, name, err := serveSource.load()
		if err != nil {
			return err
		}
		dash := app.New(dataset.NewGenerator(resolveSeed(serveSource.seed)), nar)
		dash.Load(records)

		srv := server.New(dash, server.Options{
			DefaultSize: resolveSize(serveSource.size),
			Logger:      debug,
		})
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Serving %s (%d records) on http://%s\n", name, len(records), addr)
		return srv.ListenAndServe(ctx, addr)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	f := serveCmd.Flags()
	serveSource.register(f)
	serveNarration.register(f, false)
	f.StringVar(&serveAddr, "addr", "", "listen address (default from config)")
}
