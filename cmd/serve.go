package cmd

import (
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/KaramelBytes/shopseg-cli/internal/pipeline"
	"github.com/KaramelBytes/shopseg-cli/internal/server"
	"github.com/spf13/cobra"
)

var (
	serveAddr      string
	serveNoHistory bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the segmentation pipeline over HTTP",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := currentConfig()
		if err != nil {
			return err
		}
		opts := pipeline.DefaultOptions()
		opts.Schema = c.Schema()
		opts.Segment = c.Segment()
		opts.Columns = c.Columns()

		addr := c.ListenAddr
		if serveAddr != "" {
			addr = serveAddr
		}
		var runs server.Runs
		if !serveNoHistory {
			h, err := openHistory()
			if err != nil {
				return err
			}
			defer h.Close()
			runs = h
		}
		srv := server.New(server.Config{
			Addr:           addr,
			AllowedOrigins: c.AllowedOrigins,
			MaxUploadBytes: int64(c.MaxUploadMB) << 20,
			Pipeline:       opts,
		}, runs, logger)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		if err := srv.ListenAndServe(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides config listen_addr)")
	serveCmd.Flags().BoolVar(&serveNoHistory, "no-history", false, "do not record runs")
}
