package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/forPelevin/karaoke/internal/server"
	"github.com/forPelevin/karaoke/internal/store"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Accept uploads over HTTP and build karaoke packages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			log := opts.logger(cmd)

			history, err := store.Open(cfg.Paths.DBPath)
			if err != nil {
				return fmt.Errorf("open run history: %w", err)
			}
			defer history.Close()

			base := cfg.Pipeline("", "", "")
			base.History = history

			srv := server.New(server.Options{
				Addr:      cfg.Server.Addr,
				UploadDir: cfg.Paths.UploadDir,
				MaxUpload: int64(cfg.Server.MaxUploadMiB) << 20,
				Base:      base,
				Logger:    log,
			})

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return srv.ListenAndServe(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from config, :3000)")
	return cmd
}
