package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/forPelevin/karaoke/internal/store"
)

func newHistoryCmd(opts *rootOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded karaoke runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			history, err := store.Open(cfg.Paths.DBPath)
			if err != nil {
				return fmt.Errorf("open run history: %w", err)
			}
			defer history.Close()

			runs, err := history.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Job", "Created", "Title", "Artists", "Provider", "Status", "Lines", "Folder"},
				historyRows(runs),
				"Lines",
			))
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum runs to show (0 for all)")
	return cmd
}

func historyRows(runs []store.Run) [][]string {
	out := make([][]string, 0, len(runs))
	for _, r := range runs {
		id := r.ID
		if len(id) > 8 {
			id = id[:8]
		}
		status := r.Status
		if r.Error != "" {
			status += ": " + truncate(r.Error, 40)
		}
		out = append(out, []string{
			id,
			r.CreatedAt.Local().Format(time.DateTime),
			r.Title,
			r.Artists,
			r.Provider,
			status,
			strconv.Itoa(r.Lines),
			r.OutputDir,
		})
	}
	return out
}

func truncate(s string, n int) string {
	rs := []rune(s)
	if len(rs) <= n {
		return s
	}
	return string(rs[:n]) + "…"
}
