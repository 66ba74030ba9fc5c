package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"arcos-chat/internal/database"
	"arcos-chat/internal/models"
	"arcos-chat/internal/repository"
)

func newLogCmd() *cobra.Command {
	var databaseURL string

	cmd := &cobra.Command{
		Use:   "log",
		Short: "Inspect the dispatch log",
	}
	cmd.PersistentFlags().StringVar(&databaseURL, "database-url", envOr("DATABASE_URL", ""), "PostgreSQL URL of the dispatch log")

	var limit int
	session := &cobra.Command{
		Use:   "session <session-id>",
		Short: "List the latest dispatches of a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(databaseURL, func(repo *repository.DispatchLogRepo) error {
				recs, err := repo.ListBySession(cmd.Context(), args[0], limit)
				if err != nil {
					return errors.Wrap(err, "list dispatches")
				}
				printRecords(os.Stdout, recs)
				return nil
			})
		},
	}
	session.Flags().IntVar(&limit, "limit", 20, "number of dispatches to show")

	var since time.Duration
	stats := &cobra.Command{
		Use:   "stats",
		Short: "Count dispatch outcomes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(databaseURL, func(repo *repository.DispatchLogRepo) error {
				counts, err := repo.OutcomeCounts(cmd.Context(), time.Now().Add(-since))
				if err != nil {
					return errors.Wrap(err, "count outcomes")
				}
				printCounts(os.Stdout, counts)
				return nil
			})
		},
	}
	stats.Flags().DurationVar(&since, "since", 24*time.Hour, "look back this far")

	cmd.AddCommand(session, stats)
	return cmd
}

func withRepo(databaseURL string, fn func(*repository.DispatchLogRepo) error) error {
	if databaseURL == "" {
		return errors.New("no database: pass --database-url or set DATABASE_URL")
	}
	pool, err := database.NewPostgresPool(databaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()
	return fn(repository.NewDispatchLogRepo(pool))
}

func printRecords(w io.Writer, recs []models.DispatchRecord) {
	if len(recs) == 0 {
		fmt.Fprintln(w, "no dispatches")
		return
	}
	for _, r := range recs {
		fmt.Fprintf(w, "%s  %-18s %3d  %2d products  %6dms  %s\n",
			r.CreatedAt.Local().Format("2006-01-02 15:04:05"), r.Outcome, r.HTTPStatus,
			r.ProductCount, r.Duration.Milliseconds(), r.Question)
	}
}

func printCounts(w io.Writer, counts map[string]int) {
	outcomes := make([]string, 0, len(counts))
	total := 0
	for o, n := range counts {
		outcomes = append(outcomes, o)
		total += n
	}
	sort.Strings(outcomes)
	for _, o := range outcomes {
		fmt.Fprintf(w, "%-18s %d\n", o, counts[o])
	}
	fmt.Fprintf(w, "%-18s %d\n", "total", total)
}
