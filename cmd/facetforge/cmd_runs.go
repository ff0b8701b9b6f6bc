package main

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"facetforge/internal/ideation"
	"facetforge/internal/store"
)

func newRunsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect the run journal",
	}

	var limit int
	list := &cobra.Command{
		Use:   "list",
		Short: "List recent runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			j, err := openJournal()
			if err != nil {
				return err
			}
			defer j.Close()

			runs, err := j.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded yet.")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), runsTable(runs))
			return nil
		},
	}
	list.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs")

	stats := &cobra.Command{
		Use:   "stats",
		Short: "Summarize recorded runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			j, err := openJournal()
			if err != nil {
				return err
			}
			defer j.Close()

			s, err := j.Stats(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "runs: %d (succeeded %d, failed %d)\n", s.Total, s.Succeeded, s.Failed)
			fmt.Fprintf(out, "option fallbacks: %d\n", s.Fallbacks)

			codes := make([]string, 0, len(s.ByCode))
			for code := range s.ByCode {
				codes = append(codes, string(code))
			}
			sort.Strings(codes)
			for _, code := range codes {
				fmt.Fprintf(out, "  %s: %d\n", code, s.ByCode[ideation.ErrorCode(code)])
			}
			return nil
		},
	}

	cmd.AddCommand(list, stats)
	return cmd
}

func openJournal() (*store.Journal, error) {
	if !cfg.Journal.Enabled {
		return nil, errors.New("the run journal is disabled (journal.enabled: false)")
	}
	return store.OpenJournal(cfg.Journal.Path)
}

func runsTable(runs []ideation.RunRecord) string {
	header := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cell := lipgloss.NewStyle().Padding(0, 1)

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("STARTED", "ID", "ROLE", "SUBJECT", "OUTCOME", "CATEGORIES", "FALLBACKS", "DURATION").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return header
			}
			return cell
		})

	for _, r := range runs {
		outcome := r.Outcome
		if r.ErrorCode != "" {
			outcome = string(r.ErrorCode)
		}
		t.Row(
			r.StartedAt.Local().Format(time.DateTime),
			shortID(r.ID),
			r.ExpertRole,
			r.TargetSubject,
			outcome,
			strconv.Itoa(r.CategoryCount),
			strconv.Itoa(r.FallbackCount),
			r.Duration.Round(time.Millisecond).String(),
		)
	}
	return t.Render()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
