package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Gustavoab019/startia/internal/report"
)

type reportFlags struct {
	filter report.Filter
	xlsx   string
	json   bool
}

func (f *reportFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.filter.Site, "site", "", "site access code or id")
	cmd.Flags().StringVar(&f.filter.Actor, "actor", "", "actor phone")
	cmd.Flags().StringVar(&f.filter.Status, "status", "", "status filter")
	cmd.Flags().StringVar(&f.filter.From, "from", "", "first date, YYYY-MM-DD")
	cmd.Flags().StringVar(&f.filter.To, "to", "", "last date, YYYY-MM-DD")
	cmd.Flags().StringVar(&f.xlsx, "xlsx", "", "write an xlsx workbook to this path")
	cmd.Flags().BoolVar(&f.json, "json", false, "print JSON instead of a table")
}

// emit prints rows as JSON or tables and optionally writes the workbook.
func (f *reportFlags) emit(cmd *cobra.Command, rows any, sheets ...report.Sheet) error {
	out := cmd.OutOrStdout()
	if f.json {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(rows); err != nil {
			return err
		}
	} else {
		for _, s := range sheets {
			report.RenderTable(out, s)
		}
	}
	if f.xlsx == "" {
		return nil
	}
	file, err := os.Create(f.xlsx)
	if err != nil {
		return fmt.Errorf("create %s: %w", f.xlsx, err)
	}
	if err := report.WriteXLSX(file, sheets...); err != nil {
		file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s\n", f.xlsx)
	return nil
}

func reportCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{Use: "report", Short: "Read-only reports over the store"}
	cmd.AddCommand(reportWorkItemsCmd(c))
	cmd.AddCommand(reportAttendanceCmd(c))
	cmd.AddCommand(reportProblemsCmd(c))
	return cmd
}

func reportWorkItemsCmd(c *cli) *cobra.Command {
	f := &reportFlags{}
	cmd := &cobra.Command{
		Use:   "work-items",
		Short: "List work items (status: pending, in_progress, completed)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rows, err := c.app.Reports.WorkItems(cmd.Context(), f.filter)
			if err != nil {
				return err
			}
			return f.emit(cmd, rows, report.WorkItemSheet(rows))
		},
	}
	f.bind(cmd)
	return cmd
}

func reportAttendanceCmd(c *cli) *cobra.Command {
	f := &reportFlags{}
	cmd := &cobra.Command{
		Use:   "attendance",
		Short: "List attendance records with per-actor totals (status: open, closed)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rows, err := c.app.Reports.Attendance(cmd.Context(), f.filter)
			if err != nil {
				return err
			}
			totals := report.Totals(rows)
			payload := map[string]any{"records": rows, "totals": totals}
			return f.emit(cmd, payload, report.AttendanceSheet(rows), report.TotalsSheet(totals))
		},
	}
	f.bind(cmd)
	return cmd
}

func reportProblemsCmd(c *cli) *cobra.Command {
	f := &reportFlags{}
	cmd := &cobra.Command{
		Use:   "problems",
		Short: "List problem reports (status: open, in_review, resolved)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rows, err := c.app.Reports.Problems(cmd.Context(), f.filter)
			if err != nil {
				return err
			}
			return f.emit(cmd, rows, report.ProblemSheet(rows))
		},
	}
	f.bind(cmd)
	return cmd
}
