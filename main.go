package main

import (
	"context"
	"expvar"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/iztrace/leaderboard/internal/app"
	"github.com/iztrace/leaderboard/internal/conf"
	"github.com/iztrace/leaderboard/internal/core/export"
	"github.com/iztrace/leaderboard/internal/core/leaderboard"
	"github.com/spf13/cobra"

	_ "time/tzdata"
)

var (
	buildVersion = "0.0.1"
	gitBranch    = "dev"
	gitHash      = ""
)

func main() {
	expvar.NewString("git_branch").Set(gitBranch)
	expvar.NewString("git_hash").Set(gitHash)

	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string
	var debug bool

	cmd := &cobra.Command{
		Use:           "leaderboard",
		Short:         "RFID race timing leaderboard",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&configPath, "conf", "c", "configs/config.toml", "config file path")
	cmd.PersistentFlags().BoolVar(&debug, "debug", false, "debug mode, log to stdout")

	load := func() (*conf.Bootstrap, error) {
		bc, err := conf.SetupConfig(configPath)
		if err != nil {
			return nil, err
		}
		bc.Debug = debug || bc.Server.Debug
		bc.BuildVersion = buildVersion
		return &bc, nil
	}

	cmd.AddCommand(newServeCmd(load), newComputeCmd(load), newVersionCmd())
	cmd.RunE = newServeCmd(load).RunE
	return cmd
}

type loader func() (*conf.Bootstrap, error)

func newServeCmd(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start http server and background recompute",
		RunE: func(cmd *cobra.Command, _ []string) error {
			bc, err := load()
			if err != nil {
				return err
			}
			return app.Run(cmd.Context(), bc)
		},
	}
}

func newComputeCmd(load loader) *cobra.Command {
	var output, category string
	var top int

	cmd := &cobra.Command{
		Use:   "compute",
		Short: "Compute leaderboard once and print or export it",
		RunE: func(cmd *cobra.Command, _ []string) error {
			bc, err := load()
			if err != nil {
				return err
			}
			snap, err := app.ComputeOnce(cmd.Context(), bc)
			if err != nil {
				return err
			}

			rows := snap.Overall
			if category != "" {
				var ok bool
				if rows, ok = snap.ByCategory[category]; !ok {
					return fmt.Errorf("category %q not configured", category)
				}
			}

			switch strings.ToLower(filepath.Ext(output)) {
			case "":
				return printTable(cmd, rows, top)
			case ".csv":
				return writeFile(output, func(f *os.File) error { return export.WriteCSV(f, rows) })
			case ".xlsx":
				return writeFile(output, func(f *os.File) error { return export.WriteXLSX(f, export.Sheets(snap)...) })
			default:
				return fmt.Errorf("unsupported output %q, want .csv or .xlsx", output)
			}
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (.csv or .xlsx), print to stdout when empty")
	cmd.Flags().StringVar(&category, "category", "", "category key, overall when empty")
	cmd.Flags().IntVar(&top, "top", 0, "print top N rows, 0 for all")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s %s)\n", buildVersion, gitBranch, gitHash)
		},
	}
}

func printTable(cmd *cobra.Command, rows []leaderboard.ResultRow, top int) error {
	if top > 0 && top < len(rows) {
		rows = rows[:top]
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, strings.Join(export.Headers, "\t"))
	for _, r := range rows {
		fmt.Fprintln(w, strings.Join(export.Record(r), "\t"))
	}
	return w.Flush()
}

func writeFile(path string, fn func(*os.File) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := fn(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
