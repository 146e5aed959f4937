package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pavelanni/pollscan/internal/answerkey"
	"github.com/pavelanni/pollscan/internal/ingest"
	"github.com/pavelanni/pollscan/internal/ledger"
	"github.com/pavelanni/pollscan/internal/report"
	"github.com/pavelanni/pollscan/internal/roster"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "pollscan",
		Short: "Classroom poll ingestion and attendance reporting",
	}

	ing := ingestCmd()
	root.AddCommand(ing, reportCmd())

	// Make "ingest" the default when no subcommand is given.
	root.RunE = ing.RunE
	root.Args = ing.Args

	// Register ingest flags on root so bare `pollscan reports/*.csv` still works.
	root.Flags().AddFlagSet(ing.Flags())

	return root
}

func ingestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest [poll report files...]",
		Short: "Parse poll reports and update the attendance ledger",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runIngest,
	}
	f := cmd.Flags()
	f.StringSliceP("keys", "k", []string{"answer_keys.csv"}, "Answer-key files, CSV or YAML (repeatable)")
	f.StringSliceP("roster", "r", []string{"students.xlsx"}, "Roster files, XLSX or CSV (repeatable)")
	f.String("db", filepath.Join("db", "db.json"), "Attendance ledger path")
	f.String("anomalies", "anomalies.json", "Anomaly log path")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func reportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Generate the attendance report spreadsheet from the ledger",
		Args:  cobra.NoArgs,
		RunE:  runReport,
	}
	f := cmd.Flags()
	f.StringSliceP("roster", "r", []string{"students.xlsx"}, "Roster files, XLSX or CSV (repeatable)")
	f.String("db", filepath.Join("db", "db.json"), "Attendance ledger path")
	f.StringP("output", "o", filepath.Join("attendance_report", "attendance_report.xlsx"), "Report output path")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func setupLogging(cmd *cobra.Command) {
	v := viperForCmd(cmd)

	var logLevel slog.Level
	switch strings.ToLower(v.GetString("log-level")) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: logLevel}
	var logHandler slog.Handler
	switch strings.ToLower(v.GetString("log-format")) {
	case "json":
		logHandler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	default:
		logHandler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	slog.SetDefault(slog.New(logHandler))
}

// viperForCmd binds a command's flags and environment to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("POLLSCAN")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("pollscan")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/pollscan")
	v.AddConfigPath("/etc/pollscan")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

func runIngest(cmd *cobra.Command, args []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	files, err := expandReports(args)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no poll report files match %v", args)
	}

	keys, err := answerkey.Load(v.GetStringSlice("keys")...)
	if err != nil {
		return err
	}
	ros, err := roster.Load(v.GetStringSlice("roster")...)
	if err != nil {
		return err
	}

	log := slog.Default().With("run_id", uuid.NewString())
	in := ingest.New(keys, ros, log)
	in.IngestFiles(files)

	// Ledger and anomaly I/O failures are the only fatal conditions:
	// downstream correctness depends on the persisted state.
	led, err := ledger.Load(v.GetString("db"))
	if err != nil {
		return err
	}
	led.MergePolls(in.Polls())
	if err := led.Save(v.GetString("db")); err != nil {
		return err
	}
	if err := in.Anomalies().Save(v.GetString("anomalies")); err != nil {
		return err
	}

	log.Info("ingest complete",
		"reports", len(files),
		"polls", len(in.Polls()),
		"dates", len(led),
		"anomalies", len(in.Anomalies()))
	return nil
}

func runReport(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	led, err := ledger.Load(v.GetString("db"))
	if err != nil {
		return err
	}
	ros, err := roster.Load(v.GetStringSlice("roster")...)
	if err != nil {
		return err
	}

	rows, err := report.Build(led, ros)
	if err != nil {
		if errors.Is(err, report.ErrEmptyLedger) {
			return fmt.Errorf("nothing to report: %w (run ingest first)", err)
		}
		return err
	}

	out := v.GetString("output")
	if err := report.WriteXLSX(out, rows); err != nil {
		return err
	}
	slog.Info("attendance report written", "path", out, "rows", len(rows))
	return nil
}

// expandReports globs each argument; an argument without matches is kept
// verbatim so a missing file is reported per-file by the ingestor.
func expandReports(args []string) ([]string, error) {
	var files []string
	for _, arg := range args {
		matches, err := filepath.Glob(arg)
		if err != nil {
			return nil, fmt.Errorf("bad report pattern %q: %w", arg, err)
		}
		if len(matches) == 0 {
			files = append(files, arg)
			continue
		}
		files = append(files, matches...)
	}
	return files, nil
}
