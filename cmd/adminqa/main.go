// Copyright 2026 © The adminqa Authors
// SPDX-License-Identifier: Apache-2.0

// Command adminqa serves the role-scoped question UI and its companion tools.
package main

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/jllopis/adminqa/pkg/access"
	"github.com/jllopis/adminqa/pkg/audit"
	"github.com/jllopis/adminqa/pkg/config"
	"github.com/jllopis/adminqa/pkg/dataset"
	"github.com/jllopis/adminqa/pkg/errors"
	"github.com/jllopis/adminqa/pkg/telemetry"
)

var version = "dev"

type globalFlags struct {
	ConfigArgs []string
	JSON       bool
	Help       bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	global, args, err := parseGlobalFlags(os.Args[1:])
	if err != nil {
		fatal(NewInvalidArgumentError("flags", err.Error()), false)
	}
	if global.Help || len(args) == 0 {
		printUsage(os.Stdout)
		return
	}

	cmd := args[0]
	switch cmd {
	case "help":
		printUsage(os.Stdout)
		return
	case "version":
		printVersion(os.Stdout)
		return
	}

	cfg, err := config.LoadWithCLI(global.ConfigArgs)
	if err != nil {
		fatal(NewConfigError(err, configPath(global.ConfigArgs)), global.JSON)
	}
	logger := telemetry.ConfigureSlog(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(logger)

	switch cmd {
	case "serve":
		runWithTelemetry(ctx, cfg, logger, func() error { return runServe(ctx, global, cfg, logger, args[1:]) })
	case "ask":
		runWithTelemetry(ctx, cfg, logger, func() error { return runAsk(ctx, global, cfg, logger, args[1:]) })
	case "mcp":
		runWithTelemetry(ctx, cfg, logger, func() error { return runMCP(cfg, logger, args[1:]) })
	case "roles":
		check(runRoles(ctx, os.Stdout, global, args[1:]), global.JSON)
	case "view":
		check(runView(ctx, os.Stdout, global, cfg, logger, args[1:]), global.JSON)
	case "audit":
		check(runAudit(ctx, os.Stdout, global, cfg, args[1:]), global.JSON)
	case "adapters":
		check(runAdapters(os.Stdout, global, args[1:]), global.JSON)
	default:
		fatal(NewInvalidArgumentError(cmd, fmt.Sprintf("unknown command %q", cmd)), global.JSON)
	}
}

func parseGlobalFlags(args []string) (globalFlags, []string, error) {
	var flags globalFlags
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			return flags, args[i+1:], nil
		}
		if !strings.HasPrefix(arg, "-") {
			return flags, args[i:], nil
		}
		switch {
		case arg == "-h" || arg == "--help":
			flags.Help = true
			return flags, nil, nil
		case arg == "--json":
			flags.JSON = true
		case arg == "--config", arg == "--set", arg == "--profile", arg == "--env":
			if i+1 >= len(args) {
				return flags, nil, fmt.Errorf("missing value for %s", arg)
			}
			flags.ConfigArgs = append(flags.ConfigArgs, arg, args[i+1])
			i++
		case strings.HasPrefix(arg, "--config="), strings.HasPrefix(arg, "--set="),
			strings.HasPrefix(arg, "--profile="), strings.HasPrefix(arg, "--env="):
			flags.ConfigArgs = append(flags.ConfigArgs, arg)
		default:
			return flags, nil, fmt.Errorf("unknown global flag %q", arg)
		}
	}
	return flags, nil, nil
}

func configPath(args []string) string {
	for i, arg := range args {
		if v, ok := strings.CutPrefix(arg, "--config="); ok {
			return v
		}
		if arg == "--config" && i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}

func runWithTelemetry(ctx context.Context, cfg *config.Config, logger *slog.Logger, run func() error) {
	shutdown, err := telemetry.InitWithConfig(ctx, "adminqa", version, telemetry.Config{
		Exporter:     cfg.Telemetry.Exporter,
		OTLPEndpoint: cfg.Telemetry.OTLPEndpoint,
		OTLPInsecure: cfg.Telemetry.OTLPInsecure,
		// stdout carries the MCP stdio stream and command output.
		Writer: os.Stderr,
	})
	if err != nil {
		fatal(NewConfigError(err, ""), false)
	}
	runErr := run()

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := shutdown(shutdownCtx); err != nil {
		logger.Warn("telemetry shutdown failed", "error", err)
	}
	check(runErr, false)
}

func runRoles(ctx context.Context, w io.Writer, flags globalFlags, args []string) error {
	cmd := flag.NewFlagSet("roles", flag.ContinueOnError)
	cmd.SetOutput(io.Discard)
	server := cmd.String("server", "", "list the roles of a running adminqa server, e.g. http://localhost:8501/mcp")
	if err := cmd.Parse(args); err != nil {
		return NewInvalidArgumentError("roles", err.Error())
	}
	if cmd.NArg() > 0 {
		return NewInvalidArgumentError("roles", fmt.Sprintf("unexpected argument %q", cmd.Arg(0)))
	}

	roles := access.Roles()
	if url := strings.TrimSpace(*server); url != "" {
		client, err := dialServer(url)
		if err != nil {
			return err
		}
		defer client.Close()
		names, err := client.ListRoles(ctx)
		if err != nil {
			return errors.New(errors.CodeInternal, "list remote roles", err).WithContext("server", url)
		}
		roles = make([]access.Role, len(names))
		for i, n := range names {
			roles[i] = access.Role(n)
		}
	}
	if len(roles) == 0 {
		return nil
	}

	if flags.JSON {
		printJSON(w, map[string]any{"roles": roles, "default": roles[0]})
		return nil
	}
	for i, r := range roles {
		marker := " "
		if i == 0 {
			marker = "*"
		}
		if _, known := access.ParseRole(string(r)); known {
			fmt.Fprintf(w, "%s %s\t(%s)\n", marker, r, access.Describe(r))
		} else {
			fmt.Fprintf(w, "%s %s\n", marker, r)
		}
	}
	return nil
}

func runView(ctx context.Context, w io.Writer, flags globalFlags, cfg *config.Config, logger *slog.Logger, args []string) error {
	cmd := flag.NewFlagSet("view", flag.ContinueOnError)
	cmd.SetOutput(io.Discard)
	role := cmd.String("role", string(access.DefaultRole), "admin role")
	server := cmd.String("server", "", "view through a running adminqa server, e.g. http://localhost:8501/mcp")
	if err := cmd.Parse(args); err != nil {
		return NewInvalidArgumentError("view", err.Error())
	}

	r, ok := access.ParseRole(*role)
	if !ok {
		return NewInvalidArgumentError("--role", fmt.Sprintf("unknown role %q", *role))
	}

	var view *dataset.Dataset
	if url := strings.TrimSpace(*server); url != "" {
		v, err := viewRemote(ctx, url, r)
		if err != nil {
			return err
		}
		view = v
	} else {
		a, err := newApp(cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()
		view = a.service.View(r)
	}

	if flags.JSON {
		printJSON(w, map[string]any{"role": r, "columns": view.Columns(), "rows": view.Rows()})
		return nil
	}
	if view.Empty() {
		fmt.Fprintln(w, "No data available for this role.")
		return nil
	}
	tw := newTabWriter(w)
	writeRow(tw, view.Columns()...)
	for _, row := range view.Rows() {
		writeRow(tw, row...)
	}
	return tw.Flush()
}

func viewRemote(ctx context.Context, url string, role access.Role) (*dataset.Dataset, error) {
	client, err := dialServer(url)
	if err != nil {
		return nil, err
	}
	defer client.Close()

	csv, err := client.ViewScope(ctx, string(role))
	if err != nil {
		return nil, errors.New(errors.CodeInternal, "view remote scope", err).WithContext("server", url)
	}
	if csv == "" {
		return dataset.New(nil, nil), nil
	}
	return dataset.Read(strings.NewReader(csv))
}

func runAudit(ctx context.Context, w io.Writer, flags globalFlags, cfg *config.Config, args []string) error {
	if len(args) == 0 || args[0] != "list" {
		return NewInvalidArgumentError("audit", "usage: adminqa audit list [--role R] [--status S] [--limit N]")
	}
	cmd := flag.NewFlagSet("audit list", flag.ContinueOnError)
	cmd.SetOutput(io.Discard)
	role := cmd.String("role", "", "filter by role")
	status := cmd.String("status", "", "filter by status (answered, rejected, failed)")
	limit := cmd.Int("limit", 20, "maximum events")
	if err := cmd.Parse(args[1:]); err != nil {
		return NewInvalidArgumentError("audit list", err.Error())
	}

	if !cfg.Audit.Enabled {
		return NewCLIError(errors.New(errors.CodeInvalidInput, "audit trail is disabled", nil),
			"set audit.enabled=true (or --set audit.enabled=true) to record and list questions")
	}
	if _, err := os.Stat(cfg.Audit.Path); err != nil {
		if !stderrors.Is(err, fs.ErrNotExist) {
			return NewConfigError(err, cfg.Audit.Path)
		}
		return NewCLIError(errors.New(errors.CodeNotFound, "no audit trail recorded yet", nil).
			WithContext("path", cfg.Audit.Path), "run adminqa serve or ask with audit enabled first")
	}
	store, err := audit.OpenSQLite(cfg.Audit.Path)
	if err != nil {
		return NewConfigError(err, cfg.Audit.Path)
	}
	defer store.Close()

	events, err := store.List(ctx, audit.Filter{Role: *role, Status: audit.Status(*status), Limit: *limit})
	if err != nil {
		return err
	}
	if flags.JSON {
		printJSON(w, events)
		return nil
	}
	tw := newTabWriter(w)
	writeRow(tw, "STARTED", "STATUS", "ROLE", "ROWS", "QUESTION", "RESULT")
	for _, ev := range events {
		result := ev.Answer
		if ev.Error != "" {
			result = ev.Error
		}
		writeRow(tw, formatTime(ev.StartedAt), string(ev.Status), ev.Role,
			fmt.Sprint(ev.Rows), truncate(ev.Question, 48), truncate(result, 60))
	}
	return tw.Flush()
}

func printVersion(w io.Writer) {
	fmt.Fprintln(w, version)
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `adminqa: ask questions about the students your admin role can see

Usage:
  adminqa [global flags] <command> [args]

Global flags:
  --config <path>      Path to a YAML config file
  --profile <name>     Overlay <config>.<name>.yaml (alias --env)
  --set key=value      Override config (repeatable)
  --json               JSON output

Commands:
  serve [--addr :8501]
  ask [--role R] [--api-key K] [--server URL] <question...>
  roles [--server URL]
  view [--role R] [--server URL]
  mcp
  audit list [--role R] [--status S] [--limit N]
  adapters [--type llm|audit|telemetry|mcp]
  version
`)
}

func check(err error, asJSON bool) {
	if err != nil {
		fatal(err, asJSON)
	}
}

func fatal(err error, asJSON bool) {
	printError(os.Stderr, err, asJSON)
	os.Exit(1)
}

func printJSON(w io.Writer, value any) {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(value)
}

func newTabWriter(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func writeRow(writer *tabwriter.Writer, cols ...string) {
	for i, col := range cols {
		cols[i] = normalizeCell(col)
	}
	fmt.Fprintln(writer, strings.Join(cols, "\t"))
}

func normalizeCell(value string) string {
	value = strings.ReplaceAll(value, "\n", " ")
	return strings.ReplaceAll(value, "\t", " ")
}

func truncate(value string, limit int) string {
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit-3]) + "..."
}

func formatTime(value time.Time) string {
	if value.IsZero() {
		return "-"
	}
	return value.UTC().Format(time.RFC3339)
}
