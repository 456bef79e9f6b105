package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/reconthing/reconthing/internal/client"
	"github.com/reconthing/reconthing/internal/log"
	"github.com/reconthing/reconthing/internal/model"
	"github.com/reconthing/reconthing/internal/output"
	"github.com/reconthing/reconthing/internal/service"
	"github.com/reconthing/reconthing/internal/task"
)

var (
	flagCSV     bool
	flagNoColor bool
	flagAll     bool
)

var kinds = map[string]task.Kind{
	"enumerate": task.KindEnumerate,
	"resolve":   task.KindResolve,
	"probe":     task.KindProbe,
	"recon":     task.KindBasicRecon,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "serve runs the HTTP API and executes the requested pipelines",
	Args:  cobra.NoArgs,
	RunE:  doServe,
}

var runCmd = &cobra.Command{
	Use:       "run <enumerate|resolve|probe|recon> <domain>",
	Short:     "run starts a pipeline on a running server and waits for its result",
	Args:      cobra.ExactArgs(2),
	ValidArgs: []string{"enumerate", "resolve", "probe", "recon"},
	RunE:      doRun,
}

var showCmd = &cobra.Command{
	Use:       "show <subdomains|resolutions|probes> <domain>",
	Short:     "show prints the results stored for a domain",
	Args:      cobra.ExactArgs(2),
	ValidArgs: []string{"subdomains", "resolutions", "probes"},
	RunE:      doShow,
}

func doServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctx = log.ContextAttrs(ctx, slog.Group("reconthing",
		slog.String("cmd", "serve"),
		slog.Int("pid", os.Getpid()),
	))

	gin.SetMode(gin.ReleaseMode)
	svc, err := service.New(ctx, config)
	if err != nil {
		return err
	}
	return svc.Do(ctx)
}

func doRun(cmd *cobra.Command, args []string) error {
	kind, ok := kinds[args[0]]
	if !ok {
		return fmt.Errorf("unknown pipeline %q, expected one of enumerate, resolve, probe, recon", args[0])
	}
	domain, err := model.NormalizeDomain(args[1])
	if err != nil {
		return err
	}
	interval, err := model.ParseISODuration(config.Client.Interval)
	if err != nil {
		return fmt.Errorf("client.interval: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := client.New(config.Client.URL)
	if err != nil {
		return err
	}
	started, err := c.Start(ctx, kind, domain)
	if err != nil {
		return fmt.Errorf("starting %s: %w", args[0], err)
	}
	slog.InfoContext(ctx, "task started", "task_id", started.TaskID, "kind", kind, "domain", domain)

	progress := output.NewProgress(cmd.ErrOrStderr(), args[0]+" "+domain)
	t, err := c.Poll(ctx, kind, started.TaskID, interval, config.Client.Attempts, progress.Update)
	progress.Done(t)
	if err != nil {
		return fmt.Errorf("waiting for task %s: %w", started.TaskID, err)
	}
	if t.Status == task.StatusFailed {
		return fmt.Errorf("task %s failed: %s", t.ID, t.Error)
	}
	return write(cmd.OutOrStdout(), output.Task(t))
}

func doShow(cmd *cobra.Command, args []string) error {
	domain, err := model.NormalizeDomain(args[1])
	if err != nil {
		return err
	}
	c, err := client.New(config.Client.URL)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	var sheet output.Sheet
	switch args[0] {
	case "subdomains":
		subs, err := c.Subdomains(ctx, domain)
		if err != nil {
			return err
		}
		sheet = output.Subdomains(subs)
	case "resolutions":
		groups, err := c.Resolutions(ctx, domain, flagAll)
		if err != nil {
			return err
		}
		sheet = output.Resolutions(groups)
	case "probes":
		probes, err := c.Probes(ctx, domain)
		if err != nil {
			return err
		}
		sheet = output.Probes(probes)
	default:
		return fmt.Errorf("unknown result %q, expected one of subdomains, resolutions, probes", args[0])
	}
	return write(cmd.OutOrStdout(), sheet)
}

func write(w io.Writer, sheet output.Sheet) error {
	if flagCSV {
		return output.WriteCSV(w, sheet)
	}
	output.WriteTable(w, sheet, flagNoColor)
	return nil
}
