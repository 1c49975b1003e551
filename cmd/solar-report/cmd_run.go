package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	httpapi "github.com/i474232898/solar-report/internal/api/http"
	"github.com/i474232898/solar-report/internal/common"
	"github.com/i474232898/solar-report/internal/scheduler"
)

var runCmd = &cobra.Command{
	Use:   "run [site-id...]",
	Short: "Fetch, render and mail the report once",
	Long: `Run the full report pipeline once for the given site ids, or for
SITE_IDS when none are given. Exits non-zero when any site failed.`,
	RunE: runOnce,
}

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run the report on REPORT_CRON and serve the status API",
	Long: `Run the report pipeline for SITE_IDS on the REPORT_CRON schedule until
interrupted, serving health, run history and metrics on STATUS_PORT.`,
	RunE: runSchedule,
}

var noMail bool

func init() {
	runCmd.Flags().BoolVar(&noMail, "no-mail", false, "render the report without sending it")
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(scheduleCmd)
}

func runOnce(cmd *cobra.Command, args []string) error {
	a, err := newApp(!noMail)
	if err != nil {
		return err
	}

	ids := a.cfg.SiteIDs
	if len(args) > 0 {
		if ids, err = common.ParseIDs(strings.Join(args, ",")); err != nil {
			return err
		}
	}
	if len(ids) == 0 {
		return fmt.Errorf("no site ids given; pass them as arguments or set SITE_IDS")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	results, err := a.pipeline.Run(ctx, ids)
	for _, r := range results {
		status := "ok"
		if !r.OK() {
			status = fmt.Sprintf("%s at %s: %s", r.Kind, r.Stage, r.Error)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "site %d: %s\n", r.SiteID, status)
	}
	return err
}

func runSchedule(cmd *cobra.Command, args []string) error {
	a, err := newApp(true)
	if err != nil {
		return err
	}

	// A run that has not finished in a day is stuck.
	sched := scheduler.New(a.cfg.SiteIDs, a.cfg.ReportCron, 24*time.Hour, a.pipeline)
	if err := sched.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	defer sched.Stop()

	server := httpapi.NewApp(appName)
	httpapi.RegisterRoutes(server, a.registry, a.history)
	httpapi.RegisterMetrics(server, a.promReg)

	go func() {
		if err := server.Listen(":" + a.cfg.StatusPort); err != nil {
			log.Printf("fiber server stopped: %v", err)
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("error during shutdown: %v", err)
	}
	return nil
}
