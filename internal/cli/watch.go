package cli

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"artifact-cleanup/internal/app"
	"artifact-cleanup/internal/metrics"
)

type watchOptions struct {
	cleanupOptions
	Schedule    string
	MetricsAddr string
}

func newWatchCommand() *cobra.Command {
	opts := watchOptions{}
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Run cleanup on a cron schedule until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWatch(cmd.Context(), cmd, opts)
		},
	}
	addCleanupFlags(cmd, &opts.cleanupOptions)
	cmd.Flags().StringVar(&opts.Schedule, "schedule", "0 3 * * *", "Cron schedule for cleanup runs")
	cmd.Flags().StringVar(&opts.MetricsAddr, "metrics-addr", "", "Listen address for Prometheus metrics (empty = disabled)")
	_ = viper.BindPFlag("schedule", cmd.Flags().Lookup("schedule"))
	_ = viper.BindPFlag("metrics_addr", cmd.Flags().Lookup("metrics-addr"))
	return cmd
}

func runWatch(ctx context.Context, cmd *cobra.Command, opts watchOptions) error {
	schedule := resolveString(cmd, opts.Schedule, "schedule", "schedule")
	if _, err := cron.ParseStandard(schedule); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("invalid cron schedule").
			WithCause(err)
	}
	req, err := buildCleanupRequest(cmd, opts.cleanupOptions)
	if err != nil {
		return err
	}
	service := app.NewService()
	service.Metrics = metrics.NewCleanupMetrics(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var server *http.Server
	metricsAddr := resolveString(cmd, opts.MetricsAddr, "metrics_addr", "metrics-addr")
	if metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		server = &http.Server{Addr: metricsAddr, Handler: mux}
		go func() {
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error().Err(err).Msg("metrics listener failed")
			}
		}()
	}

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(schedule, func() {
		report, err := service.Cleanup(ctx, req)
		if err != nil {
			log.Error().Err(err).Msg("scheduled cleanup failed")
			return
		}
		if report.HasFailures() {
			log.Warn().Str("run_id", report.RunID).Msg("scheduled cleanup completed with failures")
		}
	}); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("failed to schedule cleanup").
			WithCause(err)
	}
	scheduler.Start()
	log.Info().Str("schedule", schedule).Msg("cleanup watcher started")

	<-ctx.Done()
	// An in-flight run finishes before the watcher exits; the signal
	// context already stops it from issuing further deletes.
	<-scheduler.Stop().Done()
	if server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}
	log.Info().Msg("cleanup watcher stopped")
	return nil
}
