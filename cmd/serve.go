package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloudgroundcontrol/meet-recorder/pkg/config"
	"github.com/cloudgroundcontrol/meet-recorder/pkg/http/rest"
	"github.com/cloudgroundcontrol/meet-recorder/pkg/metrics"
	"github.com/cloudgroundcontrol/meet-recorder/pkg/recording"
	"github.com/cloudgroundcontrol/meet-recorder/pkg/schedule"
	"github.com/labstack/gommon/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	var shutdownTimeout time.Duration

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP service",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), shutdownTimeout)
		},
	}
	cmd.Flags().DurationVar(&shutdownTimeout, "shutdown-timeout", 60*time.Second, "How long to wait for running sessions on shutdown")
	return cmd
}

func runServe(ctx context.Context, shutdownTimeout time.Duration) error {
	c, err := loadConfig()
	if err != nil {
		return err
	}
	if c.Port == "" {
		return config.ErrEmptyPort
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err = config.EnsureDir(c.RecordingsDir); err != nil {
		return err
	}

	tools, err := sessionTools(ctx, c)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	sessionMetrics, err := metrics.NewSessionMetrics(registry)
	if err != nil {
		return err
	}

	// Initialise recording service
	service := recording.NewService(recording.Options{
		RecordingsDir:   c.RecordingsDir,
		DefaultDuration: c.MeetingDuration,
		Webhooks:        c.Webhooks,
		Session:         sessionConfig(c),
		Tools:           tools,
		Metrics:         sessionMetrics,
	})

	// Scheduling needs Google credentials and a stored token
	var scheduler rest.Scheduler
	if c.CalendarEnabled() {
		s, err := schedule.NewFromConfig(ctx, schedule.Config{
			ClientID:     c.GoogleClientID,
			ClientSecret: c.GoogleClientSecret,
			TokenFile:    c.GoogleTokenFile,
		})
		if err != nil {
			log.Warnf("meeting scheduling disabled | error: %v", err)
		} else {
			scheduler = s
		}
	}

	e := rest.NewRouter(service, scheduler, registry)

	errs := make(chan error, 1)
	go func() {
		errs <- e.Start(":" + c.Port)
	}()

	select {
	case err = <-errs:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Infof("shutting down | timeout: %v", shutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err = e.Shutdown(shutdownCtx); err != nil {
		log.Errorf("cannot stop http server | error: %v", err)
	}
	return service.Shutdown(shutdownCtx)
}
