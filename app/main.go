package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/lysyi3m/rss-harvest/app/api"
	"github.com/lysyi3m/rss-harvest/app/cfg"
	"github.com/lysyi3m/rss-harvest/app/database"
	"github.com/lysyi3m/rss-harvest/app/feed"
	"github.com/lysyi3m/rss-harvest/app/observe"
	"github.com/lysyi3m/rss-harvest/app/tasks"
)

func main() {
	c, err := cfg.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if c == nil {
		// Help was shown
		return
	}

	logLevel := slog.LevelInfo
	if c.Debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))

	if err := run(c); err != nil {
		slog.Error("Fatal error", "error", err)
		os.Exit(1)
	}
}

func run(c *cfg.Cfg) error {
	slog.Info("Starting RSS Harvest", "version", c.Version, "mode", c.Mode)

	db, err := database.Open(c.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()
	slog.Info("Database ready", "path", c.DBPath)

	configCache := feed.NewConfigCache(c.ConfigFile)
	if err := configCache.Run(); err != nil {
		return fmt.Errorf("failed to load pipeline configuration: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	promObserver, err := observe.NewPromObserver(registry)
	if err != nil {
		return fmt.Errorf("failed to register metrics: %w", err)
	}
	observer := observe.Multi(observe.NewLogObserver(slog.Default(), slog.LevelDebug), promObserver)

	recordRepo := database.NewRecordRepository(db)

	fetcherOpts := []feed.FetcherOption{}
	if c.HostInterval > 0 {
		fetcherOpts = append(fetcherOpts, feed.WithHostInterval(c.HostInterval))
	}
	if c.RespectRobots {
		fetcherOpts = append(fetcherOpts, feed.WithRobots())
	}
	fetcher := feed.NewFetcher(&http.Client{}, c.UserAgent, c.RequestTimeout, fetcherOpts...)
	feedFetcher := feed.NewFeedFetcher(fetcher, feed.NewParser(), observer)
	pageFetcher := feed.NewPageFetcher(fetcher, observer)

	newIngestTask := func() *tasks.IngestTask {
		return tasks.NewIngestTask(configCache, feedFetcher, pageFetcher, recordRepo, tasks.IngestOptions{
			WorkerCount: c.WorkerCount,
			LoadMode:    database.LoadMode(c.LoadMode),
			Observer:    observer,
		})
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch c.Mode {
	case cfg.ModeRun:
		if c.RunTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, c.RunTimeout)
			defer cancel()
		}

		task := newIngestTask()
		task.Start()
		return task.Execute(ctx)

	case cfg.ModeReprocess:
		task := tasks.NewReprocessTask(configCache, recordRepo, os.Stdout, observer)
		task.Start()
		return task.Execute(ctx)

	case cfg.ModeServe:
		return serve(ctx, c, configCache, recordRepo, registry, func() tasks.TaskInterface {
			return newIngestTask()
		})
	}

	return fmt.Errorf("unknown mode: %s", c.Mode)
}

func serve(ctx context.Context, c *cfg.Cfg, configCache *feed.ConfigCache, recordRepo database.RecordRepository,
	registry *prometheus.Registry, newTask func() tasks.TaskInterface) error {
	scheduler := tasks.NewScheduler(c.Schedule, c.RunTimeout, newTask)
	if err := scheduler.Start(); err != nil {
		return err
	}
	defer scheduler.Stop()
	slog.Info("Scheduler started", "schedule", c.Schedule, "workers", c.WorkerCount)

	baseURL := c.BaseUrl
	if baseURL == "" {
		baseURL = "http://localhost:" + c.Port
	}

	handler := api.NewHandler(configCache, recordRepo, feed.NewGenerator(baseURL, c.Version), scheduler,
		promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	httpServer := &http.Server{
		Addr:         ":" + c.Port,
		Handler:      api.NewServer(handler, c.APIAccessKey),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("HTTP server listening", "port", c.Port, "feed", baseURL+"/feeds/latest")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		slog.Info("Shutting down server gracefully...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}

	slog.Info("Server stopped")
	return nil
}
