package main

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vango-dev/approutes/internal/config"
	"github.com/vango-dev/approutes/internal/telemetry"
	"github.com/vango-dev/approutes/pkg/project"
	"github.com/vango-dev/approutes/pkg/router"
	"github.com/vango-dev/approutes/pkg/vfs"
)

// env is the state every command starts from.
type env struct {
	cfg         *config.Config
	logger      *slog.Logger
	registry    *prometheus.Registry
	telemetry   *telemetry.Telemetry
	metricsFile string
}

func setup(flags *globalFlags) (*env, error) {
	level := slog.LevelInfo
	if flags.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	cfg, err := loadConfig(flags)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger.Debug("loaded config", "path", cfg.Path(), "extensions", cfg.Extensions())

	registry := prometheus.NewRegistry()
	tel := telemetry.New(telemetryOptions(cfg.Metrics, registry)...)

	metricsFile := flags.metricsFile
	if metricsFile == "" {
		metricsFile = cfg.MetricsFilePath()
	}

	return &env{
		cfg:         cfg,
		logger:      logger,
		registry:    registry,
		telemetry:   tel,
		metricsFile: metricsFile,
	}, nil
}

func loadConfig(flags *globalFlags) (*config.Config, error) {
	switch {
	case flags.configPath != "":
		path, err := filepath.Abs(flags.configPath)
		if err != nil {
			return nil, err
		}
		return config.LoadFile(path)
	case flags.dir != "":
		dir, err := filepath.Abs(flags.dir)
		if err != nil {
			return nil, err
		}
		if config.Exists(dir) {
			return config.Load(dir)
		}
		cfg := config.New()
		cfg.SetDir(dir)
		return cfg, nil
	default:
		return config.LoadFromWorkingDir()
	}
}

// openProject locates the app directory and creates the project.
func (e *env) openProject() (*project.Project, error) {
	appDir, err := e.appDir()
	if err != nil {
		return nil, err
	}
	e.logger.Debug("app directory", "path", appDir.String())

	return project.New(appDir, project.Options{
		PageExtensions: e.cfg.PageExtensions,
		CacheSize:      e.cfg.Cache.Size,
		Concurrency:    e.cfg.Build.Concurrency,
		Logger:         e.logger,
		Telemetry:      e.telemetry,
	})
}

func (e *env) appDir() (vfs.Path, error) {
	fsys := vfs.OS(e.cfg.Dir())
	if e.cfg.AppDir == "" {
		return router.RequireAppDir(fsys.Root())
	}

	rel, err := filepath.Rel(e.cfg.Dir(), e.cfg.AppDirPath())
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		// Outside the project: the app directory becomes its own root.
		return vfs.OS(e.cfg.AppDirPath()).Root(), nil
	}
	return fsys.Path(filepath.ToSlash(rel)), nil
}

// hostPath returns the host path of a handle on an OS file system.
func hostPath(p vfs.Path) string {
	return filepath.Join(p.FileSystem().Name(), filepath.FromSlash(p.Name()))
}

// writeMetrics exports the registry in the Prometheus text format.
func (e *env) writeMetrics() {
	if e.metricsFile == "" {
		return
	}
	if err := prometheus.WriteToTextfile(e.metricsFile, e.registry); err != nil {
		warn("Failed to write metrics: %v", err)
		return
	}
	e.logger.Debug("wrote metrics", "path", e.metricsFile)
}

// signalContext is canceled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case <-sigCh:
			fmt.Println("\n\n  Shutting down...")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()

	return ctx, cancel
}

// telemetryOptions maps the metrics config block onto telemetry options.
// Unset fields keep the telemetry defaults.
func telemetryOptions(m config.MetricsConfig, registry prometheus.Registerer) []telemetry.Option {
	opts := []telemetry.Option{
		telemetry.WithRegistry(registry),
		telemetry.WithNamespace(m.Namespace),
		telemetry.WithSubsystem(m.Subsystem),
	}
	if len(m.Labels) > 0 {
		opts = append(opts, telemetry.WithConstLabels(prometheus.Labels(maps.Clone(m.Labels))))
	}
	if len(m.Buckets) > 0 {
		opts = append(opts, telemetry.WithBuckets(slices.Clone(m.Buckets)))
	}
	if m.Tracer != "" {
		opts = append(opts, telemetry.WithTracerName(m.Tracer))
	}
	return opts
}
