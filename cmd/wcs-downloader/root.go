package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/mohammed-shakir/wcs-downloader/internal/cache"
	"github.com/mohammed-shakir/wcs-downloader/internal/cache/memstore"
	"github.com/mohammed-shakir/wcs-downloader/internal/cache/redisstore"
	"github.com/mohammed-shakir/wcs-downloader/internal/capabilities"
	"github.com/mohammed-shakir/wcs-downloader/internal/core/config"
	"github.com/mohammed-shakir/wcs-downloader/internal/core/executor"
	"github.com/mohammed-shakir/wcs-downloader/internal/core/httpclient"
	"github.com/mohammed-shakir/wcs-downloader/internal/core/model"
	"github.com/mohammed-shakir/wcs-downloader/internal/core/observability"
	"github.com/mohammed-shakir/wcs-downloader/internal/core/wcserr"
	"github.com/mohammed-shakir/wcs-downloader/internal/logger"
	"github.com/mohammed-shakir/wcs-downloader/internal/metrics"
)

// app carries what every subcommand needs once the root has loaded the
// configuration.
type app struct {
	stderr  io.Writer
	cfgFile string
	ctx     context.Context

	cfg     config.Config
	log     *slog.Logger
	metrics *metrics.Provider
}

func run(ctx context.Context, args []string, stderr io.Writer) int {
	a := &app{stderr: stderr, ctx: ctx}
	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetOut(stderr)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)

	if a.metrics != nil {
		if ferr := a.metrics.Flush(); ferr != nil {
			a.logger().Warn("metrics not written", "file", a.cfg.MetricsFile, "err", ferr)
		}
	}
	if err != nil {
		a.logger().ErrorContext(a.ctx, "command failed", "kind", wcserr.Kind(err), "err", err)
		return 1
	}
	return 0
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "wcs-downloader",
		Short: "Download WCS 2.0.1 coverages and emit a TileStache config",
		Long: `wcs-downloader lists the coverages a Web Coverage Service advertises and
either downloads each one as a GeoTIFF or writes a TileStache configuration
that serves the downloaded files.

Settings come from flags, then environment variables, then the optional
TOML file given with --config.`,
		Version:           Version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}
	root.PersistentFlags().StringVar(&a.cfgFile, "config", os.Getenv("WCS_CONFIG"), "TOML settings file")
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return wcserr.Wrap(wcserr.ErrConfig, err)
	})

	root.AddCommand(newDownloadCmd(a), newTileStacheCmd(a))
	return root
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(a.cfgFile)
	if err != nil {
		return err
	}
	a.cfg = cfg

	zl := logger.Build(logger.Config{
		Level:     cfg.LogLevel,
		Console:   cfg.LogConsole,
		Component: "wcs-downloader",
	}, a.stderr)
	a.log = logger.NewSlog(&zl)

	a.metrics = metrics.Init(metrics.Config{
		File:  cfg.MetricsFile,
		Build: metrics.BuildInfo{Version: Version, Revision: Revision},
	})
	if err := observability.Init(a.metrics.Registerer()); err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	ctx := logger.WithRunID(cmd.Context(), "")
	ctx = logger.WithCommand(ctx, cmd.Name())
	cmd.SetContext(ctx)
	a.ctx = ctx
	return nil
}

func (a *app) logger() *slog.Logger {
	if a.log != nil {
		return a.log
	}
	zl := logger.Build(logger.Config{Component: "wcs-downloader"}, a.stderr)
	return logger.NewSlog(&zl)
}

func urlArg(cmd *cobra.Command, args []string) error {
	if err := cobra.ExactArgs(1)(cmd, args); err != nil {
		return wcserr.Wrap(wcserr.ErrConfig, err)
	}
	return nil
}

// loadCoverages fetches and parses the capabilities of serviceURL, going
// through the capabilities cache when Redis is configured.
func (a *app) loadCoverages(ctx context.Context, serviceURL string) ([]model.CoverageDescriptor, *executor.Executor, error) {
	exec, err := executor.New(a.log, httpclient.NewOutbound(a.cfg.HTTPTimeout.Duration, a.cfg.HeaderTimeout.Duration), serviceURL)
	if err != nil {
		return nil, nil, err
	}

	var opts []capabilities.Option
	if c, closeFn := a.capabilitiesCache(ctx); c != nil {
		defer closeFn()
		opts = append(opts, capabilities.WithCache(c, a.cfg.Cache.CapabilitiesTTL.Duration))
	}

	covs, err := capabilities.NewLoader(exec, a.log, opts...).Load(ctx)
	if err != nil {
		return nil, nil, err
	}
	a.log.InfoContext(ctx, "coverages listed", "url", serviceURL, "count", len(covs))
	return covs, exec, nil
}

func (a *app) capabilitiesCache(ctx context.Context) (cache.Interface, func()) {
	addr := a.cfg.Cache.RedisAddr
	if addr == "" {
		return nil, nil
	}
	rc, err := redisstore.New(ctx, addr,
		redisstore.WithDialTimeout(2*time.Second),
		redisstore.WithReadTimeout(time.Second),
		redisstore.WithWriteTimeout(time.Second),
	)
	if err != nil {
		a.log.WarnContext(ctx, "capabilities cache unavailable", "addr", addr, "err", err)
		return nil, nil
	}
	mem := memstore.New(a.cfg.Cache.LRUSize, a.cfg.Cache.CapabilitiesTTL.Duration)
	return cache.Tiered{mem, rc}, func() { _ = rc.Close() }
}
