package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/dgnsrekt/chartdraw/internal/api"
	"github.com/dgnsrekt/chartdraw/internal/browser"
	"github.com/dgnsrekt/chartdraw/internal/config"
	"github.com/dgnsrekt/chartdraw/internal/controller"
	"github.com/dgnsrekt/chartdraw/internal/defaults"
	"github.com/dgnsrekt/chartdraw/internal/marketdata"
	"github.com/dgnsrekt/chartdraw/internal/netutil"
	"github.com/dgnsrekt/chartdraw/internal/notify"
	"github.com/dgnsrekt/chartdraw/internal/rasterize"
	"github.com/dgnsrekt/chartdraw/internal/relay"
	"github.com/dgnsrekt/chartdraw/internal/snapshot"
	"github.com/dgnsrekt/chartdraw/internal/trace"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if err := setupLogger(cfg.LogLevel, cfg.LogFile); err != nil {
		if _, writeErr := io.WriteString(os.Stderr, "logger setup failed: "+err.Error()+"\n"); writeErr != nil {
			slog.Debug("logger setup stderr write failed", "error", writeErr)
		}
		os.Exit(1)
	}

	slog.Info("chartdraw config loaded",
		"bind_addr", cfg.BindAddr,
		"port_auto_fallback", cfg.PortAutoFallback,
		"port_candidates", cfg.PortCandidates,
		"log_level", cfg.LogLevel,
		"log_file", cfg.LogFile,
		"snapshot_dir", cfg.SnapshotDir,
		"defaults_file", cfg.DefaultsFile,
		"trace_dir", cfg.TraceDir,
		"poll_interval", cfg.PollInterval,
		"raster_enabled", cfg.RasterEnabled,
		"raster_launch", cfg.RasterLaunch,
		"notify", cfg.NotifyURL != "",
	)

	bindAddr, err := netutil.SelectBindAddr(cfg.BindAddr, cfg.PortCandidates, cfg.PortAutoFallback)
	if err != nil {
		slog.Error("failed to select bind address", "preferred", cfg.BindAddr, "error", err)
		os.Exit(1)
	}

	styles, err := defaults.Load(cfg.DefaultsFile)
	if err != nil {
		slog.Error("failed to load drawing defaults", "file", cfg.DefaultsFile, "error", err)
		os.Exit(1)
	}

	snapStore, err := snapshot.NewStore(cfg.SnapshotDir)
	if err != nil {
		slog.Error("failed to create snapshot store", "dir", cfg.SnapshotDir, "error", err)
		os.Exit(1)
	}

	source := marketdata.NewYahooSource(cfg.YahooBaseURL, nil)
	opts := []controller.Option{
		controller.WithDefaults(styles),
		controller.WithSource(source),
	}

	if cfg.TraceDir != "" {
		tw := trace.New(cfg.TraceDir, cfg.TraceBuffer, cfg.TraceMaxMB)
		defer func() {
			if err := tw.Close(); err != nil {
				slog.Debug("trace writer close failed", "error", err)
			}
		}()
		opts = append(opts, controller.WithTracer(tw))
	}

	if cfg.RasterEnabled {
		if cfg.RasterLaunch {
			launcher := browser.NewLauncher(browser.Config{
				CDPAddress: cfg.CDPAddress,
				CDPPort:    cfg.CDPPort,
				ProfileDir: cfg.BrowserProfileDir,
			})
			if err := launcher.Launch(context.Background()); err != nil {
				slog.Error("failed to launch rasterizer browser", "cdp_url", cfg.CDPURL(), "error", err)
				os.Exit(1)
			}
			defer launcher.Stop()
		}
		chrome := rasterize.NewChrome(cfg.CDPURL(), cfg.RasterTimeout())
		defer func() {
			if err := chrome.Close(); err != nil {
				slog.Debug("rasterizer close failed", "error", err)
			}
		}()
		opts = append(opts, controller.WithRasterizer(chrome))
	}

	if n := notify.New(cfg.NotifyURL, nil); n.Enabled() {
		opts = append(opts, controller.WithNotifier(n))
	}

	broker := relay.NewBroker()
	svc := controller.NewService(broker, snapStore, opts...)

	if cfg.PollInterval > 0 {
		poller := marketdata.NewPoller(source, svc, 0)
		if err := poller.Start(cfg.PollInterval); err != nil {
			slog.Error("failed to start candle poller", "interval", cfg.PollInterval, "error", err)
			os.Exit(1)
		}
		defer poller.Stop()
	}

	h := api.NewServer(svc, broker)
	srv := &http.Server{Addr: bindAddr, Handler: h}

	go func() {
		slog.Info("chartdraw listening", "addr", bindAddr, "docs", "http://"+bindAddr+"/docs")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("chartdraw server failed", "error", err)
			os.Exit(1)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("chartdraw shutdown failed", "error", err)
	}
}

func setupLogger(level, filename string) error {
	if err := os.MkdirAll("logs", 0o755); err != nil {
		return err
	}

	logWriter := &lumberjack.Logger{
		Filename:   filename,
		MaxSize:    25,
		MaxBackups: 10,
		MaxAge:     14,
		Compress:   true,
	}

	var slogLevel slog.Level
	switch level {
	case "debug":
		slogLevel = slog.LevelDebug
	case "warn":
		slogLevel = slog.LevelWarn
	case "error":
		slogLevel = slog.LevelError
	default:
		slogLevel = slog.LevelInfo
	}

	h := slog.NewTextHandler(io.MultiWriter(os.Stdout, logWriter), &slog.HandlerOptions{Level: slogLevel})
	slog.SetDefault(slog.New(h))
	return nil
}
