// Command scrollwatch attaches the scroll restoration engine to live pages.
//
// Usage:
//
//	scrollwatch -config scrollwatch.yaml     # pages from YAML config
//	scrollwatch -url https://example.com     # quick single-page session
//	scrollwatch -remote ws://...             # reuse an existing browser
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/stealth"

	"github.com/hazyhaar/scrollkeep/idgen"
	"github.com/hazyhaar/scrollkeep/position"
	"github.com/hazyhaar/scrollkeep/restore"
	"github.com/hazyhaar/scrollkeep/store"
	"github.com/hazyhaar/scrollkeep/surface"
)

func main() {
	configPath := flag.String("config", "", "path to scrollwatch.yaml config file")
	singleURL := flag.String("url", "", "watch a single URL (memory store)")
	remote := flag.String("remote", "", "control URL of an existing browser instead of launching one")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	var level slog.Level
	switch *logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var cfg *restore.Config
	switch {
	case *configPath != "":
		c, err := restore.LoadConfigFile(*configPath)
		if err != nil {
			logger.Error("scrollwatch: load config", "path", *configPath, "error", err)
			os.Exit(1)
		}
		cfg = c
	case *singleURL != "":
		cfg = &restore.Config{Pages: []restore.PageConfig{{ID: "single", URL: *singleURL}}}
	default:
		fmt.Fprintln(os.Stderr, "scrollwatch: either -config or -url is required")
		flag.Usage()
		os.Exit(2)
	}

	if err := run(ctx, logger, cfg, *remote); err != nil {
		logger.Error("scrollwatch: fatal", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, cfg *restore.Config, remote string) error {
	browser := rod.New()
	if remote != "" {
		browser = browser.ControlURL(remote)
	} else {
		u, err := launcher.New().Headless(true).Launch()
		if err != nil {
			return fmt.Errorf("launch browser: %w", err)
		}
		browser = browser.ControlURL(u)
	}
	if err := browser.Connect(); err != nil {
		return fmt.Errorf("connect browser: %w", err)
	}
	defer browser.Close()

	st, err := cfg.BuildStore(logger)
	if err != nil {
		return err
	}
	opts, err := cfg.EngineOptions(logger)
	if err != nil {
		return err
	}

	for _, pc := range cfg.Pages {
		if pc.ID == "" {
			pc.ID = idgen.New()
		}
		go func(pc restore.PageConfig) {
			if err := watchPage(ctx, logger, browser, st, opts, pc); err != nil {
				logger.Error("scrollwatch: page failed", "id", pc.ID, "url", pc.URL, "error", err)
			}
		}(pc)
	}

	<-ctx.Done()
	logger.Info("scrollwatch: shutting down")
	return nil
}

// watchPage opens one stealth page, attaches an engine, and translates SPA
// navigations into view departures and activations.
func watchPage(ctx context.Context, logger *slog.Logger, browser *rod.Browser, st store.Store, opts restore.Options, pc restore.PageConfig) error {
	page, err := stealth.Page(browser)
	if err != nil {
		return fmt.Errorf("create page: %w", err)
	}
	defer page.Close()

	navCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := page.Context(navCtx).Navigate(pc.URL); err != nil {
		return fmt.Errorf("navigate %s: %w", pc.URL, err)
	}
	if err := page.Context(navCtx).WaitLoad(); err != nil {
		logger.Warn("scrollwatch: wait load timeout", "url", pc.URL, "error", err)
	}

	popts := []surface.PageOption{surface.WithPageLogger(logger)}
	if pc.HeightSelector != "" {
		popts = append(popts, surface.WithHeightSelector(pc.HeightSelector))
	}
	surf, err := surface.NewPage(ctx, page, popts...)
	if err != nil {
		return err
	}
	defer surf.Close()

	eng := restore.New(surf, st, opts)
	// The tracking loop outlives the signal context so the departure flush
	// below still has a live tracker to run through.
	eng.Start(context.WithoutCancel(ctx))
	eng.EnterView(ctx, viewKey(pc.URL))
	logger.Info("scrollwatch: watching", "id", pc.ID, "url", pc.URL)

	for {
		select {
		case <-ctx.Done():
			// Capture the final position before the session ends.
			flushCtx, done := context.WithTimeout(context.Background(), 2*time.Second)
			eng.LeaveView(flushCtx)
			done()
			return nil
		case raw := <-surf.Navigations():
			eng.LeaveView(ctx)
			eng.EnterView(ctx, viewKey(raw))
			logger.Info("scrollwatch: view change", "id", pc.ID, "url", raw)
		}
	}
}

func viewKey(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	return position.Key(u.Path, u.RawQuery)
}
