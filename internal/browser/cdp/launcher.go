// internal/browser/cdp/launcher.go
package cdp

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/mitchellh/go-homedir"
	"github.com/xkilldash9x/puppetcore/internal/config"
	"go.uber.org/zap"
)

// startupTimeout bounds the launch handshake with the browser process.
const startupTimeout = 30 * time.Second

// chromeBinaries are looked up on PATH when no Chrome path is configured.
var chromeBinaries = []string{
	"google-chrome",
	"google-chrome-stable",
	"chromium",
	"chromium-browser",
	"chrome",
	"headless-shell",
}

// Browser owns a Chrome process and the tab the engine drives.
type Browser struct {
	logger      *zap.Logger
	cfg         config.BrowserConfig
	allocCancel context.CancelFunc
	tabCtx      context.Context
	tabCancel   context.CancelFunc
}

// AllocatorFlags returns the command line flags the browser is started with.
// Later entries of cfg.Args override the computed defaults.
func AllocatorFlags(cfg config.BrowserConfig) map[string]interface{} {
	flags := map[string]interface{}{
		"headless":                  cfg.Headless,
		"enable-automation":         false,
		"disable-blink-features":    "AutomationControlled",
		"disable-extensions":        true,
		"disable-gpu":               cfg.Headless,
		"ignore-certificate-errors": cfg.IgnoreTLSErrors,
		"no-first-run":              true,
		"no-default-browser-check":  true,
	}
	if cfg.WindowWidth > 0 && cfg.WindowHeight > 0 {
		flags["window-size"] = fmt.Sprintf("%d,%d", cfg.WindowWidth, cfg.WindowHeight)
	}
	if cfg.UserDataDir != "" {
		flags["user-data-dir"] = cfg.UserDataDir
	}

	// Container friendly flags.
	if runtime.GOOS == "linux" {
		flags["no-sandbox"] = true
		flags["disable-dev-shm-usage"] = true
		flags["disable-setuid-sandbox"] = true
	}

	for _, arg := range cfg.Args {
		name, value, hasValue := strings.Cut(strings.TrimPrefix(arg, "--"), "=")
		if name == "" {
			continue
		}
		if hasValue {
			flags[name] = value
		} else {
			flags[name] = true
		}
	}
	return flags
}

// AllocatorOptions turns cfg into chromedp allocator options.
func AllocatorOptions(cfg config.BrowserConfig) []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)

	flags := AllocatorFlags(cfg)
	names := make([]string, 0, len(flags))
	for name := range flags {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		opts = append(opts, chromedp.Flag(name, flags[name]))
	}

	if cfg.ChromePath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ChromePath))
	}
	return opts
}

// EnsureUserDataDir expands a leading "~" and creates the profile directory
// if it is missing. An empty dir is returned unchanged.
func EnsureUserDataDir(dir string) (string, error) {
	if dir == "" {
		return "", nil
	}
	expanded, err := homedir.Expand(dir)
	if err != nil {
		return "", fmt.Errorf("failed to expand user data dir %q: %w", dir, err)
	}
	if err := os.MkdirAll(expanded, 0o755); err != nil {
		return "", fmt.Errorf("failed to create user data dir %q: %w", expanded, err)
	}
	return expanded, nil
}

// FindChrome returns the configured Chrome binary or the first known one on PATH.
func FindChrome(cfg config.BrowserConfig) (string, bool) {
	if cfg.ChromePath != "" {
		if _, err := os.Stat(cfg.ChromePath); err == nil {
			return cfg.ChromePath, true
		}
		return "", false
	}
	for _, name := range chromeBinaries {
		if p, err := exec.LookPath(name); err == nil {
			return p, true
		}
	}
	return "", false
}

// Launch starts Chrome with a persistent profile, opens a tab and applies the
// configured viewport. The browser outlives ctx; call Close to stop it.
func Launch(ctx context.Context, cfg config.BrowserConfig, logger *zap.Logger) (*Browser, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("browser")

	dir, err := EnsureUserDataDir(cfg.UserDataDir)
	if err != nil {
		return nil, err
	}
	cfg.UserDataDir = dir

	logger.Info("Launching browser...",
		zap.Bool("headless", cfg.Headless),
		zap.String("user_data_dir", cfg.UserDataDir),
		zap.String("chrome_path", cfg.ChromePath))

	allocCtx, allocCancel := chromedp.NewExecAllocator(Detach(ctx), AllocatorOptions(cfg)...)
	sugar := logger.Sugar()
	tabCtx, tabCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(sugar.Debugf),
		chromedp.WithErrorf(sugar.Errorf),
	)

	b := &Browser{
		logger:      logger,
		cfg:         cfg,
		allocCancel: allocCancel,
		tabCtx:      tabCtx,
		tabCancel:   tabCancel,
	}

	startCtx, cancel := context.WithTimeout(ctx, startupTimeout)
	defer cancel()

	var startup []chromedp.Action
	if cfg.Viewport.Width > 0 && cfg.Viewport.Height > 0 {
		startup = append(startup, chromedp.EmulateViewport(int64(cfg.Viewport.Width), int64(cfg.Viewport.Height)))
	} else {
		// Running an empty action list still starts the browser.
		startup = append(startup, chromedp.ActionFunc(func(context.Context) error { return nil }))
	}
	if err := b.run(startCtx, startup...); err != nil {
		b.Close()
		return nil, fmt.Errorf("browser failed to start or respond: %w", err)
	}

	logger.Info("Browser launched successfully.")
	return b, nil
}

func (b *Browser) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := CombineContext(b.tabCtx, ctx)
	defer cancel()
	return chromedp.Run(runCtx, actions...)
}

// Page returns the engine handle of the browser's tab.
func (b *Browser) Page(opts ...PageOption) *Page {
	return NewPage(b.tabCtx, b.logger, opts...)
}

// Navigate loads url in the tab and waits for the document to be ready.
func (b *Browser) Navigate(ctx context.Context, url string) error {
	if b.cfg.NavigationTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.cfg.NavigationTimeout)
		defer cancel()
	}
	b.logger.Info("Navigating.", zap.String("url", url))
	if err := b.run(ctx, chromedp.Navigate(url), chromedp.WaitReady("body", chromedp.ByQuery)); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	return nil
}

// Close shuts the browser down gracefully, then releases the allocator.
func (b *Browser) Close() error {
	err := chromedp.Cancel(b.tabCtx)
	b.tabCancel()
	b.allocCancel()
	if err != nil && !strings.Contains(err.Error(), "context canceled") {
		return fmt.Errorf("failed to close browser: %w", err)
	}
	b.logger.Info("Browser closed.")
	return nil
}
