// File: cmd/click.go
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/xkilldash9x/puppetcore/internal/browser/cdp"
	"github.com/xkilldash9x/puppetcore/internal/browser/snapshot"
	"github.com/xkilldash9x/puppetcore/internal/config"
	"github.com/xkilldash9x/puppetcore/internal/engine"
	"github.com/xkilldash9x/puppetcore/internal/observability"
	"go.uber.org/zap"
)

// clickOptions are the flags shared by every click subcommand.
type clickOptions struct {
	url      string
	htmlFile string
	typeText string
	pressKey string
}

// clickFunc runs one engine operation.
type clickFunc func(ctx context.Context, s *engine.Session) (engine.Outcome, error)

func newClickCommand(v *viper.Viper) *cobra.Command {
	opts := &clickOptions{}
	cmd := &cobra.Command{
		Use:   "click",
		Short: "Find an element and click it",
		Long: `Launches the browser, opens --url and clicks the element selected by the
subcommand. With --html the search runs against a saved document instead.`,
	}

	f := cmd.PersistentFlags()
	f.StringVar(&opts.url, "url", "", "page to open before clicking")
	f.StringVar(&opts.htmlFile, "html", "", "evaluate against a saved HTML file instead of a live browser")
	f.StringVar(&opts.typeText, "type", "", "text to type after the click")
	f.StringVar(&opts.pressKey, "press", "", "key to press after the click (and after --type), e.g. Enter")
	f.Duration("timeout", engine.DefaultTimeout, "how long to wait for the element")
	f.Duration("poll-interval", engine.DefaultPollInterval, "pause between two searches of the page")
	f.Bool("headless", false, "run the browser without a window")
	f.Bool("debug", true, "log the resolved element")
	f.String("chrome-path", "", "path to the Chrome binary")
	f.String("user-data-dir", "", "persistent browser profile directory")

	bind := map[string]string{
		"engine.default_timeout": "timeout",
		"engine.poll_interval":   "poll-interval",
		"engine.debug":           "debug",
		"browser.headless":       "headless",
		"browser.chrome_path":    "chrome-path",
		"browser.user_data_dir":  "user-data-dir",
	}
	for key, flag := range bind {
		_ = v.BindPFlag(key, f.Lookup(flag))
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "text <text>",
			Short: "Click the element whose visible text contains <text>",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runClick(cmd, opts, func(ctx context.Context, s *engine.Session) (engine.Outcome, error) {
					return s.ClickByText(ctx, args[0])
				})
			},
		},
		newAttrCommand(opts),
		&cobra.Command{
			Use:   "nth <selector> <index>",
			Short: "Click the <index>-th (1-based) element matching a CSS selector",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				index, err := strconv.Atoi(args[1])
				if err != nil {
					return fmt.Errorf("invalid index %q: %w", args[1], err)
				}
				return runClick(cmd, opts, func(ctx context.Context, s *engine.Session) (engine.Outcome, error) {
					return s.ClickByIndex(ctx, args[0], index)
				})
			},
		},
		&cobra.Command{
			Use:   "name <name> <index>",
			Short: "Click the <index>-th (1-based) element whose name attribute equals <name>",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				index, err := strconv.Atoi(args[1])
				if err != nil {
					return fmt.Errorf("invalid index %q: %w", args[1], err)
				}
				return runClick(cmd, opts, func(ctx context.Context, s *engine.Session) (engine.Outcome, error) {
					return s.ClickNthByName(ctx, args[0], index)
				})
			},
		},
		&cobra.Command{
			Use:   "checkbox <text>",
			Short: "Click the checkbox labelled by <text>",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runClick(cmd, opts, func(ctx context.Context, s *engine.Session) (engine.Outcome, error) {
					return s.ClickCheckboxByText(ctx, args[0])
				})
			},
		},
	)
	return cmd
}

func newAttrCommand(opts *clickOptions) *cobra.Command {
	var attr string
	cmd := &cobra.Command{
		Use:   "attr <value>",
		Short: "Click the first visible element whose attribute equals <value>",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClick(cmd, opts, func(ctx context.Context, s *engine.Session) (engine.Outcome, error) {
				if attr == "name" {
					return s.ClickByAttribute(ctx, args[0])
				}
				return s.ClickByAttributeEquals(ctx, attr, args[0])
			})
		},
	}
	cmd.Flags().StringVar(&attr, "attr", "name", "attribute to compare")
	return cmd
}

// runClick binds a page, runs op and reports the outcome.
func runClick(cmd *cobra.Command, opts *clickOptions, op clickFunc) error {
	ctx := cmd.Context()
	cfg, err := configFrom(ctx)
	if err != nil {
		return err
	}
	logger := observability.GetLogger()

	page, closePage, err := openPage(ctx, cfg, opts, logger)
	if err != nil {
		return err
	}
	defer closePage()

	session := engine.NewSession(logger, engine.SettingsFromConfig(cfg.Engine()))
	session.Bind(page)

	observability.Section(logger, "puppetcore "+cmd.CommandPath())
	out, err := op(ctx, session)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "clicked <%s> %q at %s via %s click in %s\n",
		out.Candidate.Tag, out.Candidate.Text, out.Candidate.Path, out.Path, out.Elapsed.Round(time.Millisecond))

	if opts.typeText != "" {
		if err := session.Type(ctx, opts.typeText); err != nil {
			return fmt.Errorf("failed to type text: %w", err)
		}
	}
	if opts.pressKey != "" {
		if err := session.Press(ctx, opts.pressKey); err != nil {
			return fmt.Errorf("failed to press %s: %w", opts.pressKey, err)
		}
	}
	return nil
}

// openPage returns the page the click runs against and its cleanup.
func openPage(ctx context.Context, cfg config.Interface, opts *clickOptions, logger *zap.Logger) (engine.PageHandle, func(), error) {
	if opts.htmlFile != "" {
		f, err := os.Open(opts.htmlFile)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open %s: %w", opts.htmlFile, err)
		}
		defer f.Close()
		page, err := snapshot.FromReader(f, snapshot.WithLogger(logger))
		if err != nil {
			return nil, nil, err
		}
		return page, func() {}, nil
	}

	if opts.url == "" {
		return nil, nil, errors.New("either --url or --html is required")
	}
	browser, err := cdp.Launch(ctx, cfg.Browser(), logger)
	if err != nil {
		return nil, nil, err
	}
	closeBrowser := func() {
		if err := browser.Close(); err != nil {
			logger.Warn("Failed to close browser.", zap.Error(err))
		}
	}
	if err := browser.Navigate(ctx, opts.url); err != nil {
		closeBrowser()
		return nil, nil, err
	}
	return browser.Page(cdp.WithNativeClickTimeout(cfg.Engine().NativeClickTimeout)), closeBrowser, nil
}
