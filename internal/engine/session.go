// File: internal/engine/session.go
package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/xkilldash9x/puppetcore/internal/config"
	"go.uber.org/zap"
)

// releaseTimeout bounds the cleanup of a node reference after an operation.
const releaseTimeout = 3 * time.Second

// logTextLimit caps candidate text in diagnostics.
const logTextLimit = 120

// Settings controls the timing and diagnostics of a Session.
type Settings struct {
	DefaultTimeout time.Duration
	PollInterval   time.Duration
	SettleDelay    time.Duration
	// Debug logs each resolved candidate and the settle wait.
	Debug bool
	// Strategies overrides the click fallback chain. Nil means DefaultStrategies.
	Strategies []ClickStrategy
}

// DefaultSettings returns the stock timing: a 10s timeout polled every
// 100ms and a 1s settle delay.
func DefaultSettings() Settings {
	return Settings{
		DefaultTimeout: DefaultTimeout,
		PollInterval:   DefaultPollInterval,
		SettleDelay:    DefaultSettleDelay,
		Debug:          true,
	}
}

// SettingsFromConfig maps the engine configuration section onto Settings.
func SettingsFromConfig(cfg config.EngineConfig) Settings {
	s := DefaultSettings()
	if cfg.DefaultTimeout > 0 {
		s.DefaultTimeout = cfg.DefaultTimeout
	}
	if cfg.PollInterval > 0 {
		s.PollInterval = cfg.PollInterval
	}
	if cfg.SettleDelay >= 0 {
		s.SettleDelay = cfg.SettleDelay
	}
	s.Debug = cfg.Debug
	return s
}

// Outcome describes a successful click.
type Outcome struct {
	Path      ClickPath
	Candidate Candidate
	// Elapsed covers the search, the settle delay and the click.
	Elapsed time.Duration
}

// Option adjusts a single operation.
type Option func(*callOptions)

type callOptions struct {
	timeout  time.Duration
	interval time.Duration
	debug    bool
}

// WithTimeout overrides how long the operation searches. Non-positive values
// keep the session default.
func WithTimeout(d time.Duration) Option {
	return func(o *callOptions) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithPollInterval overrides the pause between evaluations.
func WithPollInterval(d time.Duration) Option {
	return func(o *callOptions) {
		if d > 0 {
			o.interval = d
		}
	}
}

// WithDebug toggles diagnostics for one operation.
func WithDebug(enabled bool) Option {
	return func(o *callOptions) { o.debug = enabled }
}

// Session drives one page at a time. Operations on a session run
// sequentially from the caller's point of view; Bind may race with them
// safely.
type Session struct {
	mu   sync.RWMutex
	page PageHandle

	logger   *zap.Logger
	settings Settings
	executor *Executor
}

// NewSession creates a session with no page bound.
func NewSession(logger *zap.Logger, settings Settings) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("engine")
	return &Session{
		logger:   logger,
		settings: settings,
		executor: NewExecutor(logger, settings.SettleDelay, settings.Strategies),
	}
}

// Bind makes page the target of subsequent operations. Binding nil unbinds.
func (s *Session) Bind(page PageHandle) {
	s.mu.Lock()
	s.page = page
	s.mu.Unlock()
}

// Page returns the bound page or ErrNoPageBound.
func (s *Session) Page() (PageHandle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.page == nil {
		return nil, ErrNoPageBound
	}
	return s.page, nil
}

// ClickByText clicks the element whose visible text contains text, preferring
// links, buttons and other clickables.
func (s *Session) ClickByText(ctx context.Context, text string, opts ...Option) (Outcome, error) {
	return s.click(ctx, "clickText", TextContains(text), opts)
}

// ClickByAttribute clicks the first visible element whose name attribute equals value.
func (s *Session) ClickByAttribute(ctx context.Context, value string, opts ...Option) (Outcome, error) {
	return s.click(ctx, "clickName", AttributeEquals("name", value), opts)
}

// ClickByAttributeEquals clicks the first visible element whose attr equals value.
func (s *Session) ClickByAttributeEquals(ctx context.Context, attr, value string, opts ...Option) (Outcome, error) {
	return s.click(ctx, "clickAttribute", AttributeEquals(attr, value), opts)
}

// ClickByIndex clicks the index-th (1-based) element matching selector.
func (s *Session) ClickByIndex(ctx context.Context, selector string, index int, opts ...Option) (Outcome, error) {
	return s.click(ctx, "clickNth", SelectorIndex(selector, index), opts)
}

// ClickNthByName clicks the index-th (1-based) element whose name attribute equals name.
func (s *Session) ClickNthByName(ctx context.Context, name string, index int, opts ...Option) (Outcome, error) {
	return s.click(ctx, "clickNthName", SelectorIndex(NameSelector(name), index), opts)
}

// ClickCheckboxByText clicks the checkbox associated with the visible text.
func (s *Session) ClickCheckboxByText(ctx context.Context, text string, opts ...Option) (Outcome, error) {
	return s.click(ctx, "clickTextCheckbox", TextContainsCheckbox(text), opts)
}

// Type sends text to the focused element of the bound page.
func (s *Session) Type(ctx context.Context, text string) error {
	page, err := s.Page()
	if err != nil {
		return err
	}
	return page.SendKeys(ctx, text)
}

// Press presses a named key on the bound page.
func (s *Session) Press(ctx context.Context, key string) error {
	page, err := s.Page()
	if err != nil {
		return err
	}
	return page.PressKey(ctx, key)
}

func (s *Session) click(ctx context.Context, op string, c Criteria, opts []Option) (Outcome, error) {
	o := callOptions{
		timeout:  s.settings.DefaultTimeout,
		interval: s.settings.PollInterval,
		debug:    s.settings.Debug,
	}
	for _, opt := range opts {
		opt(&o)
	}
	fail := func(cand *Candidate, err error) (Outcome, error) {
		return Outcome{}, &OperationError{Op: op, Criteria: c, Timeout: o.timeout, Candidate: cand, Err: err}
	}

	page, err := s.Page()
	if err != nil {
		return fail(nil, err)
	}
	if err := c.Validate(); err != nil {
		return fail(nil, err)
	}

	logger := s.logger.With(zap.String("op", op))
	if o.debug {
		logger.Debug("Searching.", zap.Stringer("criteria", c), zap.Duration("timeout", o.timeout))
	}

	start := time.Now()
	cand, err := WaitUntil(ctx, logger, page, c, o.timeout, o.interval)
	if err != nil {
		return fail(nil, err)
	}
	defer s.release(page, cand.Ref)

	if o.debug {
		logger.Debug("Found element.",
			zap.String("tag", cand.Tag),
			zap.String("text", truncate(cand.Text, logTextLimit)),
			zap.String("path", cand.Path),
			zap.String("ref", string(cand.Ref)))
	}
	if c.Kind == KindTextContains && !cand.Interactive {
		logger.Warn("Text matched a non-interactive element; clicking it directly.",
			zap.String("tag", cand.Tag), zap.String("path", cand.Path))
	}

	path, err := s.executor.Click(ctx, page, cand, o.debug)
	if err != nil {
		var ce *ClickError
		if errors.As(err, &ce) {
			logger.Error("All click strategies failed.", zap.String("path", cand.Path), zap.Error(err))
		}
		return fail(cand, err)
	}
	if path != ClickNative {
		logger.Info("Clicked via fallback strategy.", zap.String("strategy", string(path)), zap.String("path", cand.Path))
	}
	return Outcome{Path: path, Candidate: *cand, Elapsed: time.Since(start)}, nil
}

func (s *Session) release(page PageHandle, ref NodeRef) {
	ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
	defer cancel()
	if err := page.Release(ctx, ref); err != nil {
		s.logger.Debug("Failed to release node reference.", zap.String("ref", string(ref)), zap.Error(err))
	}
}
