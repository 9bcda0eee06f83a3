package command

import (
	"context"
	"time"

	gcmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-errors"
)

// DefaultHistoryRetention is how long history rows are kept.
const DefaultHistoryRetention = 30 * 24 * time.Hour

// HistoryPurger removes history rows created before a cutoff.
type HistoryPurger interface {
	Purge(ctx context.Context, before time.Time) (int64, error)
}

// PurgeHistoryHandler wires CLI/Cron execution for history retention.
type PurgeHistoryHandler struct {
	Purger     HistoryPurger
	Retention  time.Duration
	Now        func() time.Time
	cliConfig  gcmd.CLIConfig
	cronConfig gcmd.HandlerConfig
}

// PurgeOption customizes the purge handler.
type PurgeOption func(*PurgeHistoryHandler)

// WithPurgeCLIConfig overrides CLI configuration.
func WithPurgeCLIConfig(cfg gcmd.CLIConfig) PurgeOption {
	return func(h *PurgeHistoryHandler) {
		h.cliConfig = cfg
	}
}

// WithPurgeCronConfig overrides cron configuration.
func WithPurgeCronConfig(cfg gcmd.HandlerConfig) PurgeOption {
	return func(h *PurgeHistoryHandler) {
		h.cronConfig = cfg
	}
}

// WithRetention overrides the retention window.
func WithRetention(retention time.Duration) PurgeOption {
	return func(h *PurgeHistoryHandler) {
		if retention > 0 {
			h.Retention = retention
		}
	}
}

// NewPurgeHistoryHandler creates a history retention CLI/Cron command.
func NewPurgeHistoryHandler(purger HistoryPurger, opts ...PurgeOption) *PurgeHistoryHandler {
	h := &PurgeHistoryHandler{
		Purger:    purger,
		Retention: DefaultHistoryRetention,
		Now:       time.Now,
		cliConfig: gcmd.CLIConfig{
			Path:        []string{"invoice-history-purge"},
			Description: "Remove invoice export history past retention",
			Group:       "invoices",
		},
		cronConfig: gcmd.HandlerConfig{Expression: "0 3 * * *"},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

func (h *PurgeHistoryHandler) Execute(ctx context.Context, msg PurgeHistory) error {
	if h == nil || h.Purger == nil {
		return errors.New("history purger is required", errors.CategoryInternal).
			WithTextCode("PURGER_REQUIRED")
	}
	removed, err := h.Purger.Purge(ctx, msg.Before)
	if err != nil {
		return err
	}
	if msg.Result != nil {
		*msg.Result = removed
	}
	if res := gcmd.ResultFromContext[int64](ctx); res != nil {
		res.Store(removed)
	}
	return nil
}

func (h *PurgeHistoryHandler) cutoff() time.Time {
	now := time.Now
	if h.Now != nil {
		now = h.Now
	}
	retention := h.Retention
	if retention <= 0 {
		retention = DefaultHistoryRetention
	}
	return now().Add(-retention)
}

// CronHandler purges history past the retention window.
func (h *PurgeHistoryHandler) CronHandler() func() error {
	return func() error {
		return h.Execute(context.Background(), PurgeHistory{Before: h.cutoff()})
	}
}

// CronOptions returns cron configuration.
func (h *PurgeHistoryHandler) CronOptions() gcmd.HandlerConfig {
	if h == nil {
		return gcmd.HandlerConfig{}
	}
	return h.cronConfig
}

// CLIHandler exposes the purge via CLI.
func (h *PurgeHistoryHandler) CLIHandler() any {
	return &purgeCLI{handler: h}
}

// CLIOptions returns CLI configuration.
func (h *PurgeHistoryHandler) CLIOptions() gcmd.CLIConfig {
	if h == nil {
		return gcmd.CLIConfig{}
	}
	return h.cliConfig
}

type purgeCLI struct {
	handler   *PurgeHistoryHandler
	OlderThan time.Duration `kong:"name='older-than',help='Remove rows older than this duration'"`
}

func (c *purgeCLI) Run() error {
	if c == nil || c.handler == nil {
		return errors.New("purge handler is required", errors.CategoryInternal).
			WithTextCode("PURGE_HANDLER_REQUIRED")
	}
	before := c.handler.cutoff()
	if c.OlderThan > 0 {
		now := time.Now
		if c.handler.Now != nil {
			now = c.handler.Now
		}
		before = now().Add(-c.OlderThan)
	}
	return c.handler.Execute(context.Background(), PurgeHistory{Before: before})
}
