package scheduler

import (
	"context"
	"time"

	"github.com/kasuganosora/guildbank/cache"
	"go.uber.org/zap"
)

const (
	resetLockKey = "guildbank:reset:lock"
	resetLockTTL = 5 * time.Minute
)

// Resetter runs the quota resets that are due.
type Resetter interface {
	ResetDue(ctx context.Context, daily, weekly time.Time) (int, error)
}

// ResetConfig places the daily reset at Hour and the weekly one on the
// daily reset of WeeklyDay.
type ResetConfig struct {
	Hour      int
	WeeklyDay time.Weekday
}

// GuildResets triggers the daily and weekly guild quota resets. Each guild
// stores the last reset applied to it, so the job only hands over the
// current reset instants; a reset missed while the server was down runs on
// the first check after start.
type GuildResets struct {
	svc    Resetter
	cache  cache.Cache
	cfg    ResetConfig
	node   string
	logger *zap.Logger
	now    func() time.Time
}

// NewGuildResets creates the reset job.
func NewGuildResets(svc Resetter, c cache.Cache, cfg ResetConfig, node string, logger *zap.Logger) *GuildResets {
	return &GuildResets{svc: svc, cache: c, cfg: cfg, node: node, logger: logger, now: time.Now}
}

// LastDaily returns the most recent daily reset instant at or before t.
func LastDaily(t time.Time, hour int) time.Time {
	r := time.Date(t.Year(), t.Month(), t.Day(), hour, 0, 0, 0, t.Location())
	if r.After(t) {
		r = r.AddDate(0, 0, -1)
	}
	return r
}

// LastWeekly returns the most recent weekly reset instant at or before t.
func LastWeekly(t time.Time, hour int, day time.Weekday) time.Time {
	r := LastDaily(t, hour)
	for r.Weekday() != day {
		r = r.AddDate(0, 0, -1)
	}
	return r
}

// Check runs the resets that are due. Nodes take turns through a cache
// lock; a failed guild is retried on the next check.
func (r *GuildResets) Check(ctx context.Context) error {
	ok, err := r.cache.SetNX(ctx, resetLockKey, r.node, resetLockTTL)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	defer r.cache.Del(ctx, resetLockKey)

	now := r.now()
	daily := LastDaily(now, r.cfg.Hour)
	weekly := LastWeekly(now, r.cfg.Hour, r.cfg.WeeklyDay)
	n, err := r.svc.ResetDue(ctx, daily, weekly)
	if n > 0 {
		r.logger.Info("guild quotas reset",
			zap.Int("guilds", n),
			zap.Time("daily", daily),
			zap.Time("weekly", weekly))
	}
	return err
}

// Start checks for due resets every interval on s.
func (r *GuildResets) Start(s *Scheduler, interval time.Duration) {
	s.AddTicker("guild_reset", interval, func(ctx context.Context) {
		if err := r.Check(ctx); err != nil {
			r.logger.Error("guild reset check failed", zap.Error(err))
		}
	})
}
