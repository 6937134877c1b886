package guild

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// ResetDue resets the guilds whose last reset predates a reset instant.
// A guild whose weekly marker is older than weekly gets the weekly reset;
// otherwise one whose daily marker is older than daily gets the daily one.
// The markers move to the instants in the same commit as the counters, so
// a guild already reset for the period is skipped on a retry or after a
// restart. It returns how many guilds were reset.
func (s *Service) ResetDue(ctx context.Context, daily, weekly time.Time) (int, error) {
	return s.resetAll(ctx, func(sum Summary) (bool, bool, time.Time, time.Time) {
		w := sum.WeeklyResetAt.Before(weekly)
		if !w && !sum.DailyResetAt.Before(daily) {
			return false, false, time.Time{}, time.Time{}
		}
		nextWeekly := sum.WeeklyResetAt
		if w {
			nextWeekly = weekly
		}
		return true, w, daily, nextWeekly
	})
}

// ResetTimes resets every guild now, whatever its markers say. A weekly
// reset also zeroes the weekly activity counters.
func (s *Service) ResetTimes(ctx context.Context, weekly bool) error {
	now := s.now()
	_, err := s.resetAll(ctx, func(sum Summary) (bool, bool, time.Time, time.Time) {
		nextWeekly := sum.WeeklyResetAt
		if weekly {
			nextWeekly = now
		}
		return true, weekly, now, nextWeekly
	})
	return err
}

// resetPlan decides, under the guild lock, whether a guild is reset, whether
// weekly, and the markers it then carries.
type resetPlan func(Summary) (reset, weekly bool, daily, weeklyAt time.Time)

// resetAll resets guilds independently; the errors of those that failed
// are joined.
func (s *Service) resetAll(ctx context.Context, plan resetPlan) (int, error) {
	var (
		errs []error
		n    int
	)
	for _, g := range s.dir.All() {
		done, err := s.resetGuild(ctx, g, plan)
		if err != nil {
			s.logger.Error("guild quota reset failed", zap.Int64("guild_id", g.ID), zap.Error(err))
			errs = append(errs, err)
			continue
		}
		if done {
			n++
		}
	}
	if n > 0 {
		s.logger.Info("guild quotas reset", zap.Int("guilds", n))
	}
	return n, errors.Join(errs...)
}

func (s *Service) resetGuild(ctx context.Context, g *Guild, plan resetPlan) (bool, error) {
	g.mu.Lock()
	defer s.unlock(g)

	reset, weekly, daily, weeklyAt := plan(g.Summary)
	if !reset {
		return false, nil
	}
	t := s.begin(g)
	for _, m := range g.Members() {
		next := m.clone()
		next.ResetValues(weekly)
		t.stage(SaveMemberWithdraw{
			GuildID:        g.ID,
			CharID:         m.CharID,
			Slots:          next.Withdrawals(),
			Money:          next.BankWithdrawMoney(),
			WeekActivity:   next.WeekActivity,
			WeekReputation: next.WeekReputation,
		}, func() { m.ResetValues(weekly) })
	}
	t.stage(SaveGuildReset{GuildID: g.ID, Daily: daily, Weekly: weeklyAt}, func() {
		g.DailyResetAt = daily
		g.WeeklyResetAt = weeklyAt
	})
	if err := s.commit(ctx, t); err != nil {
		return false, err
	}
	s.broadcastIf(g,
		func(*Member) bool { return true },
		func(m *Member) Event {
			return Event{Type: EventQuotaReset, Data: viewPermissions(g, m)}
		})
	return true, nil
}
