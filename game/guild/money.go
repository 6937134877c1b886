package guild

import (
	"context"

	"github.com/kasuganosora/guildbank/game/item"
	"go.uber.org/zap"
)

// DepositMoney moves amount from the character's purse into the guild bank.
// The amount is cut down so the bank never exceeds the money cap; a cut down
// amount of 0 is a no-op. A cash flow deposit is credited without debiting
// the purse.
func (s *Service) DepositMoney(ctx context.Context, charID int64, amount uint64, cashFlow bool) error {
	g, m, err := s.lockMember(charID)
	if err != nil {
		return err
	}
	defer s.unlock(g)

	if room := s.cfg.MaxMoney - min(g.Money, s.cfg.MaxMoney); amount > room {
		amount = room
	}
	if amount == 0 {
		return nil
	}

	t := s.begin(g)
	var inv *item.Inventory
	if !cashFlow {
		if inv, err = s.invs.Get(ctx, charID); err != nil {
			return err
		}
		inv.Lock()
		defer inv.Unlock()
		if inv.Gold < amount {
			return ErrNotEnoughMoney
		}
		t.setGold(inv, inv.Gold-amount)
	}
	t.setMoney(g.Money + amount)
	typ := BankLogDepositMoney
	if cashFlow {
		typ = BankLogCashFlowDeposit
	}
	t.logBank(BankEntry{Type: typ, PlayerID: m.CharID, ItemOrMoney: amount})

	if err := s.commit(ctx, t); err != nil {
		return err
	}
	s.logger.Info("guild bank money deposited",
		zap.Int64("guild_id", g.ID),
		zap.Int64("char_id", charID),
		zap.Uint64("amount", amount),
		zap.Bool("cash_flow", cashFlow))
	s.sendMoneyUpdate(g)
	return nil
}

// WithdrawMoney moves amount from the guild bank to the character. A repair
// withdrawal pays for repairs and does not reach the purse.
func (s *Service) WithdrawMoney(ctx context.Context, charID int64, amount uint64, repair bool) error {
	g, m, err := s.lockMember(charID)
	if err != nil {
		return err
	}
	defer s.unlock(g)

	amount = min(amount, s.cfg.MaxMoney)
	if amount == 0 {
		return nil
	}
	if g.Money < amount {
		return ErrNotEnoughMoney
	}
	right := RightWithdrawGold
	if repair {
		right = RightWithdrawRepair
	}
	if !g.HasRankRight(m, right) {
		return ErrNoRights
	}
	if amount > uint64(g.RemainingMoney(m)) {
		return ErrMoneyQuota
	}

	t := s.begin(g)
	if !repair {
		inv, err := s.invs.Get(ctx, charID)
		if err != nil {
			return err
		}
		inv.Lock()
		defer inv.Unlock()
		if inv.Gold+amount > s.cfg.MaxMoney || inv.Gold+amount < inv.Gold {
			return ErrTooMuchMoney
		}
		t.setGold(inv, inv.Gold+amount)
	}
	t.useMoney(m, int64(amount))
	t.setMoney(g.Money - amount)
	typ := BankLogWithdrawMoney
	if repair {
		typ = BankLogRepairMoney
	}
	t.logBank(BankEntry{Type: typ, PlayerID: m.CharID, ItemOrMoney: amount})

	if err := s.commit(ctx, t); err != nil {
		return err
	}
	s.logger.Info("guild bank money withdrawn",
		zap.Int64("guild_id", g.ID),
		zap.Int64("char_id", charID),
		zap.Uint64("amount", amount),
		zap.Bool("repair", repair))
	s.sendMoneyUpdate(g)
	return nil
}

func (s *Service) sendMoneyUpdate(g *Guild) {
	s.broadcastIf(g,
		func(*Member) bool { return true },
		func(m *Member) Event {
			return Event{Type: EventBankMoney, Data: MoneyUpdate{Money: g.Money, Remaining: g.RemainingMoney(m)}}
		})
	s.publish(g, Event{Type: EventBankMoney, Data: MoneyUpdate{Money: g.Money}})
}
