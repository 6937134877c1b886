package guild

import (
	"context"

	"github.com/kasuganosora/guildbank/game/item"
	"go.uber.org/zap"
)

// Location addresses one side of a bank move: a bank tab slot, or a bag
// slot of the acting character's inventory.
type Location struct {
	Bank      bool `json:"bank"`
	Container int  `json:"container"` // tab or bag
	Slot      int  `json:"slot"`      // item.AnySlot lets the destination choose
}

// Transfer moves, splits, merges or swaps items between the bank and the
// acting character's inventory, or inside the bank. split is the number of
// units to move; 0 moves the whole stack.
func (s *Service) Transfer(ctx context.Context, charID int64, src, dst Location, split uint32) error {
	if !src.Bank && !dst.Bank {
		return ErrNoBankSide
	}
	if src == dst {
		return ErrSameSlot
	}

	g, m, err := s.lockMember(charID)
	if err != nil {
		return err
	}
	defer s.unlock(g)

	var inv *item.Inventory
	if !src.Bank || !dst.Bank {
		if inv, err = s.invs.Get(ctx, charID); err != nil {
			return err
		}
		inv.Lock()
		defer inv.Unlock()
	}

	from := s.endpoint(g, m, inv, src)
	to := s.endpoint(g, m, inv, dst)
	t := s.begin(g)
	if err := moveItems(t, from, to, split); err != nil {
		s.logger.Debug("guild bank move rejected",
			zap.Int64("guild_id", g.ID),
			zap.Int64("char_id", charID),
			zap.Any("src", src),
			zap.Any("dst", dst),
			zap.Uint32("split", split),
			zap.Error(err))
		return err
	}
	if err := s.commit(ctx, t); err != nil {
		return err
	}
	s.sendMoveUpdate(g, from, to)
	return nil
}

func (s *Service) endpoint(g *Guild, m *Member, inv *item.Inventory, loc Location) Endpoint {
	if loc.Bank {
		return NewBankEndpoint(g, m, s.guids, loc.Container, loc.Slot)
	}
	return NewInventoryEndpoint(g, m, s.guids, inv, loc.Container, loc.Slot)
}

// moveItems runs the move protocol up to, not including, the commit.
// Nothing is staged in t unless every check passed.
func moveItems(t *txn, src, dst Endpoint, split uint32) error {
	if err := src.InitItem(); err != nil {
		return err
	}
	it := src.Item(false)
	if split > it.Count {
		return ErrSplitTooLarge
	}
	if split == it.Count {
		split = 0
	}
	if err := dst.CheckStoreRights(src); err != nil {
		return err
	}
	if err := src.CheckWithdrawRights(dst); err != nil {
		return err
	}
	if b, ok := dst.(*BankEndpoint); ok && src.IsBank() && src.Container() == dst.Container() {
		b.skip = src.Slot()
	}

	if split > 0 {
		if err := src.CloneItem(split); err != nil {
			return err
		}
		if err := prepareMove(src, dst, split, false); err != nil {
			return err
		}
		return stageMove(t, src, dst, split, false)
	}

	mergeErr := prepareMove(src, dst, 0, false)
	if mergeErr == nil {
		return stageMove(t, src, dst, 0, false)
	}
	if dst.InitItem() != nil {
		return mergeErr
	}
	if err := src.CheckStoreRights(dst); err != nil {
		return err
	}
	if err := dst.CheckWithdrawRights(src); err != nil {
		return err
	}
	if err := prepareMove(src, dst, 0, true); err != nil {
		return err
	}
	return stageMove(t, src, dst, 0, true)
}

// prepareMove plans the placements on both sides.
func prepareMove(src, dst Endpoint, split uint32, swap bool) error {
	if err := dst.CanStore(src.Item(split > 0), swap); err != nil {
		return err
	}
	if swap {
		return src.CanStore(dst.Item(false), true)
	}
	return nil
}

// stageMove stages logs, removals and stores in that order.
func stageMove(t *txn, src, dst Endpoint, split uint32, swap bool) error {
	srcItem := src.Item(split > 0)
	dstItem := dst.Item(false)

	dst.LogBankEvent(t, src, srcItem.Count)
	if swap {
		src.LogBankEvent(t, dst, dstItem.Count)
	}

	if err := src.RemoveItem(t, dst, split); err != nil {
		return err
	}
	if swap {
		if err := dst.RemoveItem(t, src, 0); err != nil {
			return err
		}
	}

	if err := dst.StoreItem(t, srcItem); err != nil {
		return err
	}
	if swap {
		return src.StoreItem(t, dstItem)
	}
	return nil
}

// sendMoveUpdate notifies the viewers of every tab the move touched.
func (s *Service) sendMoveUpdate(g *Guild, src, dst Endpoint) {
	tabs := make(map[int][]int)
	var order []int
	for _, e := range []Endpoint{src, dst} {
		if !e.IsBank() {
			continue
		}
		if _, ok := tabs[e.Container()]; !ok {
			order = append(order, e.Container())
		}
		tabs[e.Container()] = append(tabs[e.Container()], e.touched()...)
	}
	for _, tab := range order {
		s.sendBankContent(g, tab, dedupe(tabs[tab]))
	}
}

func dedupe(in []int) []int {
	seen := make(map[int]bool, len(in))
	out := in[:0]
	for _, v := range in {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}
