// Copyright (C) 2023 Gobalsky Labs Limited
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package execution

import (
	"github.com/xmargin/xmargin/libs/num"
	"github.com/xmargin/xmargin/markets"
	"github.com/xmargin/xmargin/matching"
	"github.com/xmargin/xmargin/metrics"
	"github.com/xmargin/xmargin/oracle"
	"github.com/xmargin/xmargin/positions"
	"github.com/xmargin/xmargin/types"
)

// OrderResult is the outcome of PlaceOrder.
type OrderResult struct {
	*matching.PlaceResult
	// OrderID of the posted remainder, nil when nothing rests.
	OrderID *num.Uint
	// TakerFee charged in native quote on the filled part.
	TakerFee num.Decimal
}

// PlaceOrder matches an order on a perp market. The taker side of every
// fill is settled right away, makers are settled by ConsumeEvents.
func (e *Engine) PlaceOrder(owner types.AccountID, market uint16, order types.Order) (*OrderResult, error) {
	matchLimit := e.config().Matching.MatchLimit
	var out *OrderResult
	err := e.run("place_order", func(s *stage) error {
		ob, err := s.orderBook(owner, market)
		if err != nil {
			return err
		}
		pre, err := s.initHealth(ob.acc)
		if err != nil {
			return err
		}
		if out, err = s.placeOrder(ob, order, matchLimit); err != nil {
			return err
		}
		if err := s.checkHealth(ob.acc, pre); err != nil {
			return err
		}
		ob.acc.TryDeactivatePerpPosition(market)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CancelReplaceAllOrders cancels up to limit resting orders of owner in
// the market and places orders in their stead. The health gate runs
// once, against the health the account had before the cancels.
func (e *Engine) CancelReplaceAllOrders(owner types.AccountID, market uint16, orders []types.Order, limit int) ([]*OrderResult, error) {
	matchLimit := e.config().Matching.MatchLimit
	var out []*OrderResult
	err := e.run("cancel_replace_all_orders", func(s *stage) error {
		ob, err := s.orderBook(owner, market)
		if err != nil {
			return err
		}
		pre, err := s.initHealth(ob.acc)
		if err != nil {
			return err
		}
		for _, co := range ob.book.CancelAllOrders(owner, nil, limit) {
			if err := removeCancelled(ob.acc, market, co); err != nil {
				return err
			}
		}
		out = make([]*OrderResult, 0, len(orders))
		for _, order := range orders {
			res, err := s.placeOrder(ob, order, matchLimit)
			if err != nil {
				return err
			}
			out = append(out, res)
		}
		if err := s.checkHealth(ob.acc, pre); err != nil {
			return err
		}
		ob.acc.TryDeactivatePerpPosition(market)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// orderContext holds what placing an order in one market touches.
type orderContext struct {
	acc     *positions.Account
	market  *markets.PerpMarket
	checked oracle.Checked
	book    *matching.OrderBook
	queue   *matching.EventQueue
	perp    *positions.PerpPosition
}

// orderBook stages the account, market, book and queue of an order
// instruction and settles the pending funding of the position.
func (s *stage) orderBook(owner types.AccountID, market uint16) (*orderContext, error) {
	acc, err := s.account(owner)
	if err != nil {
		return nil, err
	}
	m, checked, err := s.checkedPerpPrice(market)
	if err != nil {
		return nil, err
	}
	book, err := s.book(market)
	if err != nil {
		return nil, err
	}
	eq, err := s.queue(market)
	if err != nil {
		return nil, err
	}
	pp, err := acc.EnsurePerpPosition(m)
	if err != nil {
		return nil, err
	}
	pp.SettleFunding(m)
	return &orderContext{
		acc:     acc,
		market:  m,
		checked: checked,
		book:    book,
		queue:   eq,
		perp:    pp,
	}, nil
}

// placeOrder matches one order and settles the taker side. The caller
// runs the health gate.
func (s *stage) placeOrder(ob *orderContext, order types.Order, matchLimit int) (*OrderResult, error) {
	acc, m, pp := ob.acc, ob.market, ob.perp
	if order.ReduceOnly || m.ReduceOnly {
		room := pp.ReduceOnlyMaxBaseLots(order.Side)
		if room == 0 {
			return nil, types.ErrReduceOnly.WithAccount(acc.ID).WithMarket(m.MarketIndex)
		}
		order.MaxBaseLots = min(order.MaxBaseLots, room)
	}
	if pp.ExceedsLimit(order.Side, order.MaxBaseLots, m.MaxPositionBaseLots) {
		return nil, types.ErrPositionLimit.WithAccount(acc.ID).WithMarket(m.MarketIndex)
	}

	res, err := ob.book.PlaceOrder(&order, matching.MatchParams{
		Owner:           acc.ID,
		OwnerSlot:       acc.FreeOrderSlot(),
		Now:             s.now,
		OraclePriceLots: m.NativePriceToLots(ob.checked.Price),
		MakerFee:        m.MakerFee,
		TakerFee:        m.TakerFee,
		TickLots:        m.TickSizeLots,
		Limit:           matchLimit,
	}, ob.queue)
	if err != nil {
		return nil, err
	}
	out := &OrderResult{PlaceResult: res}
	out.TakerFee = acc.ExecuteTaker(m, pp, order.Side, res.FilledBaseLots, res.FilledQuoteLots)
	// the remainder takes the slot the book stored in the leaf, before
	// self trades free any other
	if res.Resting != nil {
		if _, err := acc.AddPerpOrder(pp, res.RestingTree, res.Resting.Key, order.ClientOrderID, res.Resting.Quantity); err != nil {
			return nil, err
		}
		out.OrderID = res.Resting.Key.OrderID()
	}
	if err := applySelfTrades(acc, pp, res.SelfTrades); err != nil {
		return nil, err
	}
	metrics.FillCounterAdd(len(res.Fills), m.Name)
	return out, nil
}

// applySelfTrades releases the reserve of resting orders of the taker
// that were decremented instead of filled.
func applySelfTrades(acc *positions.Account, pp *positions.PerpPosition, trades []matching.SelfTrade) error {
	for _, st := range trades {
		if !st.Removed {
			pp.ReleaseOrder(st.Side, st.Quantity)
			continue
		}
		slot, ok := acc.OrderSlotByID(pp.MarketIndex, st.OrderID)
		if !ok {
			return types.ErrOrderNotFound.WithAccount(acc.ID).WithMarket(pp.MarketIndex)
		}
		if err := acc.RemovePerpOrder(slot, st.Quantity); err != nil {
			return err
		}
	}
	return nil
}

// CancelOrder removes a resting order of owner by order id.
func (e *Engine) CancelOrder(owner types.AccountID, market uint16, orderID *num.Uint) error {
	return e.run("cancel_order", func(s *stage) error {
		key, ok := types.OrderKeyFromID(orderID)
		if !ok {
			return types.ErrInvalidOrder.WithInvariant("order id wider than 128 bits")
		}
		acc, err := s.account(owner)
		if err != nil {
			return err
		}
		book, err := s.book(market)
		if err != nil {
			return err
		}
		slot, ok := acc.OrderSlotByID(market, key)
		if !ok {
			return types.ErrOrderNotFound.WithAccount(owner).WithMarket(market)
		}
		leaf, err := book.CancelOrder(acc.OpenOrders[slot].SideAndTree, key, owner)
		if err != nil {
			return err
		}
		return acc.RemovePerpOrder(slot, leaf.Quantity)
	})
}

// CancelOrderByClientID removes the resting order of owner carrying the
// client order id.
func (e *Engine) CancelOrderByClientID(owner types.AccountID, market uint16, clientOrderID uint64) error {
	return e.run("cancel_order_by_client_id", func(s *stage) error {
		acc, err := s.account(owner)
		if err != nil {
			return err
		}
		book, err := s.book(market)
		if err != nil {
			return err
		}
		co, err := book.CancelOrderByClientID(owner, clientOrderID)
		if err != nil {
			return err
		}
		return removeCancelled(acc, market, co)
	})
}

// CancelAllOrders removes up to limit resting orders of owner, on one
// side when side is set. It returns the number of orders cancelled.
func (e *Engine) CancelAllOrders(owner types.AccountID, market uint16, side *types.Side, limit int) (int, error) {
	var n int
	err := e.run("cancel_all_orders", func(s *stage) error {
		acc, err := s.account(owner)
		if err != nil {
			return err
		}
		book, err := s.book(market)
		if err != nil {
			return err
		}
		cancelled := book.CancelAllOrders(owner, side, limit)
		for _, co := range cancelled {
			if err := removeCancelled(acc, market, co); err != nil {
				return err
			}
		}
		n = len(cancelled)
		return nil
	})
	return n, err
}

func removeCancelled(acc *positions.Account, market uint16, co matching.CancelledOrder) error {
	slot, ok := acc.OrderSlotByID(market, co.Leaf.Key)
	if !ok {
		return types.ErrOrderNotFound.WithAccount(acc.ID).WithMarket(market)
	}
	return acc.RemovePerpOrder(slot, co.Leaf.Quantity)
}

// ConsumeEvents applies up to limit queued events to the maker accounts
// and returns the number consumed.
func (e *Engine) ConsumeEvents(market uint16, limit int) (int, error) {
	limit = e.limit(limit)
	var n int
	err := e.run("consume_events", func(s *stage) error {
		m, err := s.market(market)
		if err != nil {
			return err
		}
		eq, err := s.queue(market)
		if err != nil {
			return err
		}
		for n < limit {
			ev, ok := eq.Pop()
			if !ok {
				break
			}
			switch ev := ev.(type) {
			case *types.FillEvent:
				maker, err := s.account(ev.Maker)
				if err != nil {
					return err
				}
				if err := maker.ExecuteMaker(m, ev); err != nil {
					return err
				}
			case *types.OutEvent:
				owner, err := s.account(ev.Owner)
				if err != nil {
					return err
				}
				if err := owner.ExecuteOut(m, ev); err != nil {
					return err
				}
			}
			n++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

// PruneExpiredOrders takes up to limit expired orders off the book. The
// owners are released when the out events are consumed.
func (e *Engine) PruneExpiredOrders(market uint16, limit int) (int, error) {
	limit = e.limit(limit)
	var n int
	err := e.run("prune_expired_orders", func(s *stage) error {
		book, err := s.book(market)
		if err != nil {
			return err
		}
		eq, err := s.queue(market)
		if err != nil {
			return err
		}
		outs, err := book.EvictExpired(s.now, limit, eq)
		if err != nil {
			return err
		}
		n = len(outs)
		return nil
	})
	return n, err
}
