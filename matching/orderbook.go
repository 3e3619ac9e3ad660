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

package matching

import (
	"encoding/binary"
	"math"

	"github.com/xmargin/xmargin/libs/crypto"
	"github.com/xmargin/xmargin/libs/num"
	"github.com/xmargin/xmargin/types"
)

// MatchParams is the context of a placement that does not come from the
// order itself.
type MatchParams struct {
	Owner types.AccountID
	// OwnerSlot is the account order slot the remainder would take,
	// negative when the account has no free slot.
	OwnerSlot       int
	Now             uint64
	OraclePriceLots int64
	MakerFee        num.Decimal
	TakerFee        num.Decimal
	TickLots        int64
	// Limit bounds the number of resting orders visited, zero for none.
	Limit int
}

// SelfTrade reports a resting order of the taker that was decremented
// instead of filled.
type SelfTrade struct {
	Side      types.Side
	OwnerSlot uint8
	OrderID   types.OrderKey
	Quantity  int64
	Removed   bool
}

// PlaceResult describes the outcome of a placement. Nothing in it has
// been applied to any account.
type PlaceResult struct {
	// PriceLots is the limit the order matched with, after peg and slide
	// adjustments.
	PriceLots       int64
	FilledBaseLots  int64
	FilledQuoteLots int64
	Fills           []*types.FillEvent
	Outs            []*types.OutEvent
	SelfTrades      []SelfTrade
	// Dropped is set for post only orders that would have crossed.
	Dropped bool
	// Resting is set when a remainder was posted.
	Resting     *types.LeafNode
	RestingTree types.SideAndOrderTree
}

// PostedBaseLots is the quantity left resting on the book.
func (r *PlaceResult) PostedBaseLots() int64 {
	if r.Resting == nil {
		return 0
	}
	return r.Resting.Quantity
}

// CancelledOrder is an order taken off the book on request.
type CancelledOrder struct {
	SideAndTree types.SideAndOrderTree
	Leaf        types.LeafNode
}

// OrderBook is the book of one perp market.
type OrderBook struct {
	MarketIndex uint16
	Bids        *BookSide
	Asks        *BookSide
	// SeqNum is the sequence number of the next accepted order.
	SeqNum uint64
}

func NewOrderBook(market uint16, capacity int) *OrderBook {
	return &OrderBook{
		MarketIndex: market,
		Bids:        NewBookSide(types.SideBid, capacity),
		Asks:        NewBookSide(types.SideAsk, capacity),
	}
}

func (b *OrderBook) BookSide(side types.Side) *BookSide {
	if side == types.SideBid {
		return b.Bids
	}
	return b.Asks
}

func (b *OrderBook) Tree(st types.SideAndOrderTree) *OrderTree {
	return b.BookSide(st.Side()).Tree(st.OrderTree())
}

func (b *OrderBook) trees() []*OrderTree {
	return []*OrderTree{b.Bids.Fixed, b.Asks.Fixed, b.Bids.Pegged, b.Asks.Pegged}
}

func (b *OrderBook) Len() int {
	return b.Bids.Len() + b.Asks.Len()
}

// Capacity is the number of orders each of the four trees can hold.
func (b *OrderBook) Capacity() int {
	return b.Bids.Fixed.Capacity()
}

func (b *OrderBook) Clone() *OrderBook {
	return &OrderBook{
		MarketIndex: b.MarketIndex,
		Bids:        b.Bids.Clone(),
		Asks:        b.Asks.Clone(),
		SeqNum:      b.SeqNum,
	}
}

// Hash digests the four trees and the sequence number.
func (b *OrderBook) Hash() []byte {
	parts := make([][]byte, 0, 5)
	for _, t := range b.trees() {
		parts = append(parts, t.Hash())
	}
	seq := make([]byte, 8)
	binary.BigEndian.PutUint64(seq, b.SeqNum)
	return crypto.Digest(append(parts, seq)...)
}

type pendingChange struct {
	tree     *OrderTree
	handle   NodeHandle
	quantity int64 // zero removes the order
}

// limitPrice returns the price an order matches with. For pegged orders
// offset is the offset to rest with.
func (b *OrderBook) limitPrice(order *types.Order, p *MatchParams) (price, offset int64, err error) {
	switch order.Params.Kind {
	case types.ParamsMarket:
		if order.Side == types.SideBid {
			return math.MaxInt64, 0, nil
		}
		return 1, 0, nil
	case types.ParamsOraclePegged:
		if p.OraclePriceLots <= 0 {
			return 0, 0, types.ErrBadOraclePrice.WithMarket(b.MarketIndex)
		}
		offset = order.Params.PriceOffsetLots
		price = p.OraclePriceLots + offset
		if price < 1 {
			return 0, 0, types.ErrInvalidPrice.WithMarket(b.MarketIndex).WithInvariant("pegged price below one lot")
		}
		if pl := order.Params.PegLimit; pl != types.NoPegLimit && order.Side.IsPriceBetter(price, pl) {
			price = pl
		}
		return price, offset, nil
	default:
		price = order.Params.PriceLots
		if p.TickLots > 1 && price%p.TickLots != 0 {
			return 0, 0, types.ErrInvalidPrice.WithMarket(b.MarketIndex).WithInvariant("tick size")
		}
		return price, 0, nil
	}
}

// PlaceOrder matches order against the opposing side and posts what is
// left when the order type allows it. All book changes are computed
// first and applied only once the placement is known to succeed, so an
// error leaves the book and the queue untouched.
func (b *OrderBook) PlaceOrder(order *types.Order, p MatchParams, eq *EventQueue) (*PlaceResult, error) {
	if err := order.Validate(); err != nil {
		return nil, err
	}
	side := order.Side
	opposing := b.BookSide(side.Invert())

	price, offset, err := b.limitPrice(order, &p)
	if err != nil {
		return nil, err
	}
	res := &PlaceResult{PriceLots: price}

	postType, postable := order.PostType()
	if postable && postType != types.PostOrderLimit {
		if best, ok := opposing.BestPrice(p.Now, p.OraclePriceLots); ok && side.IsPriceWithinLimit(best, price) {
			if postType == types.PostOrderPostOnly {
				res.Dropped = true
				return res, nil
			}
			tick := p.TickLots
			if tick < 1 {
				tick = 1
			}
			slid := best - side.Sign()*tick
			if slid < 1 {
				res.Dropped = true
				return res, nil
			}
			offset += slid - price
			price = slid
			res.PriceLots = price
		}
	}

	remainingBase := order.MaxBaseLots
	remainingQuote := order.MaxQuoteLots
	if side == types.SideBid && remainingQuote != types.NoQuoteLimit && p.TakerFee.IsPositive() {
		// the quote budget of a bid pays for the taker fee as well
		remainingQuote = num.Quo(num.DecimalFromInt64(remainingQuote), num.DecimalOne().Add(p.TakerFee)).IntPart()
	}

	var (
		changes  []pendingChange
		events   []types.Event
		visited  int
		limitHit bool
	)
	next := func() bool {
		visited++
		if p.Limit > 0 && visited >= p.Limit {
			limitHit = true
			return false
		}
		return true
	}
	if !order.IsPostOnly() {
		opposing.Iterate(p.Now, p.OraclePriceLots, func(it *BookItem) bool {
			tree := opposing.Tree(it.Tree)
			leaf := &it.Leaf
			if it.Expired {
				out := &types.OutEvent{
					Side:      opposing.Side,
					OwnerSlot: leaf.OwnerSlot,
					Timestamp: p.Now,
					Owner:     leaf.Owner,
					Quantity:  leaf.Quantity,
					OrderID:   leaf.Key,
				}
				changes = append(changes, pendingChange{tree: tree, handle: it.Handle})
				events = append(events, out)
				res.Outs = append(res.Outs, out)
				return next()
			}
			if !it.Valid {
				return true
			}
			if !side.IsPriceWithinLimit(it.PriceLots, price) || remainingBase == 0 {
				return false
			}
			quantity := min(remainingBase, leaf.Quantity, remainingQuote/it.PriceLots)
			if quantity <= 0 {
				return false
			}

			if leaf.Owner == p.Owner {
				switch order.SelfTradeBehavior {
				case types.AbortTransaction:
					err = types.ErrWouldSelfTrade.WithAccount(p.Owner).WithMarket(b.MarketIndex)
					return false
				case types.CancelProvide:
					out := &types.OutEvent{
						Side:      opposing.Side,
						OwnerSlot: leaf.OwnerSlot,
						Timestamp: p.Now,
						Owner:     leaf.Owner,
						Quantity:  leaf.Quantity,
						OrderID:   leaf.Key,
					}
					changes = append(changes, pendingChange{tree: tree, handle: it.Handle})
					events = append(events, out)
					res.Outs = append(res.Outs, out)
				default:
					left := leaf.Quantity - quantity
					changes = append(changes, pendingChange{tree: tree, handle: it.Handle, quantity: left})
					res.SelfTrades = append(res.SelfTrades, SelfTrade{
						Side:      opposing.Side,
						OwnerSlot: leaf.OwnerSlot,
						OrderID:   leaf.Key,
						Quantity:  quantity,
						Removed:   left == 0,
					})
					remainingBase -= quantity
					remainingQuote -= quantity * it.PriceLots
				}
				return next()
			}

			left := leaf.Quantity - quantity
			fill := &types.FillEvent{
				TakerSide:          side,
				MakerOut:           left == 0,
				MakerSlot:          leaf.OwnerSlot,
				Timestamp:          p.Now,
				Maker:              leaf.Owner,
				MakerClientOrderID: leaf.ClientOrderID,
				MakerTimestamp:     leaf.Timestamp,
				MakerOrderID:       leaf.Key,
				Taker:              p.Owner,
				TakerClientOrderID: order.ClientOrderID,
				MakerFeeRate:       p.MakerFee,
				TakerFeeRate:       p.TakerFee,
				PriceLots:          it.PriceLots,
				Quantity:           quantity,
			}
			changes = append(changes, pendingChange{tree: tree, handle: it.Handle, quantity: left})
			events = append(events, fill)
			res.Fills = append(res.Fills, fill)
			res.FilledBaseLots += quantity
			res.FilledQuoteLots += quantity * it.PriceLots
			remainingBase -= quantity
			remainingQuote -= quantity * it.PriceLots
			return next()
		})
		if err != nil {
			return nil, err
		}
	}

	if order.Params.Kind == types.ParamsFillOrKill && remainingBase > 0 {
		return nil, types.ErrWouldNotFill.WithMarket(b.MarketIndex)
	}

	var (
		restTree *OrderTree
		restQty  int64
	)
	// a remainder cut short by the match limit could still cross, it is
	// not posted
	if postable && !limitHit && remainingBase > 0 && price > 0 {
		restQty = min(remainingBase, remainingQuote/price)
	}
	if restQty > 0 {
		restTree = b.BookSide(side).Tree(order.TreeType())
		if restTree.IsFull() {
			return nil, types.ErrBookFull.WithMarket(b.MarketIndex)
		}
		if p.OwnerSlot < 0 || p.OwnerSlot > math.MaxUint8 {
			return nil, types.ErrNoFreeOrderSlot.WithAccount(p.Owner).WithMarket(b.MarketIndex)
		}
	}
	if len(events) > eq.Free() {
		return nil, types.ErrEventQueueFull.WithMarket(b.MarketIndex)
	}

	// nothing below can fail
	for _, c := range changes {
		if c.quantity == 0 {
			_, _ = c.tree.Remove(c.handle)
		} else {
			_ = c.tree.UpdateQuantity(c.handle, c.quantity)
		}
	}
	seq := b.SeqNum
	b.SeqNum++
	if restTree != nil {
		keyPrice := price
		if order.TreeType() == types.OrderTreeOraclePegged {
			keyPrice = offset
		}
		pegLimit := types.NoPegLimit
		if order.TreeType() == types.OrderTreeOraclePegged {
			pegLimit = order.Params.PegLimit
		}
		leaf := types.LeafNode{
			Key:           types.NewOrderKey(side, keyPrice, seq),
			Owner:         p.Owner,
			OwnerSlot:     uint8(p.OwnerSlot),
			OrderType:     postType,
			TimeInForce:   order.TimeInForce,
			ClientOrderID: order.ClientOrderID,
			Quantity:      restQty,
			Timestamp:     p.Now,
			PegLimit:      pegLimit,
		}
		if _, err := restTree.Insert(leaf); err != nil {
			return nil, err
		}
		res.Resting = &leaf
		res.RestingTree = restTree.SideAndTree()
	}
	_ = eq.PushAll(events)
	return res, nil
}

// CancelOrder removes an order of owner from the given tree.
func (b *OrderBook) CancelOrder(st types.SideAndOrderTree, key types.OrderKey, owner types.AccountID) (types.LeafNode, error) {
	tree := b.Tree(st)
	h, ok := tree.FindByKey(key)
	if !ok {
		return types.LeafNode{}, types.ErrOrderNotFound.WithMarket(b.MarketIndex)
	}
	if leaf, _ := tree.Get(h); leaf.Owner != owner {
		return types.LeafNode{}, types.ErrOrderNotFound.WithAccount(owner).WithMarket(b.MarketIndex)
	}
	return tree.Remove(h)
}

// CancelOrderByClientID removes the order of owner with the client id
// from whichever tree holds it.
func (b *OrderBook) CancelOrderByClientID(owner types.AccountID, clientID uint64) (CancelledOrder, error) {
	for _, t := range b.trees() {
		if h, ok := t.FindByClientID(owner, clientID); ok {
			leaf, err := t.Remove(h)
			if err != nil {
				return CancelledOrder{}, err
			}
			return CancelledOrder{SideAndTree: t.SideAndTree(), Leaf: leaf}, nil
		}
	}
	return CancelledOrder{}, types.ErrOrderNotFound.WithAccount(owner).WithMarket(b.MarketIndex)
}

// FindOrder looks an order up by key in all four trees.
func (b *OrderBook) FindOrder(key types.OrderKey) (types.SideAndOrderTree, types.LeafNode, bool) {
	for _, t := range b.trees() {
		if h, ok := t.FindByKey(key); ok {
			leaf, _ := t.Get(h)
			return t.SideAndTree(), leaf, true
		}
	}
	return 0, types.LeafNode{}, false
}

// OrdersOf lists the resting orders of owner, optionally on one side.
func (b *OrderBook) OrdersOf(owner types.AccountID, side *types.Side) []CancelledOrder {
	out := []CancelledOrder{}
	for _, t := range b.trees() {
		if side != nil && t.Side() != *side {
			continue
		}
		t.Iterate(func(_ NodeHandle, leaf *types.LeafNode) bool {
			if leaf.Owner == owner {
				out = append(out, CancelledOrder{SideAndTree: t.SideAndTree(), Leaf: *leaf})
			}
			return true
		})
	}
	return out
}

// CancelAllOrders removes up to limit orders of owner, zero meaning all.
func (b *OrderBook) CancelAllOrders(owner types.AccountID, side *types.Side, limit int) []CancelledOrder {
	orders := b.OrdersOf(owner, side)
	if limit > 0 && len(orders) > limit {
		orders = orders[:limit]
	}
	for _, o := range orders {
		_, _ = b.Tree(o.SideAndTree).RemoveByKey(o.Leaf.Key)
	}
	return orders
}

// EvictExpired removes up to limit expired orders, pushing an out event
// for each one.
func (b *OrderBook) EvictExpired(now uint64, limit int, eq *EventQueue) ([]*types.OutEvent, error) {
	if limit <= 0 || limit > eq.Free() {
		limit = eq.Free()
	}
	outs := []*types.OutEvent{}
	if limit == 0 {
		return outs, nil
	}
	for _, t := range b.trees() {
		if len(outs) >= limit {
			break
		}
		for _, leaf := range t.EvictExpired(now, limit-len(outs)) {
			out := &types.OutEvent{
				Side:      t.Side(),
				OwnerSlot: leaf.OwnerSlot,
				Timestamp: now,
				Owner:     leaf.Owner,
				Quantity:  leaf.Quantity,
				OrderID:   leaf.Key,
			}
			if err := eq.Push(out); err != nil {
				return outs, err
			}
			outs = append(outs, out)
		}
	}
	return outs, nil
}
