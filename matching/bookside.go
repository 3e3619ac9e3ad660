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
	"github.com/xmargin/xmargin/types"
)

// BookItem is a resting order as seen by a walk over a book side.
type BookItem struct {
	Tree   types.OrderTreeType
	Handle NodeHandle
	Leaf   types.LeafNode
	// PriceLots is the effective price, for pegged orders the oracle
	// price plus the offset.
	PriceLots int64
	// Valid is false for pegged orders whose price is unusable.
	Valid   bool
	Expired bool
}

func (i *BookItem) SideAndTree(side types.Side) types.SideAndOrderTree {
	return types.NewSideAndOrderTree(side, i.Tree)
}

// PriceLevel aggregates the quantity resting at one price.
type PriceLevel struct {
	PriceLots int64
	Quantity  int64
	Orders    int
}

// BookSide joins the fixed and the oracle pegged tree of one side.
type BookSide struct {
	Side   types.Side
	Fixed  *OrderTree
	Pegged *OrderTree
}

func NewBookSide(side types.Side, capacity int) *BookSide {
	return &BookSide{
		Side:   side,
		Fixed:  NewOrderTree(side, types.OrderTreeFixed, capacity),
		Pegged: NewOrderTree(side, types.OrderTreeOraclePegged, capacity),
	}
}

func (s *BookSide) Tree(t types.OrderTreeType) *OrderTree {
	if t == types.OrderTreeOraclePegged {
		return s.Pegged
	}
	return s.Fixed
}

func (s *BookSide) Len() int {
	return s.Fixed.Len() + s.Pegged.Len()
}

func (s *BookSide) Clone() *BookSide {
	return &BookSide{Side: s.Side, Fixed: s.Fixed.Clone(), Pegged: s.Pegged.Clone()}
}

type cursor struct {
	tree *OrderTree
	cur  treeItem
	ok   bool
}

func (c *cursor) advance() {
	c.cur, c.ok = c.tree.after(c.cur.key)
}

func (s *BookSide) item(t *OrderTree, it treeItem, now uint64, oraclePriceLots int64) BookItem {
	leaf := t.nodes[it.handle].Leaf
	price, valid := leaf.PriceLots(s.Side, t.treeType, oraclePriceLots)
	return BookItem{
		Tree:      t.treeType,
		Handle:    it.handle,
		Leaf:      leaf,
		PriceLots: price,
		Valid:     valid,
		Expired:   leaf.IsExpired(now),
	}
}

// Iterate walks both trees merged by effective price, best first. At
// equal price the older order comes first. Pegged orders are skipped
// when oraclePriceLots is not positive. The item passed to fn is only
// valid for the duration of the call.
func (s *BookSide) Iterate(now uint64, oraclePriceLots int64, fn func(*BookItem) bool) {
	fixed := &cursor{tree: s.Fixed}
	fixed.cur, fixed.ok = s.Fixed.first()
	pegged := &cursor{tree: s.Pegged}
	if oraclePriceLots > 0 {
		pegged.cur, pegged.ok = s.Pegged.first()
	}

	for fixed.ok || pegged.ok {
		var (
			item BookItem
			from *cursor
		)
		switch {
		case !pegged.ok:
			item, from = s.item(s.Fixed, fixed.cur, now, oraclePriceLots), fixed
		case !fixed.ok:
			item, from = s.item(s.Pegged, pegged.cur, now, oraclePriceLots), pegged
		default:
			fi := s.item(s.Fixed, fixed.cur, now, oraclePriceLots)
			pi := s.item(s.Pegged, pegged.cur, now, oraclePriceLots)
			if s.before(&pi, &fi) {
				item, from = pi, pegged
			} else {
				item, from = fi, fixed
			}
		}
		if !fn(&item) {
			return
		}
		from.advance()
	}
}

// before is true when a has priority over b.
func (s *BookSide) before(a, b *BookItem) bool {
	if a.PriceLots != b.PriceLots {
		return s.Side.IsPriceBetter(a.PriceLots, b.PriceLots)
	}
	return a.Leaf.Key.Seq(s.Side) < b.Leaf.Key.Seq(s.Side)
}

// Best returns the best order that is not expired and has a valid price.
func (s *BookSide) Best(now uint64, oraclePriceLots int64) (BookItem, bool) {
	var (
		best  BookItem
		found bool
	)
	s.Iterate(now, oraclePriceLots, func(it *BookItem) bool {
		if it.Expired || !it.Valid {
			return true
		}
		best, found = *it, true
		return false
	})
	return best, found
}

func (s *BookSide) BestPrice(now uint64, oraclePriceLots int64) (int64, bool) {
	it, ok := s.Best(now, oraclePriceLots)
	return it.PriceLots, ok
}

// ImpactPrice is the price at which a taker of quantity lots would
// finish filling against this side, false if the side is too thin.
func (s *BookSide) ImpactPrice(now uint64, oraclePriceLots, quantity int64) (int64, bool) {
	var (
		sum   int64
		price int64
		ok    bool
	)
	s.Iterate(now, oraclePriceLots, func(it *BookItem) bool {
		if it.Expired || !it.Valid {
			return true
		}
		sum += it.Leaf.Quantity
		if sum >= quantity {
			price, ok = it.PriceLots, true
			return false
		}
		return true
	})
	return price, ok
}

// Levels aggregates up to depth price levels, best first. Zero depth
// returns every level.
func (s *BookSide) Levels(now uint64, oraclePriceLots int64, depth int) []PriceLevel {
	out := []PriceLevel{}
	s.Iterate(now, oraclePriceLots, func(it *BookItem) bool {
		if it.Expired || !it.Valid {
			return true
		}
		if n := len(out); n > 0 && out[n-1].PriceLots == it.PriceLots {
			out[n-1].Quantity += it.Leaf.Quantity
			out[n-1].Orders++
			return true
		}
		if depth > 0 && len(out) == depth {
			return false
		}
		out = append(out, PriceLevel{PriceLots: it.PriceLots, Quantity: it.Leaf.Quantity, Orders: 1})
		return true
	})
	return out
}

// SumQuantity adds up the resting quantity that is not expired.
func (s *BookSide) SumQuantity(now uint64, oraclePriceLots int64) int64 {
	var sum int64
	s.Iterate(now, oraclePriceLots, func(it *BookItem) bool {
		if !it.Expired && it.Valid {
			sum += it.Leaf.Quantity
		}
		return true
	})
	return sum
}
