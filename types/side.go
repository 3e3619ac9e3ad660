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

package types

import "fmt"

// Side of an order.
type Side uint8

const (
	SideBid Side = iota
	SideAsk
)

func (s Side) String() string {
	switch s {
	case SideBid:
		return "bid"
	case SideAsk:
		return "ask"
	default:
		return fmt.Sprintf("side(%d)", uint8(s))
	}
}

func (s Side) Invert() Side {
	if s == SideBid {
		return SideAsk
	}
	return SideBid
}

// IsPriceBetter is true when a is a more aggressive price than b for
// orders on this side.
func (s Side) IsPriceBetter(a, b int64) bool {
	if s == SideBid {
		return a > b
	}
	return a < b
}

// IsPriceWithinLimit is true when an order on this side with the given
// limit is willing to trade at price.
func (s Side) IsPriceWithinLimit(price, limit int64) bool {
	if s == SideBid {
		return price <= limit
	}
	return price >= limit
}

// Sign is +1 for bids and -1 for asks: the direction of the base
// position change when an order on this side fills.
func (s Side) Sign() int64 {
	if s == SideBid {
		return 1
	}
	return -1
}

// OrderTreeType tells which of the two trees of a book side an order
// rests in.
type OrderTreeType uint8

const (
	OrderTreeFixed OrderTreeType = iota
	OrderTreeOraclePegged
)

func (t OrderTreeType) String() string {
	if t == OrderTreeOraclePegged {
		return "oracle-pegged"
	}
	return "fixed"
}

// SideAndOrderTree identifies one of the four order trees of a book.
type SideAndOrderTree uint8

const (
	BidFixed SideAndOrderTree = iota
	AskFixed
	BidOraclePegged
	AskOraclePegged
)

func NewSideAndOrderTree(side Side, tree OrderTreeType) SideAndOrderTree {
	return SideAndOrderTree(uint8(tree)*2 + uint8(side))
}

func (s SideAndOrderTree) Side() Side {
	return Side(uint8(s) % 2)
}

func (s SideAndOrderTree) OrderTree() OrderTreeType {
	return OrderTreeType(uint8(s) / 2)
}

func (s SideAndOrderTree) String() string {
	return s.Side().String() + "/" + s.OrderTree().String()
}

// ParseSide reads the textual form returned by String.
func ParseSide(s string) (Side, error) {
	switch s {
	case "bid":
		return SideBid, nil
	case "ask":
		return SideAsk, nil
	default:
		return 0, ErrInvalidOrder.WithInvariant("unknown side " + s)
	}
}
