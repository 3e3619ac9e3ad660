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

import "math"

// NoQuoteLimit is used as MaxQuoteLots when only the base quantity
// bounds the order.
const NoQuoteLimit int64 = math.MaxInt64

// NoPegLimit disables the peg limit of an oracle pegged order.
const NoPegLimit int64 = -1

// PlaceOrderType is the order type requested by the caller.
type PlaceOrderType uint8

const (
	// PlaceOrderLimit takes existing orders up to price, max base quantity and
	// max quote quantity, then places the remainder on the book.
	PlaceOrderLimit PlaceOrderType = iota
	// PlaceOrderImmediateOrCancel is like Limit but never rests.
	PlaceOrderImmediateOrCancel
	// PlaceOrderPostOnly never takes. If the order would cross it is dropped.
	PlaceOrderPostOnly
	// PlaceOrderMarket is an IOC with no price limit.
	PlaceOrderMarket
	// PlaceOrderPostOnlySlide never takes. A crossing price is moved one
	// tick behind the best opposing order.
	PlaceOrderPostOnlySlide
	// PlaceOrderFillOrKill fills entirely or fails.
	PlaceOrderFillOrKill
)

func (t PlaceOrderType) String() string {
	switch t {
	case PlaceOrderLimit:
		return "limit"
	case PlaceOrderImmediateOrCancel:
		return "ioc"
	case PlaceOrderPostOnly:
		return "post-only"
	case PlaceOrderMarket:
		return "market"
	case PlaceOrderPostOnlySlide:
		return "post-only-slide"
	case PlaceOrderFillOrKill:
		return "fok"
	default:
		return "unknown"
	}
}

// ParsePlaceOrderType reads the textual form returned by String.
func ParsePlaceOrderType(s string) (PlaceOrderType, error) {
	for t := PlaceOrderLimit; t <= PlaceOrderFillOrKill; t++ {
		if t.String() == s {
			return t, nil
		}
	}
	return 0, ErrInvalidOrder.WithInvariant("unknown order type " + s)
}

// PostOrderType is the type of an order that may rest on the book.
type PostOrderType uint8

const (
	PostOrderLimit PostOrderType = iota
	PostOrderPostOnly
	PostOrderPostOnlySlide
)

// PostOrderType converts a place order type into the type stored on
// the book, ok is false for types that never rest.
func (t PlaceOrderType) PostOrderType() (PostOrderType, bool) {
	switch t {
	case PlaceOrderLimit:
		return PostOrderLimit, true
	case PlaceOrderPostOnly:
		return PostOrderPostOnly, true
	case PlaceOrderPostOnlySlide:
		return PostOrderPostOnlySlide, true
	default:
		return 0, false
	}
}

func (t PostOrderType) PlaceOrderType() PlaceOrderType {
	switch t {
	case PostOrderPostOnly:
		return PlaceOrderPostOnly
	case PostOrderPostOnlySlide:
		return PlaceOrderPostOnlySlide
	default:
		return PlaceOrderLimit
	}
}

// SelfTradeBehavior selects what happens when an incoming order would
// match a resting order of the same account.
type SelfTradeBehavior uint8

const (
	// DecrementTake reduces both orders by the overlapping quantity without
	// generating a fill.
	DecrementTake SelfTradeBehavior = iota
	// CancelProvide cancels the resting order and keeps matching.
	CancelProvide
	// AbortTransaction fails the whole placement.
	AbortTransaction
)

func (b SelfTradeBehavior) String() string {
	switch b {
	case DecrementTake:
		return "decrement-take"
	case CancelProvide:
		return "cancel-provide"
	case AbortTransaction:
		return "abort-transaction"
	default:
		return "unknown"
	}
}

func ParseSelfTradeBehavior(s string) (SelfTradeBehavior, error) {
	for b := DecrementTake; b <= AbortTransaction; b++ {
		if b.String() == s {
			return b, nil
		}
	}
	return 0, ErrInvalidOrder.WithInvariant("unknown self trade behavior " + s)
}

// OrderParamsKind discriminates OrderParams.
type OrderParamsKind uint8

const (
	ParamsMarket OrderParamsKind = iota
	ParamsImmediateOrCancel
	ParamsFillOrKill
	ParamsFixed
	ParamsOraclePegged
)

// OrderParams carries the pricing part of an order.
type OrderParams struct {
	Kind OrderParamsKind
	// PriceLots is the limit price for Fixed, ImmediateOrCancel and
	// FillOrKill orders.
	PriceLots int64
	// PriceOffsetLots is added to the oracle price for pegged orders.
	PriceOffsetLots int64
	// PegLimit is the worst price a pegged order may trade at, NoPegLimit
	// disables it.
	PegLimit  int64
	OrderType PostOrderType
}

func MarketParams() OrderParams {
	return OrderParams{Kind: ParamsMarket}
}

func IOCParams(price int64) OrderParams {
	return OrderParams{Kind: ParamsImmediateOrCancel, PriceLots: price}
}

func FOKParams(price int64) OrderParams {
	return OrderParams{Kind: ParamsFillOrKill, PriceLots: price}
}

func FixedParams(price int64, t PostOrderType) OrderParams {
	return OrderParams{Kind: ParamsFixed, PriceLots: price, OrderType: t}
}

func PeggedParams(offset int64, t PostOrderType, pegLimit int64) OrderParams {
	return OrderParams{Kind: ParamsOraclePegged, PriceOffsetLots: offset, OrderType: t, PegLimit: pegLimit}
}

// ParamsForPlaceOrderType builds fixed price params from a place order type.
func ParamsForPlaceOrderType(t PlaceOrderType, price int64) OrderParams {
	switch t {
	case PlaceOrderMarket:
		return MarketParams()
	case PlaceOrderImmediateOrCancel:
		return IOCParams(price)
	case PlaceOrderFillOrKill:
		return FOKParams(price)
	default:
		pt, _ := t.PostOrderType()
		return FixedParams(price, pt)
	}
}

// Order is an incoming order, before matching.
type Order struct {
	Side              Side
	MaxBaseLots       int64
	MaxQuoteLots      int64
	ClientOrderID     uint64
	ReduceOnly        bool
	TimeInForce       uint16
	SelfTradeBehavior SelfTradeBehavior
	Params            OrderParams
}

// TreeType is the tree the remainder of the order would rest in.
func (o *Order) TreeType() OrderTreeType {
	if o.Params.Kind == ParamsOraclePegged {
		return OrderTreeOraclePegged
	}
	return OrderTreeFixed
}

// PostType returns the type used when resting, ok is false for orders
// that never rest.
func (o *Order) PostType() (PostOrderType, bool) {
	switch o.Params.Kind {
	case ParamsFixed, ParamsOraclePegged:
		return o.Params.OrderType, true
	default:
		return 0, false
	}
}

func (o *Order) IsPostOnly() bool {
	t, ok := o.PostType()
	return ok && t != PostOrderLimit
}

// Validate checks the order on its own, without book or account state.
func (o *Order) Validate() error {
	if o.Side != SideBid && o.Side != SideAsk {
		return ErrInvalidOrder.WithInvariant("side")
	}
	if o.MaxBaseLots <= 0 {
		return ErrInvalidQuantity
	}
	if o.MaxQuoteLots <= 0 {
		return ErrInvalidQuantity.WithInvariant("max quote lots")
	}
	switch o.Params.Kind {
	case ParamsMarket:
	case ParamsImmediateOrCancel, ParamsFillOrKill, ParamsFixed:
		if o.Params.PriceLots <= 0 {
			return ErrInvalidPrice
		}
	case ParamsOraclePegged:
		if o.Params.PegLimit != NoPegLimit && o.Params.PegLimit <= 0 {
			return ErrInvalidPrice.WithInvariant("peg limit")
		}
	default:
		return ErrInvalidOrder.WithInvariant("params")
	}
	return nil
}
