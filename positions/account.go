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

package positions

import (
	"github.com/xmargin/xmargin/libs/num"
	"github.com/xmargin/xmargin/markets"
	"github.com/xmargin/xmargin/types"
)

// Slots sizes the fixed arrays of an account.
type Slots struct {
	Tokens uint8
	Perps  uint8
	Orders uint8
	Swaps  uint8
}

func DefaultSlots() Slots {
	return Slots{Tokens: 8, Perps: 4, Orders: 32, Swaps: 8}
}

// Account is a cross margin account: every position it holds backs every
// other one. All arrays have a fixed length, free slots are marked with
// an unused index.
type Account struct {
	ID              types.AccountID
	Name            string
	BeingLiquidated bool

	Tokens     []TokenPosition
	Perps      []PerpPosition
	OpenOrders []PerpOpenOrder
	Swaps      []TokenConditionalSwap
	NextSwapID uint64
}

func NewAccount(id types.AccountID, name string, slots Slots) *Account {
	a := &Account{
		ID:         id,
		Name:       name,
		Tokens:     make([]TokenPosition, slots.Tokens),
		Perps:      make([]PerpPosition, slots.Perps),
		OpenOrders: make([]PerpOpenOrder, slots.Orders),
		Swaps:      make([]TokenConditionalSwap, slots.Swaps),
	}
	for i := range a.Tokens {
		a.Tokens[i] = newTokenPosition(TokenIndexUnused)
	}
	for i := range a.Perps {
		a.Perps[i].MarketIndex = MarketIndexUnused
	}
	for i := range a.OpenOrders {
		a.OpenOrders[i].clear()
	}
	return a
}

// Clone returns a deep copy.
func (a *Account) Clone() *Account {
	c := *a
	c.Tokens = append([]TokenPosition(nil), a.Tokens...)
	c.Perps = append([]PerpPosition(nil), a.Perps...)
	c.OpenOrders = append([]PerpOpenOrder(nil), a.OpenOrders...)
	c.Swaps = append([]TokenConditionalSwap(nil), a.Swaps...)
	return &c
}

func (a *Account) notFound(err *types.Error) *types.Error {
	return err.WithAccount(a.ID)
}

// TokenPosition returns the active position for the token.
func (a *Account) TokenPosition(idx uint16) (*TokenPosition, error) {
	for i := range a.Tokens {
		if a.Tokens[i].IsActiveForToken(idx) {
			return &a.Tokens[i], nil
		}
	}
	return nil, a.notFound(types.ErrTokenPosNotFound).WithToken(idx)
}

// EnsureTokenPosition returns the position for the token, activating a
// free slot when needed. It fails with a capacity error when every slot
// is taken.
func (a *Account) EnsureTokenPosition(idx uint16) (*TokenPosition, error) {
	free := -1
	for i := range a.Tokens {
		if a.Tokens[i].IsActiveForToken(idx) {
			return &a.Tokens[i], nil
		}
		if free < 0 && !a.Tokens[i].IsActive() {
			free = i
		}
	}
	if free < 0 {
		return nil, types.ErrNoFreeTokenSlot.WithAccount(a.ID).WithToken(idx)
	}
	a.Tokens[free] = newTokenPosition(idx)
	return &a.Tokens[free], nil
}

// TryDeactivateTokenPosition frees the slot of an empty position nobody
// depends on.
func (a *Account) TryDeactivateTokenPosition(idx uint16) bool {
	for i := range a.Tokens {
		p := &a.Tokens[i]
		if p.IsActiveForToken(idx) {
			if p.InUseCount > 0 || !p.IndexedPosition.IsZero() {
				return false
			}
			a.Tokens[i] = newTokenPosition(TokenIndexUnused)
			return true
		}
	}
	return false
}

// ActiveTokenPositions returns the active token positions in slot order.
func (a *Account) ActiveTokenPositions() []*TokenPosition {
	out := make([]*TokenPosition, 0, len(a.Tokens))
	for i := range a.Tokens {
		if a.Tokens[i].IsActive() {
			out = append(out, &a.Tokens[i])
		}
	}
	return out
}

// PerpPosition returns the active position for the market.
func (a *Account) PerpPosition(idx uint16) (*PerpPosition, error) {
	for i := range a.Perps {
		if a.Perps[i].IsActiveForMarket(idx) {
			return &a.Perps[i], nil
		}
	}
	return nil, a.notFound(types.ErrPerpPosNotFound).WithMarket(idx)
}

// EnsurePerpPosition returns the position in the market, activating a
// free slot when needed. An active perp position keeps its settle token
// position active.
func (a *Account) EnsurePerpPosition(m *markets.PerpMarket) (*PerpPosition, error) {
	free := -1
	for i := range a.Perps {
		if a.Perps[i].IsActiveForMarket(m.MarketIndex) {
			return &a.Perps[i], nil
		}
		if free < 0 && !a.Perps[i].IsActive() {
			free = i
		}
	}
	if free < 0 {
		return nil, types.ErrNoFreePerpSlot.WithAccount(a.ID).WithMarket(m.MarketIndex)
	}
	settle, err := a.EnsureTokenPosition(m.SettleTokenIndex)
	if err != nil {
		return nil, err
	}
	settle.InUseCount++
	a.Perps[free] = newPerpPosition(m)
	return &a.Perps[free], nil
}

// TryDeactivatePerpPosition frees the slot of an empty perp position.
func (a *Account) TryDeactivatePerpPosition(idx uint16) bool {
	for i := range a.Perps {
		p := &a.Perps[i]
		if !p.IsActiveForMarket(idx) {
			continue
		}
		if !p.IsEmpty() {
			return false
		}
		if settle, err := a.TokenPosition(p.SettleTokenIndex); err == nil && settle.InUseCount > 0 {
			settle.InUseCount--
		}
		a.Perps[i] = PerpPosition{MarketIndex: MarketIndexUnused}
		return true
	}
	return false
}

// ActivePerpPositions returns the active perp positions in slot order.
func (a *Account) ActivePerpPositions() []*PerpPosition {
	out := make([]*PerpPosition, 0, len(a.Perps))
	for i := range a.Perps {
		if a.Perps[i].IsActive() {
			out = append(out, &a.Perps[i])
		}
	}
	return out
}

// AddPerpOrder records a resting order and reserves its quantity on the
// perp position. It returns the slot, which is stored in the leaf so
// events can find it again.
func (a *Account) AddPerpOrder(pp *PerpPosition, st types.SideAndOrderTree, key types.OrderKey, clientOrderID uint64, lots int64) (uint8, error) {
	for i := range a.OpenOrders {
		o := &a.OpenOrders[i]
		if !o.IsFree() {
			continue
		}
		o.SideAndTree = st
		o.MarketIndex = pp.MarketIndex
		o.ClientOrderID = clientOrderID
		o.OrderID = key
		pp.ReserveOrder(st.Side(), lots)
		return uint8(i), nil
	}
	return 0, types.ErrNoFreeOrderSlot.WithAccount(a.ID).WithMarket(pp.MarketIndex)
}

// HasFreeOrderSlot is true when AddPerpOrder would succeed.
func (a *Account) HasFreeOrderSlot() bool {
	return a.FreeOrderSlot() >= 0
}

// FreeOrderSlot is the slot the next AddPerpOrder call will use, -1 if
// every slot is taken.
func (a *Account) FreeOrderSlot() int {
	for i := range a.OpenOrders {
		if a.OpenOrders[i].IsFree() {
			return i
		}
	}
	return -1
}

// RemovePerpOrder frees an order slot and releases the lots still
// reserved by the order.
func (a *Account) RemovePerpOrder(slot uint8, lots int64) error {
	if int(slot) >= len(a.OpenOrders) || a.OpenOrders[slot].IsFree() {
		return types.ErrOrderNotFound.WithAccount(a.ID)
	}
	o := &a.OpenOrders[slot]
	pp, err := a.PerpPosition(o.MarketIndex)
	if err != nil {
		return err
	}
	pp.ReleaseOrder(o.SideAndTree.Side(), lots)
	o.clear()
	return nil
}

// OrderSlotByID finds the slot of a resting order.
func (a *Account) OrderSlotByID(market uint16, key types.OrderKey) (uint8, bool) {
	for i := range a.OpenOrders {
		o := &a.OpenOrders[i]
		if o.MarketIndex == market && o.OrderID == key {
			return uint8(i), true
		}
	}
	return 0, false
}

// OrderSlotByClientID finds the slot of a resting order by client id.
func (a *Account) OrderSlotByClientID(market uint16, clientOrderID uint64) (uint8, bool) {
	for i := range a.OpenOrders {
		o := &a.OpenOrders[i]
		if o.MarketIndex == market && o.ClientOrderID == clientOrderID {
			return uint8(i), true
		}
	}
	return 0, false
}

// OpenOrdersForMarket returns copies of the open orders in a market.
func (a *Account) OpenOrdersForMarket(market uint16) []PerpOpenOrder {
	out := []PerpOpenOrder{}
	for _, o := range a.OpenOrders {
		if o.MarketIndex == market {
			out = append(out, o)
		}
	}
	return out
}

// ExecuteTaker settles the taker side of a placement: the base and quote
// change and the taker fee. Funding must be settled first.
func (a *Account) ExecuteTaker(m *markets.PerpMarket, pp *PerpPosition, side types.Side, baseLots, quoteLots int64) num.Decimal {
	if baseLots == 0 {
		return num.DecimalZero()
	}
	quote := m.QuoteLotsToNative(quoteLots)
	fee := quote.Mul(m.TakerFee)
	pp.RecordTrade(m, side.Sign()*baseLots, quote.Mul(num.DecimalFromInt64(-side.Sign())))
	pp.RecordFee(fee)
	pp.TakerVolume += uint64(quote.IntPart())
	m.FeesAccrued = m.FeesAccrued.Add(fee)
	return fee
}

// ExecuteMaker applies a consumed fill to the maker: position change,
// maker fee, reserve release and, when the order left the book, the slot.
func (a *Account) ExecuteMaker(m *markets.PerpMarket, fill *types.FillEvent) error {
	pp, err := a.PerpPosition(m.MarketIndex)
	if err != nil {
		return err
	}
	pp.SettleFunding(m)
	side := fill.MakerSide()
	quote := m.QuoteLotsToNative(fill.QuoteLots())
	fee := quote.Mul(fill.MakerFeeRate)
	pp.RecordTrade(m, side.Sign()*fill.Quantity, quote.Mul(num.DecimalFromInt64(-side.Sign())))
	pp.RecordFee(fee)
	pp.MakerVolume += uint64(quote.IntPart())
	m.FeesAccrued = m.FeesAccrued.Add(fee)
	pp.ReleaseOrder(side, fill.Quantity)
	if fill.MakerOut {
		a.freeOrderSlot(fill.MakerSlot, m.MarketIndex, fill.MakerOrderID)
	}
	return nil
}

// ExecuteOut releases a resting order that left the book without filling.
func (a *Account) ExecuteOut(m *markets.PerpMarket, out *types.OutEvent) error {
	pp, err := a.PerpPosition(m.MarketIndex)
	if err != nil {
		return err
	}
	pp.ReleaseOrder(out.Side, out.Quantity)
	a.freeOrderSlot(out.OwnerSlot, m.MarketIndex, out.OrderID)
	return nil
}

func (a *Account) freeOrderSlot(slot uint8, market uint16, key types.OrderKey) {
	if int(slot) < len(a.OpenOrders) {
		o := &a.OpenOrders[slot]
		if o.MarketIndex == market && o.OrderID == key {
			o.clear()
			return
		}
	}
	// the slot was reused, look the order up by id
	if s, ok := a.OrderSlotByID(market, key); ok {
		a.OpenOrders[s].clear()
	}
}

// HasOpenPerpOrders is true if any order of the account rests on a book.
func (a *Account) HasOpenPerpOrders() bool {
	for i := range a.OpenOrders {
		if !a.OpenOrders[i].IsFree() {
			return true
		}
	}
	return false
}

// CanClose is true when the account holds nothing and owes nothing.
func (a *Account) CanClose() error {
	if a.BeingLiquidated {
		return types.ErrBeingLiquidated.WithAccount(a.ID)
	}
	for _, p := range a.ActiveTokenPositions() {
		if !p.IndexedPosition.IsZero() {
			return types.ErrAccountNotEmpty.WithAccount(a.ID).WithToken(p.TokenIndex)
		}
	}
	for _, p := range a.ActivePerpPositions() {
		if !p.IsEmpty() {
			return types.ErrAccountNotEmpty.WithAccount(a.ID).WithMarket(p.MarketIndex)
		}
	}
	if a.HasOpenPerpOrders() {
		return types.ErrAccountNotEmpty.WithAccount(a.ID).WithInvariant("open orders")
	}
	for i := range a.Swaps {
		if a.Swaps[i].IsConfigured {
			return types.ErrAccountNotEmpty.WithAccount(a.ID).WithInvariant("token conditional swaps")
		}
	}
	return nil
}

// FreeSwapSlot returns an unconfigured swap slot.
func (a *Account) FreeSwapSlot() (*TokenConditionalSwap, error) {
	for i := range a.Swaps {
		if !a.Swaps[i].IsConfigured {
			return &a.Swaps[i], nil
		}
	}
	return nil, types.ErrNoFreeSwapSlot.WithAccount(a.ID)
}

// SwapByID returns a configured swap.
func (a *Account) SwapByID(id uint64) (*TokenConditionalSwap, error) {
	for i := range a.Swaps {
		if a.Swaps[i].IsConfigured && a.Swaps[i].ID == id {
			return &a.Swaps[i], nil
		}
	}
	return nil, types.ErrSwapNotFound.WithAccount(a.ID)
}
