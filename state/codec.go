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

package state

import (
	"encoding/binary"

	"github.com/xmargin/xmargin/collateral"
	"github.com/xmargin/xmargin/libs/num"
	"github.com/xmargin/xmargin/markets"
	"github.com/xmargin/xmargin/matching"
	"github.com/xmargin/xmargin/oracle"
	"github.com/xmargin/xmargin/positions"
	"github.com/xmargin/xmargin/types"

	"github.com/pkg/errors"
)

// LayoutVersion is the version written in every record header. Records
// of any other version are rejected, migrations happen outside.
const LayoutVersion uint16 = 1

// NameSize is the fixed width of names in records, longer names are
// truncated.
const NameSize = 32

var magic = [4]byte{'X', 'M', 'G', 'N'}

const headerSize = len(magic) + 2 + 1

type Kind uint8

const (
	KindAccount Kind = iota + 1
	KindBank
	KindMarket
	KindBook
	KindQueue
	KindInsurance
)

var (
	ErrUnsupportedVersion = errors.New("unsupported record layout version")
	ErrBadRecord          = errors.New("malformed record")
)

type encoder struct {
	buf []byte
	err error
}

func newEncoder(kind Kind) *encoder {
	e := &encoder{buf: make([]byte, 0, 256)}
	e.buf = append(e.buf, magic[:]...)
	e.u16(LayoutVersion)
	e.u8(uint8(kind))
	return e
}

func (e *encoder) u8(v uint8)   { e.buf = append(e.buf, v) }
func (e *encoder) u16(v uint16) { e.buf = binary.BigEndian.AppendUint16(e.buf, v) }
func (e *encoder) u32(v uint32) { e.buf = binary.BigEndian.AppendUint32(e.buf, v) }
func (e *encoder) u64(v uint64) { e.buf = binary.BigEndian.AppendUint64(e.buf, v) }
func (e *encoder) i64(v int64)  { e.u64(uint64(v)) }

func (e *encoder) bool(v bool) {
	if v {
		e.u8(1)
	} else {
		e.u8(0)
	}
}

func (e *encoder) dec(d num.Decimal) {
	w, err := num.DecimalToFixed(d)
	if err != nil && e.err == nil {
		e.err = err
	}
	e.buf = append(e.buf, w[:]...)
}

func (e *encoder) name(s string) {
	var n [NameSize]byte
	copy(n[:], s)
	e.buf = append(e.buf, n[:]...)
}

func (e *encoder) id(a types.AccountID) { e.buf = append(e.buf, a[:]...) }

func (e *encoder) key(k types.OrderKey) {
	e.u64(k.PriceData)
	e.u64(k.SeqData)
}

func (e *encoder) bytes() ([]byte, error) {
	if e.err != nil {
		return nil, e.err
	}
	return e.buf, nil
}

type decoder struct {
	buf []byte
	off int
	err error
}

// PeekKind validates the header of a record and returns its kind.
func PeekKind(rec []byte) (Kind, error) {
	if len(rec) < headerSize {
		return 0, ErrBadRecord
	}
	if [4]byte(rec[:4]) != magic {
		return 0, errors.Wrap(ErrBadRecord, "bad magic")
	}
	if v := binary.BigEndian.Uint16(rec[4:6]); v != LayoutVersion {
		return 0, errors.Wrapf(ErrUnsupportedVersion, "version %d", v)
	}
	return Kind(rec[6]), nil
}

func newDecoder(rec []byte, want Kind) (*decoder, error) {
	kind, err := PeekKind(rec)
	if err != nil {
		return nil, err
	}
	if kind != want {
		return nil, errors.Wrapf(ErrBadRecord, "kind %d, expected %d", kind, want)
	}
	return &decoder{buf: rec, off: headerSize}, nil
}

func (d *decoder) take(n int) []byte {
	if d.err != nil {
		return make([]byte, n)
	}
	if d.off+n > len(d.buf) {
		d.err = errors.Wrap(ErrBadRecord, "short record")
		return make([]byte, n)
	}
	b := d.buf[d.off : d.off+n]
	d.off += n
	return b
}

func (d *decoder) u8() uint8   { return d.take(1)[0] }
func (d *decoder) u16() uint16 { return binary.BigEndian.Uint16(d.take(2)) }
func (d *decoder) u32() uint32 { return binary.BigEndian.Uint32(d.take(4)) }
func (d *decoder) u64() uint64 { return binary.BigEndian.Uint64(d.take(8)) }
func (d *decoder) i64() int64  { return int64(d.u64()) }
func (d *decoder) bool() bool  { return d.u8() != 0 }

func (d *decoder) dec() num.Decimal {
	return num.DecimalFromFixed(d.take(num.FixedSize))
}

func (d *decoder) name() string {
	n := d.take(NameSize)
	end := 0
	for end < len(n) && n[end] != 0 {
		end++
	}
	return string(n[:end])
}

func (d *decoder) id() types.AccountID {
	return types.AccountID(d.take(16))
}

func (d *decoder) key() types.OrderKey {
	return types.OrderKey{PriceData: d.u64(), SeqData: d.u64()}
}

func (d *decoder) done() error {
	if d.err != nil {
		return d.err
	}
	if d.off != len(d.buf) {
		return errors.Wrap(ErrBadRecord, "trailing bytes")
	}
	return nil
}

func (e *encoder) oracleConfig(c oracle.Config) {
	e.dec(c.ConfFilter)
	e.u64(c.SoftStaleness)
	e.u64(c.MaxStaleness)
}

func (d *decoder) oracleConfig() oracle.Config {
	return oracle.Config{ConfFilter: d.dec(), SoftStaleness: d.u64(), MaxStaleness: d.u64()}
}

func (e *encoder) stablePrice(m oracle.StablePriceModel) {
	e.dec(m.StablePrice)
	e.u64(m.LastUpdate)
	e.dec(m.GrowthLimit)
}

func (d *decoder) stablePrice() oracle.StablePriceModel {
	return oracle.StablePriceModel{StablePrice: d.dec(), LastUpdate: d.u64(), GrowthLimit: d.dec()}
}

func EncodeBank(b *collateral.Bank) ([]byte, error) {
	e := newEncoder(KindBank)
	e.u16(b.TokenIndex)
	e.name(b.Name)
	e.oracleConfig(b.Oracle)
	e.stablePrice(b.StablePrice)
	for _, v := range []num.Decimal{
		b.DepositIndex, b.BorrowIndex, b.IndexedDeposits, b.IndexedBorrows,
		b.MaintAssetWeight, b.InitAssetWeight, b.MaintLiabWeight, b.InitLiabWeight, b.LiquidationFee,
		b.Interest.Util0, b.Interest.Rate0, b.Interest.Util1, b.Interest.Rate1, b.Interest.MaxRate,
		b.LoanOriginationFeeRate, b.CollectedFeesNative, b.DepositLimit, b.BorrowLimit,
	} {
		e.dec(v)
	}
	e.u64(b.IndexLastUpdated)
	e.dec(b.BorrowRate)
	e.dec(b.DepositRate)
	return e.bytes()
}

func DecodeBank(rec []byte) (*collateral.Bank, error) {
	d, err := newDecoder(rec, KindBank)
	if err != nil {
		return nil, err
	}
	b := &collateral.Bank{TokenIndex: d.u16(), Name: d.name()}
	b.Oracle = d.oracleConfig()
	b.StablePrice = d.stablePrice()
	for _, v := range []*num.Decimal{
		&b.DepositIndex, &b.BorrowIndex, &b.IndexedDeposits, &b.IndexedBorrows,
		&b.MaintAssetWeight, &b.InitAssetWeight, &b.MaintLiabWeight, &b.InitLiabWeight, &b.LiquidationFee,
		&b.Interest.Util0, &b.Interest.Rate0, &b.Interest.Util1, &b.Interest.Rate1, &b.Interest.MaxRate,
		&b.LoanOriginationFeeRate, &b.CollectedFeesNative, &b.DepositLimit, &b.BorrowLimit,
	} {
		*v = d.dec()
	}
	b.IndexLastUpdated = d.u64()
	b.BorrowRate = d.dec()
	b.DepositRate = d.dec()
	if err := d.done(); err != nil {
		return nil, err
	}
	return b, nil
}

func EncodeMarket(m *markets.PerpMarket) ([]byte, error) {
	e := newEncoder(KindMarket)
	e.u16(m.MarketIndex)
	e.name(m.Name)
	e.u16(m.SettleTokenIndex)
	e.i64(m.BaseLotSize)
	e.i64(m.QuoteLotSize)
	e.oracleConfig(m.Oracle)
	e.stablePrice(m.StablePrice)
	for _, v := range []num.Decimal{
		m.MaintBaseAssetWeight, m.InitBaseAssetWeight, m.MaintBaseLiabWeight, m.InitBaseLiabWeight,
		m.MaintOverallAssetWeight, m.InitOverallAssetWeight,
		m.BaseLiquidationFee, m.MakerFee, m.TakerFee, m.SettleFee, m.MinFunding, m.MaxFunding,
	} {
		e.dec(v)
	}
	e.i64(m.ImpactQuantity)
	e.dec(m.LongFunding)
	e.dec(m.ShortFunding)
	e.u64(m.FundingLastUpdated)
	e.i64(m.OpenInterest)
	e.dec(m.FeesAccrued)
	e.dec(m.FeesSettled)
	e.i64(m.TickSizeLots)
	e.i64(m.MaxPositionBaseLots)
	e.bool(m.ReduceOnly)
	return e.bytes()
}

func DecodeMarket(rec []byte) (*markets.PerpMarket, error) {
	d, err := newDecoder(rec, KindMarket)
	if err != nil {
		return nil, err
	}
	m := &markets.PerpMarket{
		MarketIndex:      d.u16(),
		Name:             d.name(),
		SettleTokenIndex: d.u16(),
		BaseLotSize:      d.i64(),
		QuoteLotSize:     d.i64(),
	}
	m.Oracle = d.oracleConfig()
	m.StablePrice = d.stablePrice()
	for _, v := range []*num.Decimal{
		&m.MaintBaseAssetWeight, &m.InitBaseAssetWeight, &m.MaintBaseLiabWeight, &m.InitBaseLiabWeight,
		&m.MaintOverallAssetWeight, &m.InitOverallAssetWeight,
		&m.BaseLiquidationFee, &m.MakerFee, &m.TakerFee, &m.SettleFee, &m.MinFunding, &m.MaxFunding,
	} {
		*v = d.dec()
	}
	m.ImpactQuantity = d.i64()
	m.LongFunding = d.dec()
	m.ShortFunding = d.dec()
	m.FundingLastUpdated = d.u64()
	m.OpenInterest = d.i64()
	m.FeesAccrued = d.dec()
	m.FeesSettled = d.dec()
	m.TickSizeLots = d.i64()
	m.MaxPositionBaseLots = d.i64()
	m.ReduceOnly = d.bool()
	if err := d.done(); err != nil {
		return nil, err
	}
	return m, nil
}

var allTrees = []types.SideAndOrderTree{types.BidFixed, types.AskFixed, types.BidOraclePegged, types.AskOraclePegged}

func (e *encoder) leaf(l *types.LeafNode) {
	e.key(l.Key)
	e.id(l.Owner)
	e.u8(l.OwnerSlot)
	e.u8(uint8(l.OrderType))
	e.u16(l.TimeInForce)
	e.u64(l.ClientOrderID)
	e.i64(l.Quantity)
	e.u64(l.Timestamp)
	e.i64(l.PegLimit)
}

func (d *decoder) leaf() types.LeafNode {
	return types.LeafNode{
		Key:           d.key(),
		Owner:         d.id(),
		OwnerSlot:     d.u8(),
		OrderType:     types.PostOrderType(d.u8()),
		TimeInForce:   d.u16(),
		ClientOrderID: d.u64(),
		Quantity:      d.i64(),
		Timestamp:     d.u64(),
		PegLimit:      d.i64(),
	}
}

func EncodeBook(b *matching.OrderBook) ([]byte, error) {
	e := newEncoder(KindBook)
	e.u16(b.MarketIndex)
	e.u32(uint32(b.Capacity()))
	e.u64(b.SeqNum)
	for _, st := range allTrees {
		leaves := b.Tree(st).Leaves()
		e.u32(uint32(len(leaves)))
		for i := range leaves {
			e.leaf(&leaves[i])
		}
	}
	return e.bytes()
}

func DecodeBook(rec []byte) (*matching.OrderBook, error) {
	d, err := newDecoder(rec, KindBook)
	if err != nil {
		return nil, err
	}
	market := d.u16()
	capacity := int(d.u32())
	b := matching.NewOrderBook(market, capacity)
	b.SeqNum = d.u64()
	for _, st := range allTrees {
		n := int(d.u32())
		if n > capacity {
			return nil, errors.Wrapf(ErrBadRecord, "%d orders in a tree of %d", n, capacity)
		}
		tree := b.Tree(st)
		for i := 0; i < n; i++ {
			leaf := d.leaf()
			if d.err != nil {
				return nil, d.err
			}
			if _, err := tree.Insert(leaf); err != nil {
				return nil, errors.Wrap(err, "restoring order tree")
			}
		}
	}
	if err := d.done(); err != nil {
		return nil, err
	}
	return b, nil
}

func (e *encoder) event(ev types.Event) {
	e.u8(uint8(ev.Type()))
	switch ev := ev.(type) {
	case *types.FillEvent:
		e.u8(uint8(ev.TakerSide))
		e.bool(ev.MakerOut)
		e.u8(ev.MakerSlot)
		e.u64(ev.Timestamp)
		e.u64(ev.SeqNum)
		e.id(ev.Maker)
		e.u64(ev.MakerClientOrderID)
		e.u64(ev.MakerTimestamp)
		e.key(ev.MakerOrderID)
		e.id(ev.Taker)
		e.u64(ev.TakerClientOrderID)
		e.dec(ev.MakerFeeRate)
		e.dec(ev.TakerFeeRate)
		e.i64(ev.PriceLots)
		e.i64(ev.Quantity)
	case *types.OutEvent:
		e.u8(uint8(ev.Side))
		e.u8(ev.OwnerSlot)
		e.u64(ev.Timestamp)
		e.u64(ev.SeqNum)
		e.id(ev.Owner)
		e.i64(ev.Quantity)
		e.key(ev.OrderID)
	}
}

func (d *decoder) event() (types.Event, error) {
	switch types.EventType(d.u8()) {
	case types.EventFill:
		return &types.FillEvent{
			TakerSide:          types.Side(d.u8()),
			MakerOut:           d.bool(),
			MakerSlot:          d.u8(),
			Timestamp:          d.u64(),
			SeqNum:             d.u64(),
			Maker:              d.id(),
			MakerClientOrderID: d.u64(),
			MakerTimestamp:     d.u64(),
			MakerOrderID:       d.key(),
			Taker:              d.id(),
			TakerClientOrderID: d.u64(),
			MakerFeeRate:       d.dec(),
			TakerFeeRate:       d.dec(),
			PriceLots:          d.i64(),
			Quantity:           d.i64(),
		}, nil
	case types.EventOut:
		return &types.OutEvent{
			Side:      types.Side(d.u8()),
			OwnerSlot: d.u8(),
			Timestamp: d.u64(),
			SeqNum:    d.u64(),
			Owner:     d.id(),
			Quantity:  d.i64(),
			OrderID:   d.key(),
		}, nil
	default:
		return nil, errors.Wrap(ErrBadRecord, "unknown event type")
	}
}

// EncodeQueue writes the pending events of the queue of a market.
func EncodeQueue(market uint16, q *matching.EventQueue) ([]byte, error) {
	e := newEncoder(KindQueue)
	e.u16(market)
	e.u32(uint32(q.Capacity()))
	e.u64(q.SeqNum())
	events := q.Events()
	e.u32(uint32(len(events)))
	for _, ev := range events {
		e.event(ev)
	}
	return e.bytes()
}

func DecodeQueue(rec []byte) (uint16, *matching.EventQueue, error) {
	d, err := newDecoder(rec, KindQueue)
	if err != nil {
		return 0, nil, err
	}
	market := d.u16()
	capacity := int(d.u32())
	seq := d.u64()
	n := int(d.u32())
	if n > capacity {
		return 0, nil, errors.Wrapf(ErrBadRecord, "%d events in a queue of %d", n, capacity)
	}
	events := make([]types.Event, 0, n)
	for i := 0; i < n; i++ {
		ev, err := d.event()
		if err != nil {
			return 0, nil, err
		}
		events = append(events, ev)
	}
	if err := d.done(); err != nil {
		return 0, nil, err
	}
	q, err := matching.RestoreEventQueue(capacity, seq, events)
	if err != nil {
		return 0, nil, err
	}
	return market, q, nil
}

func EncodeInsurance(f *collateral.InsuranceFund) ([]byte, error) {
	e := newEncoder(KindInsurance)
	e.u16(f.TokenIndex)
	e.dec(f.Balance)
	return e.bytes()
}

func DecodeInsurance(rec []byte) (*collateral.InsuranceFund, error) {
	d, err := newDecoder(rec, KindInsurance)
	if err != nil {
		return nil, err
	}
	f := &collateral.InsuranceFund{TokenIndex: d.u16(), Balance: d.dec()}
	if err := d.done(); err != nil {
		return nil, err
	}
	return f, nil
}

// EncodeAccount writes an account. The record size only depends on the
// number of slots of the account.
func EncodeAccount(a *positions.Account) ([]byte, error) {
	e := newEncoder(KindAccount)
	e.id(a.ID)
	e.name(a.Name)
	e.bool(a.BeingLiquidated)
	e.u64(a.NextSwapID)
	e.u8(uint8(len(a.Tokens)))
	e.u8(uint8(len(a.Perps)))
	e.u8(uint8(len(a.OpenOrders)))
	e.u8(uint8(len(a.Swaps)))
	for i := range a.Tokens {
		p := &a.Tokens[i]
		e.dec(p.IndexedPosition)
		e.u16(p.TokenIndex)
		e.u16(p.InUseCount)
		e.dec(p.PreviousIndex)
		e.dec(p.CumulativeDepositInterest)
		e.dec(p.CumulativeBorrowInterest)
	}
	for i := range a.Perps {
		p := &a.Perps[i]
		e.u16(p.MarketIndex)
		e.u16(p.SettleTokenIndex)
		e.i64(p.BasePositionLots)
		e.dec(p.QuotePositionNative)
		e.dec(p.QuoteRunningNative)
		e.dec(p.LongSettledFunding)
		e.dec(p.ShortSettledFunding)
		e.i64(p.BidsBaseLots)
		e.i64(p.AsksBaseLots)
		e.dec(p.CumulativeLongFunding)
		e.dec(p.CumulativeShortFunding)
		e.u64(p.MakerVolume)
		e.u64(p.TakerVolume)
		e.dec(p.AvgEntryPricePerBaseLot)
		e.dec(p.RealizedTradePnlNative)
		e.dec(p.RealizedOtherPnlNative)
	}
	for i := range a.OpenOrders {
		o := &a.OpenOrders[i]
		e.u8(uint8(o.SideAndTree))
		e.u16(o.MarketIndex)
		e.u64(o.ClientOrderID)
		e.key(o.OrderID)
	}
	for i := range a.Swaps {
		s := &a.Swaps[i]
		e.u64(s.ID)
		for _, v := range []num.Decimal{s.MaxBuy, s.MaxSell, s.Bought, s.Sold} {
			e.dec(v)
		}
		e.u64(s.ExpiryTimestamp)
		for _, v := range []num.Decimal{s.PriceLowerLimit, s.PriceUpperLimit, s.PricePremiumRate, s.TakerFeeRate, s.MakerFeeRate} {
			e.dec(v)
		}
		e.u16(s.BuyTokenIndex)
		e.u16(s.SellTokenIndex)
		e.bool(s.IsConfigured)
		e.bool(s.AllowCreatingDeposits)
		e.bool(s.AllowCreatingBorrows)
	}
	return e.bytes()
}

func DecodeAccount(rec []byte) (*positions.Account, error) {
	d, err := newDecoder(rec, KindAccount)
	if err != nil {
		return nil, err
	}
	id := d.id()
	name := d.name()
	beingLiquidated := d.bool()
	nextSwapID := d.u64()
	slots := positions.Slots{Tokens: d.u8(), Perps: d.u8(), Orders: d.u8(), Swaps: d.u8()}
	a := positions.NewAccount(id, name, slots)
	a.BeingLiquidated = beingLiquidated
	a.NextSwapID = nextSwapID
	for i := range a.Tokens {
		a.Tokens[i] = positions.TokenPosition{
			IndexedPosition:           d.dec(),
			TokenIndex:                d.u16(),
			InUseCount:                d.u16(),
			PreviousIndex:             d.dec(),
			CumulativeDepositInterest: d.dec(),
			CumulativeBorrowInterest:  d.dec(),
		}
	}
	for i := range a.Perps {
		a.Perps[i] = positions.PerpPosition{
			MarketIndex:             d.u16(),
			SettleTokenIndex:        d.u16(),
			BasePositionLots:        d.i64(),
			QuotePositionNative:     d.dec(),
			QuoteRunningNative:      d.dec(),
			LongSettledFunding:      d.dec(),
			ShortSettledFunding:     d.dec(),
			BidsBaseLots:            d.i64(),
			AsksBaseLots:            d.i64(),
			CumulativeLongFunding:   d.dec(),
			CumulativeShortFunding:  d.dec(),
			MakerVolume:             d.u64(),
			TakerVolume:             d.u64(),
			AvgEntryPricePerBaseLot: d.dec(),
			RealizedTradePnlNative:  d.dec(),
			RealizedOtherPnlNative:  d.dec(),
		}
	}
	for i := range a.OpenOrders {
		a.OpenOrders[i] = positions.PerpOpenOrder{
			SideAndTree:   types.SideAndOrderTree(d.u8()),
			MarketIndex:   d.u16(),
			ClientOrderID: d.u64(),
			OrderID:       d.key(),
		}
	}
	for i := range a.Swaps {
		s := &a.Swaps[i]
		s.ID = d.u64()
		for _, v := range []*num.Decimal{&s.MaxBuy, &s.MaxSell, &s.Bought, &s.Sold} {
			*v = d.dec()
		}
		s.ExpiryTimestamp = d.u64()
		for _, v := range []*num.Decimal{&s.PriceLowerLimit, &s.PriceUpperLimit, &s.PricePremiumRate, &s.TakerFeeRate, &s.MakerFeeRate} {
			*v = d.dec()
		}
		s.BuyTokenIndex = d.u16()
		s.SellTokenIndex = d.u16()
		s.IsConfigured = d.bool()
		s.AllowCreatingDeposits = d.bool()
		s.AllowCreatingBorrows = d.bool()
	}
	if err := d.done(); err != nil {
		return nil, err
	}
	return a, nil
}
