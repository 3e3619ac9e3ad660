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

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// ErrorKind groups errors by how a caller is expected to react.
type ErrorKind uint8

const (
	// KindCapacity is a fixed size structure being full.
	KindCapacity ErrorKind = iota + 1
	// KindInvalid is a malformed or impossible request.
	KindInvalid
	// KindRiskViolation is a request that would leave an account unhealthy
	// or breach a risk limit.
	KindRiskViolation
	// KindStaleOracle is a price too old to be used.
	KindStaleOracle
	// KindNotFound is a reference to something that does not exist.
	KindNotFound
	// KindNotLiquidatable is a liquidation of a healthy account.
	KindNotLiquidatable
	// KindBankrupt is an account that can only go through bankruptcy
	// resolution.
	KindBankrupt
)

func (k ErrorKind) String() string {
	switch k {
	case KindCapacity:
		return "capacity"
	case KindInvalid:
		return "invalid"
	case KindRiskViolation:
		return "risk violation"
	case KindStaleOracle:
		return "stale oracle"
	case KindNotFound:
		return "not found"
	case KindNotLiquidatable:
		return "not liquidatable"
	case KindBankrupt:
		return "bankrupt"
	default:
		return "unknown"
	}
}

// Error is the structured error returned by the core. Two errors are
// equal for errors.Is when they share kind and code, whatever details
// were attached.
type Error struct {
	Kind      ErrorKind
	Code      string
	Account   string
	Market    string
	Token     string
	Invariant string
}

func newError(kind ErrorKind, code string) *Error {
	return &Error{Kind: kind, Code: code}
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Code)
	details := make([]string, 0, 4)
	if e.Account != "" {
		details = append(details, "account="+e.Account)
	}
	if e.Market != "" {
		details = append(details, "market="+e.Market)
	}
	if e.Token != "" {
		details = append(details, "token="+e.Token)
	}
	if e.Invariant != "" {
		details = append(details, "invariant="+e.Invariant)
	}
	if len(details) > 0 {
		b.WriteString(" (")
		b.WriteString(strings.Join(details, ", "))
		b.WriteString(")")
	}
	return b.String()
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind && t.Code == e.Code
}

func (e *Error) clone() *Error {
	c := *e
	return &c
}

func (e *Error) WithAccount(id AccountID) *Error {
	c := e.clone()
	c.Account = id.String()
	return c
}

func (e *Error) WithMarket(idx uint16) *Error {
	c := e.clone()
	c.Market = fmt.Sprintf("%d", idx)
	return c
}

func (e *Error) WithToken(idx uint16) *Error {
	c := e.clone()
	c.Token = fmt.Sprintf("%d", idx)
	return c
}

func (e *Error) WithInvariant(s string) *Error {
	c := e.clone()
	c.Invariant = s
	return c
}

// KindOf returns the kind of the first *Error found in err's chain.
func KindOf(err error) (ErrorKind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, k ErrorKind) bool {
	got, ok := KindOf(err)
	return ok && got == k
}

var (
	ErrBookFull         = newError(KindCapacity, "order book side is full")
	ErrEventQueueFull   = newError(KindCapacity, "event queue is full")
	ErrNoFreeTokenSlot  = newError(KindCapacity, "no free token position slot")
	ErrNoFreePerpSlot   = newError(KindCapacity, "no free perp position slot")
	ErrNoFreeOrderSlot  = newError(KindCapacity, "no free perp open order slot")
	ErrNoFreeSwapSlot   = newError(KindCapacity, "no free token conditional swap slot")
	ErrAccountListFull  = newError(KindCapacity, "account registry is full")
	ErrInvalidPrice     = newError(KindInvalid, "invalid price")
	ErrInvalidQuantity  = newError(KindInvalid, "invalid quantity")
	ErrInvalidOrder     = newError(KindInvalid, "invalid order")
	ErrWouldSelfTrade   = newError(KindInvalid, "order would self trade")
	ErrWouldNotFill     = newError(KindInvalid, "fill or kill order would not fill")
	ErrReduceOnly       = newError(KindInvalid, "market or order is reduce only")
	ErrInvalidAmount    = newError(KindInvalid, "invalid amount")
	ErrInvalidConfig    = newError(KindInvalid, "invalid configuration")
	ErrInvalidLiq       = newError(KindInvalid, "invalid liquidation request")
	ErrNotBankrupt      = newError(KindInvalid, "account is not bankrupt")
	ErrAccountNotEmpty  = newError(KindInvalid, "account still has open positions")
	ErrBeingLiquidated  = newError(KindInvalid, "account is being liquidated")
	ErrLimitExceeded    = newError(KindInvalid, "deposit or borrow limit exceeded")
	ErrInvalidSwap      = newError(KindInvalid, "invalid token conditional swap")
	ErrSwapPriceLimit   = newError(KindInvalid, "price outside of token conditional swap limits")
	ErrSwapExpired      = newError(KindInvalid, "token conditional swap expired")
	ErrBadOraclePrice   = newError(KindInvalid, "oracle price must be positive")
	ErrHealthTooLow     = newError(KindRiskViolation, "health must stay positive")
	ErrPositionLimit    = newError(KindRiskViolation, "position limit exceeded")
	ErrLiqLowersHealth  = newError(KindRiskViolation, "liquidation would lower maint health")
	ErrStaleOracle      = newError(KindStaleOracle, "oracle price is stale")
	ErrOrderNotFound    = newError(KindNotFound, "order not found")
	ErrAccountNotFound  = newError(KindNotFound, "account not found")
	ErrBankNotFound     = newError(KindNotFound, "bank not found")
	ErrMarketNotFound   = newError(KindNotFound, "perp market not found")
	ErrTokenPosNotFound = newError(KindNotFound, "token position not found")
	ErrPerpPosNotFound  = newError(KindNotFound, "perp position not found")
	ErrSwapNotFound     = newError(KindNotFound, "token conditional swap not found")
	ErrNotLiquidatable  = newError(KindNotLiquidatable, "account is not liquidatable")
	ErrBankrupt         = newError(KindBankrupt, "account is bankrupt")
)
