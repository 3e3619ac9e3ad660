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
	"github.com/xmargin/xmargin/config/encoding"
	"github.com/xmargin/xmargin/libs/num"
	"github.com/xmargin/xmargin/logging"
	"github.com/xmargin/xmargin/matching"
	"github.com/xmargin/xmargin/positions"
)

const (
	// namedLogger is the identifier for package and should ideally match the package name
	// this is simply emitted as a hierarchical label e.g. 'api.grpc'.
	namedLogger = "execution"
)

// AccountConfig sizes new accounts.
type AccountConfig struct {
	TokenSlots uint8 `long:"token-slots"`
	PerpSlots  uint8 `long:"perp-slots"`
	OrderSlots uint8 `long:"order-slots"`
	SwapSlots  uint8 `long:"swap-slots"`
}

func (c AccountConfig) slots() positions.Slots {
	return positions.Slots{
		Tokens: c.TokenSlots,
		Perps:  c.PerpSlots,
		Orders: c.OrderSlots,
		Swaps:  c.SwapSlots,
	}
}

// Config is the configuration of the execution package.
type Config struct {
	Level encoding.LogLevel `long:"log-level"`

	Matching matching.Config `group:"Matching" namespace:"matching"`
	Account  AccountConfig   `group:"Account"  namespace:"account"`

	MaxAccounts         int    `long:"max-accounts" description:"Maximum number of accounts, zero for no limit"`
	InsuranceTokenIndex uint16 `long:"insurance-token-index" description:"Token held by the insurance fund"`
	// maximum number of orders force cancelled or events consumed when a
	// request does not set its own limit
	DefaultLimit int `long:"default-limit"`

	// fee rates applied to every token conditional swap
	SwapMakerFeeRate encoding.Decimal `long:"swap-maker-fee-rate"`
	SwapTakerFeeRate encoding.Decimal `long:"swap-taker-fee-rate"`
}

// NewDefaultConfig creates an instance of the package specific configuration.
func NewDefaultConfig() Config {
	slots := positions.DefaultSlots()
	return Config{
		Level:    encoding.LogLevel{Level: logging.InfoLevel},
		Matching: matching.NewDefaultConfig(),
		Account: AccountConfig{
			TokenSlots: slots.Tokens,
			PerpSlots:  slots.Perps,
			OrderSlots: slots.Orders,
			SwapSlots:  slots.Swaps,
		},
		MaxAccounts:      0,
		DefaultLimit:     16,
		SwapMakerFeeRate: encoding.Decimal{Decimal: num.MustDecimalFromString("0.0005")},
		SwapTakerFeeRate: encoding.Decimal{Decimal: num.MustDecimalFromString("0.0005")},
	}
}
