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

// Package liquidation takes risk away from accounts whose maintenance
// health went negative. Every step checks maint health afresh and fails
// with ErrNotLiquidatable once it is back to zero or more. A step never
// transfers more than what brings the liquidation end health back to
// zero, and never lowers maint health. The first step marks the account
// as being liquidated until its maint health recovers. An account
// without anything left to take but with borrows left is bankrupt, its
// liabilities are covered by the insurance fund and then socialized.
package liquidation

import (
	"github.com/xmargin/xmargin/libs/num"
	"github.com/xmargin/xmargin/positions"
	"github.com/xmargin/xmargin/risk"
	"github.com/xmargin/xmargin/types"
)

// State is the liquidation state of an account.
type State uint8

const (
	StateHealthy State = iota
	StateLiquidatable
	StatePartiallyLiquidated
	StateBankrupt
)

func (s State) String() string {
	switch s {
	case StateHealthy:
		return "healthy"
	case StateLiquidatable:
		return "liquidatable"
	case StatePartiallyLiquidated:
		return "partially-liquidated"
	case StateBankrupt:
		return "bankrupt"
	default:
		return "unknown"
	}
}

// StateOf derives the state from a fresh health cache.
func StateOf(hc *risk.HealthCache) State {
	if !hc.IsLiquidatable() {
		return StateHealthy
	}
	if !hc.HasLiquidatableAssets() && hc.HasSpotBorrows() {
		return StateBankrupt
	}
	if hc.BeingLiquidated {
		return StatePartiallyLiquidated
	}
	return StateLiquidatable
}

// liquidatable computes the health of liqee and fails unless its maint
// health is negative.
func liquidatable(liqee *positions.Account, r risk.Retriever, now uint64) (*risk.HealthCache, error) {
	hc, err := risk.Compute(liqee, r, now)
	if err != nil {
		return nil, err
	}
	if !hc.IsLiquidatable() {
		return nil, types.ErrNotLiquidatable.WithAccount(liqee.ID)
	}
	return hc, nil
}

func checkParties(liqor, liqee *positions.Account) error {
	if liqor.ID == liqee.ID {
		return types.ErrInvalidLiq.WithAccount(liqor.ID).WithInvariant("liquidator and liquidatee are the same account")
	}
	if liqor.BeingLiquidated {
		return types.ErrBeingLiquidated.WithAccount(liqor.ID)
	}
	return nil
}

// checkLiqor makes sure the liquidator did not take more risk than it
// can carry.
func checkLiqor(liqor *positions.Account, r risk.Retriever, now uint64) error {
	hc, err := risk.Compute(liqor, r, now)
	if err != nil {
		return err
	}
	if h := hc.InitHealth(); h.IsNegative() {
		return types.ErrHealthTooLow.WithAccount(liqor.ID).WithInvariant("liquidator init health " + h.String())
	}
	return nil
}

// checkMaint rejects a step that would leave liqee with a lower maint
// health than it started with.
func checkMaint(liqee *positions.Account, pre, post num.Decimal) error {
	if post.LessThan(pre) {
		return types.ErrLiqLowersHealth.WithAccount(liqee.ID).
			WithInvariant("maint health " + pre.String() + " -> " + post.String())
	}
	return nil
}

// finish recomputes the health of liqee after a liquidation step and
// clears the being liquidated flag once maint health is non negative.
func finish(liqee *positions.Account, r risk.Retriever, now uint64) (*risk.HealthCache, error) {
	hc, err := risk.Compute(liqee, r, now)
	if err != nil {
		return nil, err
	}
	if !hc.IsLiquidatable() {
		liqee.BeingLiquidated = false
		hc.BeingLiquidated = false
	}
	return hc, nil
}
