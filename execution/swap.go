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
	"github.com/xmargin/xmargin/conditionalswap"
	"github.com/xmargin/xmargin/libs/num"
	"github.com/xmargin/xmargin/types"
)

// TokenConditionalSwapCreate stores a new swap on the owner account and
// returns its id. Fee rates always come from the configuration.
func (e *Engine) TokenConditionalSwapCreate(owner types.AccountID, p conditionalswap.Params) (uint64, error) {
	cfg := e.config()
	p.MakerFeeRate = cfg.SwapMakerFeeRate.Get()
	p.TakerFeeRate = cfg.SwapTakerFeeRate.Get()
	var id uint64
	err := e.run("token_conditional_swap_create", func(s *stage) error {
		acc, err := s.account(owner)
		if err != nil {
			return err
		}
		swap, err := conditionalswap.Create(acc, s, p, s.now)
		if err != nil {
			return err
		}
		id = swap.ID
		return nil
	})
	return id, err
}

// TokenConditionalSwapCancel removes a swap from the owner account.
func (e *Engine) TokenConditionalSwapCancel(owner types.AccountID, id uint64) error {
	return e.run("token_conditional_swap_cancel", func(s *stage) error {
		acc, err := s.account(owner)
		if err != nil {
			return err
		}
		return conditionalswap.Cancel(acc, id)
	})
}

// TokenConditionalSwapTrigger executes a swap of owner against
// triggerer. An expired swap is removed and reported in the result.
func (e *Engine) TokenConditionalSwapTrigger(triggerer, owner types.AccountID, id uint64, maxBuy, maxSell num.Decimal) (*conditionalswap.Result, error) {
	var res *conditionalswap.Result
	err := e.run("token_conditional_swap_trigger", func(s *stage) error {
		t, err := s.account(triggerer)
		if err != nil {
			return err
		}
		o, err := s.account(owner)
		if err != nil {
			return err
		}
		res, err = conditionalswap.Trigger(t, o, s, id, maxBuy, maxSell, s.now)
		return err
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}
