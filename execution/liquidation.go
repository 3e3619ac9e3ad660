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
	"github.com/xmargin/xmargin/libs/num"
	"github.com/xmargin/xmargin/liquidation"
	"github.com/xmargin/xmargin/logging"
	"github.com/xmargin/xmargin/metrics"
	"github.com/xmargin/xmargin/positions"
	"github.com/xmargin/xmargin/types"

	"go.uber.org/zap"
)

func (s *stage) liquidationParties(liqor, liqee types.AccountID) (*positions.Account, *positions.Account, error) {
	a, err := s.account(liqor)
	if err != nil {
		return nil, nil, err
	}
	b, err := s.account(liqee)
	if err != nil {
		return nil, nil, err
	}
	return a, b, nil
}

func (e *Engine) logLiquidation(kind string, liqor, liqee types.AccountID, fields ...zap.Field) {
	metrics.LiquidationCounterInc(kind)
	e.log.Info("liquidation",
		append([]zap.Field{
			logging.String("kind", kind),
			logging.AccountID(liqor.String()),
			logging.String("liqee", liqee.String()),
		}, fields...)...,
	)
}

// LiqTokenWithToken makes liqor take over up to maxLiab of the liqee
// borrow in liabToken against its deposit in assetToken.
func (e *Engine) LiqTokenWithToken(liqor, liqee types.AccountID, assetToken, liabToken uint16, maxLiab num.Decimal) (*liquidation.TokenResult, error) {
	var res *liquidation.TokenResult
	err := e.run("liq_token_with_token", func(s *stage) error {
		a, b, err := s.liquidationParties(liqor, liqee)
		if err != nil {
			return err
		}
		res, err = liquidation.LiquidateTokenWithToken(a, b, s, assetToken, liabToken, maxLiab, s.now)
		return err
	})
	if err != nil {
		return nil, err
	}
	e.logLiquidation("token", liqor, liqee,
		logging.Decimal("liab", res.LiabTransfer),
		logging.Decimal("asset", res.AssetTransfer),
	)
	return res, nil
}

// LiqPerpBase makes liqor take over up to maxBaseLots of the liqee base
// position in a market.
func (e *Engine) LiqPerpBase(liqor, liqee types.AccountID, market uint16, maxBaseLots int64) (*liquidation.PerpResult, error) {
	var res *liquidation.PerpResult
	err := e.run("liq_perp_base", func(s *stage) error {
		a, b, err := s.liquidationParties(liqor, liqee)
		if err != nil {
			return err
		}
		res, err = liquidation.LiquidatePerpBase(a, b, s, market, maxBaseLots, s.now)
		return err
	})
	if err != nil {
		return nil, err
	}
	e.logLiquidation("perp_base", liqor, liqee,
		logging.MarketIndex(market),
		logging.Int64("base", res.BaseTransfer),
	)
	return res, nil
}

// LiqForceCancelOrders cancels resting orders of a liquidatable account
// and returns how many were removed.
func (e *Engine) LiqForceCancelOrders(liqee types.AccountID, market uint16, limit int) (int, error) {
	limit = e.limit(limit)
	var n int
	err := e.run("liq_force_cancel_orders", func(s *stage) error {
		acc, err := s.account(liqee)
		if err != nil {
			return err
		}
		book, err := s.book(market)
		if err != nil {
			return err
		}
		cancelled, err := liquidation.ForceCancelOrders(acc, s, book, limit, s.now)
		if err != nil {
			return err
		}
		n = len(cancelled)
		return nil
	})
	if err != nil {
		return 0, err
	}
	metrics.LiquidationCounterInc("force_cancel")
	return n, nil
}

// LiqNegativePnl makes liqor take over up to maxSettle of the negative
// pnl of a closed liqee perp position.
func (e *Engine) LiqNegativePnl(liqor, liqee types.AccountID, market uint16, maxSettle num.Decimal) (num.Decimal, error) {
	var settled num.Decimal
	err := e.run("liq_negative_pnl", func(s *stage) error {
		a, b, err := s.liquidationParties(liqor, liqee)
		if err != nil {
			return err
		}
		settled, err = liquidation.LiquidateNegativePnl(a, b, s, market, maxSettle, s.now)
		return err
	})
	if err != nil {
		return num.DecimalZero(), err
	}
	e.logLiquidation("negative_pnl", liqor, liqee,
		logging.MarketIndex(market),
		logging.Decimal("settled", settled),
	)
	return settled, nil
}

// LiqTokenBankruptcy writes off the borrow of a bankrupt account in
// liabToken, with the insurance fund paying first.
func (e *Engine) LiqTokenBankruptcy(liqee types.AccountID, liabToken uint16) (*liquidation.BankruptcyResult, error) {
	var res *liquidation.BankruptcyResult
	err := e.run("liq_token_bankruptcy", func(s *stage) error {
		acc, err := s.account(liqee)
		if err != nil {
			return err
		}
		res, err = liquidation.ResolveTokenBankruptcy(acc, s, s.insuranceFund(), liabToken, s.now)
		return err
	})
	if err != nil {
		return nil, err
	}
	metrics.LiquidationCounterInc("bankruptcy")
	e.log.Info("bankruptcy resolved",
		logging.AccountID(liqee.String()),
		logging.TokenIndex(liabToken),
		logging.Decimal("liability", res.Liability),
		logging.Decimal("insurance", res.InsuranceCover),
		logging.Decimal("socialized", res.Socialized),
	)
	return res, nil
}
