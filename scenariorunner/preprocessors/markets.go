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

package preprocessors

import (
	"github.com/xmargin/xmargin/collateral"
	"github.com/xmargin/xmargin/execution"
	"github.com/xmargin/xmargin/libs/num"
	"github.com/xmargin/xmargin/markets"
	"github.com/xmargin/xmargin/oracle"
	"github.com/xmargin/xmargin/scenariorunner/core"

	"github.com/pkg/errors"
)

// OracleParams overrides the oracle policy of a bank or market.
type OracleParams struct {
	ConfFilter    *num.Decimal `yaml:"conf_filter,omitempty"`
	SoftStaleness *uint64      `yaml:"soft_staleness,omitempty"`
	MaxStaleness  *uint64      `yaml:"max_staleness,omitempty"`
}

type RegisterBankRequest struct {
	Token                  uint16       `yaml:"token"`
	Name                   string       `yaml:"name"`
	Preset                 string       `yaml:"preset,omitempty"`
	MaintAssetWeight       *num.Decimal `yaml:"maint_asset_weight,omitempty"`
	InitAssetWeight        *num.Decimal `yaml:"init_asset_weight,omitempty"`
	MaintLiabWeight        *num.Decimal `yaml:"maint_liab_weight,omitempty"`
	InitLiabWeight         *num.Decimal `yaml:"init_liab_weight,omitempty"`
	LiquidationFee         *num.Decimal `yaml:"liquidation_fee,omitempty"`
	LoanOriginationFeeRate *num.Decimal `yaml:"loan_origination_fee_rate,omitempty"`
	DepositLimit           *num.Decimal `yaml:"deposit_limit,omitempty"`
	BorrowLimit            *num.Decimal `yaml:"borrow_limit,omitempty"`
	Util0                  *num.Decimal `yaml:"util0,omitempty"`
	Rate0                  *num.Decimal `yaml:"rate0,omitempty"`
	Util1                  *num.Decimal `yaml:"util1,omitempty"`
	Rate1                  *num.Decimal `yaml:"rate1,omitempty"`
	MaxRate                *num.Decimal `yaml:"max_rate,omitempty"`
	Oracle                 OracleParams `yaml:"oracle,omitempty"`
}

type RegisterPerpMarketRequest struct {
	Market                  uint16       `yaml:"market"`
	Name                    string       `yaml:"name"`
	Preset                  string       `yaml:"preset,omitempty"`
	SettleToken             uint16       `yaml:"settle_token"`
	BaseLotSize             int64        `yaml:"base_lot_size"`
	QuoteLotSize            int64        `yaml:"quote_lot_size"`
	MaintBaseAssetWeight    *num.Decimal `yaml:"maint_base_asset_weight,omitempty"`
	InitBaseAssetWeight     *num.Decimal `yaml:"init_base_asset_weight,omitempty"`
	MaintBaseLiabWeight     *num.Decimal `yaml:"maint_base_liab_weight,omitempty"`
	InitBaseLiabWeight      *num.Decimal `yaml:"init_base_liab_weight,omitempty"`
	MaintOverallAssetWeight *num.Decimal `yaml:"maint_overall_asset_weight,omitempty"`
	InitOverallAssetWeight  *num.Decimal `yaml:"init_overall_asset_weight,omitempty"`
	BaseLiquidationFee      *num.Decimal `yaml:"base_liquidation_fee,omitempty"`
	MakerFee                *num.Decimal `yaml:"maker_fee,omitempty"`
	TakerFee                *num.Decimal `yaml:"taker_fee,omitempty"`
	SettleFee               *num.Decimal `yaml:"settle_fee,omitempty"`
	MinFunding              *num.Decimal `yaml:"min_funding,omitempty"`
	MaxFunding              *num.Decimal `yaml:"max_funding,omitempty"`
	ImpactQuantity          *int64       `yaml:"impact_quantity,omitempty"`
	TickSizeLots            *int64       `yaml:"tick_size_lots,omitempty"`
	MaxPositionBaseLots     int64        `yaml:"max_position_base_lots,omitempty"`
	ReduceOnly              bool         `yaml:"reduce_only,omitempty"`
	Oracle                  OracleParams `yaml:"oracle,omitempty"`
}

type MarketRequest struct {
	Market uint16 `yaml:"market"`
}

type TokenRequest struct {
	Token uint16 `yaml:"token"`
}

type AmountRequest struct {
	Amount num.Decimal `yaml:"amount"`
}

type Markets struct {
	mappings map[string]*core.PreProcessor
}

func NewMarkets(e *execution.Engine) *Markets {
	m := map[string]*core.PreProcessor{
		"register_bank":        registerBank(e),
		"register_perp_market": registerPerpMarket(e),
		"update_funding":       updateFunding(e),
		"update_index":         updateIndex(e),
		"deposit_insurance":    depositInsurance(e),
	}
	return &Markets{m}
}

func (m *Markets) PreProcessors() map[string]*core.PreProcessor {
	return m.mappings
}

func (o OracleParams) apply(cfg *oracle.Config) {
	setDecimal(&cfg.ConfFilter, o.ConfFilter)
	if o.SoftStaleness != nil {
		cfg.SoftStaleness = *o.SoftStaleness
	}
	if o.MaxStaleness != nil {
		cfg.MaxStaleness = *o.MaxStaleness
	}
}

func registerBank(e *execution.Engine) *core.PreProcessor {
	check := func(req *RegisterBankRequest) error {
		if req.Name == "" {
			return errors.Wrap(core.ErrInstructionInvalid, "register_bank: missing name")
		}
		return withPreset("register_bank", bankPresets, req.Preset, req)
	}
	return preProcessor(check, func(req *RegisterBankRequest) (interface{}, error) {
		b := collateral.NewBank(req.Token, req.Name)
		setDecimal(&b.MaintAssetWeight, req.MaintAssetWeight)
		setDecimal(&b.InitAssetWeight, req.InitAssetWeight)
		setDecimal(&b.MaintLiabWeight, req.MaintLiabWeight)
		setDecimal(&b.InitLiabWeight, req.InitLiabWeight)
		setDecimal(&b.LiquidationFee, req.LiquidationFee)
		setDecimal(&b.LoanOriginationFeeRate, req.LoanOriginationFeeRate)
		setDecimal(&b.DepositLimit, req.DepositLimit)
		setDecimal(&b.BorrowLimit, req.BorrowLimit)
		setDecimal(&b.Interest.Util0, req.Util0)
		setDecimal(&b.Interest.Rate0, req.Rate0)
		setDecimal(&b.Interest.Util1, req.Util1)
		setDecimal(&b.Interest.Rate1, req.Rate1)
		setDecimal(&b.Interest.MaxRate, req.MaxRate)
		req.Oracle.apply(&b.Oracle)
		return nil, e.RegisterBank(b)
	})
}

func registerPerpMarket(e *execution.Engine) *core.PreProcessor {
	check := func(req *RegisterPerpMarketRequest) error {
		if req.Name == "" {
			return errors.Wrap(core.ErrInstructionInvalid, "register_perp_market: missing name")
		}
		if err := withPreset("register_perp_market", perpPresets, req.Preset, req); err != nil {
			return err
		}
		if req.BaseLotSize == 0 {
			req.BaseLotSize = 1
		}
		if req.QuoteLotSize == 0 {
			req.QuoteLotSize = 1
		}
		return nil
	}
	return preProcessor(check, func(req *RegisterPerpMarketRequest) (interface{}, error) {
		m := markets.NewPerpMarket(req.Market, req.Name, req.SettleToken, req.BaseLotSize, req.QuoteLotSize)
		setDecimal(&m.MaintBaseAssetWeight, req.MaintBaseAssetWeight)
		setDecimal(&m.InitBaseAssetWeight, req.InitBaseAssetWeight)
		setDecimal(&m.MaintBaseLiabWeight, req.MaintBaseLiabWeight)
		setDecimal(&m.InitBaseLiabWeight, req.InitBaseLiabWeight)
		setDecimal(&m.MaintOverallAssetWeight, req.MaintOverallAssetWeight)
		setDecimal(&m.InitOverallAssetWeight, req.InitOverallAssetWeight)
		setDecimal(&m.BaseLiquidationFee, req.BaseLiquidationFee)
		setDecimal(&m.MakerFee, req.MakerFee)
		setDecimal(&m.TakerFee, req.TakerFee)
		setDecimal(&m.SettleFee, req.SettleFee)
		setDecimal(&m.MinFunding, req.MinFunding)
		setDecimal(&m.MaxFunding, req.MaxFunding)
		if req.ImpactQuantity != nil {
			m.ImpactQuantity = *req.ImpactQuantity
		}
		if req.TickSizeLots != nil {
			m.TickSizeLots = *req.TickSizeLots
		}
		m.MaxPositionBaseLots = req.MaxPositionBaseLots
		m.ReduceOnly = req.ReduceOnly
		req.Oracle.apply(&m.Oracle)
		return nil, e.RegisterPerpMarket(m)
	})
}

func updateFunding(e *execution.Engine) *core.PreProcessor {
	return preProcessor(nil, func(req *MarketRequest) (interface{}, error) {
		return nil, e.UpdateFunding(req.Market)
	})
}

func updateIndex(e *execution.Engine) *core.PreProcessor {
	return preProcessor(nil, func(req *TokenRequest) (interface{}, error) {
		return nil, e.UpdateIndexAndRate(req.Token)
	})
}

func depositInsurance(e *execution.Engine) *core.PreProcessor {
	return preProcessor(nil, func(req *AmountRequest) (interface{}, error) {
		return nil, e.DepositInsurance(req.Amount)
	})
}
