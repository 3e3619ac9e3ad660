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
	"sync/atomic"

	"github.com/xmargin/xmargin/conditionalswap"
	"github.com/xmargin/xmargin/execution"
	"github.com/xmargin/xmargin/libs/num"
	"github.com/xmargin/xmargin/liquidation"
	"github.com/xmargin/xmargin/scenariorunner/core"
	"github.com/xmargin/xmargin/types"

	"github.com/pkg/errors"
)

type CreateAccountRequest struct {
	Name string `yaml:"name"`
}

type AccountRequest struct {
	Account string `yaml:"account"`
}

type TokenAmountRequest struct {
	Account     string      `yaml:"account"`
	Token       uint16      `yaml:"token"`
	Amount      num.Decimal `yaml:"amount"`
	AllowBorrow bool        `yaml:"allow_borrow,omitempty"`
}

type PlaceOrderRequest struct {
	Account string `yaml:"account"`
	Market  uint16 `yaml:"market"`
	Side    string `yaml:"side"`
	// limit, ioc, post-only, market, post-only-slide or fok
	Type  string `yaml:"type"`
	Price int64  `yaml:"price,omitempty"`
	// oracle pegged orders rest at oracle price + PegOffset
	Pegged    bool   `yaml:"pegged,omitempty"`
	PegOffset int64  `yaml:"peg_offset,omitempty"`
	PegLimit  *int64 `yaml:"peg_limit,omitempty"`

	BaseLots          int64  `yaml:"base_lots"`
	QuoteLots         *int64 `yaml:"quote_lots,omitempty"`
	ClientOrderID     uint64 `yaml:"client_order_id,omitempty"`
	ReduceOnly        bool   `yaml:"reduce_only,omitempty"`
	TimeInForce       uint16 `yaml:"time_in_force,omitempty"`
	SelfTradeBehavior string `yaml:"self_trade_behavior,omitempty"`
	Limit             int    `yaml:"limit,omitempty"`

	order types.Order
}

type PlaceOrderResponse struct {
	OrderID         string `yaml:"order_id,omitempty"`
	PriceLots       int64  `yaml:"price_lots"`
	FilledBaseLots  int64  `yaml:"filled_base_lots"`
	FilledQuoteLots int64  `yaml:"filled_quote_lots"`
	Fills           int    `yaml:"fills"`
	TakerFee        string `yaml:"taker_fee"`
	Dropped         bool   `yaml:"dropped,omitempty"`
}

type CancelOrderRequest struct {
	Account       string `yaml:"account"`
	Market        uint16 `yaml:"market"`
	OrderID       string `yaml:"order_id,omitempty"`
	ClientOrderID uint64 `yaml:"client_order_id,omitempty"`
}

type CancelAllOrdersRequest struct {
	Account string `yaml:"account"`
	Market  uint16 `yaml:"market"`
	Side    string `yaml:"side,omitempty"`
	Limit   int    `yaml:"limit,omitempty"`
}

// CancelReplaceAllOrdersRequest cancels the resting orders of the
// account and places Orders, their account and market fields are unused.
type CancelReplaceAllOrdersRequest struct {
	Account string               `yaml:"account"`
	Market  uint16               `yaml:"market"`
	Limit   int                  `yaml:"limit,omitempty"`
	Orders  []*PlaceOrderRequest `yaml:"orders"`
}

type MarketLimitRequest struct {
	Market uint16 `yaml:"market"`
	Limit  int    `yaml:"limit,omitempty"`
}

type CountResponse struct {
	Count int `yaml:"count"`
}

type AccountMarketRequest struct {
	Account string `yaml:"account"`
	Market  uint16 `yaml:"market"`
}

type SettlePnlRequest struct {
	Settler string `yaml:"settler"`
	// Profit holds the positive pnl, Loss the negative one
	Profit string `yaml:"profit"`
	Loss   string `yaml:"loss"`
	Market uint16 `yaml:"market"`
}

type AmountResponse struct {
	Amount string `yaml:"amount"`
}

type LiqTokenWithTokenRequest struct {
	Liqor      string      `yaml:"liqor"`
	Liqee      string      `yaml:"liqee"`
	AssetToken uint16      `yaml:"asset_token"`
	LiabToken  uint16      `yaml:"liab_token"`
	MaxLiab    num.Decimal `yaml:"max_liab"`
}

type LiqPerpBaseRequest struct {
	Liqor       string `yaml:"liqor"`
	Liqee       string `yaml:"liqee"`
	Market      uint16 `yaml:"market"`
	MaxBaseLots int64  `yaml:"max_base_lots"`
}

type LiqForceCancelOrdersRequest struct {
	Liqee  string `yaml:"liqee"`
	Market uint16 `yaml:"market"`
	Limit  int    `yaml:"limit,omitempty"`
}

type LiqNegativePnlRequest struct {
	Liqor     string      `yaml:"liqor"`
	Liqee     string      `yaml:"liqee"`
	Market    uint16      `yaml:"market"`
	MaxSettle num.Decimal `yaml:"max_settle"`
}

type LiqTokenBankruptcyRequest struct {
	Liqee     string `yaml:"liqee"`
	LiabToken uint16 `yaml:"liab_token"`
}

type LiquidationResponse struct {
	LiabTransfer         string `yaml:"liab_transfer,omitempty"`
	AssetTransfer        string `yaml:"asset_transfer,omitempty"`
	BaseTransfer         int64  `yaml:"base_transfer,omitempty"`
	QuoteTransfer        string `yaml:"quote_transfer,omitempty"`
	LiquidationEndHealth string `yaml:"liquidation_end_health"`
	State                string `yaml:"state"`
}

type BankruptcyResponse struct {
	Liability      string `yaml:"liability"`
	InsuranceCover string `yaml:"insurance_cover"`
	Socialized     string `yaml:"socialized"`
	Unabsorbed     string `yaml:"unabsorbed"`
}

type CreateSwapRequest struct {
	Account               string       `yaml:"account"`
	BuyToken              uint16       `yaml:"buy_token"`
	SellToken             uint16       `yaml:"sell_token"`
	MaxBuy                num.Decimal  `yaml:"max_buy"`
	MaxSell               num.Decimal  `yaml:"max_sell"`
	PriceLowerLimit       num.Decimal  `yaml:"price_lower_limit"`
	PriceUpperLimit       num.Decimal  `yaml:"price_upper_limit"`
	PricePremiumRate      *num.Decimal `yaml:"price_premium_rate,omitempty"`
	Expiry                uint64       `yaml:"expiry,omitempty"`
	AllowCreatingDeposits bool         `yaml:"allow_creating_deposits,omitempty"`
	AllowCreatingBorrows  bool         `yaml:"allow_creating_borrows,omitempty"`
}

type SwapRequest struct {
	Account string `yaml:"account"`
	ID      uint64 `yaml:"id"`
}

type TriggerSwapRequest struct {
	Triggerer string      `yaml:"triggerer"`
	Account   string      `yaml:"account"`
	ID        uint64      `yaml:"id"`
	MaxBuy    num.Decimal `yaml:"max_buy"`
	MaxSell   num.Decimal `yaml:"max_sell"`
}

type SwapIDResponse struct {
	ID uint64 `yaml:"id"`
}

type TriggerSwapResponse struct {
	Price    string `yaml:"price"`
	Bought   string `yaml:"bought"`
	Sold     string `yaml:"sold"`
	MakerFee string `yaml:"maker_fee"`
	TakerFee string `yaml:"taker_fee"`
	Closed   bool   `yaml:"closed,omitempty"`
	Expired  bool   `yaml:"expired,omitempty"`
}

// Execution maps account, order, liquidation and swap requests onto the
// execution engine.
type Execution struct {
	mappings map[string]*core.PreProcessor
	accounts *core.Accounts
	fills    uint64
}

func NewExecution(e *execution.Engine, accounts *core.Accounts) *Execution {
	x := &Execution{accounts: accounts}
	x.mappings = map[string]*core.PreProcessor{
		"create_account":          x.createAccount(e),
		"close_account":           x.closeAccount(e),
		"deposit":                 x.deposit(e),
		"withdraw":                x.withdraw(e),
		"place_order":             x.placeOrder(e),
		"cancel_order":            x.cancelOrder(e),
		"cancel_all_orders":       x.cancelAllOrders(e),
		"cancel_replace_orders":   x.cancelReplaceAllOrders(e),
		"consume_events":          consumeEvents(e),
		"prune_orders":            pruneOrders(e),
		"settle_funding":          x.settleFunding(e),
		"settle_pnl":              x.settlePnl(e),
		"liq_token_with_token":    x.liqTokenWithToken(e),
		"liq_perp_base":           x.liqPerpBase(e),
		"liq_force_cancel_orders": x.liqForceCancelOrders(e),
		"liq_negative_pnl":        x.liqNegativePnl(e),
		"liq_token_bankruptcy":    x.liqTokenBankruptcy(e),
		"create_swap":             x.createSwap(e),
		"cancel_swap":             x.cancelSwap(e),
		"trigger_swap":            x.triggerSwap(e),
	}
	return x
}

func (x *Execution) PreProcessors() map[string]*core.PreProcessor {
	return x.mappings
}

// Fills is the number of fills generated by the orders placed so far.
func (x *Execution) Fills() uint64 {
	return atomic.LoadUint64(&x.fills)
}

// ids resolves account names at execution time, accounts created earlier
// in the same scenario are not known when it is decoded.
func (x *Execution) ids(names ...string) ([]types.AccountID, error) {
	out := make([]types.AccountID, 0, len(names))
	for _, n := range names {
		id, err := x.accounts.ID(n)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}

func (x *Execution) createAccount(e *execution.Engine) *core.PreProcessor {
	check := func(req *CreateAccountRequest) error {
		if req.Name == "" {
			return errors.Wrap(core.ErrInstructionInvalid, "create_account: missing name")
		}
		return nil
	}
	return preProcessor(check, func(req *CreateAccountRequest) (interface{}, error) {
		if x.accounts.Has(req.Name) {
			return nil, errors.Wrap(core.ErrDuplicateAccount, req.Name)
		}
		id, err := e.CreateAccount(req.Name)
		if err != nil {
			return nil, err
		}
		if err := x.accounts.Add(req.Name, id); err != nil {
			return nil, err
		}
		return id.String(), nil
	})
}

func (x *Execution) closeAccount(e *execution.Engine) *core.PreProcessor {
	return preProcessor(nil, func(req *AccountRequest) (interface{}, error) {
		ids, err := x.ids(req.Account)
		if err != nil {
			return nil, err
		}
		if err := e.CloseAccount(ids[0]); err != nil {
			return nil, err
		}
		x.accounts.Remove(req.Account)
		return nil, nil
	})
}

func (x *Execution) deposit(e *execution.Engine) *core.PreProcessor {
	return preProcessor(nil, func(req *TokenAmountRequest) (interface{}, error) {
		ids, err := x.ids(req.Account)
		if err != nil {
			return nil, err
		}
		return nil, e.Deposit(ids[0], req.Token, req.Amount)
	})
}

func (x *Execution) withdraw(e *execution.Engine) *core.PreProcessor {
	return preProcessor(nil, func(req *TokenAmountRequest) (interface{}, error) {
		ids, err := x.ids(req.Account)
		if err != nil {
			return nil, err
		}
		amount, err := e.Withdraw(ids[0], req.Token, req.Amount, req.AllowBorrow)
		if err != nil {
			return nil, err
		}
		return &AmountResponse{Amount: amount.String()}, nil
	})
}

func checkOrder(req *PlaceOrderRequest) error {
	invalid := func(err error) error {
		return errors.Wrapf(core.ErrInstructionInvalid, "place_order: %v", err)
	}
	side, err := types.ParseSide(req.Side)
	if err != nil {
		return invalid(err)
	}
	if req.Type == "" {
		req.Type = types.PlaceOrderLimit.String()
	}
	pt, err := types.ParsePlaceOrderType(req.Type)
	if err != nil {
		return invalid(err)
	}
	stb := types.DecrementTake
	if req.SelfTradeBehavior != "" {
		if stb, err = types.ParseSelfTradeBehavior(req.SelfTradeBehavior); err != nil {
			return invalid(err)
		}
	}
	params := types.ParamsForPlaceOrderType(pt, req.Price)
	if req.Pegged {
		post, ok := pt.PostOrderType()
		if !ok {
			return invalid(errors.Errorf("%s orders can't be pegged", pt))
		}
		pegLimit := types.NoPegLimit
		if req.PegLimit != nil {
			pegLimit = *req.PegLimit
		}
		params = types.PeggedParams(req.PegOffset, post, pegLimit)
	}
	quoteLots := types.NoQuoteLimit
	if req.QuoteLots != nil {
		quoteLots = *req.QuoteLots
	}
	req.order = types.Order{
		Side:              side,
		MaxBaseLots:       req.BaseLots,
		MaxQuoteLots:      quoteLots,
		ClientOrderID:     req.ClientOrderID,
		ReduceOnly:        req.ReduceOnly,
		TimeInForce:       req.TimeInForce,
		SelfTradeBehavior: stb,
		Params:            params,
	}
	return nil
}

func (x *Execution) placeOrder(e *execution.Engine) *core.PreProcessor {
	return preProcessor(checkOrder, func(req *PlaceOrderRequest) (interface{}, error) {
		ids, err := x.ids(req.Account)
		if err != nil {
			return nil, err
		}
		res, err := e.PlaceOrder(ids[0], req.Market, req.order)
		if err != nil {
			return nil, err
		}
		return x.orderResponse(res), nil
	})
}

func (x *Execution) orderResponse(res *execution.OrderResult) *PlaceOrderResponse {
	atomic.AddUint64(&x.fills, uint64(len(res.Fills)))
	resp := &PlaceOrderResponse{
		PriceLots:       res.PriceLots,
		FilledBaseLots:  res.FilledBaseLots,
		FilledQuoteLots: res.FilledQuoteLots,
		Fills:           len(res.Fills),
		TakerFee:        res.TakerFee.String(),
		Dropped:         res.Dropped,
	}
	if res.OrderID != nil {
		resp.OrderID = res.OrderID.String()
	}
	return resp
}

func (x *Execution) cancelReplaceAllOrders(e *execution.Engine) *core.PreProcessor {
	check := func(req *CancelReplaceAllOrdersRequest) error {
		for i, o := range req.Orders {
			if o == nil {
				return errors.Wrapf(core.ErrInstructionInvalid, "cancel_replace_orders: empty order %d", i)
			}
			if o.Account != "" && o.Account != req.Account {
				return errors.Wrapf(core.ErrInstructionInvalid, "cancel_replace_orders: order %d is for %s", i, o.Account)
			}
			if err := checkOrder(o); err != nil {
				return err
			}
		}
		return nil
	}
	return preProcessor(check, func(req *CancelReplaceAllOrdersRequest) (interface{}, error) {
		ids, err := x.ids(req.Account)
		if err != nil {
			return nil, err
		}
		orders := make([]types.Order, 0, len(req.Orders))
		for _, o := range req.Orders {
			orders = append(orders, o.order)
		}
		results, err := e.CancelReplaceAllOrders(ids[0], req.Market, orders, req.Limit)
		if err != nil {
			return nil, err
		}
		out := make([]*PlaceOrderResponse, 0, len(results))
		for _, res := range results {
			out = append(out, x.orderResponse(res))
		}
		return out, nil
	})
}

func (x *Execution) cancelOrder(e *execution.Engine) *core.PreProcessor {
	check := func(req *CancelOrderRequest) error {
		if req.OrderID == "" && req.ClientOrderID == 0 {
			return errors.Wrap(core.ErrInstructionInvalid, "cancel_order: order_id or client_order_id required")
		}
		return nil
	}
	return preProcessor(check, func(req *CancelOrderRequest) (interface{}, error) {
		ids, err := x.ids(req.Account)
		if err != nil {
			return nil, err
		}
		if req.OrderID == "" {
			return nil, e.CancelOrderByClientID(ids[0], req.Market, req.ClientOrderID)
		}
		orderID, overflow := num.UintFromString(req.OrderID, 10)
		if overflow {
			return nil, types.ErrInvalidOrder.WithInvariant("malformed order id " + req.OrderID)
		}
		return nil, e.CancelOrder(ids[0], req.Market, orderID)
	})
}

func (x *Execution) cancelAllOrders(e *execution.Engine) *core.PreProcessor {
	return preProcessor(nil, func(req *CancelAllOrdersRequest) (interface{}, error) {
		ids, err := x.ids(req.Account)
		if err != nil {
			return nil, err
		}
		var side *types.Side
		if req.Side != "" {
			s, err := types.ParseSide(req.Side)
			if err != nil {
				return nil, err
			}
			side = &s
		}
		n, err := e.CancelAllOrders(ids[0], req.Market, side, req.Limit)
		if err != nil {
			return nil, err
		}
		return &CountResponse{Count: n}, nil
	})
}

func consumeEvents(e *execution.Engine) *core.PreProcessor {
	return preProcessor(nil, func(req *MarketLimitRequest) (interface{}, error) {
		n, err := e.ConsumeEvents(req.Market, req.Limit)
		if err != nil {
			return nil, err
		}
		return &CountResponse{Count: n}, nil
	})
}

func pruneOrders(e *execution.Engine) *core.PreProcessor {
	return preProcessor(nil, func(req *MarketLimitRequest) (interface{}, error) {
		n, err := e.PruneExpiredOrders(req.Market, req.Limit)
		if err != nil {
			return nil, err
		}
		return &CountResponse{Count: n}, nil
	})
}

func (x *Execution) settleFunding(e *execution.Engine) *core.PreProcessor {
	return preProcessor(nil, func(req *AccountMarketRequest) (interface{}, error) {
		ids, err := x.ids(req.Account)
		if err != nil {
			return nil, err
		}
		return nil, e.SettleFunding(ids[0], req.Market)
	})
}

func (x *Execution) settlePnl(e *execution.Engine) *core.PreProcessor {
	return preProcessor(nil, func(req *SettlePnlRequest) (interface{}, error) {
		ids, err := x.ids(req.Settler, req.Profit, req.Loss)
		if err != nil {
			return nil, err
		}
		amount, err := e.SettlePnl(ids[0], ids[1], ids[2], req.Market)
		if err != nil {
			return nil, err
		}
		return &AmountResponse{Amount: amount.String()}, nil
	})
}

func (x *Execution) liqTokenWithToken(e *execution.Engine) *core.PreProcessor {
	return preProcessor(nil, func(req *LiqTokenWithTokenRequest) (interface{}, error) {
		ids, err := x.ids(req.Liqor, req.Liqee)
		if err != nil {
			return nil, err
		}
		res, err := e.LiqTokenWithToken(ids[0], ids[1], req.AssetToken, req.LiabToken, req.MaxLiab)
		if err != nil {
			return nil, err
		}
		return &LiquidationResponse{
			LiabTransfer:         res.LiabTransfer.String(),
			AssetTransfer:        res.AssetTransfer.String(),
			LiquidationEndHealth: res.LiquidationEndHealth.String(),
			State:                res.State.String(),
		}, nil
	})
}

func (x *Execution) liqPerpBase(e *execution.Engine) *core.PreProcessor {
	return preProcessor(nil, func(req *LiqPerpBaseRequest) (interface{}, error) {
		ids, err := x.ids(req.Liqor, req.Liqee)
		if err != nil {
			return nil, err
		}
		res, err := e.LiqPerpBase(ids[0], ids[1], req.Market, req.MaxBaseLots)
		if err != nil {
			return nil, err
		}
		return &LiquidationResponse{
			BaseTransfer:         res.BaseTransfer,
			QuoteTransfer:        res.QuoteTransfer.String(),
			LiquidationEndHealth: res.LiquidationEndHealth.String(),
			State:                res.State.String(),
		}, nil
	})
}

func (x *Execution) liqForceCancelOrders(e *execution.Engine) *core.PreProcessor {
	return preProcessor(nil, func(req *LiqForceCancelOrdersRequest) (interface{}, error) {
		ids, err := x.ids(req.Liqee)
		if err != nil {
			return nil, err
		}
		n, err := e.LiqForceCancelOrders(ids[0], req.Market, req.Limit)
		if err != nil {
			return nil, err
		}
		return &CountResponse{Count: n}, nil
	})
}

func (x *Execution) liqNegativePnl(e *execution.Engine) *core.PreProcessor {
	return preProcessor(nil, func(req *LiqNegativePnlRequest) (interface{}, error) {
		ids, err := x.ids(req.Liqor, req.Liqee)
		if err != nil {
			return nil, err
		}
		settled, err := e.LiqNegativePnl(ids[0], ids[1], req.Market, req.MaxSettle)
		if err != nil {
			return nil, err
		}
		return &AmountResponse{Amount: settled.String()}, nil
	})
}

func (x *Execution) liqTokenBankruptcy(e *execution.Engine) *core.PreProcessor {
	return preProcessor(nil, func(req *LiqTokenBankruptcyRequest) (interface{}, error) {
		ids, err := x.ids(req.Liqee)
		if err != nil {
			return nil, err
		}
		res, err := e.LiqTokenBankruptcy(ids[0], req.LiabToken)
		if err != nil {
			return nil, err
		}
		return bankruptcyResponse(res), nil
	})
}

func bankruptcyResponse(res *liquidation.BankruptcyResult) *BankruptcyResponse {
	return &BankruptcyResponse{
		Liability:      res.Liability.String(),
		InsuranceCover: res.InsuranceCover.String(),
		Socialized:     res.Socialized.String(),
		Unabsorbed:     res.Unabsorbed.String(),
	}
}

func (x *Execution) createSwap(e *execution.Engine) *core.PreProcessor {
	return preProcessor(nil, func(req *CreateSwapRequest) (interface{}, error) {
		ids, err := x.ids(req.Account)
		if err != nil {
			return nil, err
		}
		p := conditionalswap.Params{
			BuyTokenIndex:         req.BuyToken,
			SellTokenIndex:        req.SellToken,
			MaxBuy:                req.MaxBuy,
			MaxSell:               req.MaxSell,
			PriceLowerLimit:       req.PriceLowerLimit,
			PriceUpperLimit:       req.PriceUpperLimit,
			PricePremiumRate:      num.DecimalZero(),
			ExpiryTimestamp:       req.Expiry,
			AllowCreatingDeposits: req.AllowCreatingDeposits,
			AllowCreatingBorrows:  req.AllowCreatingBorrows,
		}
		setDecimal(&p.PricePremiumRate, req.PricePremiumRate)
		id, err := e.TokenConditionalSwapCreate(ids[0], p)
		if err != nil {
			return nil, err
		}
		return &SwapIDResponse{ID: id}, nil
	})
}

func (x *Execution) cancelSwap(e *execution.Engine) *core.PreProcessor {
	return preProcessor(nil, func(req *SwapRequest) (interface{}, error) {
		ids, err := x.ids(req.Account)
		if err != nil {
			return nil, err
		}
		return nil, e.TokenConditionalSwapCancel(ids[0], req.ID)
	})
}

func (x *Execution) triggerSwap(e *execution.Engine) *core.PreProcessor {
	return preProcessor(nil, func(req *TriggerSwapRequest) (interface{}, error) {
		ids, err := x.ids(req.Triggerer, req.Account)
		if err != nil {
			return nil, err
		}
		res, err := e.TokenConditionalSwapTrigger(ids[0], ids[1], req.ID, req.MaxBuy, req.MaxSell)
		if err != nil {
			return nil, err
		}
		return &TriggerSwapResponse{
			Price:    res.Price.String(),
			Bought:   res.Bought.String(),
			Sold:     res.Sold.String(),
			MakerFee: res.MakerFee.String(),
			TakerFee: res.TakerFee.String(),
			Closed:   res.Closed,
			Expired:  res.Expired,
		}, nil
	})
}
