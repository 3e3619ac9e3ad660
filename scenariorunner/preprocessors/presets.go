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
	"github.com/xmargin/xmargin/libs/num"
	"github.com/xmargin/xmargin/scenariorunner/core"

	"github.com/jinzhu/copier"
	"github.com/pkg/errors"
)

func dec(s string) *num.Decimal {
	d := num.MustDecimalFromString(s)
	return &d
}

// bankPresets are the risk profiles a register_bank request can start
// from.
var bankPresets = map[string]RegisterBankRequest{
	"stable": {
		MaintAssetWeight: dec("1"),
		InitAssetWeight:  dec("1"),
		MaintLiabWeight:  dec("1"),
		InitLiabWeight:   dec("1"),
		LiquidationFee:   dec("0"),
	},
	"major": {
		MaintAssetWeight:       dec("0.9"),
		InitAssetWeight:        dec("0.8"),
		MaintLiabWeight:        dec("1.1"),
		InitLiabWeight:         dec("1.2"),
		LiquidationFee:         dec("0.05"),
		LoanOriginationFeeRate: dec("0.0005"),
	},
	"volatile": {
		MaintAssetWeight:       dec("0.8"),
		InitAssetWeight:        dec("0.6"),
		MaintLiabWeight:        dec("1.2"),
		InitLiabWeight:         dec("1.4"),
		LiquidationFee:         dec("0.1"),
		LoanOriginationFeeRate: dec("0.001"),
	},
}

var perpPresets = map[string]RegisterPerpMarketRequest{
	"major": {
		MaintBaseAssetWeight: dec("0.95"),
		InitBaseAssetWeight:  dec("0.9"),
		MaintBaseLiabWeight:  dec("1.05"),
		InitBaseLiabWeight:   dec("1.1"),
		BaseLiquidationFee:   dec("0.01"),
		MakerFee:             dec("-0.0001"),
		TakerFee:             dec("0.0004"),
	},
	"volatile": {
		MaintBaseAssetWeight: dec("0.9"),
		InitBaseAssetWeight:  dec("0.8"),
		MaintBaseLiabWeight:  dec("1.1"),
		InitBaseLiabWeight:   dec("1.2"),
		BaseLiquidationFee:   dec("0.02"),
		MakerFee:             dec("0"),
		TakerFee:             dec("0.001"),
	},
}

// withPreset rebuilds req on top of the named preset: the fields req sets
// win, the others come from the preset. An empty name leaves req as is.
func withPreset[R any](kind string, presets map[string]R, name string, req *R) error {
	if name == "" {
		return nil
	}
	preset, ok := presets[name]
	if !ok {
		return errors.Wrapf(core.ErrInstructionInvalid, "%s: unknown preset %q", kind, name)
	}
	var merged R
	if err := copier.Copy(&merged, &preset); err != nil {
		return errors.Wrapf(err, "%s: copying preset %q", kind, name)
	}
	if err := copier.CopyWithOption(&merged, req, copier.Option{IgnoreEmpty: true}); err != nil {
		return errors.Wrapf(err, "%s: applying preset %q", kind, name)
	}
	*req = merged
	return nil
}
