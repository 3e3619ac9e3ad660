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
)

// preProcessor builds a PreProcessor decoding params into a fresh R for
// every instruction. check runs at decode time, run when the
// instruction is executed.
func preProcessor[R any](check func(*R) error, run func(*R) (interface{}, error)) *core.PreProcessor {
	return &core.PreProcessor{
		MessageShape: new(R),
		PreProcess: func(instr *core.Instruction) (*core.PreProcessedInstruction, error) {
			req := new(R)
			if err := instr.Decode(req); err != nil {
				return nil, err
			}
			if check != nil {
				if err := check(req); err != nil {
					return nil, err
				}
			}
			return instr.PreProcess(func() (interface{}, error) { return run(req) })
		},
	}
}

func setDecimal(dst *num.Decimal, v *num.Decimal) {
	if v != nil {
		*dst = *v
	}
}
