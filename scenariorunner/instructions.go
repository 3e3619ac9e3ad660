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

package scenariorunner

import (
	"fmt"
	"io"

	vgfs "github.com/xmargin/xmargin/libs/fs"
	"github.com/xmargin/xmargin/scenariorunner/core"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

// NewInstruction returns a new instruction from a request name and its
// params.
func NewInstruction(request string, params map[string]interface{}) *core.Instruction {
	return &core.Instruction{
		Request: request,
		Params:  params,
	}
}

// ParseInstructionSet decodes a yaml scenario.
func ParseInstructionSet(b []byte) (*core.InstructionSet, error) {
	set := &core.InstructionSet{}
	if err := yaml.UnmarshalStrict(b, set); err != nil {
		return nil, errors.Wrap(err, "invalid scenario")
	}
	for i, instr := range set.Instructions {
		if instr == nil || instr.Request == "" {
			return nil, errors.Errorf("invalid scenario: instruction %d has no request", i)
		}
	}
	return set, nil
}

// LoadInstructionSet reads a yaml scenario file.
func LoadInstructionSet(path string) (*core.InstructionSet, error) {
	b, err := vgfs.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "couldn't read scenario")
	}
	return ParseInstructionSet(b)
}

// WriteResultSet encodes a result set as yaml.
func WriteResultSet(w io.Writer, rs *core.ResultSet) error {
	b, err := yaml.Marshal(rs)
	if err != nil {
		return errors.Wrap(err, "couldn't encode results")
	}
	_, err = w.Write(b)
	return err
}

func unsupported(i int, instr *core.Instruction) error {
	return errors.Wrap(core.ErrInstructionNotSupported, fmt.Sprintf("instruction %d (%s)", i, instr.Request))
}

func failed(i int, instr *core.Instruction, err error) error {
	return errors.Wrapf(err, "instruction %d (%s)", i, instr.Request)
}
