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

package core

import (
	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

var (
	ErrInstructionNotSupported = errors.New("instruction not supported")
	ErrInstructionInvalid      = errors.New("instruction invalid")
)

// InstructionSet is the content of a scenario file.
type InstructionSet struct {
	Description  string         `yaml:"description,omitempty"`
	Instructions []*Instruction `yaml:"instructions"`
}

// Instruction is a single request of a scenario. Params are decoded into
// the request shape of the pre processor handling it. Decimals with more
// than 15 significant digits have to be quoted to keep their precision.
type Instruction struct {
	Request string                 `yaml:"request"`
	Params  map[string]interface{} `yaml:"params,omitempty"`
}

// InstructionResult is what running an instruction produced.
type InstructionResult struct {
	Instruction *Instruction `yaml:"instruction"`
	Response    interface{}  `yaml:"response,omitempty"`
	Error       string       `yaml:"error,omitempty"`
}

// PreProcessedInstruction is a decoded instruction ready to run.
type PreProcessedInstruction struct {
	instruction *Instruction
	run         func() (interface{}, error)
}

// PreProcessor decodes instructions of one request type. MessageShape is
// the zero value of the params it accepts.
type PreProcessor struct {
	MessageShape interface{}
	PreProcess   func(*Instruction) (*PreProcessedInstruction, error)
}

type PreProcessorProvider interface {
	PreProcessors() map[string]*PreProcessor
}

// Decode fills req from the instruction params, unknown fields are
// rejected.
func (instr *Instruction) Decode(req interface{}) error {
	raw, err := yaml.Marshal(instr.Params)
	if err != nil {
		return errors.Wrapf(ErrInstructionInvalid, "%s: %v", instr.Request, err)
	}
	if err := yaml.UnmarshalStrict(raw, req); err != nil {
		return errors.Wrapf(ErrInstructionInvalid, "%s: %v", instr.Request, err)
	}
	return nil
}

func (instr *Instruction) PreProcess(run func() (interface{}, error)) (*PreProcessedInstruction, error) {
	return &PreProcessedInstruction{instruction: instr, run: run}, nil
}

// NewResult wraps a response and an error in InstructionResult.
func (instr *Instruction) NewResult(response interface{}, err error) *InstructionResult {
	res := &InstructionResult{
		Instruction: instr,
		Response:    response,
	}
	if err != nil {
		res.Error = err.Error()
	}
	return res
}

// Result runs the instruction. The returned result is never nil, it
// carries the error text when the instruction failed.
func (p *PreProcessedInstruction) Result() (*InstructionResult, error) {
	resp, err := p.run()
	return p.instruction.NewResult(resp, err), err
}
