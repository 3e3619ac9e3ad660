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
	"time"
)

type Metadata struct {
	InstructionsProcessed uint64        `yaml:"instructions_processed"`
	InstructionsOmitted   uint64        `yaml:"instructions_omitted"`
	FillsGenerated        uint64        `yaml:"fills_generated"`
	ProcessingTime        time.Duration `yaml:"processing_time"`
}

// ResultSet is the outcome of running an InstructionSet.
type ResultSet struct {
	Metadata     *Metadata            `yaml:"metadata"`
	Results      []*InstructionResult `yaml:"results"`
	InitialState *Summary             `yaml:"initial_state"`
	FinalState   *Summary             `yaml:"final_state"`
}
