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
	"time"

	"github.com/xmargin/xmargin/config/encoding"
	"github.com/xmargin/xmargin/logging"
)

const namedLogger = "scenario"

// Config is the configuration of the scenario runner.
type Config struct {
	Level encoding.LogLevel `long:"log-level"`

	// unix seconds the clock starts at
	ProtocolTime                int64             `long:"protocol-time" description:"Unix time the scenario starts at"`
	AdvanceTimeAfterInstruction encoding.Bool     `long:"advance-time" description:"Move the clock after every processed instruction"`
	AdvanceDuration             encoding.Duration `long:"advance-duration" description:"How far the clock moves after an instruction"`
	OmitInvalidInstructions     encoding.Bool     `long:"omit-invalid" description:"Record failing instructions and keep going"`
	OmitUnsupportedInstructions encoding.Bool     `long:"omit-unsupported" description:"Skip instructions no pre processor handles"`
	// price levels per book side kept in summaries, zero keeps them all
	SummaryDepth int `long:"summary-depth"`
}

func NewDefaultConfig() Config {
	return Config{
		Level:                       encoding.LogLevel{Level: logging.InfoLevel},
		ProtocolTime:                time.Date(2023, 1, 2, 8, 0, 0, 0, time.UTC).Unix(),
		AdvanceTimeAfterInstruction: true,
		AdvanceDuration:             encoding.Duration{Duration: time.Second},
		OmitInvalidInstructions:     true,
		OmitUnsupportedInstructions: false,
		SummaryDepth:                10,
	}
}
