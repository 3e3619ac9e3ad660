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

package metrics_test

import (
	"testing"
	"time"

	"github.com/xmargin/xmargin/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupIsIdempotent(t *testing.T) {
	require.NoError(t, metrics.Setup())
	require.NoError(t, metrics.Setup())

	metrics.InstructionObserve("deposit", true, time.Now())
	metrics.InstructionObserve("deposit", false, time.Now())
	metrics.FillCounterAdd(3, "SOL-PERP")
	metrics.BookGaugesSet("SOL-PERP", 7, 2)

	n, err := testutil.GatherAndCount(prometheus.DefaultGatherer,
		"xmargin_instructions_total", "xmargin_fills_total", "xmargin_book_orders")
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

func TestAddInstrumentTypeMismatch(t *testing.T) {
	reg := prometheus.NewRegistry()
	h, err := metrics.AddInstrument(reg, metrics.Counter, "things_total", metrics.Vectors("kind"))
	require.NoError(t, err)
	_, err = h.GaugeVec()
	assert.ErrorIs(t, err, metrics.ErrInstrumentTypeMismatch)

	_, err = metrics.AddInstrument(reg, metrics.Counter, "things_total", metrics.Vectors("kind"))
	assert.Error(t, err)
}
