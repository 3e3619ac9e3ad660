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

package encoding_test

import (
	"testing"
	"time"

	"github.com/xmargin/xmargin/config/encoding"
	"github.com/xmargin/xmargin/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDurationText(t *testing.T) {
	var d encoding.Duration
	require.NoError(t, d.UnmarshalFlag("1m30s"))
	assert.Equal(t, 90*time.Second, d.Get())
	b, err := d.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "1m30s", string(b))
}

func TestLogLevelText(t *testing.T) {
	var l encoding.LogLevel
	require.NoError(t, l.UnmarshalText([]byte("warn")))
	assert.Equal(t, logging.WarnLevel, l.Get())
	assert.Error(t, l.UnmarshalText([]byte("loud")))
}

func TestDecimalText(t *testing.T) {
	var d encoding.Decimal
	require.NoError(t, d.UnmarshalText([]byte("0.0005")))
	b, err := d.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "0.0005", string(b))
}

func TestBoolFlag(t *testing.T) {
	var b encoding.Bool
	require.NoError(t, b.UnmarshalFlag("true"))
	assert.True(t, bool(b))
	assert.Error(t, b.UnmarshalFlag("yes"))
}
