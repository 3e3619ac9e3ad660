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

package logging_test

import (
	"testing"

	"github.com/xmargin/xmargin/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]logging.Level{
		"debug":   logging.DebugLevel,
		"INFO":    logging.InfoLevel,
		"warning": logging.WarnLevel,
		"warn":    logging.WarnLevel,
		"error":   logging.ErrorLevel,
		"fatal":   logging.FatalLevel,
	}
	for s, want := range cases {
		got, err := logging.ParseLevel(s)
		require.NoError(t, err, s)
		assert.Equal(t, want, got, s)
	}
	_, err := logging.ParseLevel("chatty")
	assert.Error(t, err)
}

func TestNamedLoggersHaveIndependentLevels(t *testing.T) {
	root := logging.NewTestLogger()
	child := root.Named("matching")
	grandchild := child.Named("book")

	assert.Equal(t, "matching", child.GetName())
	assert.Equal(t, "matching.book", grandchild.GetName())

	child.SetLevel(logging.DebugLevel)
	assert.True(t, child.IsDebug())
	assert.Equal(t, logging.ErrorLevel, root.GetLevel())
	assert.Equal(t, logging.ErrorLevel, grandchild.GetLevel())
}

func TestWithKeepsName(t *testing.T) {
	log := logging.NewTestLogger().Named("execution").With(logging.AccountID("a"))
	assert.Equal(t, "execution", log.GetName())
	assert.Equal(t, "error", log.GetLevelString())
}
