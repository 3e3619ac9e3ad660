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

package version

import (
	"testing"

	"github.com/blang/semver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSemverOfBinary(t *testing.T) {
	v, err := Semver()
	require.NoError(t, err)
	assert.Equal(t, []string{"dev"}, v.Build)
}

func TestCompatible(t *testing.T) {
	cases := []struct {
		name    string
		current string
		other   string
		ok      bool
	}{
		{name: "same version", current: "0.1.0", other: "v0.1.0", ok: true},
		{name: "patch release", current: "0.1.3", other: "0.1.0+dev", ok: true},
		{name: "minor before 1.0.0", current: "0.2.0", other: "0.1.0"},
		{name: "minor after 1.0.0", current: "1.4.0", other: "1.1.2", ok: true},
		{name: "major", current: "2.0.0", other: "1.9.0"},
		{name: "garbage", current: "1.0.0", other: "latest"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := compatible(semver.MustParse(tc.current), tc.other)
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
