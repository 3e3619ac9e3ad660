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

package steps

import (
	"fmt"
	"strconv"

	"github.com/xmargin/xmargin/libs/num"
	"github.com/xmargin/xmargin/types"

	"github.com/cucumber/godog"
)

// StrictParseTable parses a table whose header only uses the required and
// optional columns, and has all the required ones.
func StrictParseTable(dt *godog.Table, required, optional []string) []RowWrapper {
	if len(dt.Rows) == 0 {
		panic("table has no header")
	}
	known := map[string]bool{}
	for _, c := range required {
		known[c] = true
	}
	for _, c := range optional {
		known[c] = true
	}
	header := make([]string, 0, len(dt.Rows[0].Cells))
	seen := map[string]bool{}
	for _, cell := range dt.Rows[0].Cells {
		if !known[cell.Value] {
			panic(fmt.Errorf("unknown column %q", cell.Value))
		}
		header = append(header, cell.Value)
		seen[cell.Value] = true
	}
	for _, c := range required {
		if !seen[c] {
			panic(fmt.Errorf("missing required column %q", c))
		}
	}

	out := make([]RowWrapper, 0, len(dt.Rows)-1)
	for _, row := range dt.Rows[1:] {
		wrapper := RowWrapper{values: map[string]string{}}
		for i, cell := range row.Cells {
			wrapper.values[header[i]] = cell.Value
		}
		out = append(out, wrapper)
	}
	return out
}

type RowWrapper struct {
	values map[string]string
}

func (r RowWrapper) HasColumn(name string) bool {
	_, ok := r.values[name]
	return ok
}

func (r RowWrapper) Str(name string) string {
	return r.values[name]
}

func (r RowWrapper) MustStr(name string) string {
	if !r.HasColumn(name) {
		panic(fmt.Errorf("column %q not found", name))
	}
	return r.values[name]
}

func (r RowWrapper) MustU16(name string) uint16 {
	v, err := strconv.ParseUint(r.MustStr(name), 10, 16)
	panicW(name, err)
	return uint16(v)
}

func (r RowWrapper) MustI64(name string) int64 {
	v, err := strconv.ParseInt(r.MustStr(name), 10, 64)
	panicW(name, err)
	return v
}

// I64 returns def when the column is absent.
func (r RowWrapper) I64(name string, def int64) int64 {
	if !r.HasColumn(name) {
		return def
	}
	return r.MustI64(name)
}

func (r RowWrapper) MustDecimal(name string) num.Decimal {
	v, err := num.DecimalFromString(r.MustStr(name))
	panicW(name, err)
	return v
}

// Decimal sets dst when the column is present.
func (r RowWrapper) Decimal(name string, dst *num.Decimal) {
	if r.HasColumn(name) {
		*dst = r.MustDecimal(name)
	}
}

func (r RowWrapper) MustBool(name string) bool {
	v, err := strconv.ParseBool(r.MustStr(name))
	panicW(name, err)
	return v
}

func (r RowWrapper) MustSide(name string) types.Side {
	v, err := types.ParseSide(r.MustStr(name))
	panicW(name, err)
	return v
}

func panicW(field string, err error) {
	if err != nil {
		panic(fmt.Errorf("couldn't parse %s: %w", field, err))
	}
}
