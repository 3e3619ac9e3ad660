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

	"github.com/xmargin/xmargin/execution"

	"github.com/cucumber/godog"
)

func PartiesShouldHaveTheFollowingHealth(engine *execution.Engine, parties Parties, table *godog.Table) error {
	for _, row := range parseHealthTable(table) {
		party := row.MustStr("party")
		id, err := parties.get(party)
		if err != nil {
			return err
		}
		hc, err := engine.Health(id)
		if err != nil {
			return err
		}
		state, err := engine.LiquidationState(id)
		if err != nil {
			return err
		}

		expected := map[string]string{}
		got := map[string]string{}
		ok := true
		if row.HasColumn("maint health") {
			expected["maint health"] = row.MustStr("maint health")
			got["maint health"] = hc.MaintHealth().String()
			ok = ok && hc.MaintHealth().Equal(row.MustDecimal("maint health"))
		}
		if row.HasColumn("init health") {
			expected["init health"] = row.MustStr("init health")
			got["init health"] = hc.InitHealth().String()
			ok = ok && hc.InitHealth().Equal(row.MustDecimal("init health"))
		}
		if row.HasColumn("state") {
			expected["state"] = row.MustStr("state")
			got["state"] = state.String()
			ok = ok && state.String() == row.MustStr("state")
		}
		if !ok {
			return formatDiff(fmt.Sprintf("invalid health for party %q", party), expected, got)
		}
	}
	return nil
}

func parseHealthTable(table *godog.Table) []RowWrapper {
	return StrictParseTable(table, []string{
		"party",
	}, []string{
		"maint health",
		"init health",
		"state",
	})
}
