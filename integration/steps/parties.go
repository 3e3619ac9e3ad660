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
	"github.com/xmargin/xmargin/types"
)

// Parties maps the names used in the features to engine accounts.
type Parties map[string]types.AccountID

// ensure creates the account of party on first use.
func (p Parties) ensure(engine *execution.Engine, party string) (types.AccountID, error) {
	if id, ok := p[party]; ok {
		return id, nil
	}
	id, err := engine.CreateAccount(party)
	if err != nil {
		return types.AccountID{}, err
	}
	p[party] = id
	return id, nil
}

func (p Parties) get(party string) (types.AccountID, error) {
	id, ok := p[party]
	if !ok {
		return types.AccountID{}, fmt.Errorf("unknown party %q", party)
	}
	return id, nil
}
