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
	"sort"

	"github.com/xmargin/xmargin/types"

	"github.com/pkg/errors"
)

var (
	ErrDuplicateAccount = errors.New("account name already used")
	ErrUnknownAccount   = errors.New("unknown account")
)

// Accounts maps the names used in a scenario to account ids.
type Accounts struct {
	ids   map[string]types.AccountID
	names map[types.AccountID]string
}

func NewAccounts() *Accounts {
	return &Accounts{
		ids:   map[string]types.AccountID{},
		names: map[types.AccountID]string{},
	}
}

func (a *Accounts) Add(name string, id types.AccountID) error {
	if _, ok := a.ids[name]; ok {
		return errors.Wrap(ErrDuplicateAccount, name)
	}
	a.ids[name] = id
	a.names[id] = name
	return nil
}

func (a *Accounts) Has(name string) bool {
	_, ok := a.ids[name]
	return ok
}

func (a *Accounts) Remove(name string) {
	if id, ok := a.ids[name]; ok {
		delete(a.names, id)
		delete(a.ids, name)
	}
}

// ID resolves a name. A name that is not known is parsed as an account
// id so scenarios can also address accounts restored from a checkpoint.
func (a *Accounts) ID(name string) (types.AccountID, error) {
	if id, ok := a.ids[name]; ok {
		return id, nil
	}
	id, err := types.ParseAccountID(name)
	if err != nil {
		return types.AccountID{}, errors.Wrap(ErrUnknownAccount, name)
	}
	return id, nil
}

// Name is the scenario name of id, or its textual form.
func (a *Accounts) Name(id types.AccountID) string {
	if n, ok := a.names[id]; ok {
		return n
	}
	return id.String()
}

// Names lists the known names in order.
func (a *Accounts) Names() []string {
	out := make([]string, 0, len(a.ids))
	for n := range a.ids {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
