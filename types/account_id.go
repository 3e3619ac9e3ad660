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

package types

import (
	"github.com/google/uuid"
)

// AccountID identifies a margin account. It is a 16 byte value so it
// can be stored in fixed size records.
type AccountID [16]byte

// NewAccountID returns a random (v4) account id.
func NewAccountID() AccountID {
	return AccountID(uuid.New())
}

// ParseAccountID reads the canonical textual form of an id.
func ParseAccountID(s string) (AccountID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return AccountID{}, err
	}
	return AccountID(u), nil
}

func MustParseAccountID(s string) AccountID {
	return AccountID(uuid.MustParse(s))
}

func (a AccountID) String() string {
	return uuid.UUID(a).String()
}

func (a AccountID) IsZero() bool {
	return a == AccountID{}
}
