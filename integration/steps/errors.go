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
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/xmargin/xmargin/types"
)

type ErroneousRow interface {
	ExpectError() bool
	Error() string
	Reference() string
}

// checkExpectedError checks if expected error has been returned, if no
// expectation has been set a regular error check is carried out. Core
// errors are matched on their code, without the details.
func checkExpectedError(row ErroneousRow, returnedErr error) error {
	if row.ExpectError() && returnedErr == nil {
		return fmt.Errorf("action on %q should have failed", row.Reference())
	}

	if returnedErr != nil {
		if !row.ExpectError() {
			return fmt.Errorf("action on %q has failed: %s", row.Reference(), returnedErr.Error())
		}
		got := returnedErr.Error()
		var coreErr *types.Error
		if errors.As(returnedErr, &coreErr) {
			got = coreErr.Code
		}
		if row.Error() != got {
			return formatDiff(fmt.Sprintf("action on %q is failing as expected but not with the expected error message", row.Reference()),
				map[string]string{
					"error": row.Error(),
				},
				map[string]string{
					"error": got,
				},
			)
		}
	}
	return nil
}

func formatDiff(msg string, expected, got map[string]string) error {
	var expectedStr strings.Builder
	var gotStr strings.Builder
	padding := findLongestKeyLen(expected) + 1
	formatStr := "\n\t\t%-*s(%s)"
	names := make([]string, 0, len(expected))
	for name := range expected {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		_, _ = fmt.Fprintf(&expectedStr, formatStr, padding, name, expected[name])
		_, _ = fmt.Fprintf(&gotStr, formatStr, padding, name, got[name])
	}

	return fmt.Errorf("%s\n\texpected:%s\n\tgot:%s",
		msg,
		expectedStr.String(),
		gotStr.String(),
	)
}

func findLongestKeyLen(m map[string]string) int {
	longest := 0
	for k := range m {
		if len(k) > longest {
			longest = len(k)
		}
	}
	return longest
}
