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

package commands

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

const (
	colorFlagName      = "color"
	colorFlagValAuto   = "auto"
	colorFlagValAlways = "always"
	colorFlagValNever  = "never"
)

var (
	red   = color.New(color.FgRed).SprintFunc()
	green = color.New(color.FgGreen).SprintFunc()
)

// setColor turns the colors of the human output on or off. In auto mode
// only a terminal gets colors.
func setColor(mode string, fd uintptr) error {
	switch mode {
	case colorFlagValAuto:
		color.NoColor = !isatty.IsTerminal(fd) && !isatty.IsCygwinTerminal(fd)
	case colorFlagValAlways:
		color.NoColor = false
	case colorFlagValNever:
		color.NoColor = true
	default:
		return fmt.Errorf("%s flag must be one of %q, %q or %q", colorFlagName, colorFlagValAuto, colorFlagValAlways, colorFlagValNever)
	}
	return nil
}

// signed paints borrows red and deposits green.
func signed(amount string) string {
	if strings.HasPrefix(amount, "-") {
		return red(amount)
	}
	return green(amount)
}
