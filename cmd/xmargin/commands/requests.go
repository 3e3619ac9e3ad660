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
	"context"
	"fmt"

	"github.com/xmargin/xmargin/execution"
	"github.com/xmargin/xmargin/logging"
	"github.com/xmargin/xmargin/scenariorunner"

	"github.com/jessevdk/go-flags"
	"gopkg.in/yaml.v2"
)

type RequestsCmd struct{}

var requestsCmd RequestsCmd

func Requests(ctx context.Context, parser *flags.Parser) error {
	_, err := parser.AddCommand("requests", "List scenario requests", "List the requests a scenario can use with the shape of their params", &requestsCmd)
	return err
}

func (opts *RequestsCmd) Execute(_ []string) error {
	log := logging.NewLoggerFromConfig(logging.NewDefaultConfig())
	defer log.AtExit()
	runner, err := scenariorunner.NewEngine(log, scenariorunner.NewDefaultConfig(), execution.NewDefaultConfig())
	if err != nil {
		return err
	}
	names, shapes := runner.Requests()
	for _, name := range names {
		b, err := yaml.Marshal(map[string]interface{}{
			"request": name,
			"params":  shapes[name],
		})
		if err != nil {
			return err
		}
		fmt.Printf("- %s", indent(b))
	}
	return nil
}

func indent(b []byte) []byte {
	out := make([]byte, 0, len(b)+16)
	for i, c := range b {
		out = append(out, c)
		if c == '\n' && i < len(b)-1 {
			out = append(out, ' ', ' ')
		}
	}
	return out
}
