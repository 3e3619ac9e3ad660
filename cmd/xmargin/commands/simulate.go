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
	"encoding/hex"
	"io"
	"os"

	"github.com/xmargin/xmargin/config"
	"github.com/xmargin/xmargin/logging"
	"github.com/xmargin/xmargin/metrics"
	"github.com/xmargin/xmargin/scenariorunner"
	"github.com/xmargin/xmargin/store"

	"github.com/jessevdk/go-flags"
	"github.com/pkg/errors"
)

type SimulateCmd struct {
	config.RootPathFlag

	Output     string `short:"o" long:"output" description:"File the results are written to, stdout when empty"`
	Restore    bool   `long:"restore" description:"Start from the state saved in the store"`
	Checkpoint bool   `long:"checkpoint" description:"Save the final state in the store"`

	Args struct {
		Scenarios []string `positional-arg-name:"scenario" required:"1"`
	} `positional-args:"yes"`

	ctx context.Context
}

var simulateCmd SimulateCmd

func Simulate(ctx context.Context, parser *flags.Parser) error {
	simulateCmd = SimulateCmd{
		RootPathFlag: config.NewRootPathFlag(),
		ctx:          ctx,
	}
	_, err := parser.AddCommand("simulate", "Run scenarios", "Run yaml scenarios against a fresh or restored state and print the results", &simulateCmd)
	return err
}

func (opts *SimulateCmd) Execute(_ []string) error {
	log := logging.NewLoggerFromConfig(logging.NewDefaultConfig())
	defer log.AtExit()

	ctx, cancel := context.WithCancel(opts.ctx)
	defer cancel()

	cfgwatchr, err := config.NewFromFile(ctx, log, opts.RootPath)
	if err != nil {
		log.Error("unable to start config watcher", logging.Error(err))
		return err
	}
	conf := cfgwatchr.Get()
	log = logging.NewLoggerFromConfig(conf.Logging)

	srv, err := metrics.Start(conf.Metrics, log)
	if err != nil {
		return err
	}
	if srv != nil {
		defer srv.Close()
	}

	runner, err := scenariorunner.NewEngine(log, conf.Scenario, conf.Execution)
	if err != nil {
		return err
	}

	var st *store.Store
	if opts.Restore || opts.Checkpoint {
		if st, err = store.New(log, conf.Store); err != nil {
			return err
		}
		defer st.Close()
	}

	cfgwatchr.OnConfigUpdate(func(cfg config.Config) {
		runner.ReloadConf(cfg.Scenario, cfg.Execution)
		if st != nil {
			st.ReloadConf(cfg.Store)
		}
	})

	if opts.Restore {
		if err := runner.Restore(st); err != nil {
			return err
		}
	}

	var out io.Writer = os.Stdout
	if opts.Output != "" {
		f, err := os.Create(opts.Output)
		if err != nil {
			return errors.Wrap(err, "couldn't create output file")
		}
		defer f.Close()
		out = f
	}

	for _, path := range opts.Args.Scenarios {
		// configuration changes only apply between scenarios
		cfgwatchr.Apply()

		set, err := scenariorunner.LoadInstructionSet(path)
		if err != nil {
			return err
		}
		rs, err := runner.ProcessInstructions(*set)
		if rs == nil {
			return errors.Wrap(err, path)
		}
		if err != nil {
			log.Warn("scenario had failing instructions",
				logging.String("scenario", path),
				logging.Error(err),
			)
		}
		if err := scenariorunner.WriteResultSet(out, rs); err != nil {
			return err
		}
	}

	if opts.Checkpoint {
		hash, err := runner.Execution().Checkpoint(st)
		if err != nil {
			return err
		}
		log.Info("final state saved", logging.String("hash", hex.EncodeToString(hash)))
	}
	return nil
}
