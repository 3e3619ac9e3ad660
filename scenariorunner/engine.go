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

// Package scenariorunner replays yaml scenarios against an execution
// engine driven by a scenario clock and oracle feed.
package scenariorunner

import (
	"sort"
	"time"

	"github.com/xmargin/xmargin/execution"
	"github.com/xmargin/xmargin/logging"
	"github.com/xmargin/xmargin/scenariorunner/core"
	"github.com/xmargin/xmargin/scenariorunner/preprocessors"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

var ErrDuplicateInstruction = errors.New("duplicate instruction")

type Engine struct {
	Config
	log              *logging.Logger
	execution        *execution.Engine
	accounts         *core.Accounts
	clock            *clock
	summaryGenerator *core.SummaryGenerator
	internalProvider *internalProvider
	executionProv    *preprocessors.Execution
	providers        []core.PreProcessorProvider
	fillsReported    uint64
}

// NewEngine returns a scenario runner over a fresh execution engine.
func NewEngine(log *logging.Logger, config Config, executionConfig execution.Config) (*Engine, error) {
	log = log.Named(namedLogger)
	log.SetLevel(config.Level.Get())

	c := &clock{now: time.Unix(config.ProtocolTime, 0)}
	feed := newPriceFeed(c)
	exec := execution.NewEngine(log, executionConfig, feed, c)
	accounts := core.NewAccounts()
	summaryGenerator := core.NewSummaryGenerator(exec, c, accounts, config.SummaryDepth)
	executionProv := preprocessors.NewExecution(exec, accounts)

	e := &Engine{
		Config:           config,
		log:              log,
		execution:        exec,
		accounts:         accounts,
		clock:            c,
		summaryGenerator: summaryGenerator,
		internalProvider: newInternalProvider(c, feed, summaryGenerator),
		executionProv:    executionProv,
		providers: []core.PreProcessorProvider{
			executionProv,
			preprocessors.NewMarkets(exec),
		},
	}
	if _, err := e.flattenPreProcessors(); err != nil {
		return nil, err
	}
	return e, nil
}

// Execution exposes the engine the scenario runs against.
func (e *Engine) Execution() *execution.Engine {
	return e.execution
}

// ReloadConf updates the runner and execution configuration, used
// between scenarios.
func (e *Engine) ReloadConf(cfg Config, executionConfig execution.Config) {
	if e.log.GetLevel() != cfg.Level.Get() {
		e.log.Info("updating log level",
			logging.String("old", e.log.GetLevel().String()),
			logging.String("new", cfg.Level.String()),
		)
		e.log.SetLevel(cfg.Level.Get())
	}
	e.Config = cfg
	e.execution.ReloadConf(executionConfig)
}

func (e *Engine) flattenPreProcessors() (map[string]*core.PreProcessor, error) {
	maps := make(map[string]*core.PreProcessor)
	for _, provider := range append(e.providers, e.internalProvider) {
		for k, v := range provider.PreProcessors() {
			if _, ok := maps[k]; ok {
				return nil, ErrDuplicateInstruction
			}
			maps[k] = v
		}
	}
	return maps, nil
}

// Requests lists the supported request names with the shape of their
// params.
func (e *Engine) Requests() ([]string, map[string]interface{}) {
	preProcessors, _ := e.flattenPreProcessors()
	names := make([]string, 0, len(preProcessors))
	shapes := make(map[string]interface{}, len(preProcessors))
	for name, p := range preProcessors {
		names = append(names, name)
		shapes[name] = p.MessageShape
	}
	sort.Strings(names)
	return names, shapes
}

// ProcessInstructions runs a set of instructions in order. With
// OmitInvalidInstructions a failing instruction is recorded and the run
// goes on, the returned error then combines every failure.
func (e *Engine) ProcessInstructions(instrSet core.InstructionSet) (*core.ResultSet, error) {
	start := time.Now()
	var processed, omitted uint64
	results := make([]*core.InstructionResult, len(instrSet.Instructions))
	var errs error

	preProcessors, err := e.flattenPreProcessors()
	if err != nil {
		return nil, err
	}

	initialState, err := e.summaryGenerator.Summary()
	if err != nil {
		return nil, err
	}

	for i, instr := range instrSet.Instructions {
		preProcessor, ok := preProcessors[instr.Request]
		if !ok {
			err := multierr.Append(errs, unsupported(i, instr))
			if !e.OmitUnsupportedInstructions {
				return nil, err
			}
			errs = err
			results[i] = instr.NewResult(nil, core.ErrInstructionNotSupported)
			omitted++
			continue
		}
		p, err := preProcessor.PreProcess(instr)
		if err != nil {
			if !e.OmitInvalidInstructions {
				return nil, multierr.Append(errs, failed(i, instr, err))
			}
			errs = multierr.Append(errs, failed(i, instr, err))
			results[i] = instr.NewResult(nil, err)
			omitted++
			continue
		}
		res, err := p.Result()
		results[i] = res
		if err != nil {
			if !e.OmitInvalidInstructions {
				return nil, multierr.Append(errs, failed(i, instr, err))
			}
			errs = multierr.Append(errs, failed(i, instr, err))
			omitted++
			continue
		}
		processed++
		if e.AdvanceTimeAfterInstruction {
			e.clock.AdvanceTime(e.AdvanceDuration.Get())
		}
	}

	finalState, err := e.summaryGenerator.Summary()
	if err != nil {
		return nil, err
	}

	fills := e.executionProv.Fills()
	md := &core.Metadata{
		InstructionsProcessed: processed,
		InstructionsOmitted:   omitted,
		FillsGenerated:        fills - e.fillsReported,
		ProcessingTime:        time.Since(start),
	}
	e.fillsReported = fills

	e.log.Info("scenario processed",
		logging.String("description", instrSet.Description),
		logging.Uint64("processed", processed),
		logging.Uint64("omitted", omitted),
		logging.Uint64("fills", md.FillsGenerated),
	)

	return &core.ResultSet{
		Metadata:     md,
		Results:      results,
		InitialState: initialState,
		FinalState:   finalState,
	}, errs
}

// Summary describes the current state.
func (e *Engine) Summary() (*core.Summary, error) {
	return e.summaryGenerator.Summary()
}

// Restore loads a checkpoint into the execution engine. Restored
// accounts can be addressed by their name unless it is already taken.
func (e *Engine) Restore(cp execution.Checkpointer) error {
	if err := e.execution.Restore(cp); err != nil {
		return err
	}
	for _, id := range e.execution.AccountIDs() {
		acc, err := e.execution.Account(id)
		if err != nil {
			return err
		}
		if acc.Name == "" || e.accounts.Has(acc.Name) {
			continue
		}
		if err := e.accounts.Add(acc.Name, id); err != nil {
			return err
		}
	}
	return nil
}
