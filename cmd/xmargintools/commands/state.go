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
	"os"
	"strconv"

	"github.com/xmargin/xmargin/config"
	"github.com/xmargin/xmargin/logging"
	"github.com/xmargin/xmargin/tools/statedb"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"
)

var (
	dbPath string

	stateCmd = &cobra.Command{
		Use:   "state",
		Short: "Inspect the last checkpoint of a state database",
	}
	stateHashCmd = &cobra.Command{
		Use:   "hash",
		Short: "Print the hash and size of the last checkpoint",
		RunE:  runStateHash,
	}
	stateSummaryCmd = &cobra.Command{
		Use:   "summary",
		Short: "Print the banks, markets and accounts of the last checkpoint",
		RunE:  runStateSummary,
	}
	stateAccountCmd = &cobra.Command{
		Use:   "account <id>",
		Short: "Print a single account of the last checkpoint",
		Args:  cobra.ExactArgs(1),
		RunE:  runStateAccount,
	}
)

func init() {
	stateCmd.PersistentFlags().StringVarP(&dbPath, "db-path", "d", "", "path to the state database, defaults to the one under the xmargin home")
	stateCmd.AddCommand(stateHashCmd)
	stateCmd.AddCommand(stateSummaryCmd)
	stateCmd.AddCommand(stateAccountCmd)
}

func quietLogger() *logging.Logger {
	log := logging.NewProdLogger()
	log.SetLevel(logging.WarnLevel)
	return log
}

// statePath falls back to the store configured under the default root
// path.
func statePath() (string, error) {
	if dbPath != "" {
		return dbPath, nil
	}
	cfg, err := config.Read(config.DefaultRootPath())
	if err != nil {
		return "", err
	}
	if cfg.Store.Path == "" {
		return "", errors.New("the configured store is in memory, use --db-path")
	}
	return cfg.Store.Path, nil
}

func outputFormat(cmd *cobra.Command) (string, error) {
	output, err := cmd.Flags().GetString(outputFlagName)
	if err != nil {
		return "", err
	}
	switch output {
	case outputFlagValHuman, outputFlagValYAML:
		return output, nil
	default:
		return "", fmt.Errorf("%s flag must be either %q or %q", outputFlagName, outputFlagValHuman, outputFlagValYAML)
	}
}

func printYAML(v interface{}) error {
	b, err := yaml.Marshal(v)
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(b)
	return err
}

func runStateHash(cmd *cobra.Command, _ []string) error {
	output, err := outputFormat(cmd)
	if err != nil {
		return err
	}
	log := quietLogger()
	defer log.AtExit()

	path, err := statePath()
	if err != nil {
		return err
	}
	data, err := statedb.StateData(log, path)
	if err != nil {
		return err
	}
	if output == outputFlagValYAML {
		return printYAML(data)
	}
	fmt.Printf("Hash: %s\n", data.Hash)
	fmt.Printf("\tBanks: %d, Markets: %d, Accounts: %d\n", data.Banks, data.Markets, data.Accounts)
	if data.Insurance != "" {
		fmt.Printf("\tInsurance fund: %s\n", data.Insurance)
	}
	return nil
}

func runStateSummary(cmd *cobra.Command, _ []string) error {
	if _, err := outputFormat(cmd); err != nil {
		return err
	}
	log := quietLogger()
	defer log.AtExit()

	// a summary is too nested for a human layout
	path, err := statePath()
	if err != nil {
		return err
	}
	summary, err := statedb.Summary(log, path)
	if err != nil {
		return err
	}
	return printYAML(summary)
}

func runStateAccount(cmd *cobra.Command, args []string) error {
	output, err := outputFormat(cmd)
	if err != nil {
		return err
	}
	log := quietLogger()
	defer log.AtExit()

	path, err := statePath()
	if err != nil {
		return err
	}
	acc, err := statedb.AccountData(log, path, args[0])
	if err != nil {
		return err
	}
	if output == outputFlagValYAML {
		return printYAML(acc)
	}
	fmt.Printf("Account %s (%s)\n", acc.ID, acc.Name)
	if acc.BeingLiquidated {
		fmt.Println("\t" + red("being liquidated"))
	}
	for _, t := range acc.Tokens {
		fmt.Printf("\tToken %d: %s\n", t.TokenIndex, signed(t.Balance))
	}
	for _, p := range acc.Perps {
		fmt.Printf("\tMarket %d: base %s lots, quote %s, bids %d, asks %d\n",
			p.MarketIndex, signed(strconv.FormatInt(p.BaseLots, 10)), signed(p.Quote), p.BidsLots, p.AsksLots)
	}
	return nil
}
