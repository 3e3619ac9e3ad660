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
	"os"

	"github.com/spf13/cobra"
)

const (
	outputFlagName     = "output"
	outputFlagValYAML  = "yaml"
	outputFlagValHuman = "human"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "xmargintools",
	Short: "A collection of tools to inspect xmargin state databases",
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		mode, err := cmd.Flags().GetString(colorFlagName)
		if err != nil {
			return err
		}
		return setColor(mode, os.Stdout.Fd())
	},
}

// Execute is the main function of `commands` package.
// Usually called by the `main.main()`.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String(outputFlagName, outputFlagValHuman, "Specify the output format: yaml,human")
	rootCmd.PersistentFlags().String(colorFlagName, colorFlagValAuto, "Color the human output: auto,always,never")
	rootCmd.AddCommand(stateCmd)
	rootCmd.AddCommand(versionCmd)
}
