// Copyright the solguard authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Command solguard runs the static analyses and bug detectors over contract
// sources that have been exported to the JSON AST format.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/solguard/solguard/analysis"
	"github.com/solguard/solguard/analysis/detectors"
	"github.com/solguard/solguard/internal/funcutil"
)

func main() {
	root := &cobra.Command{
		Use:           "solguard",
		Short:         "Static analysis and bug detection for smart contracts",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       analysis.Version,
	}
	root.AddCommand(newScanCmd())
	root.AddCommand(newDetectorsCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newDetectorsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "detectors",
		Short: "List the registered detectors",
		RunE: func(cmd *cobra.Command, _ []string) error {
			funcutil.Iter(detectors.All(), func(d detectors.Detector) {
				fmt.Fprintln(cmd.OutOrStdout(), d.Name())
			})
			return nil
		},
	}
}
