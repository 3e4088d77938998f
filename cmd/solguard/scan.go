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

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/solguard/solguard/analysis"
	"github.com/solguard/solguard/analysis/config"
	"github.com/solguard/solguard/analysis/detectors"
	"github.com/solguard/solguard/analysis/lang"
	"github.com/solguard/solguard/analysis/report"
)

func newScanCmd() *cobra.Command {
	var (
		configPath string
		format     string
		outFile    string
		failOn     string
		selected   []string
	)
	cmd := &cobra.Command{
		Use:   "scan <ast.json> [<ast.json> ...]",
		Short: "Run the analyses and detectors over exported contract ASTs",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			if len(selected) > 0 {
				conf.Detectors = selected
			}
			if format == "sarif" {
				conf.ReportSarif = true
			}

			units, err := loadUnits(args)
			if err != nil {
				return err
			}

			logger := config.NewLogGroup(conf)
			state := analysis.NewState(units, conf, logger)
			if err := analysis.RunStandardPasses(state); err != nil {
				return fmt.Errorf("analysis failed: %w", err)
			}
			bugs := detectors.RunAll(state)

			if err := writeReport(cmd, conf, outFile, bugs); err != nil {
				return err
			}
			return checkFailOn(failOn, bugs)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to the yaml configuration file")
	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text|sarif")
	cmd.Flags().StringVarP(&outFile, "out", "o", "", "Write the report to a file instead of stdout")
	cmd.Flags().StringVar(&failOn, "fail-on", "", "Exit nonzero when a finding of this risk or higher exists (info|low|medium|high|critical)")
	cmd.Flags().StringSliceVar(&selected, "detectors", nil, "Run only the named detectors (overrides the config)")
	return cmd
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.NewDefault(), nil
	}
	conf, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	return conf, nil
}

// loadUnits reads and decodes each exported AST file. Units from all files are
// analyzed as one program so cross-file inheritance and calls resolve.
func loadUnits(paths []string) ([]*lang.SourceUnit, error) {
	var units []*lang.SourceUnit
	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			return nil, fmt.Errorf("could not open %s: %w", p, err)
		}
		decoded, err := lang.DecodeSourceUnits(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("could not decode %s: %w", p, err)
		}
		units = append(units, decoded...)
	}
	return units, nil
}

func writeReport(cmd *cobra.Command, conf *config.Config, outFile string, bugs []report.Bug) error {
	if conf.ReportSarif {
		data, err := report.ToSARIF(bugs)
		if err != nil {
			return err
		}
		return writeOut(cmd, conf, outFile, "solguard.sarif", data)
	}

	if outFile == "" && conf.ReportsDir == "" {
		return report.WriteText(cmd.OutOrStdout(), bugs)
	}
	f, path, err := openOut(conf, outFile, "solguard.txt")
	if err != nil {
		return err
	}
	defer f.Close()
	if err := report.WriteText(f, bugs); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "report written to %s\n", path)
	return nil
}

func writeOut(cmd *cobra.Command, conf *config.Config, outFile, defaultName string, data []byte) error {
	if outFile == "" && conf.ReportsDir == "" {
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	}
	f, path, err := openOut(conf, outFile, defaultName)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.Write(data); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "report written to %s\n", path)
	return nil
}

// openOut resolves the report destination: an explicit --out wins, otherwise the
// file is placed under the configured reports directory.
func openOut(conf *config.Config, outFile, defaultName string) (*os.File, string, error) {
	path := outFile
	if path == "" {
		if err := os.MkdirAll(conf.ReportsDir, 0o750); err != nil {
			return nil, "", fmt.Errorf("could not create reports directory: %w", err)
		}
		path = filepath.Join(conf.ReportsDir, defaultName)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, "", fmt.Errorf("could not create report file: %w", err)
	}
	return f, path, nil
}

func checkFailOn(failOn string, bugs []report.Bug) error {
	if failOn == "" {
		return nil
	}
	threshold, err := report.ParseRiskLevel(failOn)
	if err != nil {
		return err
	}
	for _, b := range bugs {
		if b.Risk >= threshold {
			return fmt.Errorf("finding at or above %s risk: %s (%s)", threshold, b.Detector, b.Message)
		}
	}
	return nil
}
