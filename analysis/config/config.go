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

package config

import (
	"fmt"
	"os"
	"path"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/solguard/solguard/internal/funcutil"
)

// DefaultMaxIterations is the default bound on the number of worklist pops performed by the
// dataflow solver before it reports a convergence failure.
const DefaultMaxIterations = 1000

// DefaultMaxCallDepth is the default bound on the depth of the reachability search used
// for recursion detection in the call graph.
const DefaultMaxCallDepth = 100

// Config contains the solver caps, the taint problem specifications and the detector
// selection for an analysis run.
// To add elements to a config file, add fields to this struct.
// If some field is not defined in the config file, it will be empty/zero in the struct.
// private fields are not populated from a yaml file, but computed after initialization
type Config struct {
	Options

	sourceFile string

	// if the ContractFilter is specified
	contractFilterRegex *regexp.Regexp

	// TaintProblems lists the taint tracking specifications
	TaintProblems []TaintSpec `yaml:"taint-problems"`

	// Detectors lists the names of the detectors to run. An empty list means every
	// registered detector runs.
	Detectors []string `yaml:"detectors"`
}

// TaintSpec contains identifiers that define one taint tracking problem
type TaintSpec struct {
	// Sources is the list of additional taint sources, e.g. "msg.sender" or "oracle.latestAnswer"
	Sources []string `yaml:"sources"`

	// Sinks is the list of additional sinks for the taint analysis
	Sinks []string `yaml:"sinks"`

	// Sanitizers is the list of function names whose return values are considered clean
	Sanitizers []string `yaml:"sanitizers"`
}

// Options groups the scalar settings of the configuration
type Options struct {
	// ReportsDir is the directory where the reports will be stored. If the config file does
	// not specify a ReportsDir but sets any Report* option to true, then ReportsDir will be
	// created in the folder the binary is called.
	ReportsDir string `yaml:"reports-dir"`

	// ContractFilter restricts analysis to the contracts whose name matches the regex
	ContractFilter string `yaml:"contract-filter"`

	// MaxIterations bounds the number of worklist iterations of the dataflow solver.
	// If <= 0, the default of 1000 is used.
	MaxIterations int `yaml:"max-iterations"`

	// MaxCallDepth bounds the depth of the recursion-detection reachability search.
	// If <= 0, the default of 100 is used.
	MaxCallDepth int `yaml:"max-call-depth"`

	// NumWorkers is the number of goroutines used for the per-function analyses.
	// If <= 0, the analyses run on a single goroutine.
	NumWorkers int `yaml:"num-workers"`

	// ReportSarif selects SARIF output instead of the plain text report
	ReportSarif bool `yaml:"report-sarif"`

	// LogLevel controls the verbosity of the tool
	LogLevel int `yaml:"log-level"`

	// SilenceWarn suppresses warnings
	SilenceWarn bool `yaml:"silence-warn"`
}

// NewDefault returns an empty default config.
func NewDefault() *Config {
	return &Config{
		sourceFile:    "",
		TaintProblems: nil,
		Detectors:     nil,
		Options: Options{
			ReportsDir:     "",
			ContractFilter: "",
			MaxIterations:  DefaultMaxIterations,
			MaxCallDepth:   DefaultMaxCallDepth,
			NumWorkers:     1,
			ReportSarif:    false,
			LogLevel:       int(InfoLevel),
			SilenceWarn:    false,
		},
	}
}

// Load reads a configuration from a file
func Load(filename string) (*Config, error) {
	cfg := NewDefault()
	b, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("could not read config file: %w", err)
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("could not unmarshal config file: %w", err)
	}

	cfg.sourceFile = filename

	// If LogLevel has not been specified (i.e. it is 0) set the default to Info
	if cfg.LogLevel == 0 {
		cfg.LogLevel = int(InfoLevel)
	}

	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = DefaultMaxIterations
	}

	if cfg.MaxCallDepth <= 0 {
		cfg.MaxCallDepth = DefaultMaxCallDepth
	}

	if cfg.ContractFilter != "" {
		r, err := regexp.Compile(cfg.ContractFilter)
		if err == nil {
			cfg.contractFilterRegex = r
		}
	}

	return cfg, nil
}

// RelPath returns filename path relative to the config source file
func (c Config) RelPath(filename string) string {
	return path.Join(path.Dir(c.sourceFile), filename)
}

// MatchContractFilter returns true if the contract name matches the contract filter set in
// the config file. If no filter has been set, it matches anything. This function safely
// considers the case where a filter has been specified by the user but could not be
// compiled to a regex; the safe fallback is a prefix check.
func (c Config) MatchContractFilter(contractName string) bool {
	if c.contractFilterRegex != nil {
		return c.contractFilterRegex.MatchString(contractName)
	} else if c.ContractFilter != "" {
		return strings.HasPrefix(contractName, c.ContractFilter)
	}
	return true
}

// RunsDetector returns true if the named detector is selected by the configuration. An
// empty detector list selects every detector.
func (c Config) RunsDetector(name string) bool {
	return len(c.Detectors) == 0 || funcutil.Contains(c.Detectors, name)
}

// IsExtraSource returns true if the identifier matches a source in some taint problem spec
func (c Config) IsExtraSource(ident string) bool {
	for _, spec := range c.TaintProblems {
		for _, s := range spec.Sources {
			if s == ident {
				return true
			}
		}
	}
	return false
}

// IsExtraSink returns true if the identifier matches a sink in some taint problem spec
func (c Config) IsExtraSink(ident string) bool {
	for _, spec := range c.TaintProblems {
		for _, s := range spec.Sinks {
			if s == ident {
				return true
			}
		}
	}
	return false
}

// IsSanitizer returns true if the function name matches a sanitizer in some taint problem spec
func (c Config) IsSanitizer(funcName string) bool {
	for _, spec := range c.TaintProblems {
		for _, s := range spec.Sanitizers {
			if s == funcName {
				return true
			}
		}
	}
	return false
}

// Verbose returns true if the configuration verbosity setting is larger than Info (i.e. Debug or Trace)
func (c Config) Verbose() bool {
	return c.LogLevel >= int(DebugLevel)
}

// ExceedsMaxDepth returns true if the input exceeds the maximum call depth parameter of the
// configuration (if the configuration setting is <= 0, then this returns false)
func (c Config) ExceedsMaxDepth(d int) bool {
	if c.MaxCallDepth <= 0 {
		return false
	}
	return d > c.MaxCallDepth
}
