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

// Package symbols builds the symbol table of a contract set: contracts, functions
// and modifiers by name, plus the inheritance structure with its linearization.
package symbols

import (
	"errors"
	"fmt"
	"sort"

	"github.com/solguard/solguard/analysis/lang"
)

// ErrDuplicateContract is returned when two contracts in the source set share a name
var ErrDuplicateContract = errors.New("duplicate contract name")

// ErrUnknownBase is returned when a contract inherits from a name that is not
// defined in the analyzed source
var ErrUnknownBase = errors.New("unknown base contract")

// SymbolTable indexes the declarations of the contract set
type SymbolTable struct {
	// Contracts maps contract names to their definitions
	Contracts map[string]*lang.ContractDefinition

	// Functions maps qualified names (Contract.function or free name) to definitions
	Functions map[string]*lang.FunctionDefinition

	// Modifiers maps "Contract.modifier" to the modifier definition
	Modifiers map[string]*lang.ModifierDefinition

	// ContractNames are the contract names in sorted order
	ContractNames []string

	linearizations map[string][]string
}

// Build indexes the source units. Contract names must be unique across units.
func Build(units []*lang.SourceUnit) (*SymbolTable, error) {
	table := &SymbolTable{
		Contracts:      map[string]*lang.ContractDefinition{},
		Functions:      map[string]*lang.FunctionDefinition{},
		Modifiers:      map[string]*lang.ModifierDefinition{},
		linearizations: map[string][]string{},
	}
	var err error
	lang.IterateContracts(units, func(c *lang.ContractDefinition) {
		if _, ok := table.Contracts[c.Name]; ok && err == nil {
			err = fmt.Errorf("%w: %s at %s", ErrDuplicateContract, c.Name, c.Pos)
		}
		table.Contracts[c.Name] = c
		table.ContractNames = append(table.ContractNames, c.Name)
		for _, m := range c.Modifiers {
			table.Modifiers[c.Name+"."+m.Name] = m
		}
	})
	if err != nil {
		return nil, err
	}
	lang.IterateFunctions(units, func(fn *lang.FunctionDefinition) {
		table.Functions[fn.QualifiedName()] = fn
	})
	sort.Strings(table.ContractNames)
	return table, nil
}

// StateVariables returns the storage layout of a contract including inherited
// variables: base variables first, in linearization order, shadowed names excluded.
func (t *SymbolTable) StateVariables(contract string) []*lang.StateVariable {
	lin, err := t.Linearize(contract)
	if err != nil {
		c, ok := t.Contracts[contract]
		if !ok {
			return nil
		}
		return c.StateVariables
	}

	// The most-derived declaration defines a shadowed name, but the slot order
	// follows the first (most-base) declaration
	winner := map[string]*lang.StateVariable{}
	for _, name := range lin {
		c, ok := t.Contracts[name]
		if !ok {
			continue
		}
		for _, v := range c.StateVariables {
			if _, ok := winner[v.Name]; !ok {
				winner[v.Name] = v
			}
		}
	}

	seen := map[string]bool{}
	var out []*lang.StateVariable
	for i := len(lin) - 1; i >= 0; i-- {
		c, ok := t.Contracts[lin[i]]
		if !ok {
			continue
		}
		for _, v := range c.StateVariables {
			if !seen[v.Name] {
				seen[v.Name] = true
				out = append(out, winner[v.Name])
			}
		}
	}
	return out
}

// IsStateVariable reports whether name is a storage variable of the contract,
// declared locally or inherited.
func (t *SymbolTable) IsStateVariable(contract, name string) bool {
	for _, v := range t.StateVariables(contract) {
		if v.Name == name {
			return true
		}
	}
	return false
}

// LookupFunction resolves a function name from the viewpoint of a contract,
// walking the linearization the way dynamic dispatch does. Free functions are the
// fallback when no contract in the chain declares the name.
func (t *SymbolTable) LookupFunction(contract, name string) (*lang.FunctionDefinition, bool) {
	lin, err := t.Linearize(contract)
	if err != nil {
		lin = []string{contract}
	}
	for _, c := range lin {
		if fn, ok := t.Functions[c+"."+name]; ok {
			return fn, true
		}
	}
	fn, ok := t.Functions[name]
	return fn, ok
}

// LookupModifier resolves a modifier name from the viewpoint of a contract
func (t *SymbolTable) LookupModifier(contract, name string) (*lang.ModifierDefinition, bool) {
	lin, err := t.Linearize(contract)
	if err != nil {
		lin = []string{contract}
	}
	for _, c := range lin {
		if m, ok := t.Modifiers[c+"."+name]; ok {
			return m, true
		}
	}
	return nil, false
}

// DerivedFrom reports whether derived transitively inherits from base
func (t *SymbolTable) DerivedFrom(derived, base string) bool {
	lin, err := t.Linearize(derived)
	if err != nil {
		return false
	}
	for _, c := range lin[1:] {
		if c == base {
			return true
		}
	}
	return false
}
