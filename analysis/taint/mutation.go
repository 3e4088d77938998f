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

package taint

import (
	"sort"

	"github.com/solguard/solguard/analysis/lang"
	"github.com/solguard/solguard/analysis/symbols"
)

// StateMutationMap records which functions read and write which storage variables.
// Variables are keyed "Contract.variable"; functions by their qualified name. The
// four indexes are kept consistent: an entry in WritesByFunc has its mirror in
// WritersByVar, and likewise for reads.
type StateMutationMap struct {
	ReadsByFunc  map[string][]string
	WritesByFunc map[string][]string
	ReadersByVar map[string][]string
	WritersByVar map[string][]string
}

// Writes returns the storage variables the function may write
func (m *StateMutationMap) Writes(fn string) []string { return m.WritesByFunc[fn] }

// Reads returns the storage variables the function may read
func (m *StateMutationMap) Reads(fn string) []string { return m.ReadsByFunc[fn] }

// Writers returns the functions that may write the storage variable
func (m *StateMutationMap) Writers(varKey string) []string { return m.WritersByVar[varKey] }

// Readers returns the functions that may read the storage variable
func (m *StateMutationMap) Readers(varKey string) []string { return m.ReadersByVar[varKey] }

// WritesState reports whether the function writes any storage variable
func (m *StateMutationMap) WritesState(fn string) bool { return len(m.WritesByFunc[fn]) > 0 }

// BuildMutationMap scans every contract function for reads and writes of storage
// variables. Parameters and local declarations shadow storage names.
func BuildMutationMap(units []*lang.SourceUnit, table *symbols.SymbolTable) *StateMutationMap {
	m := &StateMutationMap{
		ReadsByFunc:  map[string][]string{},
		WritesByFunc: map[string][]string{},
		ReadersByVar: map[string][]string{},
		WritersByVar: map[string][]string{},
	}

	lang.IterateContracts(units, func(c *lang.ContractDefinition) {
		stateVars := map[string]bool{}
		for _, v := range table.StateVariables(c.Name) {
			stateVars[v.Name] = true
		}
		for _, fn := range c.Functions {
			m.scanFunction(c.Name, fn, stateVars)
		}
	})

	for _, idx := range []map[string][]string{m.ReadsByFunc, m.WritesByFunc, m.ReadersByVar, m.WritersByVar} {
		for k, vals := range idx {
			idx[k] = dedupSorted(vals)
		}
	}
	return m
}

func (m *StateMutationMap) scanFunction(contract string, fn *lang.FunctionDefinition, stateVars map[string]bool) {
	qn := fn.QualifiedName()

	shadowed := map[string]bool{}
	for _, p := range fn.Parameters {
		shadowed[p.Name] = true
	}
	for _, p := range fn.Returns {
		shadowed[p.Name] = true
	}
	lang.VisitStatements(fn.Body, func(stmt lang.Statement) {
		if decl, ok := stmt.(*lang.VariableDeclaration); ok {
			for _, n := range decl.Names {
				shadowed[n] = true
			}
		}
	})

	record := func(name string, write bool) {
		if !stateVars[name] || shadowed[name] {
			return
		}
		key := contract + "." + name
		if write {
			m.WritesByFunc[qn] = append(m.WritesByFunc[qn], key)
			m.WritersByVar[key] = append(m.WritersByVar[key], qn)
		} else {
			m.ReadsByFunc[qn] = append(m.ReadsByFunc[qn], key)
			m.ReadersByVar[key] = append(m.ReadersByVar[key], qn)
		}
	}

	var scanRead func(e lang.Expression)
	var scanWrite func(e lang.Expression)

	scanRead = func(e lang.Expression) {
		switch x := e.(type) {
		case nil:
		case *lang.Identifier:
			record(x.Name, false)
		case *lang.MemberAccess:
			scanRead(x.Base)
		case *lang.IndexAccess:
			scanRead(x.Base)
			scanRead(x.Index)
		case *lang.CallExpression:
			scanRead(x.Callee)
			scanRead(x.Value)
			for _, a := range x.Args {
				scanRead(a)
			}
		case *lang.Assignment:
			scanWrite(x.LHS)
			// compound operators read the target before writing it
			if x.Operator != "=" {
				for _, name := range lang.AssignedNames(x.LHS) {
					record(name, false)
				}
			}
			scanRead(x.RHS)
		case *lang.BinaryExpression:
			scanRead(x.Left)
			scanRead(x.Right)
		case *lang.UnaryExpression:
			// increment and decrement both read and write their operand
			if x.Operator == "++" || x.Operator == "--" {
				for _, name := range lang.AssignedNames(x.Operand) {
					record(name, true)
				}
			}
			scanRead(x.Operand)
		case *lang.TupleExpression:
			for _, c := range x.Components {
				scanRead(c)
			}
		}
	}

	scanWrite = func(e lang.Expression) {
		switch x := e.(type) {
		case nil:
		case *lang.Identifier:
			record(x.Name, true)
		case *lang.MemberAccess:
			scanWrite(x.Base)
		case *lang.IndexAccess:
			scanWrite(x.Base)
			scanRead(x.Index)
		case *lang.TupleExpression:
			for _, c := range x.Components {
				scanWrite(c)
			}
		default:
			scanRead(e)
		}
	}

	lang.VisitStatements(fn.Body, func(stmt lang.Statement) {
		for _, e := range lang.StatementExpressions(stmt) {
			scanRead(e)
		}
	})
}

func dedupSorted(vals []string) []string {
	sort.Strings(vals)
	out := vals[:0]
	var prev string
	for i, v := range vals {
		if i == 0 || v != prev {
			out = append(out, v)
		}
		prev = v
	}
	return out
}
