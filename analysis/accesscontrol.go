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

package analysis

import (
	"strings"

	"github.com/solguard/solguard/analysis/lang"
	"github.com/solguard/solguard/analysis/symbols"
)

// AccessControlInfo summarizes the authorization structure of the contract set:
// which modifiers act as caller checks and which functions are protected by them.
type AccessControlInfo struct {
	// GuardModifiers holds "Contract.modifier" keys for modifiers recognized as
	// caller checks
	GuardModifiers map[string]bool

	// GuardsByFunction maps qualified function names to the guard modifiers
	// applied to them
	GuardsByFunction map[string][]string

	// InlineGuards holds functions whose body checks the caller directly, through
	// require or an if/revert on msg.sender
	InlineGuards map[string]bool
}

// IsGuarded reports whether the function is protected by a guard modifier or an
// inline caller check
func (a *AccessControlInfo) IsGuarded(fn string) bool {
	return len(a.GuardsByFunction[fn]) > 0 || a.InlineGuards[fn]
}

// BuildAccessControl scans modifiers and function bodies for caller checks. A
// modifier counts as a guard when its name carries the conventional "only" prefix
// or when its body inspects msg.sender or tx.origin.
func BuildAccessControl(units []*lang.SourceUnit, table *symbols.SymbolTable) *AccessControlInfo {
	info := &AccessControlInfo{
		GuardModifiers:   map[string]bool{},
		GuardsByFunction: map[string][]string{},
		InlineGuards:     map[string]bool{},
	}

	lang.IterateContracts(units, func(c *lang.ContractDefinition) {
		for _, m := range c.Modifiers {
			if isGuardModifier(m) {
				info.GuardModifiers[c.Name+"."+m.Name] = true
			}
		}
	})

	lang.IterateContracts(units, func(c *lang.ContractDefinition) {
		for _, fn := range c.Functions {
			qn := fn.QualifiedName()
			lin, err := table.Linearize(c.Name)
			if err != nil {
				lin = []string{c.Name}
			}
			for _, inv := range fn.Modifiers {
				// the defining contract may be a base of c
				for _, owner := range lin {
					if _, ok := table.Modifiers[owner+"."+inv.Name]; !ok {
						continue
					}
					if info.GuardModifiers[owner+"."+inv.Name] {
						info.GuardsByFunction[qn] = append(info.GuardsByFunction[qn], inv.Name)
					}
					break
				}
			}
			if hasInlineCallerCheck(fn.Body) {
				info.InlineGuards[qn] = true
			}
		}
	})
	return info
}

func isGuardModifier(m *lang.ModifierDefinition) bool {
	if strings.HasPrefix(strings.ToLower(m.Name), "only") {
		return true
	}
	return hasInlineCallerCheck(m.Body)
}

// hasInlineCallerCheck reports whether the statements check the transaction caller:
// a require/assert over msg.sender or tx.origin, or an if on the caller guarding a
// revert.
func hasInlineCallerCheck(body []lang.Statement) bool {
	found := false
	lang.VisitStatements(body, func(stmt lang.Statement) {
		if found {
			return
		}
		switch s := stmt.(type) {
		case *lang.ExpressionStatement:
			call, ok := s.Expression.(*lang.CallExpression)
			if !ok {
				return
			}
			callee, ok := call.Callee.(*lang.Identifier)
			if !ok || (callee.Name != "require" && callee.Name != "assert") {
				return
			}
			for _, arg := range call.Args {
				if mentionsCaller(arg) {
					found = true
					return
				}
			}
		case *lang.IfStatement:
			if mentionsCaller(s.Condition) && endsInRevert(s.Then) {
				found = true
			}
		}
	})
	return found
}

func mentionsCaller(e lang.Expression) bool {
	found := false
	lang.VisitExprTree(e, func(x lang.Expression) {
		if ma, ok := x.(*lang.MemberAccess); ok {
			printed := lang.ExprString(ma)
			if printed == "msg.sender" || printed == "tx.origin" {
				found = true
			}
		}
	})
	return found
}

func endsInRevert(body []lang.Statement) bool {
	reverts := false
	lang.VisitStatements(body, func(stmt lang.Statement) {
		switch s := stmt.(type) {
		case *lang.RevertStatement:
			reverts = true
		case *lang.ExpressionStatement:
			if call, ok := s.Expression.(*lang.CallExpression); ok {
				if id, ok := call.Callee.(*lang.Identifier); ok && id.Name == "revert" {
					reverts = true
				}
			}
		}
	})
	return reverts
}
