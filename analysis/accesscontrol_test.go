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
	"testing"

	"github.com/solguard/solguard/analysis/lang"
	"github.com/solguard/solguard/analysis/symbols"
)

func requireCallerCheck() lang.Statement {
	// require(msg.sender == owner)
	return &lang.ExpressionStatement{Expression: &lang.CallExpression{
		Callee: &lang.Identifier{Name: "require"},
		Args: []lang.Expression{&lang.BinaryExpression{
			Left:     &lang.MemberAccess{Base: &lang.Identifier{Name: "msg"}, Member: "sender"},
			Operator: "==",
			Right:    &lang.Identifier{Name: "owner"},
		}},
	}}
}

func TestAccessControl(t *testing.T) {
	contract := &lang.ContractDefinition{
		Name: "Admin",
		Kind: lang.KindContract,
		Modifiers: []*lang.ModifierDefinition{
			// guard by naming convention
			{Name: "onlyOwner", Body: []lang.Statement{&lang.PlaceholderStatement{}}},
			// guard by body shape
			{Name: "auth", Body: []lang.Statement{requireCallerCheck(), &lang.PlaceholderStatement{}}},
			// not a guard
			{Name: "whenNotPaused", Body: []lang.Statement{
				&lang.ExpressionStatement{Expression: &lang.CallExpression{
					Callee: &lang.Identifier{Name: "require"},
					Args:   []lang.Expression{&lang.UnaryExpression{Operator: "!", Operand: &lang.Identifier{Name: "paused"}, Prefix: true}},
				}},
				&lang.PlaceholderStatement{},
			}},
		},
		Functions: []*lang.FunctionDefinition{
			{Name: "setOwner", Contract: "Admin", Visibility: lang.Public,
				Modifiers: []lang.ModifierInvocation{{Name: "onlyOwner"}}},
			{Name: "configure", Contract: "Admin", Visibility: lang.Public,
				Modifiers: []lang.ModifierInvocation{{Name: "auth"}}},
			{Name: "pause", Contract: "Admin", Visibility: lang.Public,
				Modifiers: []lang.ModifierInvocation{{Name: "whenNotPaused"}}},
			{Name: "sweep", Contract: "Admin", Visibility: lang.Public,
				Body: []lang.Statement{requireCallerCheck()}},
			{Name: "open", Contract: "Admin", Visibility: lang.Public},
		},
	}
	units := []*lang.SourceUnit{{Path: "admin.sol", Contracts: []*lang.ContractDefinition{contract}}}
	table, err := symbols.Build(units)
	if err != nil {
		t.Fatal(err)
	}

	info := BuildAccessControl(units, table)

	if !info.GuardModifiers["Admin.onlyOwner"] {
		t.Error("onlyOwner should be a guard by naming convention")
	}
	if !info.GuardModifiers["Admin.auth"] {
		t.Error("auth should be a guard by body shape")
	}
	if info.GuardModifiers["Admin.whenNotPaused"] {
		t.Error("whenNotPaused does not check the caller")
	}

	for fn, want := range map[string]bool{
		"Admin.setOwner":  true,
		"Admin.configure": true,
		"Admin.pause":     false,
		"Admin.sweep":     true,
		"Admin.open":      false,
	} {
		if got := info.IsGuarded(fn); got != want {
			t.Errorf("IsGuarded(%s) = %v, want %v", fn, got, want)
		}
	}
}

func TestAccessControlInheritedModifier(t *testing.T) {
	base := &lang.ContractDefinition{
		Name: "Ownable",
		Kind: lang.KindContract,
		Modifiers: []*lang.ModifierDefinition{
			{Name: "onlyOwner", Body: []lang.Statement{&lang.PlaceholderStatement{}}},
		},
	}
	derived := &lang.ContractDefinition{
		Name:  "Treasury",
		Kind:  lang.KindContract,
		Bases: []string{"Ownable"},
		Functions: []*lang.FunctionDefinition{
			{Name: "drain", Contract: "Treasury", Visibility: lang.Public,
				Modifiers: []lang.ModifierInvocation{{Name: "onlyOwner"}}},
		},
	}
	units := []*lang.SourceUnit{{Path: "t.sol", Contracts: []*lang.ContractDefinition{base, derived}}}
	table, err := symbols.Build(units)
	if err != nil {
		t.Fatal(err)
	}

	info := BuildAccessControl(units, table)
	if !info.IsGuarded("Treasury.drain") {
		t.Error("guard modifier inherited from a base should protect the function")
	}
}
