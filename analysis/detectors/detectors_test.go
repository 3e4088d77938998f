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

package detectors

import (
	"testing"

	"github.com/solguard/solguard/analysis"
	"github.com/solguard/solguard/analysis/config"
	"github.com/solguard/solguard/analysis/lang"
	"github.com/solguard/solguard/analysis/report"
)

func ident(name string) *lang.Identifier { return &lang.Identifier{Name: name} }

func msgSender() lang.Expression {
	return &lang.MemberAccess{Base: ident("msg"), Member: "sender"}
}

// balances[msg.sender] = <rhs>
func writeBalance(rhs lang.Expression, line int) lang.Statement {
	return &lang.ExpressionStatement{
		Expression: &lang.Assignment{
			LHS:      &lang.IndexAccess{Base: ident("balances"), Index: msgSender()},
			Operator: "=",
			RHS:      rhs,
		},
		Pos: lang.Pos{File: "t.sol", Line: line},
	}
}

// msg.sender.call{value: amount}("")
func lowLevelSend(line int) lang.Statement {
	pos := lang.Pos{File: "t.sol", Line: line}
	return &lang.ExpressionStatement{
		Expression: &lang.CallExpression{
			Callee: &lang.MemberAccess{Base: msgSender(), Member: "call", Pos: pos},
			Args:   []lang.Expression{&lang.Literal{Kind: "string", Value: ""}},
			Value:  ident("amount"),
			Pos:    pos,
		},
		Pos: pos,
	}
}

func runPipeline(t *testing.T, contracts ...*lang.ContractDefinition) *analysis.State {
	t.Helper()
	conf := config.NewDefault()
	conf.LogLevel = int(config.ErrLevel)
	units := []*lang.SourceUnit{{Path: "t.sol", Contracts: contracts}}
	s := analysis.NewState(units, conf, config.NewLogGroup(conf))
	if err := analysis.RunStandardPasses(s); err != nil {
		t.Fatal(err)
	}
	return s
}

func findByDetector(bugs []report.Bug, name string) []report.Bug {
	var out []report.Bug
	for _, b := range bugs {
		if b.Detector == name {
			out = append(out, b)
		}
	}
	return out
}

func vaultContract(withGuard bool) *lang.ContractDefinition {
	withdraw := &lang.FunctionDefinition{
		Name: "withdraw", Contract: "Vault", Visibility: lang.External,
		Parameters: []*lang.Parameter{{Name: "amount", Type: "uint256"}},
		Body: []lang.Statement{
			lowLevelSend(10),
			writeBalance(&lang.Literal{Kind: "number", Value: "0"}, 11),
		},
	}
	if withGuard {
		withdraw.Modifiers = []lang.ModifierInvocation{{Name: "nonReentrant"}}
	}
	return &lang.ContractDefinition{
		Name: "Vault",
		Kind: lang.KindContract,
		StateVariables: []*lang.StateVariable{
			{Name: "balances", Type: "mapping(address => uint256)"},
		},
		Functions: []*lang.FunctionDefinition{withdraw},
	}
}

func TestReentrancyDetected(t *testing.T) {
	s := runPipeline(t, vaultContract(false))
	bugs := RunAll(s)

	re := findByDetector(bugs, "reentrancy")
	if len(re) != 1 {
		t.Fatalf("got %d reentrancy findings, want 1: %+v", len(re), bugs)
	}
	if re[0].Risk != report.High || re[0].SWC != "SWC-107" {
		t.Errorf("unexpected grading: %+v", re[0])
	}
	if re[0].Kind != report.Vulnerability {
		t.Errorf("kind = %s, want vulnerability", re[0].Kind)
	}
	// no taint on the call base and no call cycle: the medium grade stands
	if re[0].Conf != report.MediumConfidence {
		t.Errorf("confidence = %s, want medium", re[0].Conf)
	}
	// the ordering detector flags the same shape
	if len(findByDetector(bugs, "checks-effects-interactions")) != 1 {
		t.Errorf("ordering violation should also be reported: %+v", bugs)
	}
}

func TestReentrancyGuardSuppresses(t *testing.T) {
	s := runPipeline(t, vaultContract(true))
	bugs := RunAll(s)

	if len(findByDetector(bugs, "reentrancy")) != 0 {
		t.Errorf("guarded function should not be reported: %+v", bugs)
	}
	if len(findByDetector(bugs, "checks-effects-interactions")) != 0 {
		t.Errorf("guarded function should not be reported by the ordering detector: %+v", bugs)
	}
}

func TestReentrancyCycleRaisesConfidence(t *testing.T) {
	// withdraw sits on a call cycle through helper, so re-entry is structurally
	// possible even without taint on the call base
	withdraw := &lang.FunctionDefinition{
		Name: "withdraw", Contract: "Loop", Visibility: lang.External,
		Parameters: []*lang.Parameter{{Name: "amount", Type: "uint256"}},
		Body: []lang.Statement{
			lowLevelSend(10),
			writeBalance(&lang.Literal{Kind: "number", Value: "0"}, 11),
			&lang.ExpressionStatement{Expression: &lang.CallExpression{Callee: ident("helper")}},
		},
	}
	helper := &lang.FunctionDefinition{
		Name: "helper", Contract: "Loop", Visibility: lang.Internal,
		Body: []lang.Statement{
			&lang.ExpressionStatement{Expression: &lang.CallExpression{Callee: ident("withdraw")}},
		},
	}
	loop := &lang.ContractDefinition{
		Name: "Loop",
		Kind: lang.KindContract,
		StateVariables: []*lang.StateVariable{
			{Name: "balances", Type: "mapping(address => uint256)"},
		},
		Functions: []*lang.FunctionDefinition{withdraw, helper},
	}

	re := findByDetector(RunAll(runPipeline(t, loop)), "reentrancy")
	if len(re) != 1 {
		t.Fatalf("got %d reentrancy findings, want 1: %+v", len(re), re)
	}
	if re[0].Conf != report.HighConfidence {
		t.Errorf("cycle membership should raise confidence to high, got %s", re[0].Conf)
	}
}

func TestCeiWithoutReentrancy(t *testing.T) {
	// transfer forwards a fixed stipend: ordering violation but not re-enterable
	payout := &lang.FunctionDefinition{
		Name: "payout", Contract: "Pay", Visibility: lang.Public,
		Body: []lang.Statement{
			&lang.ExpressionStatement{
				Expression: &lang.CallExpression{
					Callee: &lang.MemberAccess{Base: ident("recipient"), Member: "transfer"},
					Args:   []lang.Expression{ident("reward")},
				},
				Pos: lang.Pos{File: "t.sol", Line: 5},
			},
			&lang.ExpressionStatement{
				Expression: &lang.Assignment{LHS: ident("reward"), Operator: "=", RHS: &lang.Literal{Kind: "number", Value: "0"}},
				Pos:        lang.Pos{File: "t.sol", Line: 6},
			},
		},
	}
	pay := &lang.ContractDefinition{
		Name:           "Pay",
		Kind:           lang.KindContract,
		StateVariables: []*lang.StateVariable{{Name: "reward", Type: "uint256"}},
		Functions:      []*lang.FunctionDefinition{payout},
	}

	bugs := RunAll(runPipeline(t, pay))
	if len(findByDetector(bugs, "checks-effects-interactions")) != 1 {
		t.Errorf("ordering violation expected: %+v", bugs)
	}
	if len(findByDetector(bugs, "reentrancy")) != 0 {
		t.Errorf("transfer should not count as re-enterable: %+v", bugs)
	}
}

func TestWriteBeforeCallIsClean(t *testing.T) {
	withdraw := &lang.FunctionDefinition{
		Name: "withdraw", Contract: "Safe", Visibility: lang.External,
		Parameters: []*lang.Parameter{{Name: "amount", Type: "uint256"}},
		Body: []lang.Statement{
			writeBalance(&lang.Literal{Kind: "number", Value: "0"}, 9),
			lowLevelSend(10),
		},
	}
	safe := &lang.ContractDefinition{
		Name:           "Safe",
		Kind:           lang.KindContract,
		StateVariables: []*lang.StateVariable{{Name: "balances", Type: "mapping(address => uint256)"}},
		Functions:      []*lang.FunctionDefinition{withdraw},
	}

	bugs := RunAll(runPipeline(t, safe))
	if len(findByDetector(bugs, "reentrancy")) != 0 {
		t.Errorf("effects before interaction should be clean: %+v", bugs)
	}
}

func TestMissingAccessControl(t *testing.T) {
	setOwner := &lang.FunctionDefinition{
		Name: "setOwner", Contract: "Reg", Visibility: lang.Public,
		Parameters: []*lang.Parameter{{Name: "next", Type: "address"}},
		Body: []lang.Statement{
			&lang.ExpressionStatement{Expression: &lang.Assignment{
				LHS: ident("owner"), Operator: "=", RHS: ident("next"),
			}},
		},
	}
	reg := &lang.ContractDefinition{
		Name:           "Reg",
		Kind:           lang.KindContract,
		StateVariables: []*lang.StateVariable{{Name: "owner", Type: "address"}},
		Functions:      []*lang.FunctionDefinition{setOwner},
		Modifiers: []*lang.ModifierDefinition{
			{Name: "onlyOwner", Body: []lang.Statement{&lang.PlaceholderStatement{}}},
		},
	}

	bugs := findByDetector(RunAll(runPipeline(t, reg)), "missing-access-control")
	if len(bugs) != 1 {
		t.Fatalf("got %d findings, want 1: %+v", len(bugs), bugs)
	}

	// guarding the function silences the finding
	setOwner.Modifiers = []lang.ModifierInvocation{{Name: "onlyOwner"}}
	bugs = findByDetector(RunAll(runPipeline(t, reg)), "missing-access-control")
	if len(bugs) != 0 {
		t.Errorf("guarded function should be clean: %+v", bugs)
	}
}

func TestUnguardedSelfdestruct(t *testing.T) {
	kill := &lang.FunctionDefinition{
		Name: "kill", Contract: "Bomb", Visibility: lang.Public,
		Body: []lang.Statement{
			&lang.ExpressionStatement{Expression: &lang.CallExpression{
				Callee: ident("selfdestruct"),
				Args:   []lang.Expression{msgSender()},
			}},
		},
	}
	bomb := &lang.ContractDefinition{Name: "Bomb", Kind: lang.KindContract, Functions: []*lang.FunctionDefinition{kill}}

	bugs := findByDetector(RunAll(runPipeline(t, bomb)), "missing-access-control")
	if len(bugs) != 1 || bugs[0].Risk != report.Critical {
		t.Fatalf("unguarded selfdestruct should be critical: %+v", bugs)
	}
}

func TestDeadCode(t *testing.T) {
	f := &lang.FunctionDefinition{
		Name: "f", Contract: "D", Visibility: lang.Public,
		Body: []lang.Statement{
			&lang.ReturnStatement{Pos: lang.Pos{File: "t.sol", Line: 3}},
			&lang.ExpressionStatement{
				Expression: &lang.Assignment{LHS: ident("x"), Operator: "=", RHS: &lang.Literal{Kind: "number", Value: "1"}},
				Pos:        lang.Pos{File: "t.sol", Line: 4},
			},
		},
	}
	d := &lang.ContractDefinition{Name: "D", Kind: lang.KindContract, Functions: []*lang.FunctionDefinition{f}}

	bugs := findByDetector(RunAll(runPipeline(t, d)), "dead-code")
	if len(bugs) != 1 {
		t.Fatalf("got %d dead-code findings, want 1: %+v", len(bugs), bugs)
	}
	if bugs[0].Pos.Line != 4 {
		t.Errorf("finding should point at the unreachable statement, got line %d", bugs[0].Pos.Line)
	}
	if bugs[0].Kind != report.Refactoring {
		t.Errorf("dead code is refactoring advice, got kind %s", bugs[0].Kind)
	}
}

func TestTxOriginAuth(t *testing.T) {
	auth := &lang.FunctionDefinition{
		Name: "auth", Contract: "T", Visibility: lang.Public,
		Body: []lang.Statement{
			&lang.ExpressionStatement{Expression: &lang.CallExpression{
				Callee: ident("require"),
				Args: []lang.Expression{&lang.BinaryExpression{
					Left:     &lang.MemberAccess{Base: ident("tx"), Member: "origin", Pos: lang.Pos{File: "t.sol", Line: 7}},
					Operator: "==",
					Right:    ident("owner"),
				}},
			}},
		},
	}
	c := &lang.ContractDefinition{Name: "T", Kind: lang.KindContract, Functions: []*lang.FunctionDefinition{auth}}

	bugs := findByDetector(RunAll(runPipeline(t, c)), "tx-origin-auth")
	if len(bugs) != 1 || bugs[0].SWC != "SWC-115" {
		t.Fatalf("tx.origin auth should be reported: %+v", bugs)
	}
}

func TestDetectorSelection(t *testing.T) {
	s := runPipeline(t, vaultContract(false))
	s.Config.Detectors = []string{"dead-code"}

	bugs := RunAll(s)
	if len(findByDetector(bugs, "reentrancy")) != 0 {
		t.Errorf("deselected detector should not run: %+v", bugs)
	}
}

func TestDetectorsSkipWithoutPasses(t *testing.T) {
	conf := config.NewDefault()
	conf.LogLevel = int(config.ErrLevel)
	s := analysis.NewState(nil, conf, config.NewLogGroup(conf))

	// no passes ran: every detector with requirements must skip, not panic
	bugs := RunAll(s)
	for _, b := range bugs {
		if b.Detector != "tx-origin-auth" {
			t.Errorf("unexpected finding from skipped detector: %+v", b)
		}
	}
}
