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

package callgraph

import (
	"github.com/solguard/solguard/analysis/lang"
)

// builtins are global functions of the language that never leave the contract
var builtins = map[string]bool{
	"require":      true,
	"assert":       true,
	"revert":       true,
	"keccak256":    true,
	"sha256":       true,
	"ripemd160":    true,
	"ecrecover":    true,
	"addmod":       true,
	"mulmod":       true,
	"gasleft":      true,
	"blockhash":    true,
	"selfdestruct": true,
	"payable":      true,
	"type":         true,
}

// builtinBases are member-access bases whose members are language builtins, not calls
// into other code
var builtinBases = map[string]bool{
	"abi":   true,
	"msg":   true,
	"block": true,
	"tx":    true,
}

// containerMembers are members of arrays and byte types that look like method calls
var containerMembers = map[string]bool{
	"push": true,
	"pop":  true,
}

// CallClass is the syntactic classification of one call expression. The
// classification is deliberately conservative: anything that may leave the contract
// is flagged External, so downstream analyses over-approximate rather than miss.
type CallClass struct {
	// CalleeName is the printable name of the callee ("f", "a.transfer", "super.f")
	CalleeName string

	// MemberName is the rightmost name of the callee chain, used for resolution
	MemberName string

	// BaseName is the base identifier of a member call ("a" in a.f()), empty for
	// plain identifier calls
	BaseName string

	// External is set when the call may transfer control outside the contract
	External bool

	// Delegate marks delegatecall, Static marks staticcall
	Delegate bool
	Static   bool

	// TransferOrSend marks the value-transfer members transfer and send
	TransferOrSend bool

	// LowLevel marks call/delegatecall/staticcall invocations
	LowLevel bool

	// Builtin marks language builtins (require, keccak256, abi.encode, ...)
	Builtin bool

	// This marks this.f() calls, which stay inside the contract despite the
	// member-access syntax
	This bool

	// Super marks super.f() calls, dispatched through the inheritance chain
	Super bool
}

// Classify determines the syntactic class of a call expression. The heuristic is
// name-based: without type information a member call on an unknown base is treated
// as external.
func Classify(call *lang.CallExpression) CallClass {
	switch callee := call.Callee.(type) {
	case *lang.Identifier:
		return CallClass{
			CalleeName: callee.Name,
			MemberName: callee.Name,
			Builtin:    builtins[callee.Name],
		}
	case *lang.MemberAccess:
		cc := CallClass{
			CalleeName: lang.ExprString(callee),
			MemberName: callee.Member,
		}
		if base, ok := callee.Base.(*lang.Identifier); ok {
			cc.BaseName = base.Name
		}
		switch {
		case cc.BaseName == "abi" || builtinBases[cc.BaseName]:
			cc.Builtin = true
		case cc.BaseName == "this":
			cc.This = true
		case cc.BaseName == "super":
			cc.Super = true
		case callee.Member == "call":
			cc.External = true
			cc.LowLevel = true
		case callee.Member == "delegatecall":
			cc.External = true
			cc.Delegate = true
			cc.LowLevel = true
		case callee.Member == "staticcall":
			cc.External = true
			cc.Static = true
			cc.LowLevel = true
		case callee.Member == "transfer" || callee.Member == "send":
			cc.External = true
			cc.TransferOrSend = true
		case containerMembers[callee.Member]:
			// array/bytes member, stays internal
		default:
			// token.approve(...), Lib.f(...): external unless the base resolves to
			// a known contract or library during graph construction
			cc.External = true
		}
		return cc
	}
	// Call through a computed callee (function pointer, cast result)
	return CallClass{CalleeName: lang.ExprString(call.Callee), External: true}
}

// IsExternalCall reports whether the expression is a call that may leave the
// contract. Shared with the taint and detector layers, which scan raw expressions.
func IsExternalCall(e lang.Expression) bool {
	call, ok := e.(*lang.CallExpression)
	if !ok {
		return false
	}
	return Classify(call).External
}
