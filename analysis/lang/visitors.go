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

package lang

import "strings"

// IterateFunctions applies f to every function definition in the source units,
// including contract members and free functions.
func IterateFunctions(units []*SourceUnit, f func(*FunctionDefinition)) {
	for _, unit := range units {
		for _, fn := range unit.Functions {
			f(fn)
		}
		for _, contract := range unit.Contracts {
			for _, fn := range contract.Functions {
				f(fn)
			}
		}
	}
}

// IterateContracts applies f to every contract definition in the source units.
func IterateContracts(units []*SourceUnit, f func(*ContractDefinition)) {
	for _, unit := range units {
		for _, contract := range unit.Contracts {
			f(contract)
		}
	}
}

// VisitStatements applies visit to every statement in body, in lexical pre-order,
// recursing into nested blocks, branches, loop bodies and catch clauses.
func VisitStatements(body []Statement, visit func(Statement)) {
	for _, stmt := range body {
		VisitStatement(stmt, visit)
	}
}

// VisitStatement applies visit to stmt and all statements nested inside it.
func VisitStatement(stmt Statement, visit func(Statement)) {
	if stmt == nil {
		return
	}
	visit(stmt)
	switch s := stmt.(type) {
	case *Block:
		VisitStatements(s.Statements, visit)
	case *IfStatement:
		VisitStatements(s.Then, visit)
		VisitStatements(s.Else, visit)
	case *ForStatement:
		VisitStatement(s.Init, visit)
		VisitStatements(s.Body, visit)
		VisitStatement(s.Post, visit)
	case *WhileStatement:
		VisitStatements(s.Body, visit)
	case *TryStatement:
		VisitStatements(s.Body, visit)
		for _, c := range s.Catches {
			VisitStatements(c.Body, visit)
		}
	}
}

// StatementExpressions returns the expressions directly attached to a statement,
// without recursing into nested statements.
func StatementExpressions(stmt Statement) []Expression {
	switch s := stmt.(type) {
	case *IfStatement:
		return []Expression{s.Condition}
	case *ForStatement:
		if s.Condition != nil {
			return []Expression{s.Condition}
		}
	case *WhileStatement:
		return []Expression{s.Condition}
	case *ReturnStatement:
		if s.Value != nil {
			return []Expression{s.Value}
		}
	case *RevertStatement:
		if s.Reason != nil {
			return []Expression{s.Reason}
		}
	case *ExpressionStatement:
		return []Expression{s.Expression}
	case *VariableDeclaration:
		if s.Value != nil {
			return []Expression{s.Value}
		}
	case *TryStatement:
		return []Expression{s.Call}
	case *EmitStatement:
		return []Expression{s.Event}
	}
	return nil
}

// VisitExpressions applies visit to every expression appearing in body, including
// subexpressions, in pre-order.
func VisitExpressions(body []Statement, visit func(Expression)) {
	VisitStatements(body, func(stmt Statement) {
		for _, e := range StatementExpressions(stmt) {
			VisitExprTree(e, visit)
		}
	})
}

// VisitExprTree applies visit to e and every subexpression of e, in pre-order.
func VisitExprTree(e Expression, visit func(Expression)) {
	if e == nil {
		return
	}
	visit(e)
	switch x := e.(type) {
	case *MemberAccess:
		VisitExprTree(x.Base, visit)
	case *IndexAccess:
		VisitExprTree(x.Base, visit)
		VisitExprTree(x.Index, visit)
	case *CallExpression:
		VisitExprTree(x.Callee, visit)
		VisitExprTree(x.Value, visit)
		for _, a := range x.Args {
			VisitExprTree(a, visit)
		}
	case *Assignment:
		VisitExprTree(x.LHS, visit)
		VisitExprTree(x.RHS, visit)
	case *BinaryExpression:
		VisitExprTree(x.Left, visit)
		VisitExprTree(x.Right, visit)
	case *UnaryExpression:
		VisitExprTree(x.Operand, visit)
	case *TupleExpression:
		for _, c := range x.Components {
			VisitExprTree(c, visit)
		}
	}
}

// FoldExprTree reduces the expression tree to an accumulator, visiting e and all its
// subexpressions in pre-order.
func FoldExprTree[T any](e Expression, acc T, f func(T, Expression) T) T {
	VisitExprTree(e, func(x Expression) {
		acc = f(acc, x)
	})
	return acc
}

// BaseIdentifier returns the leftmost identifier of a member/index access chain.
// For `a.b[i].c` it returns ("a", true). The second return value is false when the
// chain does not bottom out in an identifier (e.g. a call result).
func BaseIdentifier(e Expression) (string, bool) {
	switch x := e.(type) {
	case *Identifier:
		return x.Name, true
	case *MemberAccess:
		return BaseIdentifier(x.Base)
	case *IndexAccess:
		return BaseIdentifier(x.Base)
	}
	return "", false
}

// ExprString renders an expression in a compact printable form, used as a key for
// source/sink matching ("msg.sender", "tx.origin", "balances[msg.sender]").
func ExprString(e Expression) string {
	switch x := e.(type) {
	case nil:
		return ""
	case *Identifier:
		return x.Name
	case *MemberAccess:
		return ExprString(x.Base) + "." + x.Member
	case *IndexAccess:
		return ExprString(x.Base) + "[" + ExprString(x.Index) + "]"
	case *CallExpression:
		args := make([]string, len(x.Args))
		for i, a := range x.Args {
			args[i] = ExprString(a)
		}
		return ExprString(x.Callee) + "(" + strings.Join(args, ", ") + ")"
	case *Assignment:
		return ExprString(x.LHS) + " " + x.Operator + " " + ExprString(x.RHS)
	case *BinaryExpression:
		return ExprString(x.Left) + " " + x.Operator + " " + ExprString(x.Right)
	case *UnaryExpression:
		if x.Prefix {
			return x.Operator + ExprString(x.Operand)
		}
		return ExprString(x.Operand) + x.Operator
	case *Literal:
		return x.Value
	case *TupleExpression:
		parts := make([]string, len(x.Components))
		for i, c := range x.Components {
			parts[i] = ExprString(c)
		}
		return "(" + strings.Join(parts, ", ") + ")"
	}
	return "?"
}

// AssignedNames returns the names written by an assignment LHS: a plain identifier,
// the base identifier of a member/index chain, or each component of a tuple.
func AssignedNames(lhs Expression) []string {
	var names []string
	switch x := lhs.(type) {
	case *TupleExpression:
		for _, c := range x.Components {
			if c == nil {
				continue
			}
			if n, ok := BaseIdentifier(c); ok {
				names = append(names, n)
			}
		}
	default:
		if n, ok := BaseIdentifier(lhs); ok {
			names = append(names, n)
		}
	}
	return names
}
