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

import (
	"encoding/json"
	"fmt"
	"io"
)

// The decoder reads the JSON emitted by the external parser/normalizer. Statement and
// expression nodes are discriminated by a "nodeType" field.

// DecodeSourceUnits decodes a JSON array of source units from r.
func DecodeSourceUnits(r io.Reader) ([]*SourceUnit, error) {
	var rawUnits []unitNode
	if err := json.NewDecoder(r).Decode(&rawUnits); err != nil {
		return nil, fmt.Errorf("could not decode source units: %w", err)
	}
	units := make([]*SourceUnit, 0, len(rawUnits))
	for _, ru := range rawUnits {
		unit, err := ru.build()
		if err != nil {
			return nil, fmt.Errorf("in unit %s: %w", ru.Path, err)
		}
		units = append(units, unit)
	}
	return units, nil
}

type unitNode struct {
	Path      string         `json:"path"`
	Contracts []contractNode `json:"contracts"`
	Functions []funcNode     `json:"functions"`
}

type contractNode struct {
	Name           string           `json:"name"`
	Kind           ContractKind     `json:"kind"`
	Abstract       bool             `json:"abstract"`
	Bases          []string         `json:"bases"`
	StateVariables []*StateVariable `json:"stateVariables"`
	Functions      []funcNode       `json:"functions"`
	Modifiers      []modifierNode   `json:"modifiers"`
	Pos            Pos              `json:"pos"`
}

type funcNode struct {
	Name          string            `json:"name"`
	Contract      string            `json:"contract"`
	Visibility    Visibility        `json:"visibility"`
	Mutability    Mutability        `json:"mutability"`
	Parameters    []*Parameter      `json:"parameters"`
	Returns       []*Parameter      `json:"returns"`
	Modifiers     []modifierInvNode `json:"modifiers"`
	Body          []json.RawMessage `json:"body"`
	IsConstructor bool              `json:"isConstructor"`
	IsFallback    bool              `json:"isFallback"`
	IsReceive     bool              `json:"isReceive"`
	Pos           Pos               `json:"pos"`
}

type modifierNode struct {
	Name string            `json:"name"`
	Body []json.RawMessage `json:"body"`
	Pos  Pos               `json:"pos"`
}

type modifierInvNode struct {
	Name string            `json:"name"`
	Args []json.RawMessage `json:"args"`
	Pos  Pos               `json:"pos"`
}

func (u unitNode) build() (*SourceUnit, error) {
	unit := &SourceUnit{Path: u.Path}
	for _, cn := range u.Contracts {
		contract, err := cn.build()
		if err != nil {
			return nil, fmt.Errorf("in contract %s: %w", cn.Name, err)
		}
		unit.Contracts = append(unit.Contracts, contract)
	}
	for _, fn := range u.Functions {
		f, err := fn.build()
		if err != nil {
			return nil, fmt.Errorf("in function %s: %w", fn.Name, err)
		}
		unit.Functions = append(unit.Functions, f)
	}
	return unit, nil
}

func (c contractNode) build() (*ContractDefinition, error) {
	contract := &ContractDefinition{
		Name:           c.Name,
		Kind:           c.Kind,
		Abstract:       c.Abstract,
		Bases:          c.Bases,
		StateVariables: c.StateVariables,
		Pos:            c.Pos,
	}
	if contract.Kind == "" {
		contract.Kind = KindContract
	}
	for _, fn := range c.Functions {
		f, err := fn.build()
		if err != nil {
			return nil, fmt.Errorf("in function %s: %w", fn.Name, err)
		}
		if f.Contract == "" {
			f.Contract = c.Name
		}
		contract.Functions = append(contract.Functions, f)
	}
	for _, mn := range c.Modifiers {
		body, err := decodeStatements(mn.Body)
		if err != nil {
			return nil, fmt.Errorf("in modifier %s: %w", mn.Name, err)
		}
		contract.Modifiers = append(contract.Modifiers, &ModifierDefinition{Name: mn.Name, Body: body, Pos: mn.Pos})
	}
	return contract, nil
}

func (fn funcNode) build() (*FunctionDefinition, error) {
	body, err := decodeStatements(fn.Body)
	if err != nil {
		return nil, err
	}
	f := &FunctionDefinition{
		Name:          fn.Name,
		Contract:      fn.Contract,
		Visibility:    fn.Visibility,
		Mutability:    fn.Mutability,
		Parameters:    fn.Parameters,
		Returns:       fn.Returns,
		Body:          body,
		IsConstructor: fn.IsConstructor,
		IsFallback:    fn.IsFallback,
		IsReceive:     fn.IsReceive,
		Pos:           fn.Pos,
	}
	if f.Visibility == "" {
		f.Visibility = Public
	}
	if f.Mutability == "" {
		f.Mutability = NonPayable
	}
	for _, mi := range fn.Modifiers {
		args, err := decodeExpressions(mi.Args)
		if err != nil {
			return nil, err
		}
		f.Modifiers = append(f.Modifiers, ModifierInvocation{Name: mi.Name, Args: args, Pos: mi.Pos})
	}
	return f, nil
}

// stmtNode is the union of the fields of all statement node types
type stmtNode struct {
	NodeType   string            `json:"nodeType"`
	Pos        Pos               `json:"pos"`
	Statements []json.RawMessage `json:"statements"`
	Condition  json.RawMessage   `json:"condition"`
	Then       []json.RawMessage `json:"then"`
	Else       []json.RawMessage `json:"else"`
	Init       json.RawMessage   `json:"init"`
	Post       json.RawMessage   `json:"post"`
	Body       []json.RawMessage `json:"body"`
	DoWhile    bool              `json:"doWhile"`
	Value      json.RawMessage   `json:"value"`
	Reason     json.RawMessage   `json:"reason"`
	Expression json.RawMessage   `json:"expression"`
	Names      []string          `json:"names"`
	Types      []string          `json:"types"`
	Call       json.RawMessage   `json:"call"`
	Catches    []catchNode       `json:"catches"`
	Event      json.RawMessage   `json:"event"`
	Text       string            `json:"text"`
}

type catchNode struct {
	Kind string            `json:"kind"`
	Body []json.RawMessage `json:"body"`
	Pos  Pos               `json:"pos"`
}

func decodeStatements(raws []json.RawMessage) ([]Statement, error) {
	var stmts []Statement
	for _, raw := range raws {
		s, err := decodeStatement(raw)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, s)
	}
	return stmts, nil
}

func decodeStatement(raw json.RawMessage) (Statement, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var n stmtNode
	if err := json.Unmarshal(raw, &n); err != nil {
		return nil, err
	}
	switch n.NodeType {
	case "Block":
		stmts, err := decodeStatements(n.Statements)
		if err != nil {
			return nil, err
		}
		return &Block{Statements: stmts, Pos: n.Pos}, nil
	case "If":
		cond, err := decodeExpression(n.Condition)
		if err != nil {
			return nil, err
		}
		then, err := decodeStatements(n.Then)
		if err != nil {
			return nil, err
		}
		els, err := decodeStatements(n.Else)
		if err != nil {
			return nil, err
		}
		return &IfStatement{Condition: cond, Then: then, Else: els, Pos: n.Pos}, nil
	case "For":
		init, err := decodeStatement(n.Init)
		if err != nil {
			return nil, err
		}
		cond, err := decodeExpression(n.Condition)
		if err != nil {
			return nil, err
		}
		post, err := decodeStatement(n.Post)
		if err != nil {
			return nil, err
		}
		body, err := decodeStatements(n.Body)
		if err != nil {
			return nil, err
		}
		return &ForStatement{Init: init, Condition: cond, Post: post, Body: body, Pos: n.Pos}, nil
	case "While", "DoWhile":
		cond, err := decodeExpression(n.Condition)
		if err != nil {
			return nil, err
		}
		body, err := decodeStatements(n.Body)
		if err != nil {
			return nil, err
		}
		return &WhileStatement{Condition: cond, Body: body, DoWhile: n.NodeType == "DoWhile" || n.DoWhile, Pos: n.Pos}, nil
	case "Return":
		value, err := decodeExpression(n.Value)
		if err != nil {
			return nil, err
		}
		return &ReturnStatement{Value: value, Pos: n.Pos}, nil
	case "Revert":
		reason, err := decodeExpression(n.Reason)
		if err != nil {
			return nil, err
		}
		return &RevertStatement{Reason: reason, Pos: n.Pos}, nil
	case "Break":
		return &BreakStatement{Pos: n.Pos}, nil
	case "Continue":
		return &ContinueStatement{Pos: n.Pos}, nil
	case "Expression":
		e, err := decodeExpression(n.Expression)
		if err != nil {
			return nil, err
		}
		return &ExpressionStatement{Expression: e, Pos: n.Pos}, nil
	case "VariableDeclaration":
		value, err := decodeExpression(n.Value)
		if err != nil {
			return nil, err
		}
		return &VariableDeclaration{Names: n.Names, Types: n.Types, Value: value, Pos: n.Pos}, nil
	case "Try":
		call, err := decodeExpression(n.Call)
		if err != nil {
			return nil, err
		}
		body, err := decodeStatements(n.Body)
		if err != nil {
			return nil, err
		}
		stmt := &TryStatement{Call: call, Body: body, Pos: n.Pos}
		for _, cn := range n.Catches {
			cbody, err := decodeStatements(cn.Body)
			if err != nil {
				return nil, err
			}
			stmt.Catches = append(stmt.Catches, CatchClause{Kind: cn.Kind, Body: cbody, Pos: cn.Pos})
		}
		return stmt, nil
	case "Emit":
		event, err := decodeExpression(n.Event)
		if err != nil {
			return nil, err
		}
		return &EmitStatement{Event: event, Pos: n.Pos}, nil
	case "Assembly":
		return &AssemblyStatement{Text: n.Text, Pos: n.Pos}, nil
	case "Placeholder":
		return &PlaceholderStatement{Pos: n.Pos}, nil
	}
	return nil, fmt.Errorf("unknown statement nodeType %q at %s", n.NodeType, n.Pos)
}

// exprNode is the union of the fields of all expression node types
type exprNode struct {
	NodeType   string            `json:"nodeType"`
	Pos        Pos               `json:"pos"`
	Name       string            `json:"name"`
	Base       json.RawMessage   `json:"base"`
	Member     string            `json:"member"`
	Index      json.RawMessage   `json:"index"`
	Callee     json.RawMessage   `json:"callee"`
	Args       []json.RawMessage `json:"args"`
	Value      json.RawMessage   `json:"value"`
	LHS        json.RawMessage   `json:"lhs"`
	RHS        json.RawMessage   `json:"rhs"`
	Operator   string            `json:"operator"`
	Left       json.RawMessage   `json:"left"`
	Right      json.RawMessage   `json:"right"`
	Operand    json.RawMessage   `json:"operand"`
	Prefix     bool              `json:"prefix"`
	Kind       string            `json:"kind"`
	Literal    string            `json:"literal"`
	Components []json.RawMessage `json:"components"`
}

func decodeExpressions(raws []json.RawMessage) ([]Expression, error) {
	var exprs []Expression
	for _, raw := range raws {
		e, err := decodeExpression(raw)
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, e)
	}
	return exprs, nil
}

func decodeExpression(raw json.RawMessage) (Expression, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var n exprNode
	if err := json.Unmarshal(raw, &n); err != nil {
		return nil, err
	}
	switch n.NodeType {
	case "Identifier":
		return &Identifier{Name: n.Name, Pos: n.Pos}, nil
	case "MemberAccess":
		base, err := decodeExpression(n.Base)
		if err != nil {
			return nil, err
		}
		return &MemberAccess{Base: base, Member: n.Member, Pos: n.Pos}, nil
	case "IndexAccess":
		base, err := decodeExpression(n.Base)
		if err != nil {
			return nil, err
		}
		index, err := decodeExpression(n.Index)
		if err != nil {
			return nil, err
		}
		return &IndexAccess{Base: base, Index: index, Pos: n.Pos}, nil
	case "Call":
		callee, err := decodeExpression(n.Callee)
		if err != nil {
			return nil, err
		}
		value, err := decodeExpression(n.Value)
		if err != nil {
			return nil, err
		}
		args, err := decodeExpressions(n.Args)
		if err != nil {
			return nil, err
		}
		return &CallExpression{Callee: callee, Args: args, Value: value, Pos: n.Pos}, nil
	case "Assignment":
		lhs, err := decodeExpression(n.LHS)
		if err != nil {
			return nil, err
		}
		rhs, err := decodeExpression(n.RHS)
		if err != nil {
			return nil, err
		}
		op := n.Operator
		if op == "" {
			op = "="
		}
		return &Assignment{LHS: lhs, Operator: op, RHS: rhs, Pos: n.Pos}, nil
	case "Binary":
		left, err := decodeExpression(n.Left)
		if err != nil {
			return nil, err
		}
		right, err := decodeExpression(n.Right)
		if err != nil {
			return nil, err
		}
		return &BinaryExpression{Left: left, Operator: n.Operator, Right: right, Pos: n.Pos}, nil
	case "Unary":
		operand, err := decodeExpression(n.Operand)
		if err != nil {
			return nil, err
		}
		return &UnaryExpression{Operator: n.Operator, Operand: operand, Prefix: n.Prefix, Pos: n.Pos}, nil
	case "Literal":
		return &Literal{Kind: n.Kind, Value: n.Literal, Pos: n.Pos}, nil
	case "Tuple":
		components, err := decodeExpressions(n.Components)
		if err != nil {
			return nil, err
		}
		return &TupleExpression{Components: components, Pos: n.Pos}, nil
	}
	return nil, fmt.Errorf("unknown expression nodeType %q at %s", n.NodeType, n.Pos)
}
