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

// Package lang defines the normalized contract AST consumed by the analyses.
// The AST is produced by an external parser and normalizer; imports are resolved
// and named arguments eliminated before the tree reaches this package.
package lang

import "fmt"

// Pos is a position in a source file
type Pos struct {
	File   string `json:"file"`
	Line   int    `json:"line"`
	Column int    `json:"column"`
}

func (p Pos) String() string {
	return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Column)
}

// SourceUnit is one normalized source file: top-level contract definitions and
// free functions.
type SourceUnit struct {
	Path      string                `json:"path"`
	Contracts []*ContractDefinition `json:"contracts"`
	Functions []*FunctionDefinition `json:"functions"`
}

// ContractKind distinguishes contracts, libraries and interfaces
type ContractKind string

const (
	// KindContract is a deployable contract
	KindContract ContractKind = "contract"
	// KindLibrary is a library
	KindLibrary ContractKind = "library"
	// KindInterface is an interface definition without function bodies
	KindInterface ContractKind = "interface"
)

// ContractDefinition is a contract, library or interface definition
type ContractDefinition struct {
	Name           string                `json:"name"`
	Kind           ContractKind          `json:"kind"`
	Abstract       bool                  `json:"abstract"`
	Bases          []string              `json:"bases"`
	StateVariables []*StateVariable      `json:"stateVariables"`
	Functions      []*FunctionDefinition `json:"functions"`
	Modifiers      []*ModifierDefinition `json:"modifiers"`
	Pos            Pos                   `json:"pos"`
}

// StateVariable is a storage variable declared at contract level
type StateVariable struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	Visibility string `json:"visibility"`
	Constant   bool   `json:"constant"`
	Immutable  bool   `json:"immutable"`
	Pos        Pos    `json:"pos"`
}

// Visibility of a function
type Visibility string

const (
	// Public functions are callable internally and externally
	Public Visibility = "public"
	// External functions are only callable from outside the contract
	External Visibility = "external"
	// Internal functions are callable from the contract and derived contracts
	Internal Visibility = "internal"
	// Private functions are only callable from the declaring contract
	Private Visibility = "private"
)

// Mutability of a function
type Mutability string

const (
	// NonPayable functions may modify state but not receive value
	NonPayable Mutability = "nonpayable"
	// Payable functions may receive value
	Payable Mutability = "payable"
	// View functions read but do not modify state
	View Mutability = "view"
	// Pure functions neither read nor modify state
	Pure Mutability = "pure"
)

// Parameter is a function parameter or return value
type Parameter struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Pos  Pos    `json:"pos"`
}

// ModifierInvocation is the application of a modifier on a function definition,
// e.g. `onlyOwner` or `nonReentrant` in a function header
type ModifierInvocation struct {
	Name string       `json:"name"`
	Args []Expression `json:"args"`
	Pos  Pos          `json:"pos"`
}

// ModifierDefinition is a modifier declared in a contract. The body contains a
// PlaceholderStatement where the modified function body is spliced in.
type ModifierDefinition struct {
	Name string      `json:"name"`
	Body []Statement `json:"body"`
	Pos  Pos         `json:"pos"`
}

// FunctionDefinition is a function declared in a contract or at file level
type FunctionDefinition struct {
	Name          string               `json:"name"`
	Contract      string               `json:"contract"`
	Visibility    Visibility           `json:"visibility"`
	Mutability    Mutability           `json:"mutability"`
	Parameters    []*Parameter         `json:"parameters"`
	Returns       []*Parameter         `json:"returns"`
	Modifiers     []ModifierInvocation `json:"modifiers"`
	Body          []Statement          `json:"body"`
	IsConstructor bool                 `json:"isConstructor"`
	IsFallback    bool                 `json:"isFallback"`
	IsReceive     bool                 `json:"isReceive"`
	Pos           Pos                  `json:"pos"`
}

// QualifiedName returns Contract.Name for member functions and Name for free functions
func (f *FunctionDefinition) QualifiedName() string {
	if f.Contract == "" {
		return f.Name
	}
	return f.Contract + "." + f.Name
}

// HasModifier returns true if the function declares a modifier invocation with the given name
func (f *FunctionDefinition) HasModifier(name string) bool {
	for _, m := range f.Modifiers {
		if m.Name == name {
			return true
		}
	}
	return false
}

// IsExposed returns true if the function can be called from outside the contract
func (f *FunctionDefinition) IsExposed() bool {
	return f.Visibility == Public || f.Visibility == External
}

// Statement is a node in a function body
type Statement interface {
	StmtPos() Pos
	isStatement()
}

// Block is a lexical block of statements
type Block struct {
	Statements []Statement `json:"statements"`
	Pos        Pos         `json:"pos"`
}

// IfStatement is a conditional with optional else branch
type IfStatement struct {
	Condition Expression  `json:"condition"`
	Then      []Statement `json:"then"`
	Else      []Statement `json:"else"`
	Pos       Pos         `json:"pos"`
}

// ForStatement is a for loop. Init and Post may be nil
type ForStatement struct {
	Init      Statement   `json:"init"`
	Condition Expression  `json:"condition"`
	Post      Statement   `json:"post"`
	Body      []Statement `json:"body"`
	Pos       Pos         `json:"pos"`
}

// WhileStatement is a while or do-while loop
type WhileStatement struct {
	Condition Expression  `json:"condition"`
	Body      []Statement `json:"body"`
	DoWhile   bool        `json:"doWhile"`
	Pos       Pos         `json:"pos"`
}

// ReturnStatement returns from the function. Value may be nil
type ReturnStatement struct {
	Value Expression `json:"value"`
	Pos   Pos        `json:"pos"`
}

// RevertStatement aborts execution. Reason may be nil
type RevertStatement struct {
	Reason Expression `json:"reason"`
	Pos    Pos        `json:"pos"`
}

// BreakStatement exits the innermost loop
type BreakStatement struct {
	Pos Pos `json:"pos"`
}

// ContinueStatement skips to the next iteration of the innermost loop
type ContinueStatement struct {
	Pos Pos `json:"pos"`
}

// ExpressionStatement wraps an expression evaluated for its effects
type ExpressionStatement struct {
	Expression Expression `json:"expression"`
	Pos        Pos        `json:"pos"`
}

// VariableDeclaration declares local variables with an optional initializer
type VariableDeclaration struct {
	Names []string   `json:"names"`
	Types []string   `json:"types"`
	Value Expression `json:"value"`
	Pos   Pos        `json:"pos"`
}

// CatchClause is one catch arm of a try statement
type CatchClause struct {
	Kind string      `json:"kind"`
	Body []Statement `json:"body"`
	Pos  Pos         `json:"pos"`
}

// TryStatement is a try/catch around an external call
type TryStatement struct {
	Call    Expression    `json:"call"`
	Body    []Statement   `json:"body"`
	Catches []CatchClause `json:"catches"`
	Pos     Pos           `json:"pos"`
}

// EmitStatement emits an event
type EmitStatement struct {
	Event Expression `json:"event"`
	Pos   Pos        `json:"pos"`
}

// AssemblyStatement is an inline assembly block, kept opaque
type AssemblyStatement struct {
	Text string `json:"text"`
	Pos  Pos    `json:"pos"`
}

// PlaceholderStatement is the `_` statement inside a modifier body
type PlaceholderStatement struct {
	Pos Pos `json:"pos"`
}

func (s *Block) StmtPos() Pos                { return s.Pos }
func (s *IfStatement) StmtPos() Pos          { return s.Pos }
func (s *ForStatement) StmtPos() Pos         { return s.Pos }
func (s *WhileStatement) StmtPos() Pos       { return s.Pos }
func (s *ReturnStatement) StmtPos() Pos      { return s.Pos }
func (s *RevertStatement) StmtPos() Pos      { return s.Pos }
func (s *BreakStatement) StmtPos() Pos       { return s.Pos }
func (s *ContinueStatement) StmtPos() Pos    { return s.Pos }
func (s *ExpressionStatement) StmtPos() Pos  { return s.Pos }
func (s *VariableDeclaration) StmtPos() Pos  { return s.Pos }
func (s *TryStatement) StmtPos() Pos         { return s.Pos }
func (s *EmitStatement) StmtPos() Pos        { return s.Pos }
func (s *AssemblyStatement) StmtPos() Pos    { return s.Pos }
func (s *PlaceholderStatement) StmtPos() Pos { return s.Pos }

func (s *Block) isStatement()                {}
func (s *IfStatement) isStatement()          {}
func (s *ForStatement) isStatement()         {}
func (s *WhileStatement) isStatement()       {}
func (s *ReturnStatement) isStatement()      {}
func (s *RevertStatement) isStatement()      {}
func (s *BreakStatement) isStatement()       {}
func (s *ContinueStatement) isStatement()    {}
func (s *ExpressionStatement) isStatement()  {}
func (s *VariableDeclaration) isStatement()  {}
func (s *TryStatement) isStatement()         {}
func (s *EmitStatement) isStatement()        {}
func (s *AssemblyStatement) isStatement()    {}
func (s *PlaceholderStatement) isStatement() {}

// Expression is a node in an expression tree
type Expression interface {
	ExprPos() Pos
	isExpression()
}

// Identifier is a reference to a named entity
type Identifier struct {
	Name string `json:"name"`
	Pos  Pos    `json:"pos"`
}

// MemberAccess is base.member
type MemberAccess struct {
	Base   Expression `json:"base"`
	Member string     `json:"member"`
	Pos    Pos        `json:"pos"`
}

// IndexAccess is base[index]
type IndexAccess struct {
	Base  Expression `json:"base"`
	Index Expression `json:"index"`
	Pos   Pos        `json:"pos"`
}

// CallExpression is a function call. Value holds the ether value of a
// `call{value: v}(...)` style invocation and may be nil.
type CallExpression struct {
	Callee Expression   `json:"callee"`
	Args   []Expression `json:"args"`
	Value  Expression   `json:"value"`
	Pos    Pos          `json:"pos"`
}

// Assignment is lhs op rhs where op is "=", "+=", ...
type Assignment struct {
	LHS      Expression `json:"lhs"`
	Operator string     `json:"operator"`
	RHS      Expression `json:"rhs"`
	Pos      Pos        `json:"pos"`
}

// BinaryExpression is left op right
type BinaryExpression struct {
	Left     Expression `json:"left"`
	Operator string     `json:"operator"`
	Right    Expression `json:"right"`
	Pos      Pos        `json:"pos"`
}

// UnaryExpression is op operand
type UnaryExpression struct {
	Operator string     `json:"operator"`
	Operand  Expression `json:"operand"`
	Prefix   bool       `json:"prefix"`
	Pos      Pos        `json:"pos"`
}

// Literal is a constant value
type Literal struct {
	Kind  string `json:"kind"`
	Value string `json:"value"`
	Pos   Pos    `json:"pos"`
}

// TupleExpression is (a, b, ...); components may be nil for skipped slots
type TupleExpression struct {
	Components []Expression `json:"components"`
	Pos        Pos          `json:"pos"`
}

func (e *Identifier) ExprPos() Pos       { return e.Pos }
func (e *MemberAccess) ExprPos() Pos     { return e.Pos }
func (e *IndexAccess) ExprPos() Pos      { return e.Pos }
func (e *CallExpression) ExprPos() Pos   { return e.Pos }
func (e *Assignment) ExprPos() Pos       { return e.Pos }
func (e *BinaryExpression) ExprPos() Pos { return e.Pos }
func (e *UnaryExpression) ExprPos() Pos  { return e.Pos }
func (e *Literal) ExprPos() Pos          { return e.Pos }
func (e *TupleExpression) ExprPos() Pos  { return e.Pos }

func (e *Identifier) isExpression()       {}
func (e *MemberAccess) isExpression()     {}
func (e *IndexAccess) isExpression()      {}
func (e *CallExpression) isExpression()   {}
func (e *Assignment) isExpression()       {}
func (e *BinaryExpression) isExpression() {}
func (e *UnaryExpression) isExpression()  {}
func (e *Literal) isExpression()          {}
func (e *TupleExpression) isExpression()  {}
