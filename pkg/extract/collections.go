// Copyright 2025 KrakLabs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

// Package extract implements the per-file AST extraction pipeline: a
// single recursive walk over one parsed file dispatches each node to its
// visitor, and the visitors append facts to a Collections bag. Visitors
// never write to the graph; pkg/build materializes a finished Collections
// into graph nodes and edges. The walk covers every entity kind rather
// than just functions, targeting TypeScript as the primary language, with
// Go carried as a second supported language.
package extract

// Position is a 1-indexed (line, column) source location.
type Position struct {
	Line   int
	Column int
}

// ImportFact records one imported binding.
type ImportFact struct {
	ID         string
	LocalName  string
	ImportedAs string // "" for a default import, "*" for a namespace import
	FromModule string
	Pos        Position
}

// ExportFact records one exported binding.
type ExportFact struct {
	ID        string
	Name      string
	IsDefault bool
	Pos       Position
}

// VariableFact records a declared variable/constant and how its
// initializer classified (see AssignmentClassification).
type VariableFact struct {
	ID           string
	Name         string
	Kind         string // "const" | "let" | "var"
	Scope        []string
	Pos          Position
	Assignment   AssignmentClassification
	IsModuleTop  bool
}

// AssignmentKind enumerates the strictly ordered classifier outcomes an
// initializer expression can fall into.
type AssignmentKind string

const (
	AssignObjectLiteral   AssignmentKind = "OBJECT_LITERAL"
	AssignArrayLiteral    AssignmentKind = "ARRAY_LITERAL"
	AssignLiteral         AssignmentKind = "LITERAL"
	AssignCallSite        AssignmentKind = "CALL_SITE"
	AssignMethodCall      AssignmentKind = "METHOD_CALL"
	AssignIdentifier      AssignmentKind = "IDENTIFIER"
	AssignNewExpression   AssignmentKind = "NEW_EXPRESSION"
	AssignFunctionLiteral AssignmentKind = "FUNCTION_LITERAL"
	AssignMemberExpr      AssignmentKind = "MEMBER_EXPRESSION"
	AssignBinaryExpr      AssignmentKind = "BINARY_EXPRESSION"
	AssignConditional     AssignmentKind = "CONDITIONAL_EXPRESSION"
	AssignLogical         AssignmentKind = "LOGICAL_EXPRESSION"
	AssignTemplate        AssignmentKind = "TEMPLATE_LITERAL"
	AssignUnary           AssignmentKind = "UNARY_EXPRESSION"
	AssignUnknown         AssignmentKind = "UNKNOWN"
)

// AssignmentClassification is the result of classifying one initializer
// expression. Fields beyond Kind are populated selectively depending on
// Kind, one struct shared across every classifying call site instead of
// one per visitor.
type AssignmentClassification struct {
	Kind             AssignmentKind
	SourceName       string   // referenced Identifier/MemberExpression name, when applicable
	CallName         string   // callee name, for CALL_SITE / METHOD_CALL
	CallPos          Position // (line, col) of the call, for builder lookup by position
	TemplateRefs     []string // interpolated identifier names, for TEMPLATE_LITERAL
	LiteralValue     string
	IsSpread         bool
}

// FunctionFact records a function/method declaration or expression.
type FunctionFact struct {
	ID            string
	Name          string // "" (then collision-resolved to $anon) for anonymous
	Scope         []string
	Pos           Position
	EndPos        Position
	Async         bool
	Generator     bool
	IsMethod      bool
	IsArrow       bool
	ReceiverClass string // non-empty for methods
	Params        []ParamFact
	Signature     string
	BodyScopeID   string
}

// ParamFact records one function parameter.
type ParamFact struct {
	ID   string
	Name string
	Type string
	Pos  Position
}

// ClassFact records a class declaration.
type ClassFact struct {
	ID         string
	Name       string
	Scope      []string
	Pos        Position
	ExtendsRef string
	Implements []string
}

// ClassInstantiationFact records a `new ClassName(...)` found inside a
// method body.
type ClassInstantiationFact struct {
	ClassName string
	Pos       Position
	EnclosingMethodID string
}

// TSDeclarationFact records an interface, type alias, or enum.
type TSDeclarationFact struct {
	ID    string
	Kind  string // "interface" | "type_alias" | "enum"
	Name  string
	Scope []string
	Pos   Position
}

// CallFact records a call expression.
type CallFact struct {
	ID          string
	CalleeName  string
	IsMethod    bool   // MemberExpression callee (obj.m())
	ReceiverRef string // textual receiver expression, for MethodCallResolver
	Scope       []string
	Pos         Position
	EndPos      Position
	Awaited     bool
	InsideLoop  bool
	Args        []CallArgumentFact
}

// CallArgumentFact records one argument passed to a call. TargetID is the
// pre-collision-resolution id of the argument's source node (a LITERAL,
// VARIABLE, PARAMETER, nested CALL, or EXPRESSION); it is threaded through
// collision resolution and must be rewritten using the resolver's
// oldId -> newId remapping.
type CallArgumentFact struct {
	ArgIndex int
	IsSpread bool
	TargetID string
}

// PropertyAccessFact records `obj.prop` read (not a call, not an
// assignment target) for later alias/dataflow enrichment.
type PropertyAccessFact struct {
	ObjectName string
	Property   string
	Pos        Position
}

// NewExpressionFact records a constructor call anywhere in the file (a
// TypeScript `new` expression, or a Go composite literal of a named type).
type NewExpressionFact struct {
	ID        string
	ClassName string
	Pos       Position
	Args      []CallArgumentFact
}

// LoopFact records a loop construct.
type LoopFact struct {
	ID             string
	LoopType       string // "for" | "for-of" | "for-in" | "for-await-of" | "while" | "do-while" | "for-range"
	Scope          []string
	Pos            Position
	BodyScopeID    string
	IteratesSource string // name of the Parameter/Variable iterated over, when known
	IteratesKind   string // "keys" | "values"
	HasInit        bool
	InitVarName    string
	HasCondition   bool
	ConditionPos   Position
	HasUpdate      bool
	UpdatePos      Position
}

// BranchFact records an if/switch/ternary construct.
type BranchFact struct {
	ID                    string
	BranchType            string // "if" | "switch" | "ternary"
	Scope                 []string
	Pos                   Position
	DiscriminantIsCall    bool
	DiscriminantCallPos   Position
	ConsequentScopeID     string
	AlternateScopeID      string
	AlternateIsBranch     bool
	AlternateBranchID     string
}

// CaseFact records one switch case.
type CaseFact struct {
	ID        string
	BranchID  string
	IsDefault bool
	Pos       Position
}

// TryFact records a try/catch/finally construct.
type TryFact struct {
	ID             string
	Scope          []string
	Pos            Position
	TryScopeID     string
	CatchScopeID   string
	FinallyScopeID string
}

// ReturnFact records a return statement and its returned source. The
// extractors leave FunctionID empty, and pkg/build builds no RETURNS edge
// from these facts.
type ReturnFact struct {
	FunctionID string
	SourceKind string // "variable" | "call" | "literal" | "expression"
	SourceName string
	SourcePos  Position
	Pos        Position
}

// MutationFact records an array or object mutation.
type MutationFact struct {
	ID             string
	Kind           string // "array" | "object"
	Method         string // "push" | "unshift" | "splice" | "index_assign" | "property_assign" | "computed_assign" | "object_assign" | "spread"
	TargetName     string
	ComputedKeyVar string
	Pos            Position
	Values         []MutationValueFact
}

// MutationValueFact is one value flowing into a mutation.
type MutationValueFact struct {
	ArgIndex   int
	OriginKind string // "LITERAL" | "VARIABLE" | "OBJECT_LITERAL" | "ARRAY_LITERAL" | "CALL"
	OriginID   string
}

// PromiseExecutorFact records the resolve/reject parameter names of a
// `new Promise((resolve, reject) => ...)` executor.
type PromiseExecutorFact struct {
	ConstructorCallID string
	ResolveParam       string
	RejectParam        string
	FunctionStart      Position
	FunctionEnd        Position
}

// LiteralFact records a literal value not already captured by a more
// specific visitor, deduplicated by (file, line, column).
type LiteralFact struct {
	ID    string
	Kind  string // "string" | "number" | "boolean" | "null" | "undefined" | "regex"
	Value string
	Pos   Position
}

// Collections is the fact bag for one module, populated by the ordered
// visitor pipeline and consumed by pkg/build's GraphBuilder.
type Collections struct {
	File             string
	ModuleID         string
	ContentHash      string
	HasTopLevelAwait bool

	Imports        []ImportFact
	Exports        []ExportFact
	Variables      []VariableFact
	Functions      []FunctionFact
	Classes        []ClassFact
	Instantiations []ClassInstantiationFact
	TSDeclarations []TSDeclarationFact
	Calls          []CallFact
	PropertyAccess []PropertyAccessFact
	NewExpressions []NewExpressionFact
	Loops          []LoopFact
	Branches       []BranchFact
	Cases          []CaseFact
	Tries          []TryFact
	Returns        []ReturnFact
	Mutations      []MutationFact
	PromiseExecs   []PromiseExecutorFact
	Literals       []LiteralFact

	// literalSeen dedups LiteralFact by file+line+col.
	literalSeen map[Position]bool
}

// NewCollections creates an empty fact bag for file (project-root-relative
// path) owned by the module with id moduleID.
func NewCollections(file, moduleID string) *Collections {
	return &Collections{
		File:        file,
		ModuleID:    moduleID,
		literalSeen: make(map[Position]bool),
	}
}

// AddLiteral appends a LiteralFact unless one was already recorded at the
// same position.
func (c *Collections) AddLiteral(f LiteralFact) {
	if c.literalSeen[f.Pos] {
		return
	}
	c.literalSeen[f.Pos] = true
	c.Literals = append(c.Literals, f)
}

// LiteralSeenAt reports whether a literal was already recorded at pos, so
// a visitor can skip allocating an id for a duplicate before calling
// AddLiteral.
func (c *Collections) LiteralSeenAt(pos Position) bool {
	return c.literalSeen[pos]
}

// FindCallSiteAt looks up a previously recorded CallFact at exactly
// (line, col), used by control-flow builders that must link a discriminant
// or test expression to an existing CALL_SITE rather than mint a fresh
// EXPRESSION node.
func (c *Collections) FindCallSiteAt(pos Position) (*CallFact, bool) {
	for i := range c.Calls {
		if c.Calls[i].Pos == pos {
			return &c.Calls[i], true
		}
	}
	return nil, false
}

// Context builds the ScopeTracker-shaped context slice ([]string) out of
// a Collections' File and a scope stack, for callers that need to compute
// an id outside the live tracker (e.g. the builder re-deriving an id from
// stored scope fields).
func Context(file string, scope []string) []string {
	ctx := make([]string, 0, len(scope)+1)
	ctx = append(ctx, file)
	ctx = append(ctx, scope...)
	return ctx
}
