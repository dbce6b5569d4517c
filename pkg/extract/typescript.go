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

package extract

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/kraklabs/grafema/pkg/ident"
)

// tsExtractor holds the mutable state threaded through one file's
// traversal: the scope stack, the id generator, the collision resolver,
// and a small set of ancestor flags the visitors below need (inside a
// loop body, inside an await expression) without re-walking upward.
type tsExtractor struct {
	source   []byte
	c        *Collections
	scope    *ident.ScopeTracker
	gen      *ident.Generator
	resolver *ident.CollisionResolver
	patches  []func(resolved []string)

	loopDepth  int
	awaitDepth int

	// enclosingMethodID supports ClassInstantiationFact.EnclosingMethodID:
	// a method in scope pushes a ClassInstantiation record for every `new`
	// call found inside its body.
	enclosingMethodID string

	// literalSlots remembers the collision-resolver slot a LITERAL was
	// registered under, keyed by position, so an argument referencing that
	// same literal (CallArgumentFact.TargetID) resolves to the identical
	// node instead of minting a second, orphaned id for it.
	literalSlots map[Position]int
}

// extractTypeScript runs the full visitor pass over a parsed TypeScript
// (or TSX / plain-JS-via-TS-grammar) syntax tree into c.
func extractTypeScript(root *sitter.Node, source []byte, c *Collections) {
	ex := &tsExtractor{
		source:       source,
		c:            c,
		scope:        ident.NewScopeTracker(c.File),
		gen:          ident.NewGenerator(c.File),
		resolver:     ident.NewCollisionResolver(),
		literalSlots: make(map[Position]int),
	}
	ex.walkChildren(root)

	resolved := ex.resolver.ResolveOrdered()
	for _, patch := range ex.patches {
		patch(resolved)
	}
}

// newID allocates a semantic id for (kind, name) in the current scope
// context, registers it with the collision resolver, and returns both the
// raw (pre-resolution) id and the slot to later resolve it by. Callers
// append the fact with the raw id, capture its slice index, then queue a
// patch that overwrites the ID field once resolution finishes.
func (ex *tsExtractor) newID(kind, name string, line, col int, collectionRef string) (string, int) {
	ctx := ex.scope.Context()
	id := ex.gen.GenerateSimple(kind, orAnon(name), ctx, line)
	slot := ex.resolver.Add(ident.Candidate{CollectionRef: collectionRef, BaseID: id, Context: ctx})
	return id, slot
}

func orAnon(name string) string {
	if name == "" {
		return "$anon"
	}
	return name
}

func (ex *tsExtractor) addPatch(p func(resolved []string)) {
	ex.patches = append(ex.patches, p)
}

func (ex *tsExtractor) walkChildren(n *sitter.Node) {
	count := int(n.NamedChildCount())
	for i := 0; i < count; i++ {
		ex.walk(n.NamedChild(i))
	}
}

func (ex *tsExtractor) walk(n *sitter.Node) {
	if n == nil {
		return
	}
	switch n.Type() {
	case "import_statement":
		ex.visitImport(n)
	case "export_statement":
		ex.visitExport(n)
	case "lexical_declaration", "variable_declaration":
		ex.visitVariableDeclaration(n)
	case "function_declaration", "generator_function_declaration":
		ex.visitFunction(n, "", false)
	case "class_declaration":
		ex.visitClass(n)
	case "interface_declaration":
		ex.visitTSDeclaration(n, "interface")
	case "type_alias_declaration":
		ex.visitTSDeclaration(n, "type_alias")
	case "enum_declaration":
		ex.visitTSDeclaration(n, "enum")
	case "call_expression":
		ex.visitCall(n, false)
		return // visitCall recurses into arguments itself
	case "await_expression":
		ex.visitAwait(n)
		return
	case "for_statement":
		ex.visitForStatement(n)
	case "for_in_statement":
		ex.visitForInStatement(n)
	case "while_statement", "do_statement":
		ex.visitWhileLike(n)
	case "if_statement":
		ex.visitIf(n)
		return
	case "switch_statement":
		ex.visitSwitch(n)
		return
	case "try_statement":
		ex.visitTry(n)
		return
	case "return_statement":
		ex.visitReturn(n)
	case "new_expression":
		ex.visitNewExpression(n)
		return
	case "assignment_expression":
		ex.visitAssignmentExpression(n)
		return
	case "update_expression":
		ex.visitUpdateExpression(n)
	case "member_expression":
		ex.visitPropertyAccess(n)
	case "string", "template_string", "number", "true", "false", "null", "regex":
		ex.visitLiteral(n)
	}
	ex.walkChildren(n)
}

// --- Imports / Exports (step 1) ---

func (ex *tsExtractor) visitImport(n *sitter.Node) {
	source := n.ChildByFieldName("source")
	fromModule := strings.Trim(nodeText(source, ex.source), `"'`)

	clause := findChildOfType(n, "import_clause")
	if clause == nil {
		return
	}
	for i := 0; i < int(clause.NamedChildCount()); i++ {
		child := clause.NamedChild(i)
		switch child.Type() {
		case "identifier":
			ex.recordImport(nodeText(child, ex.source), "", fromModule, child)
		case "namespace_import":
			name := findChildOfType(child, "identifier")
			ex.recordImport(nodeText(name, ex.source), "*", fromModule, child)
		case "named_imports":
			for j := 0; j < int(child.NamedChildCount()); j++ {
				spec := child.NamedChild(j)
				if spec.Type() != "import_specifier" {
					continue
				}
				nameNode := spec.ChildByFieldName("name")
				aliasNode := spec.ChildByFieldName("alias")
				imported := nodeText(nameNode, ex.source)
				local := imported
				if aliasNode != nil {
					local = nodeText(aliasNode, ex.source)
				}
				ex.recordImport(local, imported, fromModule, spec)
			}
		}
	}
}

func (ex *tsExtractor) recordImport(localName, importedAs, fromModule string, n *sitter.Node) {
	p := pos(n.StartPoint())
	id, slot := ex.newID("IMPORT", localName, p.Line, p.Column, "imports")
	idx := len(ex.c.Imports)
	ex.c.Imports = append(ex.c.Imports, ImportFact{ID: id, LocalName: localName, ImportedAs: importedAs, FromModule: fromModule, Pos: p})
	ex.addPatch(func(r []string) { ex.c.Imports[idx].ID = r[slot] })
}

func (ex *tsExtractor) visitExport(n *sitter.Node) {
	isDefault := findChildOfType(n, "default") != nil
	decl := n.ChildByFieldName("declaration")
	if decl != nil {
		name := declarationName(decl, ex.source)
		if name != "" {
			ex.recordExport(name, isDefault, n)
		}
		ex.walk(decl)
		return
	}
	// export { a, b as c }
	clause := findChildOfType(n, "export_clause")
	if clause != nil {
		for i := 0; i < int(clause.NamedChildCount()); i++ {
			spec := clause.NamedChild(i)
			if spec.Type() != "export_specifier" {
				continue
			}
			nameNode := spec.ChildByFieldName("name")
			ex.recordExport(nodeText(nameNode, ex.source), false, spec)
		}
	}
}

func declarationName(n *sitter.Node, source []byte) string {
	switch n.Type() {
	case "function_declaration", "generator_function_declaration", "class_declaration":
		return nodeText(n.ChildByFieldName("name"), source)
	case "lexical_declaration", "variable_declaration":
		if n.NamedChildCount() > 0 {
			d := n.NamedChild(0)
			return nodeText(d.ChildByFieldName("name"), source)
		}
	}
	return ""
}

func (ex *tsExtractor) recordExport(name string, isDefault bool, n *sitter.Node) {
	p := pos(n.StartPoint())
	id, slot := ex.newID("EXPORT", name, p.Line, p.Column, "exports")
	idx := len(ex.c.Exports)
	ex.c.Exports = append(ex.c.Exports, ExportFact{ID: id, Name: name, IsDefault: isDefault, Pos: p})
	ex.addPatch(func(r []string) { ex.c.Exports[idx].ID = r[slot] })
}

// --- Variables (step 2) ---

func (ex *tsExtractor) visitVariableDeclaration(n *sitter.Node) {
	kind := nodeText(n.Child(0), ex.source) // "const" | "let" | "var"
	for i := 0; i < int(n.NamedChildCount()); i++ {
		d := n.NamedChild(i)
		if d.Type() != "variable_declarator" {
			continue
		}
		nameNode := d.ChildByFieldName("name")
		valueNode := d.ChildByFieldName("value")
		name := nodeText(nameNode, ex.source)
		p := pos(d.StartPoint())

		// An arrow/function expression assigned to a const is still a
		// Function fact (step 3 runs function extraction before classifying
		// as a generic variable), named after the binding.
		if valueNode != nil && (valueNode.Type() == "arrow_function" || valueNode.Type() == "function_expression") {
			ex.visitFunction(valueNode, name, valueNode.Type() == "arrow_function")
			continue
		}

		class := ex.classifyAssignment(valueNode)
		id, slot := ex.newID("VARIABLE", name, p.Line, p.Column, "variables")
		idx := len(ex.c.Variables)
		ex.c.Variables = append(ex.c.Variables, VariableFact{
			ID: id, Name: name, Kind: kind, Scope: ex.scope.Context(), Pos: p,
			Assignment: class, IsModuleTop: ex.scope.Depth() == 1,
		})
		ex.addPatch(func(r []string) { ex.c.Variables[idx].ID = r[slot] })

		if valueNode != nil {
			ex.walk(valueNode)
		}
	}
}

// classifyAssignment is a strictly ordered classifier: unwrap
// await/type-assertion wrappers first, then object/array literal,
// primitive literal (a template string is classified as a plain LITERAL;
// its interpolations are not recorded), call expression (by callee
// shape), identifier, new expression, function/arrow, member expression,
// binary, conditional (only the consequence arm is classified; the
// alternate arm is not followed), logical, unary, and a final catch-all.
// Unknown shapes produce no edge (AssignUnknown).
func (ex *tsExtractor) classifyAssignment(n *sitter.Node) AssignmentClassification {
	if n == nil {
		return AssignmentClassification{Kind: AssignUnknown}
	}
	switch n.Type() {
	case "await_expression", "as_expression", "satisfies_expression", "non_null_expression", "parenthesized_expression":
		inner := n.NamedChild(int(n.NamedChildCount()) - 1)
		return ex.classifyAssignment(inner)
	case "object":
		return AssignmentClassification{Kind: AssignObjectLiteral}
	case "array":
		return AssignmentClassification{Kind: AssignArrayLiteral}
	case "string", "template_string", "number", "true", "false", "null", "undefined":
		return AssignmentClassification{Kind: AssignLiteral, LiteralValue: nodeText(n, ex.source)}
	case "call_expression":
		callee := n.ChildByFieldName("function")
		p := pos(n.StartPoint())
		if callee != nil && callee.Type() == "member_expression" {
			return AssignmentClassification{Kind: AssignMethodCall, CallName: nodeText(callee.ChildByFieldName("property"), ex.source), CallPos: p}
		}
		return AssignmentClassification{Kind: AssignCallSite, CallName: nodeText(callee, ex.source), CallPos: p}
	case "identifier":
		return AssignmentClassification{Kind: AssignIdentifier, SourceName: nodeText(n, ex.source)}
	case "new_expression":
		return AssignmentClassification{Kind: AssignNewExpression, SourceName: nodeText(n.ChildByFieldName("constructor"), ex.source)}
	case "arrow_function", "function_expression":
		return AssignmentClassification{Kind: AssignFunctionLiteral}
	case "member_expression":
		return AssignmentClassification{Kind: AssignMemberExpr, SourceName: nodeText(n, ex.source)}
	case "binary_expression":
		return AssignmentClassification{Kind: AssignBinaryExpr, SourceName: nodeText(n.ChildByFieldName("left"), ex.source)}
	case "ternary_expression":
		cons := ex.classifyAssignment(n.ChildByFieldName("consequence"))
		return AssignmentClassification{Kind: AssignConditional, SourceName: cons.SourceName}
	case "logical_expression":
		return AssignmentClassification{Kind: AssignLogical, SourceName: nodeText(n.ChildByFieldName("left"), ex.source)}
	case "unary_expression":
		return AssignmentClassification{Kind: AssignUnary, SourceName: nodeText(n.ChildByFieldName("argument"), ex.source)}
	case "sequence_expression":
		return ex.classifyAssignment(n.NamedChild(int(n.NamedChildCount()) - 1))
	case "assignment_expression":
		return ex.classifyAssignment(n.ChildByFieldName("right"))
	default:
		return AssignmentClassification{Kind: AssignUnknown}
	}
}

// --- Functions (step 3) ---

func (ex *tsExtractor) visitFunction(n *sitter.Node, bindingName string, isArrow bool) {
	name := bindingName
	if nameNode := n.ChildByFieldName("name"); nameNode != nil {
		name = nodeText(nameNode, ex.source)
	}
	async := findChildOfType(n, "async") != nil
	generator := strings.Contains(n.Type(), "generator") || findChildOfType(n, "*") != nil

	startP := pos(n.StartPoint())
	endP := pos(n.EndPoint())
	id, slot := ex.newID("FUNCTION", name, startP.Line, startP.Column, "functions")

	ex.scope.Push(scopeLabel("function", name))
	defer ex.scope.Pop()

	params := ex.extractParams(n.ChildByFieldName("parameters"))

	idx := len(ex.c.Functions)
	ex.c.Functions = append(ex.c.Functions, FunctionFact{
		ID: id, Name: name, Scope: ex.scope.Context(), Pos: startP, EndPos: endP,
		Async: async, Generator: generator, IsArrow: isArrow, Params: params,
	})
	ex.addPatch(func(r []string) { ex.c.Functions[idx].ID = r[slot] })

	// arrow_function's "body" field covers both a block and a concise
	// expression body (`x => x + 1`); no separate case needed.
	if body := n.ChildByFieldName("body"); body != nil {
		ex.walk(body)
	}
}

func scopeLabel(kind, name string) string {
	if name == "" {
		return kind + ":$anon"
	}
	return kind + ":" + name
}

func (ex *tsExtractor) extractParams(paramsNode *sitter.Node) []ParamFact {
	if paramsNode == nil {
		return nil
	}
	var out []ParamFact
	for i := 0; i < int(paramsNode.NamedChildCount()); i++ {
		p := paramsNode.NamedChild(i)
		nameNode := p
		if p.Type() == "required_parameter" || p.Type() == "optional_parameter" {
			if pat := p.ChildByFieldName("pattern"); pat != nil {
				nameNode = pat
			}
		}
		name := nodeText(nameNode, ex.source)
		typeText := ""
		if tn := p.ChildByFieldName("type"); tn != nil {
			typeText = nodeText(tn, ex.source)
		}
		pp := pos(p.StartPoint())
		id, slot := ex.newID("PARAMETER", name, pp.Line, pp.Column, "parameters")
		pf := ParamFact{ID: id, Name: name, Type: typeText, Pos: pp}
		out = append(out, pf)
		localIdx := len(out) - 1
		ex.addPatch(func(r []string) { out[localIdx].ID = r[slot] })
	}
	return out
}

// --- Classes (step 6) ---

func (ex *tsExtractor) visitClass(n *sitter.Node) {
	name := nodeText(n.ChildByFieldName("name"), ex.source)
	p := pos(n.StartPoint())
	id, slot := ex.newID("CLASS", name, p.Line, p.Column, "classes")

	extendsRef := ""
	var implementsRefs []string
	heritage := findChildOfType(n, "class_heritage")
	if heritage != nil {
		for i := 0; i < int(heritage.NamedChildCount()); i++ {
			clause := heritage.NamedChild(i)
			switch clause.Type() {
			case "extends_clause":
				extendsRef = nodeText(clause.NamedChild(0), ex.source)
			case "implements_clause":
				for j := 0; j < int(clause.NamedChildCount()); j++ {
					implementsRefs = append(implementsRefs, nodeText(clause.NamedChild(j), ex.source))
				}
			}
		}
	}

	idx := len(ex.c.Classes)
	ex.c.Classes = append(ex.c.Classes, ClassFact{ID: id, Name: name, Scope: ex.scope.Context(), Pos: p, ExtendsRef: extendsRef, Implements: implementsRefs})
	ex.addPatch(func(r []string) { ex.c.Classes[idx].ID = r[slot] })

	ex.scope.Push(scopeLabel("class", name))
	defer ex.scope.Pop()

	body := n.ChildByFieldName("body")
	if body == nil {
		return
	}
	for i := 0; i < int(body.NamedChildCount()); i++ {
		member := body.NamedChild(i)
		if member.Type() != "method_definition" {
			continue
		}
		ex.visitMethod(member, name)
	}
}

func (ex *tsExtractor) visitMethod(n *sitter.Node, className string) {
	name := nodeText(n.ChildByFieldName("name"), ex.source)
	async := findChildOfType(n, "async") != nil
	p := pos(n.StartPoint())
	endP := pos(n.EndPoint())
	id, slot := ex.newID("METHOD", name, p.Line, p.Column, "functions")

	ex.scope.Push(scopeLabel("method", className+"."+name))
	prevMethod := ex.enclosingMethodID
	ex.enclosingMethodID = id
	defer func() { ex.enclosingMethodID = prevMethod; ex.scope.Pop() }()

	params := ex.extractParams(n.ChildByFieldName("parameters"))

	idx := len(ex.c.Functions)
	ex.c.Functions = append(ex.c.Functions, FunctionFact{
		ID: id, Name: name, Scope: ex.scope.Context(), Pos: p, EndPos: endP,
		Async: async, IsMethod: true, ReceiverClass: className, Params: params,
	})
	ex.addPatch(func(r []string) { ex.c.Functions[idx].ID = r[slot] })

	if body := n.ChildByFieldName("body"); body != nil {
		ex.walk(body)
	}
}

// --- TypeScript declarations (step 7) ---

func (ex *tsExtractor) visitTSDeclaration(n *sitter.Node, kind string) {
	name := nodeText(n.ChildByFieldName("name"), ex.source)
	p := pos(n.StartPoint())
	id, slot := ex.newID(strings.ToUpper(kind), name, p.Line, p.Column, "tsDeclarations")
	idx := len(ex.c.TSDeclarations)
	ex.c.TSDeclarations = append(ex.c.TSDeclarations, TSDeclarationFact{ID: id, Kind: kind, Name: name, Scope: ex.scope.Context(), Pos: p})
	ex.addPatch(func(r []string) { ex.c.TSDeclarations[idx].ID = r[slot] })
}

// --- Calls (step 9), arguments, await (step 10) ---

func (ex *tsExtractor) visitCall(n *sitter.Node, awaited bool) {
	callee := n.ChildByFieldName("function")
	p := pos(n.StartPoint())
	endP := pos(n.EndPoint())

	calleeName := ""
	isMethod := false
	receiver := ""
	if callee != nil {
		switch callee.Type() {
		case "member_expression":
			isMethod = true
			calleeName = nodeText(callee.ChildByFieldName("property"), ex.source)
			receiver = nodeText(callee.ChildByFieldName("object"), ex.source)
		default:
			calleeName = nodeText(callee, ex.source)
		}
	}

	id, slot := ex.newID("CALL", calleeName, p.Line, p.Column, "calls")
	args := ex.extractCallArguments(n.ChildByFieldName("arguments"))

	idx := len(ex.c.Calls)
	ex.c.Calls = append(ex.c.Calls, CallFact{
		ID: id, CalleeName: calleeName, IsMethod: isMethod, ReceiverRef: receiver,
		Scope: ex.scope.Context(), Pos: p, EndPos: endP,
		Awaited: awaited || ex.awaitDepth > 0, InsideLoop: ex.loopDepth > 0, Args: args,
	})
	ex.addPatch(func(r []string) { ex.c.Calls[idx].ID = r[slot] })

	if argsNode := n.ChildByFieldName("arguments"); argsNode != nil {
		for i := 0; i < int(argsNode.NamedChildCount()); i++ {
			ex.walk(argsNode.NamedChild(i))
		}
	}
}

func (ex *tsExtractor) extractCallArguments(argsNode *sitter.Node) []CallArgumentFact {
	if argsNode == nil {
		return nil
	}
	var out []CallArgumentFact
	argIdx := 0
	for i := 0; i < int(argsNode.NamedChildCount()); i++ {
		a := argsNode.NamedChild(i)
		isSpread := a.Type() == "spread_element"
		target := a
		if isSpread && a.NamedChildCount() > 0 {
			target = a.NamedChild(0)
		}
		targetID, slot := ex.argTargetID(target)
		caf := CallArgumentFact{ArgIndex: argIdx, IsSpread: isSpread, TargetID: targetID}
		out = append(out, caf)
		if slot >= 0 {
			localIdx := len(out) - 1
			ex.addPatch(func(r []string) { out[localIdx].TargetID = r[slot] })
		}
		argIdx++
	}
	return out
}

// argTargetID allocates (or synthesizes) the id an argument's source node
// resolves to: a LITERAL for primitives, an ObjectLiteral/ArrayLiteral
// marker for composite literals, a fresh EXPRESSION id otherwise. Nested
// identifiers are recorded as a reference to whatever VARIABLE/PARAMETER
// shares that name; the enrichment phase (pkg/enrich) is what actually
// links an argument to a specific declaration via AliasTracker-style
// resolution, so here we only need a stable per-occurrence id.
func (ex *tsExtractor) argTargetID(n *sitter.Node) (string, int) {
	if n == nil {
		return "", -1
	}
	p := pos(n.StartPoint())
	switch n.Type() {
	case "string", "template_string", "number", "true", "false", "null":
		ex.visitLiteral(n)
		return "", ex.literalSlots[p]
	case "object":
		return ex.newID("OBJECT_LITERAL", "", p.Line, p.Column, "objectLiteralRefs")
	case "array":
		return ex.newID("ARRAY_LITERAL", "", p.Line, p.Column, "arrayLiteralRefs")
	case "identifier":
		return ex.newID("VARIABLE", nodeText(n, ex.source), p.Line, p.Column, "variableRefs")
	case "call_expression":
		callee := n.ChildByFieldName("function")
		return ex.newID("CALL", nodeText(callee, ex.source), p.Line, p.Column, "callRefs")
	default:
		return ex.newID("EXPRESSION", "", p.Line, p.Column, "expressionRefs")
	}
}

func (ex *tsExtractor) visitAwait(n *sitter.Node) {
	ex.awaitDepth++
	defer func() { ex.awaitDepth-- }()

	if ex.scope.Depth() == 1 {
		ex.c.HasTopLevelAwait = true
	}

	inner := n.NamedChild(0)
	if inner != nil && inner.Type() == "call_expression" {
		ex.visitCall(inner, true)
		return
	}
	ex.walk(inner)
}

// --- Property accesses (step 11) ---

func (ex *tsExtractor) visitPropertyAccess(n *sitter.Node) {
	obj := n.ChildByFieldName("object")
	prop := n.ChildByFieldName("property")
	if obj == nil || prop == nil || obj.Type() != "identifier" {
		return
	}
	ex.c.PropertyAccess = append(ex.c.PropertyAccess, PropertyAccessFact{
		ObjectName: nodeText(obj, ex.source), Property: nodeText(prop, ex.source), Pos: pos(n.StartPoint()),
	})
}

// --- New expressions (step 12) / class instantiation (step 6) ---

func (ex *tsExtractor) visitNewExpression(n *sitter.Node) {
	className := nodeText(n.ChildByFieldName("constructor"), ex.source)
	p := pos(n.StartPoint())

	if ex.enclosingMethodID != "" {
		ex.c.Instantiations = append(ex.c.Instantiations, ClassInstantiationFact{
			ClassName: className, Pos: p, EnclosingMethodID: ex.enclosingMethodID,
		})
	}

	id, slot := ex.newID("NEW_EXPRESSION", className, p.Line, p.Column, "newExpressions")
	args := ex.extractCallArguments(n.ChildByFieldName("arguments"))

	idx := len(ex.c.NewExpressions)
	ex.c.NewExpressions = append(ex.c.NewExpressions, NewExpressionFact{ID: id, ClassName: className, Pos: p, Args: args})
	ex.addPatch(func(r []string) { ex.c.NewExpressions[idx].ID = r[slot] })

	// new Promise((resolve, reject) => ...) executor recognition.
	if className == "Promise" {
		if argsNode := n.ChildByFieldName("arguments"); argsNode != nil && argsNode.NamedChildCount() > 0 {
			first := argsNode.NamedChild(0)
			if first.Type() == "arrow_function" || first.Type() == "function_expression" {
				ex.recordPromiseExecutor(slot, first)
			}
		}
	}

	if argsNode := n.ChildByFieldName("arguments"); argsNode != nil {
		for i := 0; i < int(argsNode.NamedChildCount()); i++ {
			ex.walk(argsNode.NamedChild(i))
		}
	}
}

func (ex *tsExtractor) recordPromiseExecutor(constructorSlot int, fn *sitter.Node) {
	params := ex.extractParams(fn.ChildByFieldName("parameters"))
	resolveParam, rejectParam := "", ""
	if len(params) > 0 {
		resolveParam = params[0].Name
	}
	if len(params) > 1 {
		rejectParam = params[1].Name
	}
	peIdx := len(ex.c.PromiseExecs)
	ex.c.PromiseExecs = append(ex.c.PromiseExecs, PromiseExecutorFact{
		ResolveParam: resolveParam, RejectParam: rejectParam,
		FunctionStart: pos(fn.StartPoint()), FunctionEnd: pos(fn.EndPoint()),
	})
	ex.addPatch(func(r []string) { ex.c.PromiseExecs[peIdx].ConstructorCallID = r[constructorSlot] })
}

// --- Loops, branches, cases, try (builder §4.3, folded into extraction) ---

func (ex *tsExtractor) visitForStatement(n *sitter.Node) {
	p := pos(n.StartPoint())
	id, slot := ex.newID("LOOP", "for", p.Line, p.Column, "loops")

	f := LoopFact{ID: id, LoopType: "for", Scope: ex.scope.Context(), Pos: p}
	if init := n.ChildByFieldName("initializer"); init != nil {
		f.HasInit = true
		if init.NamedChildCount() > 0 {
			d := init.NamedChild(0)
			f.InitVarName = nodeText(d.ChildByFieldName("name"), ex.source)
		}
	}
	if cond := n.ChildByFieldName("condition"); cond != nil {
		f.HasCondition = true
		f.ConditionPos = pos(cond.StartPoint())
	}
	if upd := n.ChildByFieldName("increment"); upd != nil {
		f.HasUpdate = true
		f.UpdatePos = pos(upd.StartPoint())
	}

	idx := len(ex.c.Loops)
	ex.c.Loops = append(ex.c.Loops, f)
	ex.addPatch(func(r []string) { ex.c.Loops[idx].ID = r[slot] })

	ex.withLoopBody(n.ChildByFieldName("body"), "for")
}

func (ex *tsExtractor) visitForInStatement(n *sitter.Node) {
	// tree-sitter-typescript uses for_in_statement for both `for..in` and
	// `for..of`; the literal "of"/"in" keyword child distinguishes them.
	loopType := "for-in"
	kind := "keys"
	if findChildOfType(n, "of") != nil {
		loopType = "for-of"
		kind = "values"
	}
	if findChildOfType(n, "await") != nil {
		loopType = "for-await-of"
	}

	p := pos(n.StartPoint())
	id, slot := ex.newID("LOOP", loopType, p.Line, p.Column, "loops")

	iterSource := nodeText(n.ChildByFieldName("right"), ex.source)

	f := LoopFact{ID: id, LoopType: loopType, Scope: ex.scope.Context(), Pos: p, IteratesSource: iterSource, IteratesKind: kind}
	idx := len(ex.c.Loops)
	ex.c.Loops = append(ex.c.Loops, f)
	ex.addPatch(func(r []string) { ex.c.Loops[idx].ID = r[slot] })

	ex.withLoopBody(n.ChildByFieldName("body"), loopType)
}

func (ex *tsExtractor) visitWhileLike(n *sitter.Node) {
	loopType := "while"
	if n.Type() == "do_statement" {
		loopType = "do-while"
	}
	p := pos(n.StartPoint())
	id, slot := ex.newID("LOOP", loopType, p.Line, p.Column, "loops")

	cond := n.ChildByFieldName("condition")
	f := LoopFact{ID: id, LoopType: loopType, Scope: ex.scope.Context(), Pos: p}
	if cond != nil {
		f.HasCondition = true
		f.ConditionPos = pos(cond.StartPoint())
	}
	idx := len(ex.c.Loops)
	ex.c.Loops = append(ex.c.Loops, f)
	ex.addPatch(func(r []string) { ex.c.Loops[idx].ID = r[slot] })

	ex.withLoopBody(n.ChildByFieldName("body"), loopType)
}

func (ex *tsExtractor) withLoopBody(body *sitter.Node, label string) {
	ex.loopDepth++
	ex.scope.Push(scopeLabel("loop_body", label))
	defer func() { ex.scope.Pop(); ex.loopDepth-- }()
	if body != nil {
		ex.walk(body)
	}
}

func (ex *tsExtractor) visitIf(n *sitter.Node) {
	cond := n.ChildByFieldName("condition")
	p := pos(n.StartPoint())
	id, slot := ex.newID("BRANCH", "if", p.Line, p.Column, "branches")

	f := BranchFact{ID: id, BranchType: "if", Scope: ex.scope.Context(), Pos: p}

	var condExprNode *sitter.Node = cond
	if cond != nil && cond.NamedChildCount() > 0 {
		condExprNode = cond.NamedChild(0)
	}
	if condExprNode != nil && condExprNode.Type() == "call_expression" {
		f.DiscriminantIsCall = true
		f.DiscriminantCallPos = pos(condExprNode.StartPoint())
	}

	idx := len(ex.c.Branches)
	ex.c.Branches = append(ex.c.Branches, f)
	ex.addPatch(func(r []string) { ex.c.Branches[idx].ID = r[slot] })

	ex.scope.Push("if_statement")
	if cons := n.ChildByFieldName("consequence"); cons != nil {
		ex.walk(cons)
	}
	ex.scope.Pop()

	if alt := n.ChildByFieldName("alternative"); alt != nil {
		ex.scope.Push("else_statement")
		ex.walk(alt)
		ex.scope.Pop()
	}

	if cond != nil {
		ex.walk(cond)
	}
}

func (ex *tsExtractor) visitSwitch(n *sitter.Node) {
	value := n.ChildByFieldName("value")
	p := pos(n.StartPoint())
	id, slot := ex.newID("BRANCH", "switch", p.Line, p.Column, "branches")

	f := BranchFact{ID: id, BranchType: "switch", Scope: ex.scope.Context(), Pos: p}
	disc := value
	if disc != nil && disc.Type() == "parenthesized_expression" && disc.NamedChildCount() > 0 {
		disc = disc.NamedChild(0)
	}
	if disc != nil && disc.Type() == "call_expression" {
		f.DiscriminantIsCall = true
		f.DiscriminantCallPos = pos(disc.StartPoint())
	}
	idx := len(ex.c.Branches)
	ex.c.Branches = append(ex.c.Branches, f)
	ex.addPatch(func(r []string) { ex.c.Branches[idx].ID = r[slot] })

	body := n.ChildByFieldName("body")
	if body != nil {
		for i := 0; i < int(body.NamedChildCount()); i++ {
			caseNode := body.NamedChild(i)
			isDefault := caseNode.Type() == "switch_default"
			if caseNode.Type() != "switch_case" && !isDefault {
				continue
			}
			cp := pos(caseNode.StartPoint())
			cid, cslot := ex.newID("CASE", "", cp.Line, cp.Column, "cases")
			cidx := len(ex.c.Cases)
			ex.c.Cases = append(ex.c.Cases, CaseFact{ID: cid, BranchID: id, IsDefault: isDefault, Pos: cp})
			ex.addPatch(func(r []string) { ex.c.Cases[cidx].ID = r[cslot]; ex.c.Cases[cidx].BranchID = r[slot] })

			for j := 0; j < int(caseNode.NamedChildCount()); j++ {
				ex.walk(caseNode.NamedChild(j))
			}
		}
	}
	if value != nil {
		ex.walk(value)
	}
}

func (ex *tsExtractor) visitTry(n *sitter.Node) {
	p := pos(n.StartPoint())
	id, slot := ex.newID("TRY_BLOCK", "try", p.Line, p.Column, "tries")

	f := TryFact{ID: id, Scope: ex.scope.Context(), Pos: p}
	idx := len(ex.c.Tries)
	ex.c.Tries = append(ex.c.Tries, f)
	ex.addPatch(func(r []string) { ex.c.Tries[idx].ID = r[slot] })

	if body := n.ChildByFieldName("body"); body != nil {
		ex.walk(body)
	}
	if handler := n.ChildByFieldName("handler"); handler != nil {
		ex.walk(handler)
	}
	if finalizer := n.ChildByFieldName("finalizer"); finalizer != nil {
		ex.walk(finalizer)
	}
}

// --- Returns (§4.5) ---

func (ex *tsExtractor) visitReturn(n *sitter.Node) {
	arg := n.NamedChild(0)
	class := ex.classifyAssignment(arg)
	sourceKind := "expression"
	sourceName := class.SourceName
	var sourcePos Position
	switch class.Kind {
	case AssignIdentifier:
		sourceKind = "variable"
	case AssignCallSite, AssignMethodCall:
		sourceKind = "call"
		sourceName = class.CallName
		sourcePos = class.CallPos
	case AssignLiteral, AssignTemplate:
		sourceKind = "literal"
	}
	ex.c.Returns = append(ex.c.Returns, ReturnFact{
		SourceKind: sourceKind, SourceName: sourceName, SourcePos: sourcePos, Pos: pos(n.StartPoint()),
	})
	if arg != nil {
		ex.walk(arg)
	}
}

// --- Update expressions (step 5) ---

func (ex *tsExtractor) visitUpdateExpression(n *sitter.Node) {
	// Module-level i++ is captured as a PropertyAccessFact on the target
	// with Property "$update"; pkg/build creates no UPDATE_EXPRESSION node
	// from it.
	if ex.scope.Depth() != 1 {
		return
	}
	target := n.NamedChild(0)
	if target == nil {
		return
	}
	ex.c.PropertyAccess = append(ex.c.PropertyAccess, PropertyAccessFact{
		ObjectName: nodeText(target, ex.source), Property: "$update", Pos: pos(n.StartPoint()),
	})
}

// --- Mutations (§4.5) ---

func (ex *tsExtractor) visitAssignmentExpression(n *sitter.Node) {
	left := n.ChildByFieldName("left")
	right := n.ChildByFieldName("right")
	p := pos(n.StartPoint())

	switch {
	case left != nil && left.Type() == "subscript_expression":
		ex.recordIndexMutation(left, right, p)
	case left != nil && left.Type() == "member_expression":
		ex.recordPropertyMutation(left, right, p)
	}

	if right != nil {
		ex.walk(right)
	}
}

func (ex *tsExtractor) recordIndexMutation(left, right *sitter.Node, p Position) {
	target := nodeText(left.ChildByFieldName("object"), ex.source)
	index := left.ChildByFieldName("index")
	method := "index_assign"
	kind := "array"
	computedVar := ""
	if index != nil && index.Type() != "number" {
		kind = "object"
		computedVar = nodeText(index, ex.source)
	}
	id, slot := ex.newID("ARRAY_MUTATION", target, p.Line, p.Column, "mutations")
	if kind == "object" {
		id, slot = ex.newID("OBJECT_MUTATION", target, p.Line, p.Column, "mutations")
		method = "computed_assign"
	}
	idx := len(ex.c.Mutations)
	ex.c.Mutations = append(ex.c.Mutations, MutationFact{
		ID: id, Kind: kind, Method: method, TargetName: target, ComputedKeyVar: computedVar, Pos: p,
		Values: []MutationValueFact{ex.mutationValue(right, 0)},
	})
	ex.addPatch(func(r []string) { ex.c.Mutations[idx].ID = r[slot] })
}

func (ex *tsExtractor) recordPropertyMutation(left, right *sitter.Node, p Position) {
	target := nodeText(left.ChildByFieldName("object"), ex.source)
	id, slot := ex.newID("OBJECT_MUTATION", target, p.Line, p.Column, "mutations")
	idx := len(ex.c.Mutations)
	ex.c.Mutations = append(ex.c.Mutations, MutationFact{
		ID: id, Kind: "object", Method: "property_assign", TargetName: target, Pos: p,
		Values: []MutationValueFact{ex.mutationValue(right, 0)},
	})
	ex.addPatch(func(r []string) { ex.c.Mutations[idx].ID = r[slot] })
}

func (ex *tsExtractor) mutationValue(n *sitter.Node, argIndex int) MutationValueFact {
	class := ex.classifyAssignment(n)
	origin := "VARIABLE"
	switch class.Kind {
	case AssignLiteral:
		origin = "LITERAL"
	case AssignObjectLiteral:
		origin = "OBJECT_LITERAL"
	case AssignArrayLiteral:
		origin = "ARRAY_LITERAL"
	case AssignCallSite, AssignMethodCall:
		origin = "CALL"
	}
	return MutationValueFact{ArgIndex: argIndex, OriginKind: origin}
}

// --- Literals (step 15) ---

func (ex *tsExtractor) visitLiteral(n *sitter.Node) {
	p := pos(n.StartPoint())
	if ex.c.LiteralSeenAt(p) {
		return
	}
	kind := n.Type()
	switch kind {
	case "true", "false":
		kind = "boolean"
	}
	value := nodeText(n, ex.source)
	id, slot := ex.newID("LITERAL", kind, p.Line, p.Column, "literals")
	ex.literalSlots[p] = slot
	ex.c.AddLiteral(LiteralFact{ID: id, Kind: kind, Value: value, Pos: p})
	idx := len(ex.c.Literals) - 1
	ex.addPatch(func(r []string) { ex.c.Literals[idx].ID = r[slot] })
}

// --- small tree helpers ---

func findChildOfType(n *sitter.Node, t string) *sitter.Node {
	if n == nil {
		return nil
	}
	count := int(n.ChildCount())
	for i := 0; i < count; i++ {
		c := n.Child(i)
		if c.Type() == t {
			return c
		}
	}
	return nil
}

func lastChild(n *sitter.Node) *sitter.Node {
	count := int(n.NamedChildCount())
	if count == 0 {
		return nil
	}
	return n.NamedChild(count - 1)
}
