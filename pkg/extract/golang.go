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

// goExtractor mirrors tsExtractor but walks the Go grammar's node shapes.
// Every declaration becomes a Collections fact and cross-references are
// left to pkg/enrich, matching the rest of this package's single-pass
// design, instead of resolving a caller-local function-name map inline.
type goExtractor struct {
	source   []byte
	c        *Collections
	scope    *ident.ScopeTracker
	gen      *ident.Generator
	resolver *ident.CollisionResolver
	patches  []func(resolved []string)

	loopDepth         int
	enclosingMethodID string

	// literalSlots remembers the collision-resolver slot a LITERAL was
	// registered under, keyed by position, so an argument referencing that
	// same literal (CallArgumentFact.TargetID) resolves to the identical
	// node instead of minting a second, orphaned id for it.
	literalSlots map[Position]int
}

func extractGo(root *sitter.Node, source []byte, c *Collections) {
	ex := &goExtractor{
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

func (ex *goExtractor) newID(kind, name string, line, col int, collectionRef string) (string, int) {
	ctx := ex.scope.Context()
	id := ex.gen.GenerateSimple(kind, orAnon(name), ctx, line)
	slot := ex.resolver.Add(ident.Candidate{CollectionRef: collectionRef, BaseID: id, Context: ctx})
	return id, slot
}

func (ex *goExtractor) addPatch(p func(resolved []string)) {
	ex.patches = append(ex.patches, p)
}

func (ex *goExtractor) walkChildren(n *sitter.Node) {
	count := int(n.NamedChildCount())
	for i := 0; i < count; i++ {
		ex.walk(n.NamedChild(i))
	}
}

func (ex *goExtractor) walk(n *sitter.Node) {
	if n == nil {
		return
	}
	switch n.Type() {
	case "import_declaration":
		ex.visitImportDeclaration(n)
		return
	case "function_declaration":
		ex.visitFunction(n, "")
		return
	case "method_declaration":
		ex.visitMethod(n)
		return
	case "func_literal":
		ex.visitFuncLiteral(n)
		return
	case "type_declaration":
		ex.visitTypeDeclaration(n)
		return
	case "short_var_declaration":
		ex.visitShortVarDecl(n)
	case "var_declaration", "const_declaration":
		ex.visitVarDeclaration(n)
	case "call_expression":
		ex.visitCall(n)
		return
	case "for_statement":
		ex.visitFor(n)
		return
	case "if_statement":
		ex.visitIf(n)
		return
	case "expression_switch_statement", "type_switch_statement":
		ex.visitSwitch(n)
		return
	case "return_statement":
		ex.visitReturn(n)
	case "composite_literal":
		ex.visitNewExpression(n)
	case "selector_expression":
		ex.visitPropertyAccess(n)
	case "interpreted_string_literal", "raw_string_literal", "int_literal", "float_literal", "true", "false", "nil":
		ex.visitLiteral(n)
	}
	ex.walkChildren(n)
}

// --- Imports ---

func (ex *goExtractor) visitImportDeclaration(n *sitter.Node) {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		switch child.Type() {
		case "import_spec":
			ex.recordImportSpec(child)
		case "import_spec_list":
			for j := 0; j < int(child.NamedChildCount()); j++ {
				spec := child.NamedChild(j)
				if spec.Type() == "import_spec" {
					ex.recordImportSpec(spec)
				}
			}
		}
	}
}

func (ex *goExtractor) recordImportSpec(n *sitter.Node) {
	pathNode := n.ChildByFieldName("path")
	path := strings.Trim(nodeText(pathNode, ex.source), `"`)
	alias := ""
	if nameNode := n.ChildByFieldName("name"); nameNode != nil {
		alias = nodeText(nameNode, ex.source)
	}
	p := pos(n.StartPoint())
	localName := alias
	if localName == "" {
		parts := strings.Split(path, "/")
		localName = parts[len(parts)-1]
	}
	id, slot := ex.newID("IMPORT", localName, p.Line, p.Column, "imports")
	idx := len(ex.c.Imports)
	ex.c.Imports = append(ex.c.Imports, ImportFact{ID: id, LocalName: localName, ImportedAs: alias, FromModule: path, Pos: p})
	ex.addPatch(func(r []string) { ex.c.Imports[idx].ID = r[slot] })
}

// --- Functions / Methods / func literals ---

func (ex *goExtractor) visitFunction(n *sitter.Node, bindingName string) {
	name := bindingName
	if nameNode := n.ChildByFieldName("name"); nameNode != nil {
		name = nodeText(nameNode, ex.source)
	}
	startP := pos(n.StartPoint())
	endP := pos(n.EndPoint())
	id, slot := ex.newID("FUNCTION", name, startP.Line, startP.Column, "functions")

	ex.scope.Push(scopeLabelGo("function", name))
	defer ex.scope.Pop()

	params := ex.extractParams(n.ChildByFieldName("parameters"))

	idx := len(ex.c.Functions)
	ex.c.Functions = append(ex.c.Functions, FunctionFact{ID: id, Name: name, Scope: ex.scope.Context(), Pos: startP, EndPos: endP, Params: params})
	ex.addPatch(func(r []string) { ex.c.Functions[idx].ID = r[slot] })

	if body := n.ChildByFieldName("body"); body != nil {
		ex.walk(body)
	}
}

func (ex *goExtractor) visitMethod(n *sitter.Node) {
	name := nodeText(n.ChildByFieldName("name"), ex.source)
	receiverType := ex.extractReceiverType(n.ChildByFieldName("receiver"))
	fullName := name
	if receiverType != "" {
		fullName = receiverType + "." + name
	}

	startP := pos(n.StartPoint())
	endP := pos(n.EndPoint())
	id, slot := ex.newID("METHOD", fullName, startP.Line, startP.Column, "functions")

	ex.scope.Push(scopeLabelGo("method", fullName))
	prevMethod := ex.enclosingMethodID
	ex.enclosingMethodID = id
	defer func() { ex.enclosingMethodID = prevMethod; ex.scope.Pop() }()

	params := ex.extractParams(n.ChildByFieldName("parameters"))

	idx := len(ex.c.Functions)
	ex.c.Functions = append(ex.c.Functions, FunctionFact{
		ID: id, Name: fullName, Scope: ex.scope.Context(), Pos: startP, EndPos: endP,
		IsMethod: true, ReceiverClass: receiverType, Params: params,
	})
	ex.addPatch(func(r []string) { ex.c.Functions[idx].ID = r[slot] })

	if body := n.ChildByFieldName("body"); body != nil {
		ex.walk(body)
	}
}

func (ex *goExtractor) visitFuncLiteral(n *sitter.Node) {
	startP := pos(n.StartPoint())
	endP := pos(n.EndPoint())
	id, slot := ex.newID("FUNCTION", "", startP.Line, startP.Column, "functions")

	ex.scope.Push(scopeLabelGo("function", ""))
	defer ex.scope.Pop()

	params := ex.extractParams(n.ChildByFieldName("parameters"))

	idx := len(ex.c.Functions)
	ex.c.Functions = append(ex.c.Functions, FunctionFact{ID: id, Name: "", Scope: ex.scope.Context(), Pos: startP, EndPos: endP, IsArrow: true, Params: params})
	ex.addPatch(func(r []string) { ex.c.Functions[idx].ID = r[slot] })

	if body := n.ChildByFieldName("body"); body != nil {
		ex.walk(body)
	}
}

func scopeLabelGo(kind, name string) string {
	if name == "" {
		return kind + ":$anon"
	}
	return kind + ":" + name
}

func (ex *goExtractor) extractParams(paramsNode *sitter.Node) []ParamFact {
	if paramsNode == nil {
		return nil
	}
	var out []ParamFact
	for i := 0; i < int(paramsNode.NamedChildCount()); i++ {
		decl := paramsNode.NamedChild(i)
		if decl.Type() != "parameter_declaration" && decl.Type() != "variadic_parameter_declaration" {
			continue
		}
		nameNode := decl.ChildByFieldName("name")
		typeNode := decl.ChildByFieldName("type")
		name := nodeText(nameNode, ex.source)
		typeText := nodeText(typeNode, ex.source)
		pp := pos(decl.StartPoint())
		id, slot := ex.newID("PARAMETER", name, pp.Line, pp.Column, "parameters")
		pf := ParamFact{ID: id, Name: name, Type: typeText, Pos: pp}
		out = append(out, pf)
		localIdx := len(out) - 1
		ex.addPatch(func(r []string) { out[localIdx].ID = r[slot] })
	}
	return out
}

func (ex *goExtractor) extractReceiverType(receiverNode *sitter.Node) string {
	if receiverNode == nil {
		return ""
	}
	for i := 0; i < int(receiverNode.NamedChildCount()); i++ {
		decl := receiverNode.NamedChild(i)
		if decl.Type() != "parameter_declaration" {
			continue
		}
		typeNode := decl.ChildByFieldName("type")
		return baseTypeName(typeNode, ex.source)
	}
	return ""
}

func baseTypeName(n *sitter.Node, source []byte) string {
	if n == nil {
		return ""
	}
	switch n.Type() {
	case "pointer_type":
		return baseTypeName(lastChild(n), source)
	case "generic_type":
		return nodeText(n.ChildByFieldName("type"), source)
	default:
		name := nodeText(n, source)
		return strings.TrimPrefix(name, "*")
	}
}

// --- Types (struct / interface / alias) ---

func (ex *goExtractor) visitTypeDeclaration(n *sitter.Node) {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		switch child.Type() {
		case "type_spec", "type_alias":
			ex.recordTypeSpec(child)
		case "type_spec_list":
			for j := 0; j < int(child.NamedChildCount()); j++ {
				spec := child.NamedChild(j)
				if spec.Type() == "type_spec" {
					ex.recordTypeSpec(spec)
				}
			}
		}
	}
}

func (ex *goExtractor) recordTypeSpec(n *sitter.Node) {
	name := nodeText(n.ChildByFieldName("name"), ex.source)
	typeNode := n.ChildByFieldName("type")
	p := pos(n.StartPoint())

	switch typeKind(typeNode) {
	case "struct":
		id, slot := ex.newID("CLASS", name, p.Line, p.Column, "classes")
		idx := len(ex.c.Classes)
		ex.c.Classes = append(ex.c.Classes, ClassFact{ID: id, Name: name, Scope: ex.scope.Context(), Pos: p})
		ex.addPatch(func(r []string) { ex.c.Classes[idx].ID = r[slot] })
	case "interface":
		id, slot := ex.newID("INTERFACE", name, p.Line, p.Column, "tsDeclarations")
		idx := len(ex.c.TSDeclarations)
		ex.c.TSDeclarations = append(ex.c.TSDeclarations, TSDeclarationFact{ID: id, Kind: "interface", Name: name, Scope: ex.scope.Context(), Pos: p})
		ex.addPatch(func(r []string) { ex.c.TSDeclarations[idx].ID = r[slot] })
	default:
		id, slot := ex.newID("TYPE_ALIAS", name, p.Line, p.Column, "tsDeclarations")
		idx := len(ex.c.TSDeclarations)
		ex.c.TSDeclarations = append(ex.c.TSDeclarations, TSDeclarationFact{ID: id, Kind: "type_alias", Name: name, Scope: ex.scope.Context(), Pos: p})
		ex.addPatch(func(r []string) { ex.c.TSDeclarations[idx].ID = r[slot] })
	}
}

func typeKind(n *sitter.Node) string {
	if n == nil {
		return "alias"
	}
	switch n.Type() {
	case "struct_type":
		return "struct"
	case "interface_type":
		return "interface"
	default:
		return "alias"
	}
}

// --- Variables ---

func (ex *goExtractor) visitShortVarDecl(n *sitter.Node) {
	left := n.ChildByFieldName("left")
	right := n.ChildByFieldName("right")
	if left == nil {
		return
	}
	names := identListNames(left, ex.source)
	for i, name := range names {
		var init *sitter.Node
		if right != nil && i < int(right.NamedChildCount()) {
			init = right.NamedChild(i)
		}
		ex.recordVariable(name, "var", init, pos(n.StartPoint()))
	}
	if right != nil {
		ex.walk(right)
	}
}

func (ex *goExtractor) visitVarDeclaration(n *sitter.Node) {
	kind := "const"
	if n.Type() == "var_declaration" {
		kind = "var"
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		spec := n.NamedChild(i)
		if spec.Type() != "var_spec" && spec.Type() != "const_spec" {
			continue
		}
		nameField := spec.ChildByFieldName("name")
		value := spec.ChildByFieldName("value")
		names := identListNames(nameField, ex.source)
		for idx, name := range names {
			var init *sitter.Node
			if value != nil && idx < int(value.NamedChildCount()) {
				init = value.NamedChild(idx)
			} else if value != nil && value.NamedChildCount() == 0 {
				init = value
			}
			ex.recordVariable(name, kind, init, pos(spec.StartPoint()))
		}
		if value != nil {
			ex.walk(value)
		}
	}
}

func identListNames(n *sitter.Node, source []byte) []string {
	if n == nil {
		return nil
	}
	if n.Type() == "identifier" {
		return []string{nodeText(n, source)}
	}
	var out []string
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if c.Type() == "identifier" {
			out = append(out, nodeText(c, source))
		}
	}
	if len(out) == 0 {
		return []string{nodeText(n, source)}
	}
	return out
}

func (ex *goExtractor) recordVariable(name, kind string, init *sitter.Node, p Position) {
	class := ex.classifyAssignment(init)
	id, slot := ex.newID("VARIABLE", name, p.Line, p.Column, "variables")
	idx := len(ex.c.Variables)
	ex.c.Variables = append(ex.c.Variables, VariableFact{
		ID: id, Name: name, Kind: kind, Scope: ex.scope.Context(), Pos: p,
		Assignment: class, IsModuleTop: ex.scope.Depth() == 1,
	})
	ex.addPatch(func(r []string) { ex.c.Variables[idx].ID = r[slot] })
}

func (ex *goExtractor) classifyAssignment(n *sitter.Node) AssignmentClassification {
	if n == nil {
		return AssignmentClassification{Kind: AssignUnknown}
	}
	switch n.Type() {
	case "composite_literal":
		if typeKind(n.ChildByFieldName("type")) == "struct" || n.ChildByFieldName("type") == nil {
			return AssignmentClassification{Kind: AssignObjectLiteral}
		}
		return AssignmentClassification{Kind: AssignArrayLiteral}
	case "interpreted_string_literal", "raw_string_literal", "int_literal", "float_literal", "true", "false", "nil":
		return AssignmentClassification{Kind: AssignLiteral, LiteralValue: nodeText(n, ex.source)}
	case "call_expression":
		callee := n.ChildByFieldName("function")
		p := pos(n.StartPoint())
		if callee != nil && callee.Type() == "selector_expression" {
			return AssignmentClassification{Kind: AssignMethodCall, CallName: nodeText(callee.ChildByFieldName("field"), ex.source), CallPos: p}
		}
		return AssignmentClassification{Kind: AssignCallSite, CallName: nodeText(callee, ex.source), CallPos: p}
	case "identifier":
		return AssignmentClassification{Kind: AssignIdentifier, SourceName: nodeText(n, ex.source)}
	case "unary_expression":
		// &T{} construction reads as unary `&` over a composite literal.
		if operand := n.ChildByFieldName("operand"); operand != nil {
			if operand.Type() == "composite_literal" {
				return AssignmentClassification{Kind: AssignNewExpression, SourceName: nodeText(operand.ChildByFieldName("type"), ex.source)}
			}
			return AssignmentClassification{Kind: AssignUnary, SourceName: nodeText(operand, ex.source)}
		}
		return AssignmentClassification{Kind: AssignUnary}
	case "func_literal":
		return AssignmentClassification{Kind: AssignFunctionLiteral}
	case "selector_expression":
		return AssignmentClassification{Kind: AssignMemberExpr, SourceName: nodeText(n, ex.source)}
	case "binary_expression":
		return AssignmentClassification{Kind: AssignBinaryExpr, SourceName: nodeText(n.ChildByFieldName("left"), ex.source)}
	default:
		return AssignmentClassification{Kind: AssignUnknown}
	}
}

// --- Calls ---

func (ex *goExtractor) visitCall(n *sitter.Node) {
	callee := n.ChildByFieldName("function")
	p := pos(n.StartPoint())
	endP := pos(n.EndPoint())

	calleeName := ""
	isMethod := false
	receiver := ""
	if callee != nil {
		switch callee.Type() {
		case "selector_expression":
			isMethod = true
			calleeName = nodeText(callee.ChildByFieldName("field"), ex.source)
			receiver = nodeText(callee.ChildByFieldName("operand"), ex.source)
		default:
			calleeName = nodeText(callee, ex.source)
		}
	}

	id, slot := ex.newID("CALL", calleeName, p.Line, p.Column, "calls")
	args := ex.extractCallArguments(n.ChildByFieldName("arguments"))

	idx := len(ex.c.Calls)
	ex.c.Calls = append(ex.c.Calls, CallFact{
		ID: id, CalleeName: calleeName, IsMethod: isMethod, ReceiverRef: receiver,
		Scope: ex.scope.Context(), Pos: p, EndPos: endP, InsideLoop: ex.loopDepth > 0, Args: args,
	})
	ex.addPatch(func(r []string) { ex.c.Calls[idx].ID = r[slot] })

	if argsNode := n.ChildByFieldName("arguments"); argsNode != nil {
		for i := 0; i < int(argsNode.NamedChildCount()); i++ {
			ex.walk(argsNode.NamedChild(i))
		}
	}
}

func (ex *goExtractor) extractCallArguments(argsNode *sitter.Node) []CallArgumentFact {
	if argsNode == nil {
		return nil
	}
	var out []CallArgumentFact
	for i := 0; i < int(argsNode.NamedChildCount()); i++ {
		a := argsNode.NamedChild(i)
		targetID, slot := ex.argTargetID(a)
		caf := CallArgumentFact{ArgIndex: i, TargetID: targetID}
		out = append(out, caf)
		if slot >= 0 {
			localIdx := len(out) - 1
			ex.addPatch(func(r []string) { out[localIdx].TargetID = r[slot] })
		}
	}
	return out
}

func (ex *goExtractor) argTargetID(n *sitter.Node) (string, int) {
	if n == nil {
		return "", -1
	}
	p := pos(n.StartPoint())
	switch n.Type() {
	case "interpreted_string_literal", "raw_string_literal", "int_literal", "float_literal", "true", "false", "nil":
		ex.visitLiteral(n)
		return "", ex.literalSlots[p]
	case "composite_literal":
		return ex.newID("OBJECT_LITERAL", "", p.Line, p.Column, "objectLiteralRefs")
	case "identifier":
		return ex.newID("VARIABLE", nodeText(n, ex.source), p.Line, p.Column, "variableRefs")
	case "call_expression":
		callee := n.ChildByFieldName("function")
		return ex.newID("CALL", nodeText(callee, ex.source), p.Line, p.Column, "callRefs")
	default:
		return ex.newID("EXPRESSION", "", p.Line, p.Column, "expressionRefs")
	}
}

// --- composite_literal used as `new`-equivalent for struct construction ---

func (ex *goExtractor) visitNewExpression(n *sitter.Node) {
	typeNode := n.ChildByFieldName("type")
	className := nodeText(typeNode, ex.source)
	if className == "" {
		ex.walkChildren(n)
		return
	}
	p := pos(n.StartPoint())

	if ex.enclosingMethodID != "" {
		ex.c.Instantiations = append(ex.c.Instantiations, ClassInstantiationFact{
			ClassName: className, Pos: p, EnclosingMethodID: ex.enclosingMethodID,
		})
	}

	id, slot := ex.newID("NEW_EXPRESSION", className, p.Line, p.Column, "newExpressions")
	idx := len(ex.c.NewExpressions)
	ex.c.NewExpressions = append(ex.c.NewExpressions, NewExpressionFact{ID: id, ClassName: className, Pos: p})
	ex.addPatch(func(r []string) { ex.c.NewExpressions[idx].ID = r[slot] })

	if body := n.ChildByFieldName("body"); body != nil {
		ex.walkChildren(body)
	}
}

// --- Loops / branches ---

func (ex *goExtractor) visitFor(n *sitter.Node) {
	loopType := "for"
	var iterSource, iterKind string
	if rangeClause := findChildOfTypeGo(n, "range_clause"); rangeClause != nil {
		loopType = "for-range"
		iterSource = nodeText(rangeClause.ChildByFieldName("right"), ex.source)
		iterKind = "values"
	}

	p := pos(n.StartPoint())
	id, slot := ex.newID("LOOP", loopType, p.Line, p.Column, "loops")

	f := LoopFact{ID: id, LoopType: loopType, Scope: ex.scope.Context(), Pos: p, IteratesSource: iterSource, IteratesKind: iterKind}
	if cond := n.ChildByFieldName("condition"); cond != nil {
		f.HasCondition = true
		f.ConditionPos = pos(cond.StartPoint())
	}

	idx := len(ex.c.Loops)
	ex.c.Loops = append(ex.c.Loops, f)
	ex.addPatch(func(r []string) { ex.c.Loops[idx].ID = r[slot] })

	ex.loopDepth++
	ex.scope.Push(scopeLabelGo("loop_body", loopType))
	if body := n.ChildByFieldName("body"); body != nil {
		ex.walk(body)
	}
	ex.scope.Pop()
	ex.loopDepth--
}

func findChildOfTypeGo(n *sitter.Node, t string) *sitter.Node {
	count := int(n.NamedChildCount())
	for i := 0; i < count; i++ {
		c := n.NamedChild(i)
		if c.Type() == t {
			return c
		}
	}
	return nil
}

func (ex *goExtractor) visitIf(n *sitter.Node) {
	cond := n.ChildByFieldName("condition")
	p := pos(n.StartPoint())
	id, slot := ex.newID("BRANCH", "if", p.Line, p.Column, "branches")

	f := BranchFact{ID: id, BranchType: "if", Scope: ex.scope.Context(), Pos: p}
	if cond != nil && cond.Type() == "call_expression" {
		f.DiscriminantIsCall = true
		f.DiscriminantCallPos = pos(cond.StartPoint())
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

func (ex *goExtractor) visitSwitch(n *sitter.Node) {
	value := n.ChildByFieldName("value")
	p := pos(n.StartPoint())
	id, slot := ex.newID("BRANCH", "switch", p.Line, p.Column, "branches")

	f := BranchFact{ID: id, BranchType: "switch", Scope: ex.scope.Context(), Pos: p}
	if value != nil && value.Type() == "call_expression" {
		f.DiscriminantIsCall = true
		f.DiscriminantCallPos = pos(value.StartPoint())
	}
	idx := len(ex.c.Branches)
	ex.c.Branches = append(ex.c.Branches, f)
	ex.addPatch(func(r []string) { ex.c.Branches[idx].ID = r[slot] })

	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		if child.Type() != "expression_case" && child.Type() != "default_case" && child.Type() != "type_case" {
			continue
		}
		isDefault := child.Type() == "default_case"
		cp := pos(child.StartPoint())
		cid, cslot := ex.newID("CASE", "", cp.Line, cp.Column, "cases")
		cidx := len(ex.c.Cases)
		ex.c.Cases = append(ex.c.Cases, CaseFact{ID: cid, BranchID: id, IsDefault: isDefault, Pos: cp})
		ex.addPatch(func(r []string) { ex.c.Cases[cidx].ID = r[cslot]; ex.c.Cases[cidx].BranchID = r[slot] })

		for j := 0; j < int(child.NamedChildCount()); j++ {
			ex.walk(child.NamedChild(j))
		}
	}
	if value != nil {
		ex.walk(value)
	}
}

// --- Returns ---

func (ex *goExtractor) visitReturn(n *sitter.Node) {
	if n.NamedChildCount() == 0 {
		return
	}
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
	case AssignLiteral:
		sourceKind = "literal"
	}
	ex.c.Returns = append(ex.c.Returns, ReturnFact{SourceKind: sourceKind, SourceName: sourceName, SourcePos: sourcePos, Pos: pos(n.StartPoint())})
	for i := 0; i < int(n.NamedChildCount()); i++ {
		ex.walk(n.NamedChild(i))
	}
}

// --- Property access / literals ---

func (ex *goExtractor) visitPropertyAccess(n *sitter.Node) {
	obj := n.ChildByFieldName("operand")
	field := n.ChildByFieldName("field")
	if obj == nil || field == nil || obj.Type() != "identifier" {
		return
	}
	ex.c.PropertyAccess = append(ex.c.PropertyAccess, PropertyAccessFact{
		ObjectName: nodeText(obj, ex.source), Property: nodeText(field, ex.source), Pos: pos(n.StartPoint()),
	})
}

func (ex *goExtractor) visitLiteral(n *sitter.Node) {
	p := pos(n.StartPoint())
	if ex.c.LiteralSeenAt(p) {
		return
	}
	kind := n.Type()
	switch kind {
	case "interpreted_string_literal", "raw_string_literal":
		kind = "string"
	case "int_literal", "float_literal":
		kind = "number"
	case "true", "false":
		kind = "boolean"
	case "nil":
		kind = "null"
	}
	value := nodeText(n, ex.source)
	id, slot := ex.newID("LITERAL", kind, p.Line, p.Column, "literals")
	ex.literalSlots[p] = slot
	ex.c.AddLiteral(LiteralFact{ID: id, Kind: kind, Value: value, Pos: p})
	idx := len(ex.c.Literals) - 1
	ex.addPatch(func(r []string) { ex.c.Literals[idx].ID = r[slot] })
}
