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

// Package build materializes a finished extract.Collections into graph
// nodes and edges: control-flow builders, call/argument linking,
// mutation/data-flow edges. Builders never parse source text; they only
// read facts a visitor already recorded, then decide ownership (the
// CONTAINS edge from the nearest enclosing scope) and cross-fact
// references (PASSES_ARGUMENT, FLOWS_INTO). The return statements in
// Collections.Returns are not materialized: no RETURNS edge is built.
package build

import (
	"context"
	"fmt"
	"strings"

	"github.com/kraklabs/grafema/pkg/extract"
	"github.com/kraklabs/grafema/pkg/graph"
)

const scopeKeySep = "\x1f"

// Builder materializes one file's Collections into g.
type Builder struct {
	g graph.Graph
}

// New creates a Builder writing into g.
func New(g graph.Graph) *Builder {
	return &Builder{g: g}
}

// Build writes every node and edge implied by c into the graph, rooted at
// a MODULE node for c.File. It is safe to call again for the same file
// after the caller has cleared that file's prior nodes, the shape an
// incremental reanalysis pass (Clear -> Indexing -> Analysis ->
// Enrichment) depends on.
func (b *Builder) Build(ctx context.Context, c *extract.Collections) error {
	moduleID := graph.NodeID(c.ModuleID)
	if err := b.g.AddNode(ctx, graph.Node{ID: moduleID, Kind: graph.KindModule, File: c.File, Attrs: map[string]any{
		"hasTopLevelAwait": c.HasTopLevelAwait,
		"contentHash":      c.ContentHash,
	}}); err != nil {
		return fmt.Errorf("build: module node: %w", err)
	}

	owners := map[string]graph.NodeID{contextKey([]string{c.File, "module"}): moduleID}

	if err := b.buildFunctions(ctx, c, owners); err != nil {
		return err
	}
	if err := b.buildClasses(ctx, c, owners); err != nil {
		return err
	}
	if err := b.buildImportsExports(ctx, c, moduleID); err != nil {
		return err
	}
	if err := b.buildVariables(ctx, c, owners); err != nil {
		return err
	}
	if err := b.buildTSDeclarations(ctx, c, owners); err != nil {
		return err
	}
	if err := b.buildCalls(ctx, c, owners); err != nil {
		return err
	}
	if err := b.buildNewExpressions(ctx, c, owners); err != nil {
		return err
	}
	if err := b.buildLoops(ctx, c, owners); err != nil {
		return err
	}
	if err := b.buildBranchesAndCases(ctx, c, owners); err != nil {
		return err
	}
	if err := b.buildTries(ctx, c, owners); err != nil {
		return err
	}
	if err := b.buildMutations(ctx, c, owners); err != nil {
		return err
	}
	if err := b.buildLiterals(ctx, c, owners); err != nil {
		return err
	}
	return nil
}

func contextKey(ctx []string) string {
	return strings.Join(ctx, scopeKeySep)
}

// findOwner returns the id of the nearest enclosing node registered in
// owners for ctx, trying the full context first and then progressively
// shorter prefixes. This is what lets a fact recorded inside a loop body
// or an if/else branch (frames never registered as owners themselves)
// attach to the function or module that actually encloses it.
func findOwner(owners map[string]graph.NodeID, ctx []string, moduleID graph.NodeID) graph.NodeID {
	for n := len(ctx); n >= 2; n-- {
		if id, ok := owners[contextKey(ctx[:n])]; ok {
			return id
		}
	}
	return moduleID
}

func (b *Builder) contains(ctx context.Context, owner, child graph.NodeID) error {
	return b.g.AddEdge(ctx, graph.Edge{Src: owner, Dst: child, Kind: graph.EdgeContains})
}

// --- Functions / Parameters ---

func (b *Builder) buildFunctions(ctx context.Context, c *extract.Collections, owners map[string]graph.NodeID) error {
	moduleID := graph.NodeID(c.ModuleID)
	for _, fn := range c.Functions {
		kind := graph.KindFunction
		if fn.IsMethod {
			kind = graph.KindMethod
		}
		id := graph.NodeID(fn.ID)
		if err := b.g.AddNode(ctx, graph.Node{ID: id, Kind: kind, File: c.File, Attrs: map[string]any{
			"name": fn.Name, "async": fn.Async, "generator": fn.Generator, "isArrow": fn.IsArrow,
			"receiverClass": fn.ReceiverClass, "startLine": fn.Pos.Line, "endLine": fn.EndPos.Line,
		}}); err != nil {
			return fmt.Errorf("build: function node %s: %w", fn.ID, err)
		}
		owner := findOwner(owners, fn.Scope, moduleID)
		if err := b.contains(ctx, owner, id); err != nil {
			return err
		}

		childCtx := append(append([]string{}, fn.Scope...), functionBodyLabel(fn))
		owners[contextKey(childCtx)] = id

		for _, param := range fn.Params {
			pid := graph.NodeID(param.ID)
			if err := b.g.AddNode(ctx, graph.Node{ID: pid, Kind: graph.KindParameter, File: c.File, Attrs: map[string]any{
				"name": param.Name, "type": param.Type,
			}}); err != nil {
				return fmt.Errorf("build: parameter node %s: %w", param.ID, err)
			}
			if err := b.contains(ctx, id, pid); err != nil {
				return err
			}
		}
	}
	return nil
}

func functionBodyLabel(fn extract.FunctionFact) string {
	kind := "function"
	if fn.IsMethod {
		kind = "method"
	}
	name := fn.Name
	if name == "" {
		name = "$anon"
	}
	if kind == "function" {
		return "function:" + name
	}
	return "method:" + name
}

// --- Classes ---

func (b *Builder) buildClasses(ctx context.Context, c *extract.Collections, owners map[string]graph.NodeID) error {
	moduleID := graph.NodeID(c.ModuleID)
	for _, cls := range c.Classes {
		id := graph.NodeID(cls.ID)
		if err := b.g.AddNode(ctx, graph.Node{ID: id, Kind: graph.KindClass, File: c.File, Attrs: map[string]any{
			"name": cls.Name, "extends": cls.ExtendsRef, "implements": cls.Implements,
		}}); err != nil {
			return fmt.Errorf("build: class node %s: %w", cls.ID, err)
		}
		owner := findOwner(owners, cls.Scope, moduleID)
		if err := b.contains(ctx, owner, id); err != nil {
			return err
		}
		if cls.ExtendsRef != "" {
			if err := b.g.AddEdge(ctx, graph.Edge{Src: id, Dst: graph.NodeID(cls.ExtendsRef), Kind: graph.EdgeExtends,
				Metadata: map[string]any{"unresolved": true}}); err != nil {
				return err
			}
		}
		for _, iface := range cls.Implements {
			if err := b.g.AddEdge(ctx, graph.Edge{Src: id, Dst: graph.NodeID(iface), Kind: graph.EdgeImplements,
				Metadata: map[string]any{"unresolved": true}}); err != nil {
				return err
			}
		}

		childCtx := append(append([]string{}, cls.Scope...), "class:"+cls.Name)
		owners[contextKey(childCtx)] = id
	}

	for _, inst := range c.Instantiations {
		if inst.EnclosingMethodID == "" || inst.ClassName == "" {
			continue
		}
		// The class name stands in for the not-yet-resolved CLASS id;
		// InstanceOfResolver adds a second edge to the concrete node once it
		// can see classes declared in other files, leaving this one in place.
		if err := b.g.AddEdge(ctx, graph.Edge{Src: graph.NodeID(inst.EnclosingMethodID), Dst: graph.NodeID(inst.ClassName), Kind: graph.EdgeInstanceOf,
			Metadata: map[string]any{"unresolved": true, "line": inst.Pos.Line}}); err != nil {
			return fmt.Errorf("build: instance_of %s -> %s: %w", inst.EnclosingMethodID, inst.ClassName, err)
		}
	}
	return nil
}

// --- Imports / Exports ---

func (b *Builder) buildImportsExports(ctx context.Context, c *extract.Collections, moduleID graph.NodeID) error {
	for _, imp := range c.Imports {
		id := graph.NodeID(imp.ID)
		if err := b.g.AddNode(ctx, graph.Node{ID: id, Kind: graph.KindImport, File: c.File, Attrs: map[string]any{
			"localName": imp.LocalName, "importedAs": imp.ImportedAs, "fromModule": imp.FromModule,
		}}); err != nil {
			return fmt.Errorf("build: import node %s: %w", imp.ID, err)
		}
		if err := b.contains(ctx, moduleID, id); err != nil {
			return err
		}
	}
	for _, exp := range c.Exports {
		id := graph.NodeID(exp.ID)
		if err := b.g.AddNode(ctx, graph.Node{ID: id, Kind: graph.KindExport, File: c.File, Attrs: map[string]any{
			"name": exp.Name, "isDefault": exp.IsDefault,
		}}); err != nil {
			return fmt.Errorf("build: export node %s: %w", exp.ID, err)
		}
		if err := b.contains(ctx, moduleID, id); err != nil {
			return err
		}
	}
	return nil
}

// --- Variables ---

func (b *Builder) buildVariables(ctx context.Context, c *extract.Collections, owners map[string]graph.NodeID) error {
	moduleID := graph.NodeID(c.ModuleID)
	for _, v := range c.Variables {
		kind := graph.KindVariable
		if v.Kind == "const" {
			kind = graph.KindConstant
		}
		id := graph.NodeID(v.ID)
		if err := b.g.AddNode(ctx, graph.Node{ID: id, Kind: kind, File: c.File, Attrs: map[string]any{
			"name": v.Name, "declKind": v.Kind, "isModuleTop": v.IsModuleTop, "assignmentKind": string(v.Assignment.Kind),
			"assignmentSourceName": v.Assignment.SourceName, "assignmentCallName": v.Assignment.CallName,
		}}); err != nil {
			return fmt.Errorf("build: variable node %s: %w", v.ID, err)
		}
		owner := findOwner(owners, v.Scope, moduleID)
		if err := b.contains(ctx, owner, id); err != nil {
			return err
		}
		if err := b.buildAssignmentEdge(ctx, id, v.Assignment); err != nil {
			return err
		}
	}
	return nil
}

// buildAssignmentEdge records an ASSIGNED_FROM edge for the classified
// source of a variable's initializer, where that source is itself an
// identifier, the common resolvable case; other shapes carry their
// classification as an attribute only, since resolving a call/member-
// expression source to a concrete node is an enrichment-phase concern
// (MethodCallResolver, AliasTracker), not a builder one.
func (b *Builder) buildAssignmentEdge(ctx context.Context, varID graph.NodeID, a extract.AssignmentClassification) error {
	if a.Kind != extract.AssignIdentifier || a.SourceName == "" {
		return nil
	}
	return b.g.AddEdge(ctx, graph.Edge{Src: varID, Dst: graph.NodeID(a.SourceName), Kind: graph.EdgeAssignedFrom,
		Metadata: map[string]any{"unresolved": true}})
}

// --- TS declarations ---

func (b *Builder) buildTSDeclarations(ctx context.Context, c *extract.Collections, owners map[string]graph.NodeID) error {
	moduleID := graph.NodeID(c.ModuleID)
	for _, d := range c.TSDeclarations {
		kind := graph.KindInterface
		switch d.Kind {
		case "type_alias":
			kind = graph.KindTypeAlias
		case "enum":
			kind = graph.KindEnum
		}
		id := graph.NodeID(d.ID)
		if err := b.g.AddNode(ctx, graph.Node{ID: id, Kind: kind, File: c.File, Attrs: map[string]any{"name": d.Name}}); err != nil {
			return fmt.Errorf("build: ts declaration node %s: %w", d.ID, err)
		}
		owner := findOwner(owners, d.Scope, moduleID)
		if err := b.contains(ctx, owner, id); err != nil {
			return err
		}
	}
	return nil
}

// --- Calls / arguments ---

func (b *Builder) buildCalls(ctx context.Context, c *extract.Collections, owners map[string]graph.NodeID) error {
	moduleID := graph.NodeID(c.ModuleID)
	for _, call := range c.Calls {
		id := graph.NodeID(call.ID)
		if err := b.g.AddNode(ctx, graph.Node{ID: id, Kind: graph.KindCall, File: c.File, Attrs: map[string]any{
			"calleeName": call.CalleeName, "isMethod": call.IsMethod, "receiverRef": call.ReceiverRef,
			"awaited": call.Awaited, "insideLoop": call.InsideLoop, "line": call.Pos.Line,
		}}); err != nil {
			return fmt.Errorf("build: call node %s: %w", call.ID, err)
		}
		owner := findOwner(owners, call.Scope, moduleID)
		if err := b.contains(ctx, owner, id); err != nil {
			return err
		}
		if err := b.buildCallArguments(ctx, id, call.Args); err != nil {
			return err
		}
	}
	return nil
}

func (b *Builder) buildCallArguments(ctx context.Context, callID graph.NodeID, args []extract.CallArgumentFact) error {
	for _, arg := range args {
		if arg.TargetID == "" {
			continue
		}
		if err := b.g.AddEdge(ctx, graph.Edge{Src: callID, Dst: graph.NodeID(arg.TargetID), Kind: graph.EdgePassesArgument,
			Metadata: map[string]any{"argIndex": arg.ArgIndex, "isSpread": arg.IsSpread}}); err != nil {
			return fmt.Errorf("build: passes_argument %s -> %s: %w", callID, arg.TargetID, err)
		}
	}
	return nil
}

// --- New expressions ---

func (b *Builder) buildNewExpressions(ctx context.Context, c *extract.Collections, owners map[string]graph.NodeID) error {
	moduleID := graph.NodeID(c.ModuleID)

	execByConstructor := make(map[string]extract.PromiseExecutorFact, len(c.PromiseExecs))
	for _, pe := range c.PromiseExecs {
		if pe.ConstructorCallID == "" {
			continue
		}
		execByConstructor[pe.ConstructorCallID] = pe
	}

	for _, ne := range c.NewExpressions {
		id := graph.NodeID(ne.ID)
		attrs := map[string]any{"className": ne.ClassName, "line": ne.Pos.Line}
		if pe, ok := execByConstructor[ne.ID]; ok {
			attrs["resolveParam"] = pe.ResolveParam
			attrs["rejectParam"] = pe.RejectParam
			attrs["executorStartLine"] = pe.FunctionStart.Line
			attrs["executorEndLine"] = pe.FunctionEnd.Line
		}
		if err := b.g.AddNode(ctx, graph.Node{ID: id, Kind: graph.KindExpression, File: c.File, Attrs: attrs}); err != nil {
			return fmt.Errorf("build: new expression node %s: %w", ne.ID, err)
		}
		owner := findOwner(owners, []string{c.File, "module"}, moduleID)
		if err := b.contains(ctx, owner, id); err != nil {
			return err
		}
		if err := b.buildCallArguments(ctx, id, ne.Args); err != nil {
			return err
		}
	}
	return nil
}

// --- Loops ---

func (b *Builder) buildLoops(ctx context.Context, c *extract.Collections, owners map[string]graph.NodeID) error {
	moduleID := graph.NodeID(c.ModuleID)
	for _, loop := range c.Loops {
		id := graph.NodeID(loop.ID)
		if err := b.g.AddNode(ctx, graph.Node{ID: id, Kind: graph.KindLoop, File: c.File, Attrs: map[string]any{
			"loopType": loop.LoopType, "iteratesSource": loop.IteratesSource, "iteratesKind": loop.IteratesKind,
		}}); err != nil {
			return fmt.Errorf("build: loop node %s: %w", loop.ID, err)
		}
		owner := findOwner(owners, loop.Scope, moduleID)
		if err := b.contains(ctx, owner, id); err != nil {
			return err
		}
		if loop.IteratesSource != "" {
			if err := b.g.AddEdge(ctx, graph.Edge{Src: id, Dst: graph.NodeID(loop.IteratesSource), Kind: graph.EdgeIteratesOver,
				Metadata: map[string]any{"unresolved": true}}); err != nil {
				return err
			}
		}
	}
	return nil
}

// --- Branches / cases ---

func (b *Builder) buildBranchesAndCases(ctx context.Context, c *extract.Collections, owners map[string]graph.NodeID) error {
	moduleID := graph.NodeID(c.ModuleID)
	for _, branch := range c.Branches {
		id := graph.NodeID(branch.ID)
		if err := b.g.AddNode(ctx, graph.Node{ID: id, Kind: graph.KindBranch, File: c.File, Attrs: map[string]any{
			"branchType": branch.BranchType, "discriminantIsCall": branch.DiscriminantIsCall,
		}}); err != nil {
			return fmt.Errorf("build: branch node %s: %w", branch.ID, err)
		}
		owner := findOwner(owners, branch.Scope, moduleID)
		if err := b.contains(ctx, owner, id); err != nil {
			return err
		}
		if branch.DiscriminantIsCall {
			if call, ok := c.FindCallSiteAt(branch.DiscriminantCallPos); ok {
				if err := b.g.AddEdge(ctx, graph.Edge{Src: id, Dst: graph.NodeID(call.ID), Kind: graph.EdgeHasCondition}); err != nil {
					return err
				}
			}
		}
	}
	for _, cs := range c.Cases {
		id := graph.NodeID(cs.ID)
		if err := b.g.AddNode(ctx, graph.Node{ID: id, Kind: graph.KindCase, File: c.File, Attrs: map[string]any{"isDefault": cs.IsDefault}}); err != nil {
			return fmt.Errorf("build: case node %s: %w", cs.ID, err)
		}
		if cs.BranchID == "" {
			continue
		}
		edgeKind := graph.EdgeHasCase
		if cs.IsDefault {
			edgeKind = graph.EdgeHasDefault
		}
		if err := b.g.AddEdge(ctx, graph.Edge{Src: graph.NodeID(cs.BranchID), Dst: id, Kind: edgeKind}); err != nil {
			return err
		}
	}
	return nil
}

// --- Try blocks ---

func (b *Builder) buildTries(ctx context.Context, c *extract.Collections, owners map[string]graph.NodeID) error {
	moduleID := graph.NodeID(c.ModuleID)
	for _, try := range c.Tries {
		id := graph.NodeID(try.ID)
		if err := b.g.AddNode(ctx, graph.Node{ID: id, Kind: graph.KindTryBlock, File: c.File}); err != nil {
			return fmt.Errorf("build: try node %s: %w", try.ID, err)
		}
		owner := findOwner(owners, try.Scope, moduleID)
		if err := b.contains(ctx, owner, id); err != nil {
			return err
		}
	}
	return nil
}

// --- Mutations ---

func (b *Builder) buildMutations(ctx context.Context, c *extract.Collections, owners map[string]graph.NodeID) error {
	moduleID := graph.NodeID(c.ModuleID)
	for _, m := range c.Mutations {
		kind := graph.KindArrayMutation
		if m.Kind == "object" {
			kind = graph.KindObjectMutation
		}
		id := graph.NodeID(m.ID)
		if err := b.g.AddNode(ctx, graph.Node{ID: id, Kind: kind, File: c.File, Attrs: map[string]any{
			"method": m.Method, "targetName": m.TargetName, "computedKeyVar": m.ComputedKeyVar,
		}}); err != nil {
			return fmt.Errorf("build: mutation node %s: %w", m.ID, err)
		}
		owner := findOwner(owners, []string{c.File, "module"}, moduleID)
		if err := b.contains(ctx, owner, id); err != nil {
			return err
		}
		for _, v := range m.Values {
			if v.OriginID == "" {
				continue
			}
			if err := b.g.AddEdge(ctx, graph.Edge{Src: graph.NodeID(v.OriginID), Dst: id, Kind: graph.EdgeFlowsInto,
				Metadata: map[string]any{"argIndex": v.ArgIndex, "originKind": v.OriginKind, "resolutionStatus": "DEFERRED_CROSS_FILE"}}); err != nil {
				return err
			}
		}
	}
	return nil
}

// --- Literals ---

func (b *Builder) buildLiterals(ctx context.Context, c *extract.Collections, owners map[string]graph.NodeID) error {
	moduleID := graph.NodeID(c.ModuleID)
	for _, lit := range c.Literals {
		id := graph.NodeID(lit.ID)
		if id == "" {
			continue
		}
		if err := b.g.AddNode(ctx, graph.Node{ID: id, Kind: graph.KindLiteral, File: c.File, Attrs: map[string]any{
			"kind": lit.Kind, "value": lit.Value,
		}}); err != nil {
			return fmt.Errorf("build: literal node %s: %w", lit.ID, err)
		}
		owner := findOwner(owners, []string{c.File, "module"}, moduleID)
		if err := b.contains(ctx, owner, id); err != nil {
			return err
		}
	}
	return nil
}
