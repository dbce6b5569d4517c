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

// Package graph declares the abstract typed property-graph capability the
// analysis core is built against. The graph storage backend and its wire
// protocol live outside this module: Graph is a contract consumed by the
// core and offered by a collaborator. A small in-memory reference
// implementation lives in the memgraph subpackage so the core can be
// exercised and tested without a real backend.
package graph

import (
	"context"
	"fmt"
)

// NodeKind enumerates the entity kinds the analysis core produces.
type NodeKind string

const (
	KindModule             NodeKind = "MODULE"
	KindFunction           NodeKind = "FUNCTION"
	KindMethod             NodeKind = "METHOD"
	KindParameter          NodeKind = "PARAMETER"
	KindClass              NodeKind = "CLASS"
	KindInterface          NodeKind = "INTERFACE"
	KindTypeAlias          NodeKind = "TYPE_ALIAS"
	KindEnum               NodeKind = "ENUM"
	KindDecorator          NodeKind = "DECORATOR"
	KindScope              NodeKind = "SCOPE"
	KindBranch             NodeKind = "BRANCH"
	KindCase               NodeKind = "CASE"
	KindLoop               NodeKind = "LOOP"
	KindTryBlock           NodeKind = "TRY_BLOCK"
	KindCatchBlock         NodeKind = "CATCH_BLOCK"
	KindFinallyBlock       NodeKind = "FINALLY_BLOCK"
	KindCall               NodeKind = "CALL"
	KindCallArgument       NodeKind = "CALL_ARGUMENT"
	KindExpression         NodeKind = "EXPRESSION"
	KindVariable           NodeKind = "VARIABLE"
	KindConstant           NodeKind = "CONSTANT"
	KindVariableAssignment NodeKind = "VARIABLE_ASSIGNMENT"
	KindLiteral            NodeKind = "LITERAL"
	KindObjectLiteral      NodeKind = "OBJECT_LITERAL"
	KindObjectProperty     NodeKind = "OBJECT_PROPERTY"
	KindArrayLiteral       NodeKind = "ARRAY_LITERAL"
	KindArrayElement       NodeKind = "ARRAY_ELEMENT"
	KindArrayMutation      NodeKind = "ARRAY_MUTATION"
	KindObjectMutation     NodeKind = "OBJECT_MUTATION"
	KindReturnStatement    NodeKind = "RETURN_STATEMENT"
	KindUpdateExpression   NodeKind = "UPDATE_EXPRESSION"
	KindImport             NodeKind = "IMPORT"
	KindExport             NodeKind = "EXPORT"
	KindIssue              NodeKind = "ISSUE"
	KindGraphMeta          NodeKind = "GRAPH_META"
	KindPlugin             NodeKind = "PLUGIN"
)

// EdgeKind enumerates the relationship kinds the analysis core produces.
type EdgeKind string

const (
	EdgeContains       EdgeKind = "CONTAINS"
	EdgeCalls          EdgeKind = "CALLS"
	EdgeDependsOn      EdgeKind = "DEPENDS_ON"
	EdgeAssignedFrom   EdgeKind = "ASSIGNED_FROM"
	EdgeDerivesFrom    EdgeKind = "DERIVES_FROM"
	EdgeFlowsInto      EdgeKind = "FLOWS_INTO"
	EdgeReturns        EdgeKind = "RETURNS"
	EdgePassesArgument EdgeKind = "PASSES_ARGUMENT"
	EdgeHasScope       EdgeKind = "HAS_SCOPE"
	EdgeHasBody        EdgeKind = "HAS_BODY"
	EdgeHasCondition   EdgeKind = "HAS_CONDITION"
	EdgeHasConsequent  EdgeKind = "HAS_CONSEQUENT"
	EdgeHasAlternate   EdgeKind = "HAS_ALTERNATE"
	EdgeHasCase        EdgeKind = "HAS_CASE"
	EdgeHasDefault     EdgeKind = "HAS_DEFAULT"
	EdgeHasCatch       EdgeKind = "HAS_CATCH"
	EdgeHasFinally     EdgeKind = "HAS_FINALLY"
	EdgeHasInit        EdgeKind = "HAS_INIT"
	EdgeHasUpdate      EdgeKind = "HAS_UPDATE"
	EdgeHasProperty    EdgeKind = "HAS_PROPERTY"
	EdgeHasElement     EdgeKind = "HAS_ELEMENT"
	EdgeIteratesOver   EdgeKind = "ITERATES_OVER"
	EdgeExtends        EdgeKind = "EXTENDS"
	EdgeImplements     EdgeKind = "IMPLEMENTS"
	EdgeInstanceOf     EdgeKind = "INSTANCE_OF"
	EdgeReplaces       EdgeKind = "REPLACES"
	EdgeAffects        EdgeKind = "AFFECTS"
)

// NodeID is a semantic or legacy id string. Both shapes are opaque to the
// graph capability: it never parses an id, only compares it.
type NodeID string

// Node is a single typed property-graph vertex.
//
// File is the relative-to-project-root path owning this node; it is empty
// for the two process-wide kinds, GraphMeta and Plugin. Attrs carries
// kind-specific attributes (name, async, params, …) as a loosely typed
// bag, flattened into query tuples at the storage boundary.
type Node struct {
	ID    NodeID
	Kind  NodeKind
	File  string
	Attrs map[string]any
}

// Attr fetches an attribute, returning ok=false if absent.
func (n Node) Attr(key string) (any, bool) {
	if n.Attrs == nil {
		return nil, false
	}
	v, ok := n.Attrs[key]
	return v, ok
}

// AttrString fetches a string attribute, returning "" if absent or of a
// different type.
func (n Node) AttrString(key string) string {
	v, ok := n.Attr(key)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// AttrBool fetches a bool attribute, returning false if absent.
func (n Node) AttrBool(key string) bool {
	v, ok := n.Attr(key)
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// Edge is a single typed property-graph relationship.
type Edge struct {
	Src      NodeID
	Dst      NodeID
	Kind     EdgeKind
	Metadata map[string]any
}

// Key returns the (src,dst,kind) identity used to deduplicate edges;
// duplicate writes must be silently deduplicated by the backend.
func (e Edge) Key() string {
	return fmt.Sprintf("%s|%s|%s", e.Src, e.Kind, e.Dst)
}

// NodeFilter narrows a QueryNodes scan. A zero-value field means
// "don't filter on this dimension". Attrs is matched by exact equality on
// every listed key.
type NodeFilter struct {
	Kind  NodeKind
	File  string
	Attrs map[string]any
}

// FieldDeclaration describes a field a plugin wants indexed server-side.
type FieldDeclaration struct {
	Kind NodeKind
	Name string
}

// GuaranteeResult is the outcome of evaluating a declared Datalog rule
// against the graph.
type GuaranteeResult struct {
	Satisfied   bool
	Violations  []map[string]any
	Explanation string
}

// NodeIterator streams query results asynchronously.
type NodeIterator interface {
	// Next advances the iterator. ok is false once exhausted.
	Next(ctx context.Context) (node *Node, ok bool, err error)
	Close() error
}

// Graph is the capability the analysis core requires. All operations may
// suspend (file/network IO on a real backend).
type Graph interface {
	AddNode(ctx context.Context, n Node) error
	AddEdge(ctx context.Context, e Edge) error
	GetNode(ctx context.Context, id NodeID) (*Node, bool, error)
	GetOutgoingEdges(ctx context.Context, id NodeID, kinds ...EdgeKind) ([]Edge, error)
	GetIncomingEdges(ctx context.Context, id NodeID, kinds ...EdgeKind) ([]Edge, error)
	QueryNodes(ctx context.Context, filter NodeFilter) (NodeIterator, error)
	CountNodesByType(ctx context.Context) (map[NodeKind]int, error)
	CountEdgesByType(ctx context.Context) (map[EdgeKind]int, error)
	Clear(ctx context.Context) error
	Flush(ctx context.Context) error

	// RemoveNodesByFile deletes every node whose File attribute equals file
	// (relative form) or the absolute form of file under root, plus every
	// edge touching those nodes, and reports how many nodes were cleared.
	// This is the primitive behind owned-node clearance.
	RemoveNodesByFile(ctx context.Context, root, file string) (cleared int, err error)
}

// FieldDeclarer is an optional capability a backend may offer for
// server-side indexing.
type FieldDeclarer interface {
	DeclareFields(ctx context.Context, fields []FieldDeclaration) error
}

// GuaranteeEvaluator is an optional capability a backend may offer to
// evaluate a Datalog guarantee rule natively. When a backend does not
// implement it, the GuaranteeChecker falls back to evaluating the rule's
// equivalent graph walk in-process (see pkg/guarantee).
type GuaranteeEvaluator interface {
	CheckGuarantee(ctx context.Context, rule string, explain bool) (*GuaranteeResult, error)
}
