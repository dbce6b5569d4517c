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

package enrich

import (
	"context"

	"github.com/kraklabs/grafema/pkg/graph"
)

// lookupChildByName returns the CONTAINS child of container named name,
// optionally narrowed to one of kinds. Variables, parameters, and calls
// are all direct CONTAINS children of the function/method that declares
// them, so this is enough to find a sibling without a separate name
// index.
func lookupChildByName(ctx context.Context, g graph.Graph, container graph.NodeID, name string, kinds ...graph.NodeKind) (*graph.Node, bool, error) {
	edges, err := g.GetOutgoingEdges(ctx, container, graph.EdgeContains)
	if err != nil {
		return nil, false, err
	}
	for _, e := range edges {
		n, ok, err := g.GetNode(ctx, e.Dst)
		if err != nil {
			return nil, false, err
		}
		if !ok || n.AttrString("name") != name {
			continue
		}
		if len(kinds) > 0 && !kindIn(n.Kind, kinds) {
			continue
		}
		return n, true, nil
	}
	return nil, false, nil
}

func kindIn(k graph.NodeKind, kinds []graph.NodeKind) bool {
	for _, want := range kinds {
		if k == want {
			return true
		}
	}
	return false
}

// resolveReceiverClass determines the declared class name behind a call
// receiver expression, scoped to the function/method that contains the
// call. It recognises three shapes: "this" inside a method, a parameter
// whose TS type annotation names a class, and a local variable assigned
// from a `new ClassName()` expression. Any other shape (member access
// chains, globals, free functions) is left unresolved; ok is false rather
// than an error, since "can't determine the receiver's type" is the
// expected outcome for most identifiers, not a fault.
func resolveReceiverClass(ctx context.Context, g graph.Graph, receiver string, container *graph.Node) (string, bool, error) {
	if container == nil || receiver == "" {
		return "", false, nil
	}
	if receiver == "this" {
		if container.Kind == graph.KindMethod {
			if cls := container.AttrString("receiverClass"); cls != "" {
				return cls, true, nil
			}
		}
		return "", false, nil
	}

	param, ok, err := lookupChildByName(ctx, g, container.ID, receiver, graph.KindParameter)
	if err != nil {
		return "", false, err
	}
	if ok {
		if t := param.AttrString("type"); t != "" {
			return t, true, nil
		}
		return "", false, nil
	}

	v, ok, err := lookupChildByName(ctx, g, container.ID, receiver, graph.KindVariable, graph.KindConstant)
	if err != nil {
		return "", false, err
	}
	if ok && v.AttrString("assignmentKind") == "NEW_EXPRESSION" {
		if cls := v.AttrString("assignmentSourceName"); cls != "" {
			return cls, true, nil
		}
	}
	return "", false, nil
}

// findMethod looks up methodName on className, walking the EXTENDS chain
// (by class attribute, not the builder's still-unresolved EXTENDS edge) up
// to a bounded depth to guard against a cyclic or self-referential
// hierarchy in malformed source.
func findMethod(ctx context.Context, g graph.Graph, classByName map[string]graph.Node, className, methodName string) (*graph.Node, bool, error) {
	seen := make(map[string]bool)
	for depth := 0; depth < 32; depth++ {
		if className == "" || seen[className] {
			return nil, false, nil
		}
		seen[className] = true
		cls, ok := classByName[className]
		if !ok {
			return nil, false, nil
		}
		m, ok, err := lookupChildByName(ctx, g, cls.ID, methodName, graph.KindMethod)
		if err != nil {
			return nil, false, err
		}
		if ok {
			return m, true, nil
		}
		className = cls.AttrString("extends")
	}
	return nil, false, nil
}
