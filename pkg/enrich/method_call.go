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
	"runtime"
	"sync"

	"github.com/kraklabs/grafema/pkg/graph"
	"github.com/kraklabs/grafema/pkg/plugin"
)

// MethodCallResolver resolves two shapes of CALL node to the FUNCTION or
// METHOD node they invoke: `obj.m()` receiver calls (obj's class is taken
// from the enclosing method's class for `this`, from a parameter's type
// annotation, or from a local variable assigned a `new` expression) and
// plain unqualified calls to a
// function declared in the same file. Calls whose callee name matches a
// local import binding are left for ImportExportLinker, which has the
// cross-file view this resolver deliberately doesn't build.
type MethodCallResolver struct{}

var _ plugin.Plugin = MethodCallResolver{}

func (MethodCallResolver) Metadata() plugin.Metadata {
	return plugin.Metadata{
		Name:     "MethodCallResolver",
		Phase:    plugin.PhaseEnrichment,
		Priority: 100,
		Creates:  plugin.CreatesDeclaration{Edges: []graph.EdgeKind{graph.EdgeCalls}},
	}
}

func (r MethodCallResolver) Execute(ctx context.Context, pc *plugin.Context) (plugin.Result, error) {
	o, err := r.Resolve(ctx, pc.Graph)
	if err != nil {
		return plugin.Result{}, err
	}
	return asResult(o), nil
}

type methodCallIndex struct {
	classByName     map[string]graph.Node
	importLocalName map[string]map[string]bool // file -> local import name -> true
	funcsByFileName map[string]map[string]graph.Node
}

func (r MethodCallResolver) buildIndex(ctx context.Context, g graph.Graph) (*methodCallIndex, error) {
	idx := &methodCallIndex{
		classByName:     make(map[string]graph.Node),
		importLocalName: make(map[string]map[string]bool),
		funcsByFileName: make(map[string]map[string]graph.Node),
	}

	classes, err := queryNodes(ctx, g, graph.NodeFilter{Kind: graph.KindClass})
	if err != nil {
		return nil, err
	}
	for _, c := range classes {
		idx.classByName[c.AttrString("name")] = c
	}

	imports, err := queryNodes(ctx, g, graph.NodeFilter{Kind: graph.KindImport})
	if err != nil {
		return nil, err
	}
	for _, imp := range imports {
		if idx.importLocalName[imp.File] == nil {
			idx.importLocalName[imp.File] = make(map[string]bool)
		}
		idx.importLocalName[imp.File][imp.AttrString("localName")] = true
	}

	for _, kind := range []graph.NodeKind{graph.KindFunction, graph.KindMethod} {
		fns, err := queryNodes(ctx, g, graph.NodeFilter{Kind: kind})
		if err != nil {
			return nil, err
		}
		for _, fn := range fns {
			if idx.funcsByFileName[fn.File] == nil {
				idx.funcsByFileName[fn.File] = make(map[string]graph.Node)
			}
			idx.funcsByFileName[fn.File][fn.AttrString("name")] = fn
		}
	}
	return idx, nil
}

// Resolve runs the full two-phase pass: build an index over the graph's
// current classes/imports/functions, then resolve every method and plain
// call against it.
func (r MethodCallResolver) Resolve(ctx context.Context, g graph.Graph) (*Outcome, error) {
	idx, err := r.buildIndex(ctx, g)
	if err != nil {
		return nil, err
	}
	calls, err := queryNodes(ctx, g, graph.NodeFilter{Kind: graph.KindCall})
	if err != nil {
		return nil, err
	}

	o := newOutcome()
	if len(calls) < parallelThreshold {
		for _, call := range calls {
			r.resolveOne(ctx, g, idx, call, o)
		}
		return o, nil
	}

	workers := runtime.NumCPU()
	if workers > 8 {
		workers = 8
	}
	jobs := make(chan graph.Node, len(calls))
	var mu sync.Mutex
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for call := range jobs {
				local := newOutcome()
				r.resolveOne(ctx, g, idx, call, local)
				mu.Lock()
				for k, n := range local.EdgesAdded {
					o.EdgesAdded[k] += n
				}
				o.Unresolved = append(o.Unresolved, local.Unresolved...)
				mu.Unlock()
			}
		}()
	}
	for _, call := range calls {
		jobs <- call
	}
	close(jobs)
	wg.Wait()
	return o, nil
}

func (r MethodCallResolver) resolveOne(ctx context.Context, g graph.Graph, idx *methodCallIndex, call graph.Node, o *Outcome) {
	calleeName := call.AttrString("calleeName")
	if calleeName == "" {
		return
	}

	if !call.AttrBool("isMethod") {
		if idx.importLocalName[call.File][calleeName] {
			return // ImportExportLinker's call
		}
		fn, ok := idx.funcsByFileName[call.File][calleeName]
		if !ok {
			o.unresolved("method_call_resolver: %s: unresolved call to %q", call.File, calleeName)
			return
		}
		if err := addEdgeOnce(ctx, g, graph.Edge{Src: call.ID, Dst: fn.ID, Kind: graph.EdgeCalls}, o); err != nil {
			o.unresolved("method_call_resolver: %s: %v", call.File, err)
		}
		return
	}

	receiver := call.AttrString("receiverRef")
	if idx.importLocalName[call.File][receiver] {
		return // qualified call through a namespace import, ImportExportLinker's job
	}

	container, ok, err := enclosingContainer(ctx, g, call.ID)
	if err != nil {
		o.unresolved("method_call_resolver: %s: %v", call.File, err)
		return
	}
	if !ok {
		o.unresolved("method_call_resolver: %s: call %s has no enclosing function", call.File, call.ID)
		return
	}

	className, ok, err := resolveReceiverClass(ctx, g, receiver, container)
	if err != nil {
		o.unresolved("method_call_resolver: %s: %v", call.File, err)
		return
	}
	if !ok {
		o.unresolved("method_call_resolver: %s: can't determine receiver type for %s.%s()", call.File, receiver, calleeName)
		return
	}

	method, ok, err := findMethod(ctx, g, idx.classByName, className, calleeName)
	if err != nil {
		o.unresolved("method_call_resolver: %s: %v", call.File, err)
		return
	}
	if !ok {
		o.unresolved("method_call_resolver: %s: %s has no method %q", call.File, className, calleeName)
		return
	}
	if err := addEdgeOnce(ctx, g, graph.Edge{Src: call.ID, Dst: method.ID, Kind: graph.EdgeCalls,
		Metadata: map[string]any{"receiverClass": className}}, o); err != nil {
		o.unresolved("method_call_resolver: %s: %v", call.File, err)
	}
}
