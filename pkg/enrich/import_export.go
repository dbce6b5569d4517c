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
	"path"
	"strings"

	"github.com/kraklabs/grafema/pkg/graph"
	"github.com/kraklabs/grafema/pkg/plugin"
)

const defaultExportKey = "\x00default"

// ImportExportLinker does the cross-module half of enrichment: it links
// each IMPORT to the EXPORT (or whole MODULE, for a namespace import) it
// names, and resolves CALLS edges for calls made through an imported
// binding — both `helper()` for a named import and `ns.helper()` for a
// namespace import. Imports of packages outside this repository (anything
// not starting with "." or "/") are out of the analysis core's reach and
// are left alone, not reported as unresolved.
type ImportExportLinker struct{}

var _ plugin.Plugin = ImportExportLinker{}

func (ImportExportLinker) Metadata() plugin.Metadata {
	return plugin.Metadata{
		Name:     "ImportExportLinker",
		Phase:    plugin.PhaseEnrichment,
		Priority: 85,
		Creates:  plugin.CreatesDeclaration{Edges: []graph.EdgeKind{graph.EdgeDependsOn, graph.EdgeCalls}},
	}
}

func (l ImportExportLinker) Execute(ctx context.Context, pc *plugin.Context) (plugin.Result, error) {
	o, err := l.Resolve(ctx, pc.Graph)
	if err != nil {
		return plugin.Result{}, err
	}
	return asResult(o), nil
}

type importExportIndex struct {
	moduleFiles     map[string]bool
	moduleIDByFile  map[string]graph.NodeID
	exportsByFile   map[string]map[string]graph.Node // file -> name (or defaultExportKey) -> EXPORT node
	funcsByFileName map[string]map[string]graph.Node
}

func (l ImportExportLinker) buildIndex(ctx context.Context, g graph.Graph) (*importExportIndex, error) {
	idx := &importExportIndex{
		moduleFiles:     make(map[string]bool),
		moduleIDByFile:  make(map[string]graph.NodeID),
		exportsByFile:   make(map[string]map[string]graph.Node),
		funcsByFileName: make(map[string]map[string]graph.Node),
	}

	modules, err := queryNodes(ctx, g, graph.NodeFilter{Kind: graph.KindModule})
	if err != nil {
		return nil, err
	}
	for _, m := range modules {
		idx.moduleFiles[m.File] = true
		idx.moduleIDByFile[m.File] = m.ID
	}

	exports, err := queryNodes(ctx, g, graph.NodeFilter{Kind: graph.KindExport})
	if err != nil {
		return nil, err
	}
	for _, e := range exports {
		if idx.exportsByFile[e.File] == nil {
			idx.exportsByFile[e.File] = make(map[string]graph.Node)
		}
		key := e.AttrString("name")
		if e.AttrBool("isDefault") {
			key = defaultExportKey
		}
		idx.exportsByFile[e.File][key] = e
	}

	for _, kind := range []graph.NodeKind{graph.KindFunction, graph.KindMethod, graph.KindClass} {
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

// resolveModulePath turns a relative fromModule import spec, as written in
// importingFile, into the file path of an in-repo module, trying the same
// extension/index fallbacks a TS module resolver would.
func resolveModulePath(importingFile, fromModule string, moduleFiles map[string]bool) (string, bool) {
	if !strings.HasPrefix(fromModule, ".") && !strings.HasPrefix(fromModule, "/") {
		return "", false
	}
	joined := path.Clean(path.Join(path.Dir(importingFile), fromModule))
	for _, candidate := range []string{joined, joined + ".ts", joined + ".tsx", joined + "/index.ts", joined + "/index.tsx"} {
		if moduleFiles[candidate] {
			return candidate, true
		}
	}
	return "", false
}

func (l ImportExportLinker) Resolve(ctx context.Context, g graph.Graph) (*Outcome, error) {
	idx, err := l.buildIndex(ctx, g)
	if err != nil {
		return nil, err
	}
	imports, err := queryNodes(ctx, g, graph.NodeFilter{Kind: graph.KindImport})
	if err != nil {
		return nil, err
	}

	o := newOutcome()
	importTarget := make(map[string]string, len(imports)) // import node id -> target file, for the calls pass below

	for _, imp := range imports {
		fromModule := imp.AttrString("fromModule")
		targetFile, ok := resolveModulePath(imp.File, fromModule, idx.moduleFiles)
		if !ok {
			if strings.HasPrefix(fromModule, ".") || strings.HasPrefix(fromModule, "/") {
				o.unresolved("import_export_linker: %s: can't resolve module %q", imp.File, fromModule)
			}
			continue
		}
		importTarget[string(imp.ID)] = targetFile

		importedAs := imp.AttrString("importedAs")
		if importedAs == "*" {
			if err := addEdgeOnce(ctx, g, graph.Edge{Src: imp.ID, Dst: idx.moduleIDByFile[targetFile], Kind: graph.EdgeDependsOn,
				Metadata: map[string]any{"kind": "namespace", "targetFile": targetFile}}, o); err != nil {
				return nil, err
			}
			continue
		}

		exportKey := importedAs
		if exportKey == "" {
			exportKey = defaultExportKey
		}
		exp, ok := idx.exportsByFile[targetFile][exportKey]
		if !ok {
			o.unresolved("import_export_linker: %s: module %q has no export %q", imp.File, targetFile, exportKey)
			continue
		}
		if err := addEdgeOnce(ctx, g, graph.Edge{Src: imp.ID, Dst: exp.ID, Kind: graph.EdgeDependsOn,
			Metadata: map[string]any{"kind": "named"}}, o); err != nil {
			return nil, err
		}
	}

	if err := l.resolveCalls(ctx, g, idx, imports, importTarget, o); err != nil {
		return nil, err
	}
	return o, nil
}

// resolveCalls links CALL nodes whose callee is a name imported into the
// calling file: a plain named-import call (`helper()`) or a member access
// through a namespace import (`ns.helper()`).
func (l ImportExportLinker) resolveCalls(ctx context.Context, g graph.Graph, idx *importExportIndex, imports []graph.Node, importTarget map[string]string, o *Outcome) error {
	byLocalName := make(map[string]map[string]graph.Node) // file -> local name -> import node
	for _, imp := range imports {
		if byLocalName[imp.File] == nil {
			byLocalName[imp.File] = make(map[string]graph.Node)
		}
		byLocalName[imp.File][imp.AttrString("localName")] = imp
	}

	calls, err := queryNodes(ctx, g, graph.NodeFilter{Kind: graph.KindCall})
	if err != nil {
		return err
	}
	for _, call := range calls {
		existing, err := g.GetOutgoingEdges(ctx, call.ID, graph.EdgeCalls)
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			continue
		}

		var imp graph.Node
		var ok bool
		var calleeName string
		if call.AttrBool("isMethod") {
			imp, ok = byLocalName[call.File][call.AttrString("receiverRef")]
			calleeName = call.AttrString("calleeName")
			if ok && imp.AttrString("importedAs") != "*" {
				continue // not a namespace import; not this resolver's shape
			}
		} else {
			imp, ok = byLocalName[call.File][call.AttrString("calleeName")]
			calleeName = imp.AttrString("importedAs")
			if calleeName == "" {
				continue // default import call target unknown without an export->entity edge
			}
		}
		if !ok {
			continue
		}
		targetFile, ok := importTarget[string(imp.ID)]
		if !ok {
			continue
		}
		target, ok := idx.funcsByFileName[targetFile][calleeName]
		if !ok {
			o.unresolved("import_export_linker: %s: %q has no member %q", call.File, targetFile, calleeName)
			continue
		}
		if err := addEdgeOnce(ctx, g, graph.Edge{Src: call.ID, Dst: target.ID, Kind: graph.EdgeCalls,
			Metadata: map[string]any{"viaImport": string(imp.ID)}}, o); err != nil {
			return err
		}
	}
	return nil
}
