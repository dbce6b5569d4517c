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
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
	"github.com/smacker/go-tree-sitter/typescript/tsx"

	"github.com/kraklabs/grafema/pkg/hashutil"
)

// Language identifies which tree-sitter grammar to parse a file with.
type Language string

const (
	LangTypeScript Language = "typescript"
	LangTSX        Language = "tsx"
	LangGo         Language = "go"
)

// LanguageForExtension maps a file extension (including the leading dot)
// to the language this package knows how to extract, or ok=false for an
// unsupported extension.
func LanguageForExtension(ext string) (Language, bool) {
	switch ext {
	case ".ts":
		return LangTypeScript, true
	case ".tsx", ".jsx":
		return LangTSX, true
	case ".js", ".mjs", ".cjs":
		return LangTypeScript, true // the TypeScript grammar is a superset parser for plain JS
	case ".go":
		return LangGo, true
	default:
		return "", false
	}
}

func grammarFor(lang Language) (*sitter.Language, error) {
	switch lang {
	case LangTypeScript:
		return typescript.GetLanguage(), nil
	case LangTSX:
		return tsx.GetLanguage(), nil
	case LangGo:
		return golang.GetLanguage(), nil
	default:
		return nil, fmt.Errorf("extract: unsupported language %q", lang)
	}
}

// ParseTree parses source with lang's grammar and returns the resulting
// tree. Callers must Close() the tree when done: parsed syntax trees are
// scoped resources, released as soon as the visitor pass returns.
func ParseTree(ctx context.Context, lang Language, source []byte) (*sitter.Tree, error) {
	grammar, err := grammarFor(lang)
	if err != nil {
		return nil, err
	}
	parser := sitter.NewParser()
	parser.SetLanguage(grammar)
	tree, err := parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("extract: parse: %w", err)
	}
	return tree, nil
}

// ExtractModuleCollections runs the ordered visitor pipeline over source,
// dispatching to the language-specific visitor set, and returns the
// populated fact bag. The syntax tree is closed before returning: no
// component holds a live pointer into the tree-sitter tree past this
// call, so pkg/build navigates only through the Collections it receives.
func ExtractModuleCollections(ctx context.Context, lang Language, relativeFile, moduleID string, source []byte) (*Collections, error) {
	tree, err := ParseTree(ctx, lang, source)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	c := NewCollections(relativeFile, moduleID)
	c.ContentHash = hashutil.Sum(source)

	switch lang {
	case LangTypeScript, LangTSX:
		extractTypeScript(tree.RootNode(), source, c)
	case LangGo:
		extractGo(tree.RootNode(), source, c)
	default:
		return nil, fmt.Errorf("extract: unsupported language %q", lang)
	}
	return c, nil
}

func pos(p sitter.Point) Position {
	return Position{Line: int(p.Row) + 1, Column: int(p.Column) + 1}
}

func nodeText(n *sitter.Node, source []byte) string {
	if n == nil {
		return ""
	}
	return n.Content(source)
}
