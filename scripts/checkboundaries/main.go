// Command checkboundaries fails when a moderation context file imports across
// its layer boundary. Run it from the repository root.
package main

import (
	"fmt"
	"go/parser"
	"go/token"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const modulePath = "ceto"

type violation struct {
	File   string
	Line   int
	Import string
	Rule   string
}

// layerRules lists what each layer may import besides the standard library
// and its own service packages named in allowed.
type layerRule struct {
	allowed    []string
	thirdParty []string
}

var layerRules = map[string]layerRule{
	"domain": {
		allowed:    []string{"/domain"},
		thirdParty: []string{"gopkg.in/yaml.v3"},
	},
	"application": {
		allowed:    []string{"/application", "/domain", "/ports"},
		thirdParty: []string{"github.com/google/uuid", modulePath + "/internal/shared"},
	},
	"ports": {
		allowed:    []string{"/domain"},
		thirdParty: []string{modulePath + "/internal/shared"},
	},
}

func main() {
	root := "contexts"
	if len(os.Args) > 1 {
		root = os.Args[1]
	}
	violations := collectViolations(root)
	if len(violations) == 0 {
		fmt.Println("boundary checks passed")
		return
	}

	fmt.Println("boundary violations found:")
	for _, v := range violations {
		fmt.Printf("- %s:%d imports %q (%s)\n", v.File, v.Line, v.Import, v.Rule)
	}
	os.Exit(1)
}

func collectViolations(root string) []violation {
	var violations []violation
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(path, ".go") || strings.HasSuffix(path, "_test.go") {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		parts := strings.Split(filepath.ToSlash(rel), "/")
		if len(parts) < 3 {
			return nil
		}
		servicePrefix := fmt.Sprintf("%s/contexts/%s/%s", modulePath, parts[0], parts[1])
		violations = append(violations, validateFile(path, filepath.ToSlash(path), parts[2], servicePrefix)...)
		return nil
	})

	sort.Slice(violations, func(i, j int) bool {
		if violations[i].File == violations[j].File {
			return violations[i].Line < violations[j].Line
		}
		return violations[i].File < violations[j].File
	})
	return violations
}

func validateFile(path string, displayPath string, layer string, servicePrefix string) []violation {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, nil, parser.ImportsOnly)
	if err != nil {
		return []violation{{File: displayPath, Line: 1, Rule: "file must parse"}}
	}

	var violations []violation
	for _, imp := range file.Imports {
		importPath := strings.Trim(imp.Path.Value, "\"")
		line := fset.Position(imp.Pos()).Line

		if hasPrefix(importPath, modulePath+"/contexts") && !hasPrefix(importPath, servicePrefix) {
			violations = append(violations, violation{displayPath, line, importPath, "cross-service imports are forbidden"})
		}

		rule, ok := layerRules[layer]
		if !ok {
			continue
		}
		if strings.Contains(importPath, "/adapters/") {
			violations = append(violations, violation{displayPath, line, importPath, layer + " must not import adapters"})
			continue
		}
		if isStdlib(importPath) || isAllowed(importPath, rule.thirdParty) {
			continue
		}
		allowed := make([]string, 0, len(rule.allowed))
		for _, suffix := range rule.allowed {
			allowed = append(allowed, servicePrefix+suffix)
		}
		if !isAllowed(importPath, allowed) {
			violations = append(violations, violation{displayPath, line, importPath, layer + " import is outside explicit allowlist"})
		}
	}
	return violations
}

func hasPrefix(path string, prefix string) bool {
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

func isAllowed(importPath string, allowedPrefixes []string) bool {
	for _, p := range allowedPrefixes {
		if hasPrefix(importPath, p) {
			return true
		}
	}
	return false
}

func isStdlib(importPath string) bool {
	if hasPrefix(importPath, modulePath) {
		return false
	}
	first := importPath
	if idx := strings.Index(first, "/"); idx != -1 {
		first = first[:idx]
	}
	return !strings.Contains(first, ".")
}
