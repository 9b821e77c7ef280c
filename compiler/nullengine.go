package compiler

import (
	"bufio"
	"bytes"
	"fmt"
	"strings"

	"github.com/teranos/forge/resman"
)

// nullEngine is the built-in pipeline-validation engine. It performs no code
// generation: it resolves the source and every transitive #include through
// the resolve callback, skips sources with no entry point, and writes the
// flattened source as the compiled artifact. It exists so the orchestrator,
// demand service, and CLI can be exercised end to end without a real
// compiler; production engines register themselves alongside it.
type nullEngine struct {
	cfg     Config
	write   WriteFunc
	resolve ResolveFunc
}

const maxIncludeDepth = 64

func init() {
	Register("null", func(cfg Config, write WriteFunc, resolve ResolveFunc) (Engine, error) {
		return &nullEngine{cfg: cfg, write: write, resolve: resolve}, nil
	})
}

// Compile implements Engine.
func (e *nullEngine) Compile(baseName string) Result {
	source, ok := e.resolve(resman.NewResourceID(baseName, resman.TypeSource))
	if !ok {
		return Result{Code: 1, Message: fmt.Sprintf("unable to resolve source %s.nss", baseName)}
	}

	if !hasEntryPoint(source) {
		return Result{Code: CodeSkip, Message: "no compilable entry point"}
	}

	var out bytes.Buffer
	visited := map[string]bool{strings.ToLower(baseName): true}
	if err := e.flatten(&out, baseName, source, visited, 0); err != nil {
		return Result{Code: 1, Message: err.Error()}
	}

	e.write(baseName, resman.TypeCompiled, out.Bytes())
	if e.cfg.DebugSymbols {
		e.write(baseName, resman.TypeDebug, debugStub(baseName, visited))
	}
	return Result{Code: CodeSuccess}
}

// flatten expands includes depth-first, resolving each through the callback.
func (e *nullEngine) flatten(out *bytes.Buffer, name string, source []byte, visited map[string]bool, depth int) error {
	if depth > maxIncludeDepth {
		return fmt.Errorf("include depth limit exceeded at %s", name)
	}

	scanner := bufio.NewScanner(bytes.NewReader(source))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		include, ok := includeTarget(line)
		if !ok {
			out.WriteString(line)
			out.WriteByte('\n')
			continue
		}

		key := strings.ToLower(include)
		if visited[key] {
			continue
		}
		visited[key] = true

		data, found := e.resolve(resman.NewResourceID(include, resman.TypeSource))
		if !found {
			return fmt.Errorf("unable to resolve include %q in %s", include, name)
		}
		if err := e.flatten(out, include, data, visited, depth+1); err != nil {
			return err
		}
	}
	return scanner.Err()
}

// includeTarget extracts the target of an `#include "name"` directive.
func includeTarget(line string) (string, bool) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "#include") {
		return "", false
	}
	rest := strings.TrimSpace(strings.TrimPrefix(trimmed, "#include"))
	if len(rest) < 2 || rest[0] != '"' {
		return "", false
	}
	end := strings.IndexByte(rest[1:], '"')
	if end < 0 {
		return "", false
	}
	return rest[1 : 1+end], true
}

// hasEntryPoint reports whether the raw source (not its includes) declares
// a script entry point.
func hasEntryPoint(source []byte) bool {
	s := string(source)
	return strings.Contains(s, "void main") || strings.Contains(s, "int StartingConditional")
}

func debugStub(baseName string, visited map[string]bool) []byte {
	var out bytes.Buffer
	fmt.Fprintf(&out, "NDB null %s\n", baseName)
	fmt.Fprintf(&out, "units %d\n", len(visited))
	return out.Bytes()
}
