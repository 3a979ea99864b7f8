package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
)

// EscapeResult is one parameter escape decision reported by the Go compiler.
type EscapeResult struct {
	RelFile string
	Line    int
	Col     int
	Kind    string // "leaking_param" or "does_not_escape"
	Name    string // parameter name
}

// EscapeIndex maps parameter positions to the compiler's escape decision.
type EscapeIndex map[string]EscapeResult

func escapeKey(file string, line, col int, name string) string {
	return fmt.Sprintf("%s:%d:%d:%s", file, line, col, name)
}

// NewEscapeIndex indexes results by position and name. A parameter reported
// as leaking anywhere stays leaking.
func NewEscapeIndex(results []EscapeResult) EscapeIndex {
	idx := make(EscapeIndex, len(results))
	for _, r := range results {
		k := escapeKey(r.RelFile, r.Line, r.Col, r.Name)
		if prev, ok := idx[k]; ok && prev.Kind == "leaking_param" {
			continue
		}
		idx[k] = r
	}
	return idx
}

// Lookup returns the escape kind of the parameter declared at the position,
// or "" when the compiler said nothing about it.
func (idx EscapeIndex) Lookup(file string, line, col int, name string) string {
	if idx == nil || file == "" {
		return ""
	}
	return idx[escapeKey(file, line, col, name)].Kind
}

// RunEscapeAnalysis runs `go build -gcflags=-m` on each module directory and
// collects the compiler's parameter escape decisions.
func RunEscapeAnalysis(prog *Progress) EscapeIndex {
	prog.Log("Running Go escape analysis (-gcflags=-m) across %d modules...", len(modSet.Dirs()))

	var all []EscapeResult
	for _, mod := range modSet.Dirs() {
		all = append(all, runEscapeForDir(mod.Dir, mod.Prefix, prog)...)
	}

	prog.Log("Escape analysis: %d parameter annotations", len(all))
	return NewEscapeIndex(all)
}

func runEscapeForDir(dir, prefix string, prog *Progress) []EscapeResult {
	cmd := exec.Command("go", "build", "-gcflags=-m", "./...")
	cmd.Dir = dir
	cmd.Env = replaceEnv(os.Environ(), "GOFLAGS", "-buildvcs=false")

	stderr, err := cmd.StderrPipe()
	if err != nil {
		prog.Verbose("Escape analysis for %s: failed to create stderr pipe: %v", dir, err)
		return nil
	}
	if err := cmd.Start(); err != nil {
		prog.Verbose("Escape analysis for %s: failed to start: %v", dir, err)
		return nil
	}
	results := parseEscapeOutput(stderr, prefix)
	if err := cmd.Wait(); err != nil {
		prog.Verbose("Escape analysis for %s: %v", dir, err)
	}
	return results
}

var escapeLineRe = regexp.MustCompile(`^(?:\./)?([^:]+):(\d+):(\d+): (.+)$`)

// parseEscapeOutput extracts parameter decisions from -m diagnostics.
// Files are made module-relative by prepending prefix.
func parseEscapeOutput(r io.Reader, prefix string) []EscapeResult {
	var results []EscapeResult
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for sc.Scan() {
		text := sc.Text()
		if strings.HasPrefix(text, "#") || strings.HasPrefix(text, "/") {
			continue
		}
		m := escapeLineRe.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		line, _ := strconv.Atoi(m[2])
		col, _ := strconv.Atoi(m[3])
		msg := m[4]

		var kind, name string
		switch {
		case strings.HasPrefix(msg, "leaking param content: "):
			kind = "leaking_param"
			name = strings.TrimPrefix(msg, "leaking param content: ")
		case strings.HasPrefix(msg, "leaking param: "):
			kind = "leaking_param"
			name = strings.TrimPrefix(msg, "leaking param: ")
		case strings.HasSuffix(msg, " does not escape"):
			kind = "does_not_escape"
			name = strings.TrimSuffix(msg, " does not escape")
		default:
			continue
		}
		// "p to result ~r0 level=0"
		if i := strings.IndexByte(name, ' '); i >= 0 {
			name = name[:i]
		}
		if !isIdent(name) {
			continue
		}

		file := m[1]
		if prefix != "" {
			file = prefix + "/" + file
		}
		results = append(results, EscapeResult{
			RelFile: file,
			Line:    line,
			Col:     col,
			Kind:    kind,
			Name:    name,
		})
	}
	return results
}

// isIdent filters out expression diagnostics such as "&T{...} does not escape".
func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}
