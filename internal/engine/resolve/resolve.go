package resolve

import (
	"context"
	"sync"

	"calltree/internal/engine/extract"
	"calltree/internal/engine/scanner"
)

// CallSite is one textual call occurrence inside a function body that
// resolved to a known definition.
type CallSite struct {
	Caller string
	Callee string
	Line   int
}

// Result carries the resolved sites in file order plus the count of
// call-shaped tokens whose target is not a known definition. Unresolved
// candidates never become edges and never fabricate nodes.
type Result struct {
	Sites      []CallSite
	Unresolved int
}

type Options struct {
	Workers int
}

type funcResult struct {
	sites      []CallSite
	unresolved int
}

// Calls scans each function body for identifier-call patterns. Bodies are
// independent once the definition table is fixed, so they are resolved by a
// bounded worker pool; partial results are merged back in function order so
// output is deterministic regardless of scheduling.
func Calls(ctx context.Context, lines []scanner.Line, fns []extract.Function, spec extract.Spec, opts Options) Result {
	if len(fns) == 0 {
		return Result{}
	}

	// Read-only during the parallel phase.
	table := make(map[string]bool, len(fns))
	headerLines := make(map[int]bool)
	for _, fn := range fns {
		table[fn.Name] = true
		for n := fn.StartLine; n <= fn.HeaderEnd; n++ {
			headerLines[n] = true
		}
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = 1
	}
	if workers > len(fns) {
		workers = len(fns)
	}

	results := make([]funcResult, len(fns))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				if ctx.Err() != nil {
					continue
				}
				results[idx] = resolveBody(lines, &fns[idx], headerLines, table, spec)
			}
		}()
	}
	for idx := range fns {
		jobs <- idx
	}
	close(jobs)
	wg.Wait()

	var merged Result
	for _, r := range results {
		merged.Sites = append(merged.Sites, r.sites...)
		merged.Unresolved += r.unresolved
	}
	return merged
}

func resolveBody(lines []scanner.Line, fn *extract.Function, headerLines map[int]bool, table map[string]bool, spec extract.Spec) funcResult {
	var out funcResult
	for n := fn.HeaderEnd + 1; n <= fn.EndLine && n <= len(lines); n++ {
		// A call-shaped token on a nested header line is a definition of
		// another function, not a call to it.
		if headerLines[n] {
			continue
		}
		line := &lines[n-1]
		if line.Blank {
			continue
		}
		for _, name := range callCandidates(line.Code, spec.Reserved) {
			if !table[name] {
				out.unresolved++
				continue
			}
			out.sites = append(out.sites, CallSite{
				Caller: fn.Name,
				Callee: name,
				Line:   line.Number,
			})
		}
	}
	return out
}

// callCandidates returns every identifier immediately followed by an opening
// parenthesis, excluding reserved control-flow keywords.
func callCandidates(code string, reserved map[string]bool) []string {
	var names []string
	runes := []rune(code)
	for i, r := range runes {
		if r != '(' || i == 0 {
			continue
		}
		start := i
		for start > 0 && isIdentRune(runes[start-1]) {
			start--
		}
		if start == i {
			continue
		}
		name := string(runes[start:i])
		if !validIdent(name) || reserved[name] {
			continue
		}
		names = append(names, name)
	}
	return names
}

func isIdentRune(r rune) bool {
	return r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9'
}

func validIdent(name string) bool {
	if name == "" {
		return false
	}
	first := rune(name[0])
	if first >= '0' && first <= '9' {
		return false
	}
	return true
}
