package analyzer

import (
	"fmt"
	"strings"
)

// GetAnalysisSummary renders the human-readable result block printed
// after Finish.
func (a *Analyzer) GetAnalysisSummary() string {
	semantic := 0
	for _, bag := range a.semanticErrors {
		semantic += bag.Len()
	}
	parse := 0
	for _, bag := range a.parseErrors {
		parse += bag.Len()
	}
	definitions := 0
	for _, b := range a.reg.All {
		if !b.Builtin && !b.Synthetic {
			definitions++
		}
	}
	references := 0
	for _, bs := range a.reg.References {
		references += len(bs)
	}
	resolved := len(a.resolved)
	unresolved := len(a.unresolved)
	rate := 100.0
	if resolved+unresolved > 0 {
		rate = float64(resolved) * 100.0 / float64(resolved+unresolved)
	}

	var b strings.Builder
	b.WriteString("\nAnalysis summary\n")
	b.WriteString(strings.Repeat("-", 40) + "\n")
	fmt.Fprintf(&b, "modules loaded:       %d\n", len(a.loadedFiles))
	fmt.Fprintf(&b, "failed to parse:      %d\n", len(a.failedToParse))
	fmt.Fprintf(&b, "parse errors:         %d\n", parse)
	fmt.Fprintf(&b, "semantic errors:      %d\n", semantic)
	fmt.Fprintf(&b, "definitions:          %d\n", definitions)
	fmt.Fprintf(&b, "references:           %d\n", references)
	fmt.Fprintf(&b, "called functions:     %d\n", a.calledFunctions)
	fmt.Fprintf(&b, "names resolved:       %d\n", resolved)
	fmt.Fprintf(&b, "names unresolved:     %d\n", unresolved)
	fmt.Fprintf(&b, "resolution rate:      %.1f%%\n", rate)
	return b.String()
}
