// Package diagfmt renders diagnostics for terminals.
package diagfmt

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"pyscope/internal/diag"
)

// PrettyOpts controls rendering.
type PrettyOpts struct {
	Color bool
}

var (
	errColor  = color.New(color.FgRed, color.Bold)
	warnColor = color.New(color.FgYellow, color.Bold)
	infoColor = color.New(color.FgCyan)
	pathColor = color.New(color.FgWhite, color.Bold)
)

// Pretty writes diagnostics as
//
//	<path>:<start>-<end>: <SEV> <CODE>: <message>
//
// one per line, in the order they appear in items.
func Pretty(w io.Writer, items []diag.Diagnostic, opts PrettyOpts) {
	for _, d := range items {
		sev := d.Severity.String()
		loc := fmt.Sprintf("%s:%d-%d", d.Primary.File, d.Primary.Start, d.Primary.End)
		if opts.Color {
			loc = pathColor.Sprint(loc)
			switch d.Severity {
			case diag.SevError:
				sev = errColor.Sprint(sev)
			case diag.SevWarning:
				sev = warnColor.Sprint(sev)
			default:
				sev = infoColor.Sprint(sev)
			}
		}
		fmt.Fprintf(w, "%s: %s %s: %s\n", loc, sev, d.Code, d.Message)
	}
}
