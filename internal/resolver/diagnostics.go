package resolver

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/nao1215/licensescan/internal/model"
)

// diagnosticPrinter prints the resolved packages as a tree, one entry per
// package, the way the npm crawler lists what it found.
type diagnosticPrinter struct {
	w          io.Writer
	name       *color.Color
	known      *color.Color
	unknown    *color.Color
	unlicensed *color.Color
	faint      *color.Color
}

// newDiagnosticPrinter creates a printer. When colored is false, colors are
// forced off; otherwise fatih/color decides based on the terminal.
func newDiagnosticPrinter(w io.Writer, colored bool) *diagnosticPrinter {
	p := &diagnosticPrinter{
		w:          w,
		name:       color.New(color.Bold),
		known:      color.New(color.FgGreen),
		unknown:    color.New(color.FgYellow),
		unlicensed: color.New(color.FgRed, color.Bold),
		faint:      color.New(color.Faint),
	}
	if !colored {
		for _, c := range []*color.Color{p.name, p.known, p.unknown, p.unlicensed, p.faint} {
			c.DisableColor()
		}
	}
	return p
}

// licenseColor picks the color for a license value.
func (p *diagnosticPrinter) licenseColor(license string) *color.Color {
	switch license {
	case model.LicenseUnknown:
		return p.unknown
	case model.LicenseUnlicensed:
		return p.unlicensed
	default:
		return p.known
	}
}

// print writes every package of results in natural order.
func (p *diagnosticPrinter) print(results map[string]model.PackageLicenseInfo) error {
	if p.w == nil {
		return nil
	}

	names := model.SortedNames(results)
	for i, name := range names {
		pkg := results[name]
		branch, indent := "├─", "│  "
		if i == len(names)-1 {
			branch, indent = "└─", "   "
		}

		if _, err := fmt.Fprintf(p.w, "%s %s\n", branch, p.name.Sprint(name)); err != nil {
			return err
		}

		fields := [][2]string{{"licenses", p.licenseColor(pkg.Licenses).Sprint(pkg.Licenses)}}
		if pkg.Repository != "" {
			fields = append(fields, [2]string{"repository", pkg.Repository})
		}
		if pkg.LicenseURL != "" {
			fields = append(fields, [2]string{"licenseUrl", pkg.LicenseURL})
		}
		if pkg.Path != "" {
			fields = append(fields, [2]string{"path", p.faint.Sprint(pkg.Path)})
		}

		for j, f := range fields {
			sub := "├─"
			if j == len(fields)-1 {
				sub = "└─"
			}
			if _, err := fmt.Fprintf(p.w, "%s%s %s: %s\n", indent, sub, f[0], f[1]); err != nil {
				return err
			}
		}
	}
	return nil
}
