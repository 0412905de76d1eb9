package analyze

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
)

// Table writes summaries as a text table, one row per chain and
// coordinate.
func Table(w io.Writer, summaries ...Summary) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"chain", "samples", "acceptance", "esjd", "coordinate", "mean", "std dev", "std err"})
	for _, s := range summaries {
		for j := range s.Mean {
			row := table.Row{"", "", "", "", j, format(s.Mean[j]), format(s.StdDev[j]), format(s.StdErr[j])}
			if j == 0 {
				row[0], row[1], row[2], row[3] = s.Name, s.Samples, format(s.AcceptanceRate), format(s.ESJD)
			}
			t.AppendRow(row)
		}
		t.AppendSeparator()
	}
	t.Render()
}

func format(v float64) string {
	return strings.TrimSpace(fmt.Sprintf("%10.4g", v))
}
