package report

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
)

// WriteText renders the plan as the plain-text report: the objective value
// on the first line, then PM and applied water per site and month rounded
// to two decimals.
func WriteText(w io.Writer, p *Plan) error {
	bw := bufio.NewWriter(w)
	obj := strconv.FormatFloat(p.Objective, 'g', -1, 64)
	if p.Proven {
		fmt.Fprintf(bw, "Optimal objective value: %s\n", obj)
	} else {
		fmt.Fprintf(bw, "Best objective value (%s, not proven optimal): %s\n", p.Status, obj)
	}
	for _, sm := range p.Sites {
		fmt.Fprintf(bw, "Site %s, Month %d, PM = %.2f, water = %.2f\n", sm.Site, sm.Period, sm.PM, sm.Water)
	}
	return bw.Flush()
}
