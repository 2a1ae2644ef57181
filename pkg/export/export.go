// Package export writes extracted plans as JSON or CSV files.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/kilianp07/dustplan/core/report"
)

// Format names an export encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// FormatFor picks the format from an explicit name or, when empty, from the
// file extension of path.
func FormatFor(name, path string) (Format, error) {
	if name == "" {
		name = strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	}
	switch Format(strings.ToLower(name)) {
	case FormatJSON:
		return FormatJSON, nil
	case FormatCSV:
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("unsupported export format %q", name)
	}
}

// WriteJSON writes the whole plan to w in JSON format.
func WriteJSON(w io.Writer, p *report.Plan) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(p)
}

var siteHeader = []string{
	"site", "month", "pm", "water", "cover_water", "effective_reduction",
	"water_active", "maintenance", "cover_installed", "cover_present", "cover_resilient", "cost",
}

// WriteCSV writes one row per site and month.
func WriteCSV(w io.Writer, p *report.Plan) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(siteHeader); err != nil {
		return err
	}
	for _, sm := range p.Sites {
		rec := []string{
			sm.Site,
			strconv.Itoa(sm.Period),
			num(sm.PM),
			num(sm.Water),
			num(sm.CoverWater),
			num(sm.EffectiveReduction),
			strconv.FormatBool(sm.WaterActive),
			strconv.FormatBool(sm.Maintenance),
			strconv.FormatBool(sm.CoverInstalled),
			strconv.FormatBool(sm.CoverPresent),
			strconv.FormatBool(sm.CoverResilient),
			num(sm.Cost),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFlowsCSV writes one row per arc and month.
func WriteFlowsCSV(w io.Writer, p *report.Plan) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"from", "to", "month", "flow", "cost"}); err != nil {
		return err
	}
	for _, f := range p.Flows {
		if err := cw.Write([]string{f.From, f.To, strconv.Itoa(f.Period), num(f.Flow), num(f.Cost)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFile writes the plan to path. CSV exports put the arc flows next to
// the site table in a file suffixed with "_flows".
func WriteFile(path string, f Format, p *report.Plan) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	switch f {
	case FormatJSON:
		return writeTo(path, p, WriteJSON)
	case FormatCSV:
		if err := writeTo(path, p, WriteCSV); err != nil {
			return err
		}
		ext := filepath.Ext(path)
		return writeTo(strings.TrimSuffix(path, ext)+"_flows"+ext, p, WriteFlowsCSV)
	default:
		return fmt.Errorf("unsupported export format %q", f)
	}
}

func writeTo(path string, p *report.Plan, write func(io.Writer, *report.Plan) error) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := file.Close(); err == nil {
			err = cerr
		}
	}()
	return write(file, p)
}

func num(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
