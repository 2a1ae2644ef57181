package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/dustplan/core/report"
)

func samplePlan() *report.Plan {
	return &report.Plan{
		Status:    "OPTIMAL",
		Proven:    true,
		Objective: 16,
		TotalCost: 553,
		Sites: []report.SiteMonth{
			{Site: "R1", Period: 0, PM: 7, Water: 50, WaterActive: true, Maintenance: true, Cost: 53},
			{Site: "R1", Period: 1, PM: 9},
		},
		Flows: []report.ArcMonth{
			{From: "F1", To: "N1", Period: 0, Flow: 50, Cost: 250},
		},
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, samplePlan()))
	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	want := [][]string{
		siteHeader,
		{"R1", "0", "7", "50", "0", "0", "true", "true", "false", "false", "false", "53"},
		{"R1", "1", "9", "0", "0", "0", "false", "false", "false", "false", "false", "0"},
	}
	if diff := cmp.Diff(want, rows); diff != "" {
		t.Fatalf("csv mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, samplePlan()))
	var got report.Plan
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	if diff := cmp.Diff(*samplePlan(), got); diff != "" {
		t.Fatalf("json mismatch (-want +got):\n%s", diff)
	}
}

func TestFormatFor(t *testing.T) {
	cases := []struct {
		name, path string
		want       Format
		wantErr    bool
	}{
		{"", "plan.json", FormatJSON, false},
		{"", "out/PLAN.CSV", FormatCSV, false},
		{"csv", "plan.txt", FormatCSV, false},
		{"", "plan.xlsx", "", true},
	}
	for _, tc := range cases {
		got, err := FormatFor(tc.name, tc.path)
		if tc.wantErr {
			assert.Error(t, err, tc.path)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tc.want, got)
	}
}

func TestWriteFile_CSVWritesFlows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "plan.csv")
	require.NoError(t, WriteFile(path, FormatCSV, samplePlan()))

	flows, err := os.ReadFile(filepath.Join(filepath.Dir(path), "plan_flows.csv"))
	require.NoError(t, err)
	assert.Equal(t, "from,to,month,flow,cost\nF1,N1,0,50,250\n", string(flows))
	_, err = os.Stat(path)
	assert.NoError(t, err)
}
