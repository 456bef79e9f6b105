package output_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/reconthing/reconthing/internal/model"
	"github.com/reconthing/reconthing/internal/output"
	"github.com/reconthing/reconthing/internal/task"

	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestWriteTable(t *testing.T) {
	t.Parallel()
	sheet := output.Probes([]model.HTTPProbeResult{
		{
			URL:          "https://a.example.com",
			StatusCode:   ptr(200),
			Title:        ptr(strings.Repeat("x", 60)),
			Technologies: []string{"Nginx", "PHP"},
			IPAddress:    ptr("10.0.0.1"),
		},
	})

	var plain bytes.Buffer
	output.WriteTable(&plain, sheet, true)
	lines := strings.Split(strings.TrimSpace(plain.String()), "\n")
	require.Len(t, lines, 3)
	require.True(t, strings.HasPrefix(lines[0], "URL"))
	require.True(t, strings.HasPrefix(lines[1], "---"))
	require.Contains(t, lines[2], "Nginx, PHP")
	require.Contains(t, lines[2], strings.Repeat("x", 37)+"...")

	var styled bytes.Buffer
	output.WriteTable(&styled, sheet, false)
	require.Contains(t, styled.String(), "https://a.example.com")
	require.Contains(t, styled.String(), "╭")

	var empty bytes.Buffer
	output.WriteTable(&empty, output.Subdomains(nil), false)
	require.Equal(t, "No results.\n", empty.String())
}

func TestWriteCSV(t *testing.T) {
	t.Parallel()
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	sheet := output.Subdomains([]model.Subdomain{
		{Name: "a.example.com", CreatedAt: at, UpdatedAt: at.Add(time.Hour)},
		{Name: "b,example.com", CreatedAt: at},
	})

	var buf bytes.Buffer
	require.NoError(t, output.WriteCSV(&buf, sheet))
	require.Equal(t,
		"Subdomain,First seen,Last seen\n"+
			"a.example.com,2024-05-01 12:00:00,2024-05-01 13:00:00\n"+
			"\"b,example.com\",2024-05-01 12:00:00,\n",
		buf.String())
}

func TestResolutions(t *testing.T) {
	t.Parallel()
	sheet := output.Resolutions([]model.SubdomainResolutions{
		{Subdomain: "a.example.com", Resolutions: []model.DNSResolution{
			{ResolvedDomain: "a.example.com", IPAddress: ptr("10.0.0.1"), TTL: ptr(60)},
			{ResolvedDomain: "cdn.example.net", IPAddress: ptr("10.0.0.2")},
		}},
		{Subdomain: "b.example.com"},
	})
	require.Equal(t, [][]string{
		{"a.example.com", "a.example.com", "10.0.0.1", "60"},
		{"a.example.com", "cdn.example.net", "10.0.0.2", ""},
		{"b.example.com", "", "", ""},
	}, sheet.Rows)
}

func TestTask(t *testing.T) {
	t.Parallel()
	var rec model.DNSRecord
	require.NoError(t, json.Unmarshal([]byte(`{"host":"a.example.com","a":["10.0.0.1"],"ttl":30}`), &rec))

	type then struct {
		rows  [][]string
		count int
	}
	var testCases = []struct {
		scenario string
		given    task.Task
		then     then
	}{
		{
			"enumerate sorted",
			task.Task{Kind: task.KindEnumerate, Subdomains: []string{"b.example.com", "a.example.com"}},
			then{[][]string{{"a.example.com"}, {"b.example.com"}}, 2},
		},
		{
			"resolve",
			task.Task{Kind: task.KindResolve, Resolutions: []model.DNSRecord{rec}},
			then{[][]string{{"a.example.com", "10.0.0.1", "30"}}, 1},
		},
		{
			"probe",
			task.Task{Kind: task.KindProbe, Probes: []model.ProbeRecord{{URL: "http://a.example.com", StatusCode: ptr(404)}}},
			then{[][]string{{"http://a.example.com", "404", "", ""}}, 1},
		},
		{
			"basic recon",
			task.Task{Kind: task.KindBasicRecon, Result: &task.ReconResult{SubdomainsAdded: 3, DNSResultsAdded: 2, HTTPResultsAdded: 1, TotalTime: "1.5s"}},
			then{[][]string{{"3", "2", "1", "1.5s"}}, 6},
		},
		{
			"basic recon without result",
			task.Task{Kind: task.KindBasicRecon},
			then{nil, 0},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.scenario, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.then.rows, output.Task(tc.given).Rows)
			require.Equal(t, tc.then.count, output.Count(tc.given))
		})
	}
}

func TestProgress(t *testing.T) {
	t.Parallel()
	for _, status := range []task.Status{task.StatusCompleted, task.StatusFailed} {
		var buf bytes.Buffer
		p := output.NewProgress(&buf, "enumerate example.com")
		cur := task.Task{Kind: task.KindEnumerate, Status: task.StatusInProgress}
		p.Update(cur)
		cur.Progress = 50
		p.Update(cur)
		cur.Status = status
		cur.Progress = 100
		cur.Subdomains = []string{"a.example.com"}
		p.Done(cur)
	}
}
