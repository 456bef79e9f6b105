// Package output renders results for the terminal: styled tables, CSV and a
// progress bar for running tasks.
package output

import (
	"encoding/csv"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/reconthing/reconthing/internal/model"
	"github.com/reconthing/reconthing/internal/task"
)

// Sheet is a rectangular result ready to be written as a table or CSV.
type Sheet struct {
	Headers []string
	Rows    [][]string
}

func Subdomains(subs []model.Subdomain) Sheet {
	s := Sheet{Headers: []string{"Subdomain", "First seen", "Last seen"}}
	for _, sub := range subs {
		s.Rows = append(s.Rows, []string{sub.Name, stamp(sub.CreatedAt), stamp(sub.UpdatedAt)})
	}
	return s
}

// Resolutions lists one row per resolution; subdomains without any get a
// single row with empty address.
func Resolutions(groups []model.SubdomainResolutions) Sheet {
	s := Sheet{Headers: []string{"Subdomain", "Resolved", "IP", "TTL"}}
	for _, g := range groups {
		if len(g.Resolutions) == 0 {
			s.Rows = append(s.Rows, []string{g.Subdomain, "", "", ""})
			continue
		}
		for _, r := range g.Resolutions {
			s.Rows = append(s.Rows, []string{g.Subdomain, r.ResolvedDomain, str(r.IPAddress), num(r.TTL)})
		}
	}
	return s
}

func Probes(probes []model.HTTPProbeResult) Sheet {
	s := Sheet{Headers: []string{"URL", "Status", "Title", "Length", "Technologies", "Webserver", "IP"}}
	for _, p := range probes {
		s.Rows = append(s.Rows, []string{
			p.URL,
			num(p.StatusCode),
			truncate(str(p.Title), 40),
			num(p.ContentLength),
			truncate(strings.Join(p.Technologies, ", "), 40),
			str(p.Webserver),
			str(p.IPAddress),
		})
	}
	return s
}

// Task returns the payload of a finished task.
func Task(t task.Task) Sheet {
	switch t.Kind {
	case task.KindEnumerate:
		s := Sheet{Headers: []string{"Subdomain"}}
		for _, name := range slices.Sorted(slices.Values(t.Subdomains)) {
			s.Rows = append(s.Rows, []string{name})
		}
		return s
	case task.KindResolve:
		s := Sheet{Headers: []string{"Host", "IP", "TTL"}}
		for _, r := range t.Resolutions {
			s.Rows = append(s.Rows, []string{r.Host, str(r.IP()), num(r.TTL)})
		}
		return s
	case task.KindProbe:
		s := Sheet{Headers: []string{"URL", "Status", "Title", "Technologies"}}
		for _, p := range t.Probes {
			s.Rows = append(s.Rows, []string{p.URL, num(p.StatusCode), truncate(str(p.Title), 40), truncate(strings.Join(p.Tech, ", "), 40)})
		}
		return s
	case task.KindBasicRecon:
		s := Sheet{Headers: []string{"Subdomains", "DNS results", "HTTP results", "Total time"}}
		if r := t.Result; r != nil {
			s.Rows = append(s.Rows, []string{
				strconv.Itoa(r.SubdomainsAdded),
				strconv.Itoa(r.DNSResultsAdded),
				strconv.Itoa(r.HTTPResultsAdded),
				r.TotalTime,
			})
		}
		return s
	}
	return Sheet{}
}

// WriteTable renders s as a styled terminal table, or as plain aligned text
// when noColor is set.
func WriteTable(w io.Writer, s Sheet, noColor bool) {
	if len(s.Rows) == 0 {
		_, _ = fmt.Fprintln(w, "No results.")
		return
	}
	if noColor {
		writeSimpleTable(w, s)
		return
	}

	t := table.New().
		Headers(s.Headers...).
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("240"))).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("252"))
			}
			return lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
		})
	for _, row := range s.Rows {
		t.Row(row...)
	}
	_, _ = fmt.Fprintln(w, t.Render())
}

func writeSimpleTable(w io.Writer, s Sheet) {
	widths := make([]int, len(s.Headers))
	for i, h := range s.Headers {
		widths[i] = len(h)
	}
	for _, row := range s.Rows {
		for i, cell := range row {
			widths[i] = max(widths[i], len(cell))
		}
	}

	line := func(cells []string) {
		parts := make([]string, len(cells))
		for i, cell := range cells {
			parts[i] = fmt.Sprintf("%-*s", widths[i], cell)
		}
		_, _ = fmt.Fprintln(w, strings.TrimRight(strings.Join(parts, " | "), " "))
	}

	line(s.Headers)
	seps := make([]string, len(widths))
	for i, width := range widths {
		seps[i] = strings.Repeat("-", width)
	}
	_, _ = fmt.Fprintln(w, strings.Join(seps, "-+-"))
	for _, row := range s.Rows {
		line(row)
	}
}

func WriteCSV(w io.Writer, s Sheet) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(s.Headers); err != nil {
		return err
	}
	if err := cw.WriteAll(s.Rows); err != nil {
		return fmt.Errorf("writing csv: %w", err)
	}
	return nil
}

func str(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func num(p *int) string {
	if p == nil {
		return ""
	}
	return strconv.Itoa(*p)
}

func stamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.DateTime)
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit-3] + "..."
}
