package tool_test

import (
	"strings"
	"testing"
	"time"

	"github.com/reconthing/reconthing/internal/metrics"
	"github.com/reconthing/reconthing/internal/model"
	"github.com/reconthing/reconthing/internal/tool"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestFromConfig(t *testing.T) {
	t.Parallel()
	cmd, err := tool.FromConfig(model.Tool{Path: "/usr/local/bin/dnsx", Args: []string{"-json"}, Timeout: "PT1M"})
	require.NoError(t, err)
	require.Equal(t, time.Minute, cmd.Timeout)
	require.Equal(t, "dnsx", cmd.Name())

	_, err = tool.FromConfig(model.Tool{Path: "dnsx", Timeout: "1m"})
	require.ErrorIs(t, err, model.ErrISOFormat)
}

func TestEnumerator(t *testing.T) {
	t.Parallel()
	sh := lookSh(t)

	var testCases = []struct {
		scenario string
		given    string
		then     []string
	}{
		{
			scenario: "dedup and normalize",
			given:    `printf 'A.example.com\n\n  b.example.com \na.example.com\nwww.%s.\n' "$2"`,
			then:     []string{"a.example.com", "b.example.com", "www.example.com"},
		},
		{
			scenario: "out of scope and invalid",
			given:    `printf 'evil.org\n*.example.com\nexample.com.evil.org\nok.example.com\n'`,
			then:     []string{"ok.example.com"},
		},
		{
			scenario: "non-zero exit",
			given:    `echo a.example.com; exit 1`,
			then:     nil,
		},
		{
			scenario: "no output",
			given:    `true`,
			then:     nil,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.scenario, func(t *testing.T) {
			t.Parallel()
			e := tool.Enumerator{
				Command: tool.Command{Path: sh, Args: []string{"-c", tc.given, "sh"}, Timeout: 5 * time.Second},
			}
			names, err := e.Enumerate(t.Context(), "example.com")
			require.NoError(t, err)
			require.Equal(t, tc.then, names)
		})
	}
}

func TestEnumerator_Unavailable(t *testing.T) {
	t.Parallel()
	e := tool.Enumerator{Command: tool.Command{Path: "reconthing-does-not-exist"}}
	names, err := e.Enumerate(t.Context(), "example.com")
	require.ErrorIs(t, err, model.ErrToolUnavailable)
	require.Empty(t, names)
}

const invocationsHeader = `# HELP reconthing_tool_invocations_total External tool invocations by tool and outcome.
# TYPE reconthing_tool_invocations_total counter
`

const resolveScript = `read h
case "$h" in
a.*) printf '{"host":"%s","a":["1.1.1.1"],"ttl":300}\n' "$h" ;;
c.*) echo 'not json' ;;
d.*) ;;
*) exit 1 ;;
esac`

func TestResolver(t *testing.T) {
	t.Parallel()
	sh := lookSh(t)

	m := metrics.New()
	r := tool.Resolver{
		Command:     tool.Command{Path: sh, Args: []string{"-c", resolveScript}, Timeout: 5 * time.Second},
		Concurrency: 2,
		Metrics:     m,
	}
	recs, err := r.Resolve(t.Context(), []string{"a.example.com", "b.example.com", "c.example.com", "d.example.com"})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.Equal(t, "a.example.com", recs[0].Host)
	require.Equal(t, []string{"1.1.1.1"}, recs[0].A)
	require.Equal(t, 300, *recs[0].TTL)
	require.JSONEq(t, `{"host":"a.example.com","a":["1.1.1.1"],"ttl":300}`, string(recs[0].Raw))

	expected := invocationsHeader + `reconthing_tool_invocations_total{outcome="failed",tool="sh"} 3
reconthing_tool_invocations_total{outcome="ok",tool="sh"} 1
`
	require.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "reconthing_tool_invocations_total"))
}

func TestResolver_Empty(t *testing.T) {
	t.Parallel()
	sh := lookSh(t)
	r := tool.Resolver{Command: tool.Command{Path: sh, Args: []string{"-c", "exit 1"}}}
	recs, err := r.Resolve(t.Context(), nil)
	require.NoError(t, err)
	require.Empty(t, recs)
}

func TestProber(t *testing.T) {
	t.Parallel()
	sh := lookSh(t)

	script := `read h; printf '{"input":"%s","url":"https://%s","status_code":200,"title":"Hi","tech":["Nginx"]}\n' "$h" "$h"`
	p := tool.Prober{
		Command:     tool.Command{Path: sh, Args: []string{"-c", script}, Timeout: 5 * time.Second},
		Concurrency: 4,
	}
	targets := []string{"a.example.com", "b.example.com", "c.example.com"}
	recs, err := p.Probe(t.Context(), targets)
	require.NoError(t, err)
	require.Len(t, recs, 3)

	var inputs []string
	for _, rec := range recs {
		inputs = append(inputs, rec.Input)
		require.Equal(t, "https://"+rec.Input, rec.URL)
		require.Equal(t, 200, *rec.StatusCode)
	}
	require.ElementsMatch(t, targets, inputs)
}

func TestProber_Unavailable(t *testing.T) {
	t.Parallel()
	m := metrics.New()
	p := tool.Prober{Command: tool.Command{Path: "reconthing-does-not-exist"}, Metrics: m}
	recs, err := p.Probe(t.Context(), []string{"a.example.com"})
	require.ErrorIs(t, err, model.ErrToolUnavailable)
	require.Empty(t, recs)
	expected := invocationsHeader + `reconthing_tool_invocations_total{outcome="unavailable",tool="reconthing-does-not-exist"} 1
`
	require.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "reconthing_tool_invocations_total"))
}
