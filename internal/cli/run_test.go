package cli

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/steprun/internal/testutil"
)

const healthScenario = `
name: health
steps:
  - text: "Given the service is up"
    run: "true"
  - text: "Then it answers"
    run: "printf 'ok\n'"
`

const failingScenario = `
name: broken
steps:
  - text: "Given a command that fails"
    run: "echo boom; exit 3"
  - text: "Then this is skipped"
    run: "touch should-not-exist"
`

const pendingScenario = `
name: later
steps:
  - text: "Given something not written yet"
    pending: true
`

func writeScenario(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

// testRunOptions returns run options with deterministic IDs, clocks and durations.
func testRunOptions(format string) *RunOptions {
	return &RunOptions{
		RootOptions: &RootOptions{Format: format},
		Workers:     1,
		IDs:         testutil.NewSequenceIDGenerator("run"),
		Watch:       testutil.NewStubStopWatch(time.Millisecond),
		Sequencer:   testutil.NewDeterministicClock(),
		Now:         testutil.FixedNow,
	}
}

func executeRun(t *testing.T, opts *RunOptions, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := newRunCommand(opts)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

// runResponse mirrors CLIResponse with a typed payload.
type runResponse struct {
	Status string    `json:"status"`
	RunID  string    `json:"run_id"`
	Error  *CLIError `json:"error"`
	Data   struct {
		RunID      string         `json:"run_id"`
		DryRun     bool           `json:"dry_run"`
		Status     string         `json:"status"`
		Scenarios  map[string]int `json:"scenarios"`
		Steps      map[string]int `json:"steps"`
		DurationNS int64          `json:"duration_ns"`
		WallNS     int64          `json:"wall_ns"`
		Results    []struct {
			ID      string   `json:"id"`
			Name    string   `json:"name"`
			Dialect string   `json:"dialect"`
			Lines   []string `json:"lines"`
			Outcome struct {
				Status     string `json:"status"`
				Error      string `json:"error"`
				DurationNS *int64 `json:"duration_ns"`
			} `json:"outcome"`
		} `json:"results"`
	} `json:"data"`
}

func decodeRunResponse(t *testing.T, out string) runResponse {
	t.Helper()
	var resp runResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp), "output: %s", out)
	return resp
}

func TestRunPassingScenarios(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "health.yaml", healthScenario)

	out, err := executeRun(t, testRunOptions("text"), dir)
	require.NoError(t, err)

	assert.Contains(t, out, "✓ health\n  ✓ Given the service is up\n  ✓ Then it answers\n")
	assert.Contains(t, out, "Run run-1")
	assert.Contains(t, out, "✓ passed")
	assert.Contains(t, out, "✓ All scenarios passed")
}

func TestRunFailingScenarioExitsWithFailure(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "broken.yaml", failingScenario)

	out, err := executeRun(t, testRunOptions("text"), dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "1 scenario(s) did not pass")

	assert.Contains(t, out, "✗ broken")
	assert.Contains(t, out, `command "echo boom; exit 3" exited with status 3`)
	assert.Contains(t, out, "- Then this is skipped")

	// The step after the failure is only dry-run
	_, statErr := os.Stat(filepath.Join(dir, "should-not-exist"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestRunPendingRespectsStrict(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "later.yaml", pendingScenario)

	out, err := executeRun(t, testRunOptions("text"), dir)
	require.NoError(t, err)
	assert.Contains(t, out, "~ later")

	_, err = executeRun(t, testRunOptions("text"), "--strict", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestRunDryRunDoesNotExecute(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "touch.yaml", `
name: touch
steps:
  - text: "Given a file is created"
    run: "touch marker"
`)

	out, err := executeRun(t, testRunOptions("text"), "--dry-run", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "- touch")

	_, statErr := os.Stat(filepath.Join(dir, "marker"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestRunJSONOutput(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "a_health.yaml", healthScenario)
	writeScenario(t, dir, "b_later.yaml", pendingScenario)

	out, err := executeRun(t, testRunOptions("json"), dir)
	require.NoError(t, err)

	resp := decodeRunResponse(t, out)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "run-1", resp.RunID)
	assert.Nil(t, resp.Error)

	assert.Equal(t, "run-1", resp.Data.RunID)
	assert.Equal(t, "pending", resp.Data.Status)
	assert.Equal(t, map[string]int{"passed": 1, "pending": 1}, resp.Data.Scenarios)
	assert.Equal(t, map[string]int{"passed": 2, "pending": 1}, resp.Data.Steps)
	// Two scenarios of 2ms and 1ms sum to 3ms; the stub watch times the run at 1ms.
	assert.Equal(t, (3 * time.Millisecond).Nanoseconds(), resp.Data.DurationNS)
	assert.Equal(t, time.Millisecond.Nanoseconds(), resp.Data.WallNS)

	require.Len(t, resp.Data.Results, 2)
	health := resp.Data.Results[0]
	assert.Equal(t, "run-2", health.ID)
	assert.Equal(t, "health", health.Name)
	assert.Equal(t, "en", health.Dialect)
	assert.Equal(t, []string{"ok"}, health.Lines)
	assert.Equal(t, "passed", health.Outcome.Status)
	require.NotNil(t, health.Outcome.DurationNS)
	assert.Equal(t, (2 * time.Millisecond).Nanoseconds(), *health.Outcome.DurationNS)

	later := resp.Data.Results[1]
	assert.Equal(t, "run-3", later.ID)
	assert.Equal(t, "pending", later.Outcome.Status)
	assert.Contains(t, later.Outcome.Error, "pending")
}

func TestRunJSONOutputReportsFailure(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "broken.yaml", failingScenario)

	out, err := executeRun(t, testRunOptions("json"), dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	resp := decodeRunResponse(t, out)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeScenarioFailed, resp.Error.Code)
	assert.Equal(t, "failed", resp.Data.Status)
	assert.Equal(t, map[string]int{"failed": 1, "skipped": 1}, resp.Data.Steps)
}

func TestRunWritesEventsAndMetrics(t *testing.T) {
	dir := t.TempDir()
	outDir := t.TempDir()
	writeScenario(t, dir, "health.yaml", healthScenario)

	eventsPath := filepath.Join(outDir, "events.jsonl")
	metricsPath := filepath.Join(outDir, "steprun.prom")

	_, err := executeRun(t, testRunOptions("text"),
		"--events-out", eventsPath,
		"--metrics-out", metricsPath,
		dir)
	require.NoError(t, err)

	f, err := os.Open(eventsPath)
	require.NoError(t, err)
	defer f.Close()

	var kinds []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var line struct {
			Seq  int64  `json:"seq"`
			Kind string `json:"kind"`
		}
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &line))
		assert.Equal(t, int64(len(kinds)+1), line.Seq)
		kinds = append(kinds, line.Kind)
	}
	require.NoError(t, scanner.Err())
	assert.Equal(t, []string{
		"scenario_started",
		"step_started", "step_finished",
		"step_started", "step_finished",
		"scenario_finished",
	}, kinds)

	metricsText, err := os.ReadFile(metricsPath)
	require.NoError(t, err)
	assert.Contains(t, string(metricsText), `steprun_steps_total{status="passed"} 2`)
	assert.Contains(t, string(metricsText), `steprun_scenarios_total{status="passed"} 1`)
	assert.Contains(t, string(metricsText), `steprun_step_duration_seconds_count 2`)
}

func TestRunVerboseListsSlowestSteps(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "health.yaml", healthScenario)

	opts := testRunOptions("text")
	opts.Verbose = true
	out, err := executeRun(t, opts, dir)
	require.NoError(t, err)

	assert.Contains(t, out, "Loaded 1 scenario(s)")
	assert.Contains(t, out, "Slowest steps:")
	assert.Contains(t, out, "1ms  Given the service is up")
}

func TestRunFilter(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "health.yaml", healthScenario)
	writeScenario(t, dir, "broken.yaml", failingScenario)

	out, err := executeRun(t, testRunOptions("text"), "--filter", "health*", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ health")
	assert.NotContains(t, out, "broken")
}

func TestRunDialect(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "panier.yaml", `
name: panier
steps:
  - text: "Étant donné un panier vide"
    run: "true"
`)

	// English rejects the French keyword
	_, err := executeRun(t, testRunOptions("text"), dir)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), ErrCodeBuildFailed)

	out, err := executeRun(t, testRunOptions("text"), "--dialect", "fr-CA", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ panier")
}

func TestRunCommandErrors(t *testing.T) {
	tests := []struct {
		name     string
		files    map[string]string
		args     []string
		wantCode string
		wantMsg  string
	}{
		{
			name:     "missing directory",
			args:     []string{"/nonexistent/scenarios"},
			wantCode: ErrCodeNotFound,
			wantMsg:  "scenarios directory not found",
		},
		{
			name:     "no scenario files",
			files:    map[string]string{"notes.txt": "not a scenario"},
			wantCode: ErrCodeNoFiles,
			wantMsg:  "no scenario files found",
		},
		{
			name:     "invalid scenario",
			files:    map[string]string{"bad.yaml": "steps: []\n"},
			wantCode: ErrCodeLoadFailed,
			wantMsg:  "name is required",
		},
		{
			name:     "unknown dialect",
			files:    map[string]string{"health.yaml": healthScenario},
			args:     []string{"--dialect", "ja"},
			wantCode: ErrCodeDialect,
			wantMsg:  "unsupported dialect",
		},
		{
			name:     "invalid filter",
			files:    map[string]string{"health.yaml": healthScenario},
			args:     []string{"--filter", "[unclosed"},
			wantCode: ErrCodeLoadFailed,
			wantMsg:  "invalid filter pattern",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			for name, content := range tt.files {
				writeScenario(t, dir, name, content)
			}

			args := tt.args
			if tt.name != "missing directory" {
				args = append(append([]string{}, tt.args...), dir)
			}

			out, err := executeRun(t, testRunOptions("json"), args...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))

			var resp CLIResponse
			require.NoError(t, json.Unmarshal([]byte(out), &resp), "output: %s", out)
			assert.Equal(t, "error", resp.Status)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
			assert.Contains(t, resp.Error.Message, tt.wantMsg)
		})
	}
}

func TestRunConfigFile(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "later.yaml", pendingScenario)
	writeScenario(t, dir, DefaultConfigFile, "strict = true\n")

	// Picked up from the scenarios directory
	_, err := executeRun(t, testRunOptions("text"), dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	// An explicit flag wins over the file
	_, err = executeRun(t, testRunOptions("text"), "--strict=false", dir)
	require.NoError(t, err)
}

func TestRunConfigFileUnknownKey(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "health.yaml", healthScenario)
	cfgPath := filepath.Join(t.TempDir(), "custom.toml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("colour = true\n"), 0644))

	out, err := executeRun(t, testRunOptions("text"), "--config", cfgPath, dir)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error ["+ErrCodeConfig+"]")
	assert.Contains(t, out, "unknown keys: colour")
}

func TestRunConcurrentScenarios(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a", "b", "c", "d"} {
		writeScenario(t, dir, name+".yaml", strings.ReplaceAll(healthScenario, "name: health", "name: "+name))
	}

	opts := testRunOptions("json")
	opts.Workers = 4
	out, err := executeRun(t, opts, dir)
	require.NoError(t, err)

	resp := decodeRunResponse(t, out)
	assert.Equal(t, map[string]int{"passed": 4}, resp.Data.Scenarios)
	assert.Equal(t, map[string]int{"passed": 8}, resp.Data.Steps)

	// Results keep file order whatever order cases finished in
	require.Len(t, resp.Data.Results, 4)
	for i, name := range []string{"a", "b", "c", "d"} {
		assert.Equal(t, name, resp.Data.Results[i].Name)
	}
}
