package testutil

import (
	"testing"

	"github.com/sebdah/goldie/v2"
)

// GoldenDir is where golden files live, relative to the test's package.
const GoldenDir = "testdata/golden"

// AssertGolden compares got against testdata/golden/{name}.golden.
//
// To regenerate golden files, run the package's tests with -update.
func AssertGolden(t *testing.T, name string, got []byte) {
	t.Helper()

	g := goldie.New(t,
		goldie.WithFixtureDir(GoldenDir),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, got)
}

// AssertTraceGolden compares the bus's trace (see RecordingBus.Trace)
// against a golden file.
func AssertTraceGolden(t *testing.T, name string, bus *RecordingBus) {
	t.Helper()
	AssertGolden(t, name, []byte(bus.Trace()))
}
