// suite/types.go
package suite

import (
	"memtest/config"
)

// Options holds configuration for a suite run
type Options struct {
	Tests  []string // tests to run, in config.AllTests order
	Passes int
	Debug  bool
}

// TestReport is the outcome of one test in the first pass that failed it,
// or of the last pass if it never failed
type TestReport struct {
	Name    string // config test name
	Label   string // name printed in the summary, e.g. memTestDevice
	Ran     bool
	Pass    int // pass number the outcome comes from
	Outcome string
	Err     error // fault or precondition error, nil on PASS
	Bytes   uint64
}

// Report holds the results of a suite run
type Report struct {
	Base    uintptr
	Bytes   uint64
	Width   int
	Passes  int
	Tests   []TestReport
	Results config.TestResult
	Stats   *config.PerformanceStats
}

// Passed is true if every test that ran passed
func (r Report) Passed() bool {
	return r.Results.Passed()
}
