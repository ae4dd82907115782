// config/types.go
package config

import (
	"sync"
	"time"
)

// Config structure
type Config struct {
	Debug  bool     `json:"debug"`
	Size   string   `json:"Size"`   // bytes to test, supports K, M, G units
	Width  int      `json:"Width"`  // word width in bits
	Passes int      `json:"Passes"` // times to run the whole suite
	Lock   bool     `json:"Lock"`   // mlock the host region
	Sim    bool     `json:"Sim"`    // test a simulated memory instead of host memory
	Base   string   `json:"Base"`   // base address reported for a simulated memory
	Tests  []string `json:"Tests"`  // subset of databus, addressbus, device
	Faults []string `json:"Faults"` // faults injected into a simulated memory
}

// Test names
const (
	DataBus    = "databus"
	AddressBus = "addressbus"
	Device     = "device"
)

// AllTests in the order they run
var AllTests = []string{DataBus, AddressBus, Device}

// TestResult structure
type TestResult struct {
	DataBus    string
	AddressBus string
	Device     string
}

// NewTestResult returns a result with every test marked PASS
func NewTestResult() TestResult {
	return TestResult{
		DataBus:    "PASS",
		AddressBus: "PASS",
		Device:     "PASS",
	}
}

// Fail marks the named test as failed
func (r *TestResult) Fail(test string) {
	switch test {
	case DataBus:
		r.DataBus = "FAIL"
	case AddressBus:
		r.AddressBus = "FAIL"
	case Device:
		r.Device = "FAIL"
	}
}

// Passed is true if no test failed
func (r TestResult) Passed() bool {
	return r.DataBus != "FAIL" && r.AddressBus != "FAIL" && r.Device != "FAIL"
}

// PerformanceStats tracks overall performance metrics
type PerformanceStats struct {
	Tests map[string]*TestPerformance
	mu    sync.Mutex
}

// Lock locks the PerformanceStats mutex
func (ps *PerformanceStats) Lock() {
	ps.mu.Lock()
}

// Unlock unlocks the PerformanceStats mutex
func (ps *PerformanceStats) Unlock() {
	ps.mu.Unlock()
}

// TestPerformance tracks the accesses and time spent by one test
type TestPerformance struct {
	Name       string
	Bytes      uint64        // region size tested
	Runs       int           // completed runs
	ReadCount  uint64        // word reads over all runs
	WriteCount uint64        // word writes over all runs
	Duration   time.Duration // total time over all runs
	MinSpeed   float64       // slowest run in MB/s
	MaxSpeed   float64       // fastest run in MB/s
}

// Speed returns the average access throughput in MB/s for a word size
func (tp *TestPerformance) Speed(wordSize uint64) float64 {
	if tp.Duration <= 0 {
		return 0
	}
	bytes := float64((tp.ReadCount + tp.WriteCount) * wordSize)
	return bytes / tp.Duration.Seconds() / (1024 * 1024)
}

// Record adds one run to the named test's statistics
func (ps *PerformanceStats) Record(name string, bytes, reads, writes, wordSize uint64, d time.Duration) {
	ps.Lock()
	defer ps.Unlock()

	if ps.Tests == nil {
		ps.Tests = make(map[string]*TestPerformance)
	}
	tp, ok := ps.Tests[name]
	if !ok {
		tp = &TestPerformance{Name: name, Bytes: bytes}
		ps.Tests[name] = tp
	}

	var speed float64
	if d > 0 {
		speed = float64((reads+writes)*wordSize) / d.Seconds() / (1024 * 1024)
	}
	if tp.Runs == 0 || speed < tp.MinSpeed {
		tp.MinSpeed = speed
	}
	if speed > tp.MaxSpeed {
		tp.MaxSpeed = speed
	}

	tp.Runs++
	tp.ReadCount += reads
	tp.WriteCount += writes
	tp.Duration += d
}

// Get returns a copy of the named test's statistics
func (ps *PerformanceStats) Get(name string) (TestPerformance, bool) {
	ps.Lock()
	defer ps.Unlock()
	tp, ok := ps.Tests[name]
	if !ok {
		return TestPerformance{}, false
	}
	return *tp, true
}
