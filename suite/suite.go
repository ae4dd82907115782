package suite

import (
	"fmt"
	"time"

	"memtest/config"
	"memtest/memory"
	"memtest/utils"
)

var labels = map[string]string{
	config.DataBus:    "memTestDataBus",
	config.AddressBus: "memTestAddressBus",
	config.Device:     "memTestDevice",
}

// Run runs the selected tests over region, one after the other, for the
// requested number of passes. A test that fails is not repeated in later
// passes.
func Run[W memory.Word](region memory.Region[W], opts Options) (Report, error) {
	if err := region.Validate(); err != nil {
		return Report{}, err
	}
	if opts.Passes < 1 {
		opts.Passes = 1
	}
	if len(opts.Tests) == 0 {
		opts.Tests = config.AllTests
	}

	counter := memory.NewCountingBus(region.Bus)
	counted := memory.Region[W]{Base: region.Base, Length: region.Length, Bus: counter}

	report := Report{
		Base:    region.Base,
		Bytes:   region.Length,
		Width:   memory.WordBits[W](),
		Passes:  opts.Passes,
		Results: config.NewTestResult(),
		Stats:   &config.PerformanceStats{},
	}

	// the address bus test needs a power-of-two word count
	addressRegion := counted
	if words := counted.Words(); words&(words-1) != 0 {
		addressRegion = counted.Prefix(memory.PowerOfTwoWords(words))
		utils.LogMessage(fmt.Sprintf("Address bus test limited to the first %s of %s (power-of-two word count)",
			utils.FormatSize(int64(addressRegion.Length)), utils.FormatSize(int64(counted.Length))), opts.Debug)
	}

	type runner struct {
		name   string
		region memory.Region[W]
		run    func() (memory.Outcome[W], error)
	}
	runners := []runner{
		{config.DataBus, counted, func() (memory.Outcome[W], error) { return memory.TestDataBus(counted, 0) }},
		{config.AddressBus, addressRegion, func() (memory.Outcome[W], error) { return memory.TestAddressBus(addressRegion) }},
		{config.Device, counted, func() (memory.Outcome[W], error) { return memory.TestDevice(counted) }},
	}

	for _, r := range runners {
		if config.Enabled(opts.Tests, r.name) {
			report.Tests = append(report.Tests, TestReport{Name: r.name, Label: labels[r.name], Bytes: r.region.Length})
		}
	}

	for pass := 1; pass <= opts.Passes; pass++ {
		if opts.Passes > 1 {
			utils.LogMessage(fmt.Sprintf("Starting pass %d of %d", pass, opts.Passes), opts.Debug)
		}

		ti := 0
		for _, r := range runners {
			if !config.Enabled(opts.Tests, r.name) {
				continue
			}
			tr := &report.Tests[ti]
			ti++

			if tr.Ran && tr.Err != nil {
				continue
			}

			counter.Reset()
			start := time.Now()
			outcome, err := r.run()
			elapsed := time.Since(start)
			reads, writes := counter.Counts()

			report.Stats.Record(r.name, r.region.Length, reads, writes, memory.WordSize[W](), elapsed)

			tr.Ran = true
			tr.Pass = pass
			switch {
			case err != nil:
				tr.Outcome = "FAIL: " + err.Error()
				tr.Err = err
				report.Results.Fail(r.name)
			case !outcome.Pass():
				tr.Outcome = outcome.String()
				tr.Err = outcome.Err()
				report.Results.Fail(r.name)
			default:
				tr.Outcome = outcome.String()
			}

			utils.LogMessage(fmt.Sprintf("%s pass %d: %s (%s, %s reads, %s writes)", tr.Label, pass, tr.Outcome,
				elapsed.Round(time.Microsecond), utils.FormatCount(reads), utils.FormatCount(writes)), true)
			if tr.Err != nil {
				utils.LogMessage(fmt.Sprintf("%s: %v", tr.Label, tr.Err), true)
			}
		}
	}

	return report, nil
}

