package suite

import (
	"fmt"
	"io"
	"time"

	"memtest/utils"
)

// PrintBanner writes the header shown before the tests start
func PrintBanner(w io.Writer, base uintptr, bytes uint64, width int) {
	fmt.Fprintln(w, "Beginning memtest routine...")
	fmt.Fprintf(w, " Base address: %#x\n", uint64(base))
	fmt.Fprintf(w, " Number of bytes to test: %d\n", bytes)
	fmt.Fprintf(w, " Word width: %d bits\n", width)
}

// PrintReport writes one line per test, the performance figures and the
// final verdict
func PrintReport(w io.Writer, r Report) {
	for _, t := range r.Tests {
		outcome := t.Outcome
		if !t.Ran {
			outcome = "SKIPPED"
		}
		if r.Passes > 1 && t.Err != nil {
			outcome = fmt.Sprintf("%s (pass %d)", outcome, t.Pass)
		}
		fmt.Fprintf(w, "  %s: %s\n", t.Label, outcome)
	}

	if r.Stats != nil {
		wordSize := uint64(r.Width / 8)
		for _, t := range r.Tests {
			tp, ok := r.Stats.Get(t.Name)
			if !ok {
				continue
			}
			fmt.Fprintf(w, "  %-10s %s over %d run(s): %s reads, %s writes, %.2f MB/s (min %.2f, max %.2f)\n",
				t.Name, tp.Duration.Round(time.Microsecond), tp.Runs,
				utils.FormatCount(tp.ReadCount), utils.FormatCount(tp.WriteCount),
				tp.Speed(wordSize), tp.MinSpeed, tp.MaxSpeed)
		}
	}

	if r.Passed() {
		fmt.Fprintln(w, "Test passed!")
	} else {
		fmt.Fprintln(w, "Test failed.")
	}
}

