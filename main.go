package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"

	cfg "memtest/config"
	"memtest/memory"
	"memtest/rawmem"
	"memtest/simmem"
	"memtest/suite"
	"memtest/systeminfo"
	"memtest/utils"
)

const (
	exitPass  = 0
	exitFail  = 1
	exitSetup = 2
)

type stringSliceFlag []string

func (i *stringSliceFlag) String() string {
	return fmt.Sprintf("%v", *i)
}

func (i *stringSliceFlag) Set(value string) error {
	*i = append(*i, value)
	return nil
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("memtest", flag.ContinueOnError)

	var (
		size            string
		width           int
		passes          int
		tests           string
		sim             bool
		base            string
		lock            bool
		debugFlag       bool
		showHelp        bool
		printSystemInfo bool
		faults          stringSliceFlag
	)

	fs.StringVar(&size, "size", "", "Bytes to test (supports K, M, G units, default: a tenth of available memory)")
	fs.IntVar(&width, "width", 32, "Word width in bits: 8, 16, 32 or 64 (host memory supports 32 and 64)")
	fs.IntVar(&passes, "passes", 1, "Number of times to run the test suite")
	fs.StringVar(&tests, "tests", "", "Comma separated tests to run: databus,addressbus,device (default all)")
	fs.BoolVar(&sim, "sim", false, "Test a simulated memory instead of host memory")
	fs.StringVar(&base, "base", "0x8c100000", "Base address reported for a simulated memory")
	fs.Var(&faults, "fault", "Fault to inject into the simulated memory, repeatable (e.g. data-stuck0:5, addr-short:2,5, cell-latched:100)")
	fs.BoolVar(&lock, "lock", false, "Lock host memory with mlock before testing")
	fs.BoolVar(&debugFlag, "d", false, "Enable debug mode")
	fs.BoolVar(&showHelp, "h", false, "Show help")
	fs.BoolVar(&printSystemInfo, "print", false, "Print host memory information (alias: -list)")
	fs.BoolVar(&printSystemInfo, "list", false, "Alias for -print")
	if err := fs.Parse(args); err != nil {
		return exitSetup
	}

	if showHelp {
		fmt.Println("Memory Bus and Device Test Tool")
		fmt.Println("Usage: memtest [options]")
		fmt.Println("\nOptions:")
		fs.PrintDefaults()
		fmt.Println("\nFault kinds: data-stuck0:BIT data-stuck1:BIT addr-stuck0:BIT addr-stuck1:BIT")
		fmt.Println("             addr-short:BIT,BIT cell-stuck:INDEX=VALUE cell-latched:INDEX")
		return exitPass
	}

	info := systeminfo.GetSystemInfo()
	if printSystemInfo {
		systeminfo.PrintSystemInfo(info)
		return exitPass
	}

	configuration, err := cfg.LoadConfig()
	if err != nil {
		if !os.IsNotExist(err) {
			fmt.Printf("Failed to load %s: %v\n", cfg.DefaultFile, err)
			return exitSetup
		}
		configuration = cfg.Default()
	}

	// flags given on the command line override config.json
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "size":
			configuration.Size = size
		case "width":
			configuration.Width = width
		case "passes":
			configuration.Passes = passes
		case "tests":
			configuration.Tests = strings.Split(tests, ",")
		case "sim":
			configuration.Sim = sim
		case "base":
			configuration.Base = base
		case "fault":
			configuration.Faults = faults
		case "lock":
			configuration.Lock = lock
		case "d":
			configuration.Debug = debugFlag
		}
	})

	if err := configuration.Validate(); err != nil {
		utils.LogMessage(fmt.Sprintf("Invalid configuration: %v", err), false)
		return exitSetup
	}
	debug := configuration.Debug

	utils.LogMessage(info.CPUInfo, debug)
	utils.LogMessage(info.MemoryInfo, debug)

	var sizeBytes int64
	if configuration.Size == "" {
		sizeBytes = systeminfo.DefaultTestSize(info.Available)
	} else {
		sizeBytes, err = utils.ParseSize(configuration.Size)
		if err != nil || sizeBytes <= 0 {
			utils.LogMessage(fmt.Sprintf("Invalid size %q: %v", configuration.Size, err), false)
			return exitSetup
		}
	}

	var report suite.Report
	switch configuration.Width {
	case 8:
		report, err = test[uint8](configuration, sizeBytes)
	case 16:
		report, err = test[uint16](configuration, sizeBytes)
	case 32:
		report, err = test[uint32](configuration, sizeBytes)
	case 64:
		report, err = test[uint64](configuration, sizeBytes)
	}
	if err != nil {
		utils.LogMessage(fmt.Sprintf("Memory test could not run: %v", err), false)
		return exitSetup
	}

	suite.PrintReport(os.Stdout, report)

	if !report.Passed() {
		utils.LogMessage(fmt.Sprintf("Memtest Summary - DataBus: %s | AddressBus: %s | Device: %s",
			report.Results.DataBus, report.Results.AddressBus, report.Results.Device), debug)
		return exitFail
	}
	utils.LogMessage("Memtest completed!", debug)
	return exitPass
}

// test builds the region described by c and runs the suite over it
func test[W memory.Word](c cfg.Config, sizeBytes int64) (suite.Report, error) {
	var region memory.Region[W]

	if c.Sim {
		addr, err := utils.ParseAddress(c.Base)
		if err != nil {
			return suite.Report{}, err
		}

		var injected []simmem.Fault
		for _, s := range c.Faults {
			f, err := simmem.ParseFault(s)
			if err != nil {
				return suite.Report{}, err
			}
			utils.LogMessage(fmt.Sprintf("Injecting fault: %v", f), c.Debug)
			injected = append(injected, f)
		}

		words := uint64(sizeBytes) / memory.WordSize[W]()
		if words == 0 {
			return suite.Report{}, errors.Errorf("%d bytes is smaller than one %d bit word", sizeBytes, memory.WordBits[W]())
		}
		region = simmem.New[W](words, injected...).Region(addr)
	} else {
		if os.Geteuid() != 0 && c.Lock {
			utils.LogMessage("Warning: locking memory typically requires root privileges or a raised ulimit -l.", true)
		}

		host, err := rawmem.Allocate(rawmem.RawMemConfig{Size: sizeBytes, Lock: c.Lock, Debug: c.Debug})
		if err != nil {
			return suite.Report{}, err
		}
		defer host.Close()

		region, err = rawmem.MemoryRegion[W](host)
		if err != nil {
			return suite.Report{}, err
		}
	}

	suite.PrintBanner(os.Stdout, region.Base, region.Length, memory.WordBits[W]())
	utils.LogMessage(fmt.Sprintf("Testing %s at %#x", utils.FormatSize(int64(region.Length)), uint64(region.Base)), true)

	return suite.Run(region, suite.Options{
		Tests:  c.Tests,
		Passes: c.Passes,
		Debug:  c.Debug,
	})
}
