package systeminfo

import (
	"fmt"
	"os/exec"
	"strings"

	gcpu "github.com/shirou/gopsutil/v4/cpu"
	gmem "github.com/shirou/gopsutil/v4/mem"

	"memtest/memory"
	"memtest/utils"
)

// MaxDefaultSize caps the test size chosen when none is given
const MaxDefaultSize = 256 * 1024 * 1024

// MinDefaultSize is used when available memory cannot be read
const MinDefaultSize = 1024 * 1024

// SystemInfo holds information about the host and the memory available for testing
type SystemInfo struct {
	CPUInfo       string
	MemoryInfo    string
	MemoryDevices []string
	Total         uint64
	Available     uint64
}

// GetSystemInfo retrieves CPU and memory information for the test banner
func GetSystemInfo() SystemInfo {
	var info SystemInfo

	cpuInfo, err := gcpu.Info()
	if err != nil || len(cpuInfo) == 0 {
		info.CPUInfo = "CPU Info: Unable to retrieve CPU information"
	} else {
		totalCores, _ := gcpu.Counts(true)
		info.CPUInfo = fmt.Sprintf("CPU Info: Model: %s, Cores: %d, Frequency: %.2f MHz",
			cpuInfo[0].ModelName, totalCores, cpuInfo[0].Mhz)
	}

	vm, err := gmem.VirtualMemory()
	if err != nil {
		info.MemoryInfo = "Memory Info: Unable to retrieve memory information"
	} else {
		info.Total = vm.Total
		info.Available = vm.Available
		info.MemoryInfo = fmt.Sprintf("Memory Info: Total: %s, Available: %s, Used: %.1f%%",
			utils.FormatSize(int64(vm.Total)), utils.FormatSize(int64(vm.Available)), vm.UsedPercent)
	}

	// dmidecode needs root, the banner does without it
	if output, err := exec.Command("dmidecode", "-t", "17").CombinedOutput(); err == nil {
		info.MemoryDevices = parseMemoryDevices(string(output))
	}

	return info
}

// DefaultTestSize returns the largest power of two no bigger than a tenth of
// the available memory, within MinDefaultSize and MaxDefaultSize
func DefaultTestSize(available uint64) int64 {
	size := memory.PowerOfTwoFloor(available / 10)
	if size < MinDefaultSize {
		return MinDefaultSize
	}
	if size > MaxDefaultSize {
		return MaxDefaultSize
	}
	return int64(size)
}

// parseMemoryDevices summarises the populated DIMMs in dmidecode -t 17 output
func parseMemoryDevices(output string) []string {
	var currentDevice map[string]string
	var devices []map[string]string

	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "Memory Device") {
			if currentDevice != nil && currentDevice["Size"] != "No Module Installed" {
				devices = append(devices, currentDevice)
			}
			currentDevice = make(map[string]string)
		} else if currentDevice != nil {
			if key, value, ok := strings.Cut(line, ": "); ok {
				currentDevice[strings.TrimSpace(key)] = strings.TrimSpace(value)
			}
		}
	}
	if currentDevice != nil && currentDevice["Size"] != "No Module Installed" {
		devices = append(devices, currentDevice)
	}

	field := func(device map[string]string, key string) string {
		v := device[key]
		if v == "" || v == "Not Specified" || v == "Unknown" {
			return "Unknown"
		}
		return v
	}

	var summary []string
	for i, device := range devices {
		summary = append(summary, fmt.Sprintf("[Memory] %d: %s %s %s | %s | %s | %s",
			i, field(device, "Manufacturer"), field(device, "Part Number"), field(device, "Size"),
			field(device, "Type"), field(device, "Speed"), field(device, "Locator")))
	}
	return summary
}

// PrintSystemInfo outputs the system information to the console.
func PrintSystemInfo(info SystemInfo) {
	fmt.Println("=== System Information ===")
	fmt.Println(info.CPUInfo)
	fmt.Println(info.MemoryInfo)
	if len(info.MemoryDevices) > 0 {
		fmt.Println(strings.Join(info.MemoryDevices, "\n"))
	} else {
		fmt.Println("[Memory]: Unable to retrieve device information (requires dmidecode, try running with sudo)")
	}
	if info.Available > 0 {
		fmt.Printf("Default test size: %s\n", utils.FormatSize(DefaultTestSize(info.Available)))
	}
}
