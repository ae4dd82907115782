package utils

import (
	"fmt"
	"log"
	"math"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// LogFile receives every message passed to LogMessage
var LogFile = "memtest.log"

var logMu sync.Mutex

// LogMessage handles both console output and file logging
func LogMessage(message string, debug bool) {
	logMu.Lock()
	defer logMu.Unlock()

	timestamp := time.Now().Format("2006-01-02 15:04:05")
	logEntry := fmt.Sprintf("%s | %s", timestamp, message)

	if _, err := os.Stat(LogFile); os.IsNotExist(err) {
		f, err := os.Create(LogFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create %s: %v\n", LogFile, err)
			return
		}
		if _, err := f.WriteString(fmt.Sprintf("Log file created at: %s\n", timestamp)); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write creation time: %v\n", err)
		}
		f.Close()
	}

	f, err := os.OpenFile(LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open %s: %v\n", LogFile, err)
		return
	}
	defer f.Close()

	logger := log.New(f, "", 0)
	logger.Println(logEntry)

	// Output to console for critical messages (debug == false) or when debug is enabled
	if !debug {
		fmt.Println(logEntry)
	}
}

// FormatSize converts bytes to human-readable string (KB, MB, GB)
func FormatSize(size int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)

	if size >= GB {
		return fmt.Sprintf("%.2fGB", float64(size)/float64(GB))
	}
	if size >= MB {
		return fmt.Sprintf("%.2fMB", float64(size)/float64(MB))
	}
	if size >= KB {
		return fmt.Sprintf("%.2fKB", float64(size)/float64(KB))
	}

	return fmt.Sprintf("%dB", size)
}

// FormatCount shortens large operation counts (K, M, G)
func FormatCount(count uint64) string {
	switch {
	case count >= 1_000_000_000:
		return fmt.Sprintf("%.2fG", float64(count)/1_000_000_000)
	case count >= 1_000_000:
		return fmt.Sprintf("%.2fM", float64(count)/1_000_000)
	case count >= 1_000:
		return fmt.Sprintf("%.2fK", float64(count)/1_000)
	default:
		return fmt.Sprintf("%d", count)
	}
}

// ParseSize parses size string with units (e.g., 4K, 64K, 1G)
func ParseSize(sizeStr string) (int64, error) {
	sizeStr = strings.ToUpper(strings.TrimSpace(sizeStr))
	var multiplier int64 = 1

	for _, unit := range []struct {
		suffix string
		mult   int64
	}{
		{"KB", 1024},
		{"MB", 1024 * 1024},
		{"GB", 1024 * 1024 * 1024},
		{"K", 1024},
		{"M", 1024 * 1024},
		{"G", 1024 * 1024 * 1024},
		{"B", 1},
	} {
		if strings.HasSuffix(sizeStr, unit.suffix) {
			multiplier = unit.mult
			sizeStr = strings.TrimSuffix(sizeStr, unit.suffix)
			break
		}
	}

	size, err := strconv.ParseInt(strings.TrimSpace(sizeStr), 10, 64)
	if err != nil {
		return 0, err
	}
	if size < 0 {
		return 0, fmt.Errorf("negative size: %d", size)
	}
	if size > math.MaxInt64/multiplier {
		return 0, fmt.Errorf("size %s overflows", sizeStr)
	}

	return size * multiplier, nil
}

// ParseAddress parses a base address written in hex (0x8c100000) or decimal
func ParseAddress(addrStr string) (uintptr, error) {
	addr, err := strconv.ParseUint(strings.TrimSpace(addrStr), 0, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid address %q: %v", addrStr, err)
	}
	return uintptr(addr), nil
}
