// rawmem/types.go
package rawmem

// RawMemConfig holds configuration for a host memory region
type RawMemConfig struct {
	Size  int64 // bytes to map, rounded up to whole pages
	Lock  bool  // mlock the mapping so it stays resident
	Debug bool
}
