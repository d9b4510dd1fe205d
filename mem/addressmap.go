// Package mem defines the physical address map of the coreplex and the
// logic that routes an address to the memory bank that owns it.
package mem

import "fmt"

// Memory capacity units.
const (
	KB = 1 << 10
	MB = 1 << 20
	GB = 1 << 30
)

// MemRegionName is the name of the region that is interleaved across the
// memory banks. Addresses outside this region belong to the MMIO path.
const MemRegionName = "mem"

// A ConfigError reports an invalid elaboration-time configuration. It is
// returned by builders before any hardware structure is produced; there is
// no recovery other than fixing the configuration.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return "config error: " + e.Reason
}

// NewConfigError creates a ConfigError with a formatted reason.
func NewConfigError(format string, args ...any) *ConfigError {
	return &ConfigError{Reason: fmt.Sprintf(format, args...)}
}

// A MemoryRegion is a named, contiguous range of the physical address
// space. Start and Size are in bytes.
type MemoryRegion struct {
	Name  string
	Start uint64
	Size  uint64
}

// End returns the first byte address after the region.
func (r MemoryRegion) End() uint64 {
	return r.Start + r.Size
}

// Contains tells if a byte address falls in the region.
func (r MemoryRegion) Contains(addr uint64) bool {
	return addr >= r.Start && addr < r.End()
}

// An AddressMap is the ordered set of regions that partitions the physical
// address space. It is fixed at elaboration time and never mutated
// afterward, so it can be shared freely across goroutines.
type AddressMap struct {
	blockSize uint64
	regions   []MemoryRegion
	byName    map[string]int
}

// MakeAddressMap builds an address map over the given regions. Regions
// must carry unique, nonempty names, must not overlap, and must be
// aligned to the block size, which itself must be a nonzero power of two.
func MakeAddressMap(
	blockSizeBytes uint64,
	regions ...MemoryRegion,
) (AddressMap, error) {
	if _, pow2 := log2(blockSizeBytes); !pow2 {
		return AddressMap{}, NewConfigError(
			"block size %d is not a power of two", blockSizeBytes)
	}

	m := AddressMap{
		blockSize: blockSizeBytes,
		regions:   make([]MemoryRegion, len(regions)),
		byName:    make(map[string]int),
	}
	copy(m.regions, regions)

	for i, r := range m.regions {
		if err := m.validateRegion(r); err != nil {
			return AddressMap{}, err
		}

		if _, taken := m.byName[r.Name]; taken {
			return AddressMap{}, NewConfigError(
				"duplicated region name %q", r.Name)
		}

		m.byName[r.Name] = i
	}

	if err := m.regionsMustNotOverlap(); err != nil {
		return AddressMap{}, err
	}

	return m, nil
}

func (m AddressMap) validateRegion(r MemoryRegion) error {
	if r.Name == "" {
		return NewConfigError("region at 0x%x has no name", r.Start)
	}

	if r.Size == 0 {
		return NewConfigError("region %q has zero size", r.Name)
	}

	if r.Start%m.blockSize != 0 || r.Size%m.blockSize != 0 {
		return NewConfigError(
			"region %q is not aligned to the %d-byte block size",
			r.Name, m.blockSize)
	}

	return nil
}

func (m AddressMap) regionsMustNotOverlap() error {
	for i, a := range m.regions {
		for _, b := range m.regions[i+1:] {
			if a.Start < b.End() && b.Start < a.End() {
				return NewConfigError(
					"regions %q and %q overlap", a.Name, b.Name)
			}
		}
	}

	return nil
}

// BlockSize returns the block size the map is aligned to, in bytes.
func (m AddressMap) BlockSize() uint64 {
	return m.blockSize
}

// Region looks a region up by name.
func (m AddressMap) Region(name string) (MemoryRegion, bool) {
	i, found := m.byName[name]
	if !found {
		return MemoryRegion{}, false
	}

	return m.regions[i], true
}

// Regions returns a copy of all the regions, in declaration order.
func (m AddressMap) Regions() []MemoryRegion {
	regions := make([]MemoryRegion, len(m.regions))
	copy(regions, m.regions)

	return regions
}

// RegionOf returns the region a byte address falls in.
func (m AddressMap) RegionOf(addr uint64) (MemoryRegion, bool) {
	for _, r := range m.regions {
		if r.Contains(addr) {
			return r, true
		}
	}

	return MemoryRegion{}, false
}

// log2 returns the log2 of a number. It also returns false if it is not a
// log2 number.
func log2(n uint64) (uint64, bool) {
	oneCount := 0
	onePos := uint64(0)

	for i := uint64(0); i < 64; i++ {
		if n&(1<<i) > 0 {
			onePos = i
			oneCount++
		}
	}

	return onePos, oneCount == 1
}
