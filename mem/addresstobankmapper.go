package mem

// A BankID identifies one of the coherence banks that the interleaved
// memory region is partitioned across. The value equal to the bank count
// is the sentinel that routes an address to the MMIO path instead of a
// bank.
type BankID int

// AddressToBankMapper helps a client or an interconnect find the bank that
// should hold the data at a certain address.
type AddressToBankMapper interface {
	Find(blockAddr uint64) BankID
}

// BankedAddressMapper maps block-granular addresses onto banks by slicing
// bank-index bits out of the byte address. Addresses outside the
// interleaved memory region map to the sentinel bank.
type BankedAddressMapper struct {
	memRegion      MemoryRegion
	blockOffsetBit uint64
	numBanks       uint64
	bankIDLSB      uint64
}

// Find returns the bank that owns the data at the provided block address.
func (m *BankedAddressMapper) Find(blockAddr uint64) BankID {
	byteAddr := blockAddr << m.blockOffsetBit

	if !m.memRegion.Contains(byteAddr) {
		return BankID(m.numBanks)
	}

	if m.numBanks == 1 {
		return 0
	}

	return BankID((byteAddr >> m.bankIDLSB) & (m.numBanks - 1))
}

// NumBanks returns the number of banks the mapper distributes addresses
// over. BankID(NumBanks()) is the sentinel.
func (m *BankedAddressMapper) NumBanks() int {
	return int(m.numBanks)
}

// IsSentinel tells if a bank ID is the out-of-region sentinel.
func (m *BankedAddressMapper) IsSentinel(id BankID) bool {
	return id == BankID(m.numBanks)
}

// BankMapperBuilder can build banked address mappers.
type BankMapperBuilder struct {
	addressMap     AddressMap
	blockSizeBytes uint64
	numBanks       uint64
	bankIDLSB      uint64
}

// MakeBankMapperBuilder creates a builder with default configuration.
func MakeBankMapperBuilder() BankMapperBuilder {
	return BankMapperBuilder{
		blockSizeBytes: 64,
		numBanks:       1,
		bankIDLSB:      6,
	}
}

// WithAddressMap sets the address map that defines the interleaved memory
// region.
func (b BankMapperBuilder) WithAddressMap(m AddressMap) BankMapperBuilder {
	b.addressMap = m
	return b
}

// WithBlockSize sets the cache block size in bytes. The mapper receives
// block-granular addresses and shifts them by log2 of this value.
func (b BankMapperBuilder) WithBlockSize(n uint64) BankMapperBuilder {
	b.blockSizeBytes = n
	return b
}

// WithNumBanks sets the number of banks to interleave over. Must be a
// power of two.
func (b BankMapperBuilder) WithNumBanks(n uint64) BankMapperBuilder {
	b.numBanks = n
	return b
}

// WithBankIDLSB sets the position of the least significant bank-index bit
// in the byte address.
func (b BankMapperBuilder) WithBankIDLSB(n uint64) BankMapperBuilder {
	b.bankIDLSB = n
	return b
}

// Build creates the mapper, validating the configuration. Bank selection
// bits must sit at or above the block offset so that a cache block never
// straddles two banks.
func (b BankMapperBuilder) Build() (*BankedAddressMapper, error) {
	blockOffsetBit, pow2 := log2(b.blockSizeBytes)
	if !pow2 {
		return nil, NewConfigError(
			"block size %d is not a power of two", b.blockSizeBytes)
	}

	if _, pow2 := log2(b.numBanks); !pow2 {
		return nil, NewConfigError(
			"bank count %d is not a power of two", b.numBanks)
	}

	if b.bankIDLSB < blockOffsetBit {
		return nil, NewConfigError(
			"bank ID LSB %d lies inside the %d-byte block offset",
			b.bankIDLSB, b.blockSizeBytes)
	}

	memRegion, found := b.addressMap.Region(MemRegionName)
	if !found {
		return nil, NewConfigError(
			"address map has no %q region", MemRegionName)
	}

	return &BankedAddressMapper{
		memRegion:      memRegion,
		blockOffsetBit: blockOffsetBit,
		numBanks:       b.numBanks,
		bankIDLSB:      b.bankIDLSB,
	}, nil
}
