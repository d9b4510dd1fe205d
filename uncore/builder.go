package uncore

import (
	"fmt"

	"github.com/sarchlab/coreplex/mem"
)

// Builder can build outer-memory-system topologies.
type Builder struct {
	addressMap         mem.AddressMap
	blockSizeBytes     uint64
	bankIDLSB          uint64
	numCachedClients   int
	numUncachedClients int
	numExternalClients int
	numChannels        int
	numBanksPerChannel int
	numBanks           int
}

// MakeBuilder creates a builder with default configuration.
func MakeBuilder() Builder {
	return Builder{
		blockSizeBytes:     64,
		bankIDLSB:          6,
		numChannels:        1,
		numBanksPerChannel: 1,
		numBanks:           1,
	}
}

// WithAddressMap sets the physical address map of the coreplex.
func (b Builder) WithAddressMap(m mem.AddressMap) Builder {
	b.addressMap = m
	return b
}

// WithBlockSize sets the cache block size in bytes.
func (b Builder) WithBlockSize(n uint64) Builder {
	b.blockSizeBytes = n
	return b
}

// WithBankIDLSB sets the position of the least significant bank-index bit
// in the byte address.
func (b Builder) WithBankIDLSB(n uint64) Builder {
	b.bankIDLSB = n
	return b
}

// WithNumCachedClients sets the number of coherent clients. Cached
// clients are listed before uncached clients so that sharer IDs equal
// client IDs.
func (b Builder) WithNumCachedClients(n int) Builder {
	b.numCachedClients = n
	return b
}

// WithNumUncachedClients sets the number of non-coherent clients.
func (b Builder) WithNumUncachedClients(n int) Builder {
	b.numUncachedClients = n
	return b
}

// WithNumExternalClients sets the number of clients outside the coreplex,
// such as a DMA-capable host interface.
func (b Builder) WithNumExternalClients(n int) Builder {
	b.numExternalClients = n
	return b
}

// WithNumChannels sets the number of external memory channels.
func (b Builder) WithNumChannels(n int) Builder {
	b.numChannels = n
	return b
}

// WithNumBanksPerChannel sets how many consecutive banks each channel
// groups.
func (b Builder) WithNumBanksPerChannel(n int) Builder {
	b.numBanksPerChannel = n
	return b
}

// WithNumBanks sets the total number of coherence banks. Must equal the
// channel count times the banks-per-channel count.
func (b Builder) WithNumBanks(n int) Builder {
	b.numBanks = n
	return b
}

// Build elaborates the topology. Configuration mismatches surface here as
// ConfigError, never later: a built topology cannot fail a request.
func (b Builder) Build(name string) (*Topology, error) {
	if err := b.clientCountsMustNotBeNegative(); err != nil {
		return nil, err
	}

	if b.numCachedClients+b.numUncachedClients == 0 {
		return b.buildDummy(name)
	}

	if err := b.validate(); err != nil {
		return nil, err
	}

	mapper, err := mem.MakeBankMapperBuilder().
		WithAddressMap(b.addressMap).
		WithBlockSize(b.blockSizeBytes).
		WithNumBanks(uint64(b.numBanks)).
		WithBankIDLSB(b.bankIDLSB).
		Build()
	if err != nil {
		return nil, err
	}

	t := &Topology{
		Name:            name,
		MMIOPort:        mmioPortName(name),
		mapper:          mapper,
		numBanksPerChan: b.numBanksPerChannel,
	}

	b.buildClients(name, t)
	b.buildManagers(name, t, mapper)
	b.buildChannels(name, t)
	b.wire(t)

	return t, nil
}

func (b Builder) validate() error {
	if b.numBanks != b.numChannels*b.numBanksPerChannel {
		return mem.NewConfigError(
			"%d banks cannot be grouped into %d channels of %d banks each",
			b.numBanks, b.numChannels, b.numBanksPerChannel)
	}

	return nil
}

func (b Builder) clientCountsMustNotBeNegative() error {
	if b.numCachedClients < 0 || b.numUncachedClients < 0 ||
		b.numExternalClients < 0 {
		return mem.NewConfigError("client counts cannot be negative")
	}

	return nil
}

// buildDummy produces the no-client topology. It carries no ports, so all
// of them are trivially inactive. External clients cannot attach to it.
func (b Builder) buildDummy(name string) (*Topology, error) {
	if b.numExternalClients != 0 {
		return nil, mem.NewConfigError(
			"a topology with no tile clients cannot serve %d external clients",
			b.numExternalClients)
	}

	return &Topology{Name: name, dummy: true}, nil
}

func (b Builder) buildClients(name string, t *Topology) {
	numClients := b.numCachedClients + b.numUncachedClients +
		b.numExternalClients

	t.Clients = make([]Client, 0, numClients)
	for i := 0; i < numClients; i++ {
		t.Clients = append(t.Clients, Client{
			ID:     i,
			Cached: i < b.numCachedClients,
			Port:   clientPortName(name, i),
		})
	}
}

func (b Builder) buildManagers(
	name string,
	t *Topology,
	mapper mem.AddressToBankMapper,
) {
	t.Managers = make([]*CoherenceManager, 0, b.numBanks)
	for i := 0; i < b.numBanks; i++ {
		t.Managers = append(t.Managers, &CoherenceManager{
			BankID:     mem.BankID(i),
			Name:       fmt.Sprintf("%s.Bank[%d]", name, i),
			TopPort:    bankTopPortName(name, i),
			BottomPort: bankBottomPortName(name, i),
			Mapper:     mapper,
		})
	}
}

func (b Builder) buildChannels(name string, t *Topology) {
	t.Channels = make([]Channel, 0, b.numChannels)
	for i := 0; i < b.numChannels; i++ {
		c := Channel{
			ID:   i,
			Port: channelPortName(name, i),
		}

		for j := 0; j < b.numBanksPerChannel; j++ {
			c.BankIDs = append(c.BankIDs, i*b.numBanksPerChannel+j)
		}

		t.Channels = append(t.Channels, c)
	}
}

// wire emits the static wiring table: every client fans out to every bank
// and to the MMIO path, and every bank feeds its channel.
func (b Builder) wire(t *Topology) {
	for _, c := range t.Clients {
		for _, m := range t.Managers {
			t.Links = append(t.Links, Link{From: c.Port, To: m.TopPort})
		}

		t.Links = append(t.Links, Link{From: c.Port, To: t.MMIOPort})
	}

	for _, m := range t.Managers {
		channelID := int(m.BankID) / b.numBanksPerChannel
		t.Links = append(t.Links, Link{
			From: m.BottomPort,
			To:   t.Channels[channelID].Port,
		})
	}
}
