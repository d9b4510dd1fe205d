// Package uncore elaborates the outer memory system of the coreplex: the
// coherence banks, the memory channels, and the static wiring that
// connects clients to them.
package uncore

import (
	"fmt"

	"github.com/sarchlab/coreplex/mem"
)

// A RemotePort names a port on a component elsewhere in the system. The
// elaboration layer that instantiates the hardware resolves names to
// concrete ports.
type RemotePort string

// A Client is one requester attached to the outer memory system. Cached
// clients occupy the prefix of the client list, so the sharer ID used by
// the coherence protocol equals the client ID.
type Client struct {
	ID     int
	Cached bool
	Port   RemotePort
}

// A CoherenceManager serializes conflicting accesses to one bank. All
// managers share a single address mapper for inbound request
// demultiplexing.
type CoherenceManager struct {
	BankID     mem.BankID
	Name       string
	TopPort    RemotePort
	BottomPort RemotePort
	Mapper     mem.AddressToBankMapper
}

// OwnsBlock tells if an inbound request for the given block address
// belongs to this manager's bank. The interconnect uses it to demultiplex
// requests across the banks.
func (m *CoherenceManager) OwnsBlock(blockAddr uint64) bool {
	return m.Mapper.Find(blockAddr) == m.BankID
}

// A Channel is a group of consecutive banks sharing one external memory
// interface.
type Channel struct {
	ID      int
	Port    RemotePort
	BankIDs []int
}

// A Link is one entry of the static wiring table.
type Link struct {
	From RemotePort
	To   RemotePort
}

// A Topology is the elaborated outer memory system. It is fixed at build
// time; all methods are read-only.
type Topology struct {
	Name     string
	Clients  []Client
	Managers []*CoherenceManager
	Channels []Channel
	Links    []Link
	MMIOPort RemotePort

	mapper          *mem.BankedAddressMapper
	numBanksPerChan int
	dummy           bool
}

// IsDummy tells if the topology is the degenerate no-client variant. A
// dummy topology has no ports at all, so every port a consumer could ask
// about is permanently inactive.
func (t *Topology) IsDummy() bool {
	return t.dummy
}

// RouteAddress returns the bank that owns the data at the given block
// address, or the sentinel bank for MMIO addresses. A dummy topology owns
// no memory, so every address routes to its sentinel.
func (t *Topology) RouteAddress(blockAddr uint64) mem.BankID {
	if t.dummy {
		return mem.BankID(len(t.Managers))
	}

	return t.mapper.Find(blockAddr)
}

// ChannelOfBank returns the channel a bank belongs to. It reports false
// for the sentinel bank, which bypasses the memory channels entirely.
func (t *Topology) ChannelOfBank(id mem.BankID) (int, bool) {
	if t.dummy || int(id) >= len(t.Managers) || id < 0 {
		return 0, false
	}

	return int(id) / t.numBanksPerChan, true
}

// SharerToClientID converts a coherence sharer ID into a client ID. With
// cached clients at the prefix of the client list the conversion is the
// identity; it is kept as a named operation because the coherence layer
// depends on the contract, not the coincidence.
func (t *Topology) SharerToClientID(sharer int) int {
	return sharer
}

// NumBanks returns the number of coherence banks.
func (t *Topology) NumBanks() int {
	return len(t.Managers)
}

// PortActive tells if a port carries traffic in this topology. On a dummy
// topology it is false for every name.
func (t *Topology) PortActive(p RemotePort) bool {
	if t.dummy {
		return false
	}

	for _, l := range t.Links {
		if l.From == p || l.To == p {
			return true
		}
	}

	return false
}

func clientPortName(topo string, i int) RemotePort {
	return RemotePort(fmt.Sprintf("%s.Client[%d].Mem", topo, i))
}

func bankTopPortName(topo string, i int) RemotePort {
	return RemotePort(fmt.Sprintf("%s.Bank[%d].Top", topo, i))
}

func bankBottomPortName(topo string, i int) RemotePort {
	return RemotePort(fmt.Sprintf("%s.Bank[%d].Bottom", topo, i))
}

func channelPortName(topo string, i int) RemotePort {
	return RemotePort(fmt.Sprintf("%s.Channel[%d].Mem", topo, i))
}

func mmioPortName(topo string) RemotePort {
	return RemotePort(topo + ".MMIO.Top")
}
