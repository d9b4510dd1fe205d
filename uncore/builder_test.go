package uncore

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/coreplex/mem"
)

func sampleAddressMap() mem.AddressMap {
	m, err := mem.MakeAddressMap(64,
		mem.MemoryRegion{Name: "bootrom", Start: 0x1000, Size: 8 * mem.KB},
		mem.MemoryRegion{
			Name:  mem.MemRegionName,
			Start: 0x8000_0000,
			Size:  256 * mem.MB,
		},
	)
	Expect(err).ToNot(HaveOccurred())

	return m
}

var _ = Describe("Builder", func() {
	var builder Builder

	BeforeEach(func() {
		builder = MakeBuilder().
			WithAddressMap(sampleAddressMap()).
			WithBlockSize(64).
			WithBankIDLSB(6).
			WithNumCachedClients(4).
			WithNumUncachedClients(1).
			WithNumChannels(2).
			WithNumBanksPerChannel(2).
			WithNumBanks(4)
	})

	It("should build one manager per bank", func() {
		t, err := builder.Build("Coreplex")
		Expect(err).ToNot(HaveOccurred())

		Expect(t.Managers).To(HaveLen(4))
		for i, m := range t.Managers {
			Expect(m.BankID).To(Equal(mem.BankID(i)))
			Expect(m.Mapper).To(BeIdenticalTo(t.Managers[0].Mapper))
		}
	})

	It("should list cached clients before uncached clients", func() {
		t, err := builder.Build("Coreplex")
		Expect(err).ToNot(HaveOccurred())

		Expect(t.Clients).To(HaveLen(5))
		for i, c := range t.Clients {
			Expect(c.ID).To(Equal(i))
			Expect(c.Cached).To(Equal(i < 4))
			Expect(t.SharerToClientID(i)).To(Equal(i))
		}
	})

	It("should group consecutive banks into channels", func() {
		t, err := builder.Build("Coreplex")
		Expect(err).ToNot(HaveOccurred())

		Expect(t.Channels).To(HaveLen(2))
		Expect(t.Channels[0].BankIDs).To(Equal([]int{0, 1}))
		Expect(t.Channels[1].BankIDs).To(Equal([]int{2, 3}))

		for bank := 0; bank < 4; bank++ {
			channel, ok := t.ChannelOfBank(mem.BankID(bank))
			Expect(ok).To(BeTrue())
			Expect(channel).To(Equal(bank / 2))
		}
	})

	It("should wire every client to every bank and to the MMIO path", func() {
		t, err := builder.Build("Coreplex")
		Expect(err).ToNot(HaveOccurred())

		// 5 clients x (4 banks + MMIO) + 4 bank-to-channel links.
		Expect(t.Links).To(HaveLen(5*5 + 4))

		for _, c := range t.Clients {
			Expect(t.Links).To(ContainElement(
				Link{From: c.Port, To: t.MMIOPort}))
			for _, m := range t.Managers {
				Expect(t.Links).To(ContainElement(
					Link{From: c.Port, To: m.TopPort}))
			}
		}

		Expect(t.Links).To(ContainElement(Link{
			From: t.Managers[3].BottomPort,
			To:   t.Channels[1].Port,
		}))
	})

	It("should reject mismatched bank and channel counts", func() {
		_, err := builder.WithNumChannels(3).Build("Coreplex")

		var configErr *mem.ConfigError
		Expect(err).To(HaveOccurred())
		Expect(errors.As(err, &configErr)).To(BeTrue())
	})

	It("should propagate mapper configuration failures", func() {
		noMem, err := mem.MakeAddressMap(64,
			mem.MemoryRegion{Name: "bootrom", Start: 0x1000, Size: 8 * mem.KB},
		)
		Expect(err).ToNot(HaveOccurred())

		_, err = builder.WithAddressMap(noMem).Build("Coreplex")
		Expect(err).To(HaveOccurred())
	})

	It("should build a dummy topology when no clients exist", func() {
		t, err := MakeBuilder().
			WithNumCachedClients(0).
			WithNumUncachedClients(0).
			Build("Coreplex")
		Expect(err).ToNot(HaveOccurred())

		Expect(t.IsDummy()).To(BeTrue())
		Expect(t.Clients).To(BeEmpty())
		Expect(t.Managers).To(BeEmpty())
		Expect(t.Links).To(BeEmpty())
		Expect(t.PortActive("Coreplex.Client[0].Mem")).To(BeFalse())

		_, ok := t.ChannelOfBank(0)
		Expect(ok).To(BeFalse())
	})

	It("should refuse negative client counts", func() {
		_, err := builder.WithNumCachedClients(-1).Build("Coreplex")
		Expect(err).To(HaveOccurred())
	})

	It("should refuse negative client counts even when they cancel out to "+
		"zero", func() {
		_, err := MakeBuilder().
			WithNumCachedClients(-1).
			WithNumUncachedClients(1).
			Build("Coreplex")

		var configErr *mem.ConfigError
		Expect(err).To(HaveOccurred())
		Expect(errors.As(err, &configErr)).To(BeTrue())
	})

	It("should refuse external clients on the dummy topology", func() {
		_, err := MakeBuilder().
			WithNumExternalClients(1).
			Build("Coreplex")
		Expect(err).To(HaveOccurred())
	})
})
