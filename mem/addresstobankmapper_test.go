package mem

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("BankedAddressMapper", func() {
	var (
		addressMap AddressMap
		builder    BankMapperBuilder
	)

	BeforeEach(func() {
		var err error
		addressMap, err = MakeAddressMap(64,
			MemoryRegion{Name: "bootrom", Start: 0x1000, Size: 8 * KB},
			MemoryRegion{Name: MemRegionName, Start: 0x8000_0000, Size: 256 * MB},
		)
		Expect(err).ToNot(HaveOccurred())

		builder = MakeBankMapperBuilder().
			WithAddressMap(addressMap).
			WithBlockSize(64).
			WithBankIDLSB(6)
	})

	It("should route in-region addresses across four banks", func() {
		mapper, err := builder.WithNumBanks(4).Build()
		Expect(err).ToNot(HaveOccurred())

		// Block index 0x200_0000 is byte address 0x8000_0000.
		Expect(mapper.Find(0x200_0000)).To(Equal(BankID(0)))
		Expect(mapper.Find(0x200_0001)).To(Equal(BankID(1)))
		Expect(mapper.Find(0x200_0002)).To(Equal(BankID(2)))
		Expect(mapper.Find(0x200_0003)).To(Equal(BankID(3)))
		Expect(mapper.Find(0x200_0004)).To(Equal(BankID(0)))
	})

	It("should return the sentinel for out-of-region addresses", func() {
		mapper, err := builder.WithNumBanks(4).Build()
		Expect(err).ToNot(HaveOccurred())

		// Byte address 0x1000, inside the boot ROM.
		Expect(mapper.Find(0x1000 >> 6)).To(Equal(BankID(4)))
		Expect(mapper.IsSentinel(mapper.Find(0x40))).To(BeTrue())
		Expect(mapper.Find(0)).To(Equal(BankID(4)))
	})

	It("should always return bank 0 with a single bank", func() {
		mapper, err := builder.WithNumBanks(1).Build()
		Expect(err).ToNot(HaveOccurred())

		for blockAddr := uint64(0x200_0000); blockAddr < 0x200_0100; blockAddr++ {
			Expect(mapper.Find(blockAddr)).To(Equal(BankID(0)))
		}
	})

	It("should be deterministic", func() {
		mapper, err := builder.WithNumBanks(8).Build()
		Expect(err).ToNot(HaveOccurred())

		for blockAddr := uint64(0x200_0000); blockAddr < 0x200_0080; blockAddr++ {
			first := mapper.Find(blockAddr)
			Expect(first).To(BeNumerically("<", 8))
			Expect(mapper.Find(blockAddr)).To(Equal(first))
		}
	})

	It("should cycle through all banks in round-robin order when stepping "+
		"one block at a time", func() {
		mapper, err := builder.WithNumBanks(4).Build()
		Expect(err).ToNot(HaveOccurred())

		for i := uint64(0); i < 64; i++ {
			blockAddr := 0x200_0000 + i
			Expect(mapper.Find(blockAddr)).To(Equal(BankID(i % 4)))
		}
	})

	It("should keep bank selection stable when the bank bits sit above the "+
		"block offset", func() {
		mapper, err := builder.WithNumBanks(4).WithBankIDLSB(12).Build()
		Expect(err).ToNot(HaveOccurred())

		// 4KB granularity: 64 consecutive blocks share one bank.
		for i := uint64(0); i < 64; i++ {
			Expect(mapper.Find(0x200_0000 + i)).To(Equal(BankID(0)))
		}
		Expect(mapper.Find(0x200_0040)).To(Equal(BankID(1)))
	})

	It("should refuse an address map without a mem region", func() {
		noMem, err := MakeAddressMap(64,
			MemoryRegion{Name: "bootrom", Start: 0x1000, Size: 8 * KB},
		)
		Expect(err).ToNot(HaveOccurred())

		_, err = builder.WithAddressMap(noMem).WithNumBanks(4).Build()

		var configErr *ConfigError
		Expect(err).To(HaveOccurred())
		Expect(errors.As(err, &configErr)).To(BeTrue())
	})

	It("should refuse a non-power-of-two bank count", func() {
		_, err := builder.WithNumBanks(3).Build()
		Expect(err).To(HaveOccurred())
	})

	It("should refuse a zero bank count", func() {
		_, err := builder.WithNumBanks(0).Build()
		Expect(err).To(HaveOccurred())
	})

	It("should refuse a bank ID LSB inside the block offset", func() {
		_, err := builder.WithNumBanks(4).WithBankIDLSB(3).Build()
		Expect(err).To(HaveOccurred())
	})
})
