package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/sarchlab/coreplex/mem"
	"github.com/sarchlab/coreplex/uncore"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use: "coreplex",
	Short: "Coreplex CLI elaborates the outer memory system of a RISC-V " +
		"coreplex and inspects how addresses route to banks and channels.",
	PersistentPreRun: func(cmd *cobra.Command, _ []string) {
		applyEnvDefaults(cmd)
	},
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	f := rootCmd.PersistentFlags()
	f.Uint64("block-size", 64, "cache block size in bytes")
	f.Uint64("bank-id-lsb", 6,
		"position of the least significant bank-index bit")
	f.Int("num-banks", 4, "total number of coherence banks")
	f.Int("num-channels", 2, "number of external memory channels")
	f.Int("banks-per-channel", 2, "number of consecutive banks per channel")
	f.Int("num-cached-clients", 4, "number of coherent clients")
	f.Int("num-uncached-clients", 1, "number of non-coherent clients")
	f.Int("num-external-clients", 0, "number of clients outside the coreplex")
	f.Uint64("mem-base", 0x8000_0000, "base byte address of the mem region")
	f.Uint64("mem-size", 256*mem.MB, "size of the mem region in bytes")
}

// envFlags maps environment variables onto persistent flags. A flag set
// on the command line always wins over the environment.
var envFlags = map[string]string{
	"COREPLEX_BLOCK_SIZE":           "block-size",
	"COREPLEX_BANK_ID_LSB":          "bank-id-lsb",
	"COREPLEX_NUM_BANKS":            "num-banks",
	"COREPLEX_NUM_CHANNELS":         "num-channels",
	"COREPLEX_BANKS_PER_CHANNEL":    "banks-per-channel",
	"COREPLEX_NUM_CACHED_CLIENTS":   "num-cached-clients",
	"COREPLEX_NUM_UNCACHED_CLIENTS": "num-uncached-clients",
	"COREPLEX_NUM_EXTERNAL_CLIENTS": "num-external-clients",
	"COREPLEX_MEM_BASE":             "mem-base",
	"COREPLEX_MEM_SIZE":             "mem-size",
}

func applyEnvDefaults(cmd *cobra.Command) {
	// A missing .env file is fine; the environment still applies.
	_ = godotenv.Load()

	flags := cmd.Flags()
	for envVar, flagName := range envFlags {
		value, present := os.LookupEnv(envVar)
		if !present || flags.Changed(flagName) {
			continue
		}

		_ = flags.Set(flagName, value)
	}
}

func addressMapFromFlags(cmd *cobra.Command) (mem.AddressMap, error) {
	flags := cmd.Flags()
	blockSize, _ := flags.GetUint64("block-size")
	memBase, _ := flags.GetUint64("mem-base")
	memSize, _ := flags.GetUint64("mem-size")

	return mem.MakeAddressMap(blockSize, mem.MemoryRegion{
		Name:  mem.MemRegionName,
		Start: memBase,
		Size:  memSize,
	})
}

func topologyFromFlags(cmd *cobra.Command) (*uncore.Topology, error) {
	addressMap, err := addressMapFromFlags(cmd)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	blockSize, _ := flags.GetUint64("block-size")
	bankIDLSB, _ := flags.GetUint64("bank-id-lsb")
	numBanks, _ := flags.GetInt("num-banks")
	numChannels, _ := flags.GetInt("num-channels")
	banksPerChannel, _ := flags.GetInt("banks-per-channel")
	numCached, _ := flags.GetInt("num-cached-clients")
	numUncached, _ := flags.GetInt("num-uncached-clients")
	numExternal, _ := flags.GetInt("num-external-clients")

	return uncore.MakeBuilder().
		WithAddressMap(addressMap).
		WithBlockSize(blockSize).
		WithBankIDLSB(bankIDLSB).
		WithNumBanks(numBanks).
		WithNumChannels(numChannels).
		WithNumBanksPerChannel(banksPerChannel).
		WithNumCachedClients(numCached).
		WithNumUncachedClients(numUncached).
		WithNumExternalClients(numExternal).
		Build("Coreplex")
}
