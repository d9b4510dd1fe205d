package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var routeCmd = &cobra.Command{
	Use:   "route [address]",
	Short: "Find the bank and channel that own an address.",
	Long: "`route 0x80000040` prints the coherence bank and memory " +
		"channel that own the given byte address, or \"mmio\" when the " +
		"address lies outside the interleaved memory region. With " +
		"--block the argument is a block index instead of a byte address.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, err := strconv.ParseUint(args[0], 0, 64)
		if err != nil {
			return fmt.Errorf("cannot parse address %q: %w", args[0], err)
		}

		topo, err := topologyFromFlags(cmd)
		if err != nil {
			return err
		}

		blockSize, _ := cmd.Flags().GetUint64("block-size")
		isBlock, _ := cmd.Flags().GetBool("block")

		blockAddr := addr
		if !isBlock {
			shift := 0
			for s := blockSize; s > 1; s >>= 1 {
				shift++
			}
			blockAddr = addr >> shift
		}

		bank := topo.RouteAddress(blockAddr)

		channel, inMem := topo.ChannelOfBank(bank)
		if !inMem {
			fmt.Println("mmio")
			return nil
		}

		fmt.Printf("bank %d, channel %d\n", bank, channel)

		return nil
	},
}

func init() {
	rootCmd.AddCommand(routeCmd)
	routeCmd.Flags().Bool("block", false,
		"treat the argument as a block index, not a byte address")
}
