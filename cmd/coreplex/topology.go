package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sarchlab/coreplex/datarecording"
)

var topologyCmd = &cobra.Command{
	Use:   "topology",
	Short: "Elaborate the topology and print its wiring table.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		topo, err := topologyFromFlags(cmd)
		if err != nil {
			return err
		}

		if topo.IsDummy() {
			fmt.Printf("%s: dummy topology, no ports\n", topo.Name)
			return nil
		}

		fmt.Printf("%s: %d clients, %d banks, %d channels\n",
			topo.Name, len(topo.Clients), len(topo.Managers),
			len(topo.Channels))

		for _, c := range topo.Clients {
			kind := "uncached"
			if c.Cached {
				kind = "cached"
			}
			fmt.Printf("  client %d (%s): %s\n", c.ID, kind, c.Port)
		}

		for _, m := range topo.Managers {
			channel, _ := topo.ChannelOfBank(m.BankID)
			fmt.Printf("  bank %d -> channel %d: %s\n",
				m.BankID, channel, m.Name)
		}

		for _, l := range topo.Links {
			fmt.Printf("  %s <-> %s\n", l.From, l.To)
		}

		recordPath, _ := cmd.Flags().GetString("record")
		if recordPath != "" {
			rec := datarecording.New(recordPath)
			datarecording.RecordTopology(rec, topo)
			fmt.Printf("topology recorded to %s.sqlite3\n", recordPath)
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(topologyCmd)
	topologyCmd.Flags().String("record", "",
		"record the topology into a SQLite file at the given path")
}
