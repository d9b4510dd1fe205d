package datarecording

import "github.com/sarchlab/coreplex/uncore"

// ClientEntry is one row of the topology_clients table.
type ClientEntry struct {
	ID     int
	Cached bool
	Port   string
}

// BankEntry is one row of the topology_banks table.
type BankEntry struct {
	BankID     int
	ChannelID  int
	Name       string
	TopPort    string
	BottomPort string
}

// ChannelEntry is one row of the topology_channels table.
type ChannelEntry struct {
	ID       int
	Port     string
	NumBanks int
}

// LinkEntry is one row of the topology_links table.
type LinkEntry struct {
	FromPort string
	ToPort   string
}

// RecordTopology flattens an elaborated topology into the recorder. A
// dummy topology records empty tables.
func RecordTopology(rec DataRecorder, t *uncore.Topology) {
	rec.CreateTable("topology_clients", ClientEntry{})
	rec.CreateTable("topology_banks", BankEntry{})
	rec.CreateTable("topology_channels", ChannelEntry{})
	rec.CreateTable("topology_links", LinkEntry{})

	for _, c := range t.Clients {
		rec.InsertData("topology_clients", ClientEntry{
			ID:     c.ID,
			Cached: c.Cached,
			Port:   string(c.Port),
		})
	}

	for _, m := range t.Managers {
		channelID, _ := t.ChannelOfBank(m.BankID)
		rec.InsertData("topology_banks", BankEntry{
			BankID:     int(m.BankID),
			ChannelID:  channelID,
			Name:       m.Name,
			TopPort:    string(m.TopPort),
			BottomPort: string(m.BottomPort),
		})
	}

	for _, c := range t.Channels {
		rec.InsertData("topology_channels", ChannelEntry{
			ID:       c.ID,
			Port:     string(c.Port),
			NumBanks: len(c.BankIDs),
		})
	}

	for _, l := range t.Links {
		rec.InsertData("topology_links", LinkEntry{
			FromPort: string(l.From),
			ToPort:   string(l.To),
		})
	}

	rec.Flush()
}
