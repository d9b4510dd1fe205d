package main

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/pkg/browser"
	"github.com/spf13/cobra"

	"github.com/sarchlab/coreplex/datarecording"
	"github.com/sarchlab/coreplex/mem"
	"github.com/sarchlab/coreplex/uncore"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the elaborated topology over HTTP.",
	Long: "`serve` elaborates the topology from the configuration flags " +
		"and exposes it through a JSON API, so that external tools can " +
		"inspect the wiring and query address routing.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		topo, err := topologyFromFlags(cmd)
		if err != nil {
			return err
		}

		addressMap, err := addressMapFromFlags(cmd)
		if err != nil {
			return err
		}

		blockSize, _ := cmd.Flags().GetUint64("block-size")
		httpAddr, _ := cmd.Flags().GetString("http")
		open, _ := cmd.Flags().GetBool("open")

		s := &topologyServer{
			topology:   topo,
			addressMap: addressMap,
			blockSize:  blockSize,
		}

		return s.start(httpAddr, open)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("http", "localhost:3001",
		"HTTP service address")
	serveCmd.Flags().Bool("open", false,
		"open the topology API in a browser")
}

type topologyServer struct {
	topology   *uncore.Topology
	addressMap mem.AddressMap
	blockSize  uint64
}

type topologyResponse struct {
	Name     string                       `json:"name"`
	Dummy    bool                         `json:"dummy"`
	Clients  []datarecording.ClientEntry  `json:"clients"`
	Banks    []datarecording.BankEntry    `json:"banks"`
	Channels []datarecording.ChannelEntry `json:"channels"`
	Links    []datarecording.LinkEntry    `json:"links"`
}

type routeResponse struct {
	Addr    string `json:"addr"`
	Bank    int    `json:"bank"`
	Channel int    `json:"channel"`
	MMIO    bool   `json:"mmio"`
}

func (s *topologyServer) start(httpAddr string, open bool) error {
	r := mux.NewRouter()
	r.HandleFunc("/api/topology", s.serveTopology)
	r.HandleFunc("/api/route", s.serveRoute)
	r.HandleFunc("/api/addressmap", s.serveAddressMap)

	listener, err := net.Listen("tcp", httpAddr)
	if err != nil {
		return err
	}

	url := fmt.Sprintf("http://%s/api/topology", listener.Addr())
	fmt.Fprintf(os.Stderr, "Serving topology at %s\n", url)

	if open {
		_ = browser.OpenURL(url)
	}

	return http.Serve(listener, r)
}

func (s *topologyServer) serveTopology(w http.ResponseWriter, _ *http.Request) {
	t := s.topology
	resp := topologyResponse{
		Name:     t.Name,
		Dummy:    t.IsDummy(),
		Clients:  []datarecording.ClientEntry{},
		Banks:    []datarecording.BankEntry{},
		Channels: []datarecording.ChannelEntry{},
		Links:    []datarecording.LinkEntry{},
	}

	for _, c := range t.Clients {
		resp.Clients = append(resp.Clients, datarecording.ClientEntry{
			ID:     c.ID,
			Cached: c.Cached,
			Port:   string(c.Port),
		})
	}

	for _, m := range t.Managers {
		channelID, _ := t.ChannelOfBank(m.BankID)
		resp.Banks = append(resp.Banks, datarecording.BankEntry{
			BankID:     int(m.BankID),
			ChannelID:  channelID,
			Name:       m.Name,
			TopPort:    string(m.TopPort),
			BottomPort: string(m.BottomPort),
		})
	}

	for _, c := range t.Channels {
		resp.Channels = append(resp.Channels, datarecording.ChannelEntry{
			ID:       c.ID,
			Port:     string(c.Port),
			NumBanks: len(c.BankIDs),
		})
	}

	for _, l := range t.Links {
		resp.Links = append(resp.Links, datarecording.LinkEntry{
			FromPort: string(l.From),
			ToPort:   string(l.To),
		})
	}

	writeJSON(w, resp)
}

func (s *topologyServer) serveRoute(w http.ResponseWriter, r *http.Request) {
	addrStr := r.URL.Query().Get("addr")

	addr, err := strconv.ParseUint(addrStr, 0, 64)
	if err != nil {
		http.Error(w, "cannot parse addr "+addrStr, http.StatusBadRequest)
		return
	}

	shift := 0
	for b := s.blockSize; b > 1; b >>= 1 {
		shift++
	}

	bank := s.topology.RouteAddress(addr >> shift)
	channel, inMem := s.topology.ChannelOfBank(bank)

	writeJSON(w, routeResponse{
		Addr:    addrStr,
		Bank:    int(bank),
		Channel: channel,
		MMIO:    !inMem,
	})
}

func (s *topologyServer) serveAddressMap(w http.ResponseWriter, _ *http.Request) {
	type regionResponse struct {
		Name  string `json:"name"`
		Start uint64 `json:"start"`
		Size  uint64 `json:"size"`
	}

	regions := []regionResponse{}
	for _, r := range s.addressMap.Regions() {
		regions = append(regions, regionResponse{
			Name:  r.Name,
			Start: r.Start,
			Size:  r.Size,
		})
	}

	writeJSON(w, regions)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")

	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
