package main

import (
	"context"
	"os"
	"path/filepath"

	"github.com/ZentaChain/zentalk-toxbridge/pkg/api"
	"github.com/ZentaChain/zentalk-toxbridge/pkg/bridge"
	"github.com/ZentaChain/zentalk-toxbridge/pkg/crypto"
	"github.com/ZentaChain/zentalk-toxbridge/pkg/protocol"
	"github.com/ZentaChain/zentalk-toxbridge/pkg/storage"
	"github.com/ZentaChain/zentalk-toxbridge/pkg/toxnet"
	"github.com/ZentaChain/zentalk-toxbridge/pkg/toxnet/p2p"
	"github.com/ZentaChain/zentalk-toxbridge/pkg/toxnet/simnet"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	jww "github.com/spf13/jwalterweatherman"
	"github.com/spf13/viper"
)

const (
	identityFile = "identity.pem"
	databaseFile = "profile.db"
)

// run serves one identity until ctx is cancelled or the stack fails
func run(ctx context.Context) error {
	id, db, err := openData()
	if err != nil {
		return err
	}
	defer db.Close()

	cfg, err := loadState(db)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	cfg.Metrics = bridge.NewMetrics(reg)

	stack, err := openStack(ctx, id)
	if err != nil {
		return err
	}
	node, err := bridge.New(stack, cfg)
	if err != nil {
		stack.Close()
		return err
	}

	apiCfg := api.DefaultConfig()
	apiCfg.Port = viper.GetInt("api-port")
	apiCfg.EnableCORS = viper.GetBool("cors")
	apiCfg.RateLimit = viper.GetFloat64("rate-limit")
	apiCfg.RateBurst = int(2*apiCfg.RateLimit) + 1
	apiCfg.Gatherer = reg
	server := api.NewServer(node, apiCfg)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	served := make(chan error, 1)
	go func() {
		err := server.Start(ctx)
		if err != nil {
			cancel()
		}
		served <- err
	}()

	jww.INFO.Printf("Bridging %s, clients connect to ws://localhost:%d/ws",
		crypto.NewAddress(id.PublicKey(), cfg.Nospam), apiCfg.Port)

	err = node.Run(ctx)
	cancel()
	if serr := <-served; serr != nil {
		return errors.Wrap(serr, "HTTP API failed")
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// openData loads the identity and profile database from the data directory
func openData() (*crypto.Identity, *storage.DB, error) {
	dataDir := viper.GetString("data-dir")
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, nil, errors.Wrapf(err, "failed to create %s", dataDir)
	}

	id, created, err := crypto.LoadOrCreateIdentity(filepath.Join(dataDir, identityFile))
	if err != nil {
		return nil, nil, err
	}
	if created {
		jww.INFO.Printf("Generated new identity %s", id.PublicKey())
	}

	db, err := storage.Open(filepath.Join(dataDir, databaseFile))
	if err != nil {
		return nil, nil, err
	}
	return id, db, nil
}

// loadState restores the saved profile, creating a fresh one with a random
// nospam on first start
func loadState(db *storage.DB) (*bridge.Config, error) {
	cfg := &bridge.Config{Store: db}

	state, found, err := db.Load()
	if err != nil {
		return nil, err
	}
	if found {
		cfg.State = &state
		cfg.Nospam = state.Nospam
		return cfg, nil
	}

	nospam, err := crypto.GenerateNospam()
	if err != nil {
		return nil, err
	}
	if err := db.SaveProfile(toxnet.Profile{Status: protocol.UserStatusNone}, nospam); err != nil {
		return nil, err
	}
	cfg.Nospam = nospam
	return cfg, nil
}

func openStack(ctx context.Context, id *crypto.Identity) (toxnet.Stack, error) {
	switch network := viper.GetString("network"); network {
	case "sim":
		jww.WARN.Println("Using an isolated in-process network")
		node, err := simnet.New().NewNodeWithKey(id.PublicKey())
		if err != nil {
			return nil, err
		}
		return node, nil
	case "p2p":
		cfg := p2p.DefaultConfig(id, viper.GetInt("p2p-port"))
		cfg.BootstrapPeers = viper.GetStringSlice("bootstrap")
		cfg.NAT = viper.GetBool("nat")
		node, err := p2p.New(ctx, cfg)
		if err != nil {
			return nil, err
		}
		for _, addr := range node.Addrs() {
			jww.INFO.Printf("Reachable at %s", addr)
		}
		return node, nil
	default:
		return nil, errors.Errorf("unknown network %q", network)
	}
}
