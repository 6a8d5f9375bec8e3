package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"assetswap/config"
	"assetswap/core/events"
	"assetswap/native/nft"
	"assetswap/native/token"
	"assetswap/native/trading"
	"assetswap/observability/logging"
	"assetswap/rpc"
	"assetswap/state"
	"assetswap/storage"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "./config.toml", "path to the TOML config file")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.Setup("assetswapd", cfg.Env)

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		logger.Error("failed to create data directory", "dir", cfg.DataDir, "error", err)
		os.Exit(1)
	}
	db, err := storage.NewLevelDB(filepath.Join(cfg.DataDir, "assetswap"))
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	manager := state.NewManager(db)
	tokens := token.NewLedger(manager)
	nfts := nft.NewRegistry(manager)
	vaultAddr := cfg.Vault()

	custody := state.NewCustody(manager, tokens, nfts, vaultAddr)
	engine := trading.NewEngine()
	engine.SetState(manager)
	engine.SetCustody(vaultAddr, custody, custody, state.NewNFTCustody(nfts, vaultAddr))
	engine.SetEmitter(events.NewLogEmitter(logger))

	if err := seedGenesis(cfg, manager, tokens, nfts); err != nil {
		logger.Error("failed to seed genesis state", "error", err)
		os.Exit(1)
	}

	server := rpc.NewServer(engine, logger)
	logger.Info("state ready", "dataDir", cfg.DataDir, "vault", cfg.VaultAddress)
	if err := server.Start(cfg.RPCAddress); err != nil {
		logger.Error("rpc server stopped", "error", err)
		os.Exit(1)
	}
}

// seedGenesis applies the configured balances and ownerships. Existing
// records are topped up or overwritten, so re-running against a populated
// data directory is safe for local development.
func seedGenesis(cfg *config.Config, manager *state.Manager, tokens *token.Ledger, nfts *nft.Registry) error {
	for _, acc := range cfg.GenesisAccounts {
		addr, err := config.ParseAddress(acc.Address)
		if err != nil {
			return err
		}
		balance, err := config.ParseAmount(acc.Balance)
		if err != nil {
			return err
		}
		if err := manager.Credit(addr, balance); err != nil {
			return err
		}
	}
	for _, tok := range cfg.GenesisTokens {
		tokenAddr, err := config.ParseAddress(tok.Token)
		if err != nil {
			return err
		}
		holder, err := config.ParseAddress(tok.Holder)
		if err != nil {
			return err
		}
		balance, err := config.ParseAmount(tok.Balance)
		if err != nil {
			return err
		}
		if err := tokens.Mint(tokenAddr, holder, balance); err != nil {
			return err
		}
	}
	for _, n := range cfg.GenesisNFTs {
		collection, err := config.ParseAddress(n.Collection)
		if err != nil {
			return err
		}
		holder, err := config.ParseAddress(n.Holder)
		if err != nil {
			return err
		}
		tokenID, err := config.ParseAmount(n.TokenID)
		if err != nil {
			return err
		}
		if err := nfts.Mint(collection, holder, tokenID); err != nil {
			return err
		}
	}
	return nil
}
