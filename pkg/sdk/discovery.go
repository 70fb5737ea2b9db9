package sdk

import (
	"os"

	"github.com/celerix-dev/celerix-profiles/internal/config"
	internalengine "github.com/celerix-dev/celerix-profiles/internal/engine"
	"github.com/celerix-dev/celerix-profiles/pkg/engine"
	"github.com/celerix-dev/celerix-profiles/pkg/schema"
)

// New initializes the store based on the environment.
// It returns the Interface, so the app doesn't care if it's local or remote.
func New(dataDir string) (ProfileStore, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	// 1. Check if a Remote Store is defined in Environment Variables
	if cfg.StoreAddr != "" {
		// Attempt to connect to the network service
		client, err := Connect(cfg.StoreAddr)
		if err == nil {
			return client, nil
		}
		// If the connection fails we fall back to local
	}

	// 2. Fallback to Embedded Mode
	// This uses the same service the daemon uses, but inside the app process.
	if dataDir != "" {
		cfg.DataDir = dataDir
	}

	log, err := cfg.Logger(os.Stderr)
	if err != nil {
		return nil, err
	}
	opts, err := cfg.StoreOptions(log)
	if err != nil {
		return nil, err
	}

	store, err := engine.New[schema.Document](cfg.EngineConfig(), opts...)
	if err != nil {
		return nil, err
	}
	return internalengine.NewService(store, cfg.Obfuscate, log), nil
}
