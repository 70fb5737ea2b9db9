package commands

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/celerix-dev/celerix-profiles/internal/config"
	internalengine "github.com/celerix-dev/celerix-profiles/internal/engine"
	"github.com/celerix-dev/celerix-profiles/pkg/engine"
	"github.com/celerix-dev/celerix-profiles/pkg/logging"
	"github.com/celerix-dev/celerix-profiles/pkg/schema"
	"github.com/celerix-dev/celerix-profiles/pkg/sdk"
)

var (
	addr    string
	dataDir string

	cfg    config.Config
	logger logging.Logger

	// profiles serves every subcommand; client is set only in remote mode.
	profiles sdk.ProfileStore
	client   *sdk.Client
	local    *engine.Store[schema.Document]
)

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "celerix",
		Short:        "Inspect and edit celerix profiles",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if cfg, err = config.Load(); err != nil {
				return err
			}
			if logger, err = cfg.Logger(cmd.ErrOrStderr()); err != nil {
				return err
			}

			profiles, client, local = nil, nil, nil
			if addr == "" && dataDir == "" {
				addr = cfg.StoreAddr
			}
			if addr != "" {
				if client, err = sdk.Connect(addr); err != nil {
					return fmt.Errorf("connect to %s: %w", addr, err)
				}
				profiles = client
				return nil
			}

			if dataDir != "" {
				cfg.DataDir = dataDir
			}
			if local, err = openStore(cfg.EngineConfig(), cfg.Codec); err != nil {
				return err
			}
			profiles = internalengine.NewService(local, cfg.Obfuscate, logger)
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if client != nil {
				return client.Close()
			}
			return nil
		},
	}

	root.PersistentFlags().StringVar(&addr, "addr", "", "daemon address (default $CELERIX_STORE_ADDR)")
	root.PersistentFlags().StringVar(&dataDir, "data-dir", "", "open the store in this directory instead of a daemon")
	root.MarkFlagsMutuallyExclusive("addr", "data-dir")

	root.AddCommand(
		getCmd(), putCmd(), newCmd(), delCmd(),
		listCmd(), dumpCmd(), moveCmd(), restoreCmd(),
		pingCmd(), migrateCmd(),
	)
	return root
}

func openStore(engineCfg engine.Config, codecName string) (*engine.Store[schema.Document], error) {
	codec, err := engine.CodecByName(codecName)
	if err != nil {
		return nil, err
	}
	return engine.New[schema.Document](engineCfg, engine.WithCodec(codec), engine.WithLogger(logger))
}

func printJSON(w io.Writer, v any) {
	bytes, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintln(w, v)
		return
	}
	fmt.Fprintln(w, string(bytes))
}

// readDocument parses arg as a JSON object, or reads stdin when arg is "-".
func readDocument(cmd *cobra.Command, arg string) (schema.Document, error) {
	raw := []byte(arg)
	if arg == "-" {
		var err error
		if raw, err = io.ReadAll(cmd.InOrStdin()); err != nil {
			return nil, err
		}
	}
	var doc schema.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("document must be a JSON object: %w", err)
	}
	return doc, nil
}
