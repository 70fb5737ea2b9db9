package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/celerix-dev/celerix-profiles/pkg/engine"
)

// migrate --to <dir>: rewrite every profile into another store layout.
func migrateCmd() *cobra.Command {
	var (
		to          string
		toCodec     string
		toObfuscate bool
		toKey       string
	)

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Copy every profile into another directory, codec or obfuscation mode",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if local == nil {
				return errors.New("migrate works on a local store. use --data-dir")
			}

			dstCfg := cfg.EngineConfig()
			dstCfg.DataDir = to
			if toKey != "" {
				dstCfg.ObfuscationKey = []byte(toKey)
			}
			if toCodec == "" {
				toCodec = cfg.Codec
			}
			dst, err := openStore(dstCfg, toCodec)
			if err != nil {
				return err
			}

			if err := engine.Migrate(local, dst, cfg.Obfuscate, toObfuscate); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "migrated %s -> %s\n", cfg.DataDir, to)
			return nil
		},
	}
	cmd.Flags().StringVar(&to, "to", "", "destination data directory")
	cmd.Flags().StringVar(&toCodec, "to-codec", "", "destination codec: json or yaml (default $CELERIX_CODEC)")
	cmd.Flags().BoolVar(&toObfuscate, "to-obfuscate", false, "obfuscate destination files")
	cmd.Flags().StringVar(&toKey, "to-key", "", "destination obfuscation key (default: source key)")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}
