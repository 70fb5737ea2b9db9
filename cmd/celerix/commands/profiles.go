package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

func getCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <profile>",
		Short: "Print a profile document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := profiles.Get(args[0])
			if err != nil {
				return err
			}
			printJSON(cmd.OutOrStdout(), doc)
			return nil
		},
	}
}

// put <profile> <json|->: replace the profile document.
func putCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "put <profile> <json|->",
		Short: "Store a JSON object under a profile ID",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := readDocument(cmd, args[1])
			if err != nil {
				return err
			}
			if err := profiles.Put(args[0], doc); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "OK")
			return nil
		},
	}
}

func newCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "new <json|->",
		Short: "Store a JSON object under a generated profile ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := readDocument(cmd, args[0])
			if err != nil {
				return err
			}
			id, err := profiles.Create(doc)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		},
	}
}

func delCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "del <profile>",
		Short: "Delete a profile and its backup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := profiles.Delete(args[0]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "OK")
			return nil
		},
	}
}

func listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Print all profile IDs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := profiles.List()
			if err != nil {
				return err
			}
			for _, id := range ids {
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			return nil
		},
	}
}

func dumpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dump",
		Short: "Print every loadable profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := profiles.Dump()
			if err != nil {
				return err
			}
			printJSON(cmd.OutOrStdout(), data)
			return nil
		},
	}
}

func moveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "move <src> <dst>",
		Short: "Rename a profile",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := profiles.Move(args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "OK")
			return nil
		},
	}
}

func restoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restore <profile>",
		Short: "Copy a profile's backup over its primary file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := profiles.Restore(args[0]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "OK")
			return nil
		},
	}
}

func pingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check that the daemon answers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if client == nil {
				return errors.New("no daemon configured. use --addr")
			}
			if err := client.Ping(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "PONG")
			return nil
		},
	}
}
