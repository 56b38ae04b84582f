package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xtding233/gacha-stage/internal/progression"
	"github.com/xtding233/gacha-stage/internal/store"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage users",
}

var userAddCmd = &cobra.Command{
	Use:   "add <id>",
	Short: "Create or update a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("name")
		set, _ := cmd.Flags().GetString("set")
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()
		if err := st.CreateUser(cmd.Context(), progression.User{ID: args[0], DisplayName: name, ActiveSet: set}); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "user %s ready\n", args[0])
		return nil
	},
}

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Manage catalog sets",
}

var catalogImportCmd = &cobra.Command{
	Use:   "import <file.yaml>",
	Short: "Import catalog sets from a YAML file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cf, err := store.ReadCatalogFile(args[0])
		if err != nil {
			return err
		}
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()
		n, err := store.ImportCatalog(cmd.Context(), st, cf)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "imported %d entries across %d set(s)\n", n, len(cf.Sets))
		return nil
	},
}

func toggleSetCmd(use string, enabled bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <set>",
		Short: use + " every entry of a set",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore()
			if err != nil {
				return err
			}
			defer st.Close()
			return st.SetEnabled(cmd.Context(), args[0], enabled)
		},
	}
}

var setCmd = &cobra.Command{
	Use:   "set",
	Short: "Manage a user's active set",
}

var setChangeCmd = &cobra.Command{
	Use:   "change <user> <set>",
	Short: "Point a user at another enabled set",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		log, err := newLogger()
		if err != nil {
			return err
		}
		_, params, err := loadTuning()
		if err != nil {
			return err
		}
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()
		if err := newEngine(st, params, log).ChangeActiveSet(cmd.Context(), args[0], args[1]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s now rolls in %q\n", args[0], args[1])
		return nil
	},
}

func init() {
	userAddCmd.Flags().String("name", "", "Display name")
	userAddCmd.Flags().String("set", "", "Active set (default: the fallback set)")
	userCmd.AddCommand(userAddCmd)

	catalogCmd.AddCommand(catalogImportCmd, toggleSetCmd("enable", true), toggleSetCmd("disable", false))
	setCmd.AddCommand(setChangeCmd)
	rootCmd.AddCommand(userCmd, catalogCmd, setCmd)
}
