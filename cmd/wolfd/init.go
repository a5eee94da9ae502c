package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/heyzoos123-blip/darkflobi-industries/internal/config"
	"github.com/heyzoos123-blip/darkflobi-industries/internal/keys"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config and create the agent signing key",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		home, err := homeDir()
		if err != nil {
			return err
		}
		path, err := configPath()
		if err != nil {
			return err
		}

		cfg := config.Default(home)
		key, created, err := keys.EnsureKey(keys.DefaultAgentKeyPath(cfg.Agent.KeyStore), cfg.Agent.Name)
		if err != nil {
			return err
		}
		if err := config.Write(path, cfg); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "initialized %s\n", path)
		fmt.Fprintf(out, "agent address: %s\n", key.Address)
		if created {
			fmt.Fprintf(out, "key stored in %s\n", cfg.Agent.KeyStore)
		}
		return nil
	},
}

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Show the attestation key address",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		key, err := keys.Load(keys.DefaultAgentKeyPath(cfg.Agent.KeyStore))
		if err != nil {
			return fmt.Errorf("agent key not found, run wolfd init: %w", err)
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "name:    %s\n", key.Name)
		fmt.Fprintf(out, "address: %s\n", key.Address)
		fmt.Fprintf(out, "pubkey:  %s\n", key.PubKeyHex)
		fmt.Fprintf(out, "created: %s\n", key.CreatedAt)
		return nil
	},
}
