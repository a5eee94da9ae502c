package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/heyzoos123-blip/darkflobi-industries/internal/config"
	"github.com/heyzoos123-blip/darkflobi-industries/internal/log"
)

var logger = log.NewLogger("wolfd")

var configFile string

var rootCmd = &cobra.Command{
	Use:           "wolfd",
	Short:         "wolfd serves the darkflobi wolf API",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default ~/.wolfd/config.yaml)")
	rootCmd.AddCommand(initCmd, serveCmd, verifyCmd, keysCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s failed: %v\n", commandName(), err)
		os.Exit(1)
	}
}

func commandName() string {
	if len(os.Args) > 1 {
		return os.Args[1]
	}
	return "wolfd"
}

func homeDir() (string, error) {
	return os.UserHomeDir()
}

func configPath() (string, error) {
	if configFile != "" {
		return configFile, nil
	}
	home, err := homeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".wolfd", "config.yaml"), nil
}

// loadConfig reads the config file, falling back to defaults when it does
// not exist, then applies environment overrides.
func loadConfig() (config.Config, error) {
	path, err := configPath()
	if err != nil {
		return config.Config{}, err
	}
	cfg, err := config.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		home, herr := homeDir()
		if herr != nil {
			return config.Config{}, herr
		}
		logger.Info().Str("path", path).Msg("no config file, using defaults (run wolfd init to write one)")
		cfg = config.Default(home)
	} else if err != nil {
		return config.Config{}, fmt.Errorf("load config %s: %w", path, err)
	}
	config.ApplyEnv(&cfg)
	return cfg, nil
}
