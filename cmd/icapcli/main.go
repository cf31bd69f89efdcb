// Command icapcli is an operator tool for inspecting ICAP traffic offline
// and minting and verifying operator API keys (cmd/icapd does not check
// them).
package main

import (
	"fmt"
	"os"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/tokenshield/icap-core/internal/apikey"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "icapcli",
	Short: "Inspect ICAP captures and manage icapd API keys",
}

var replayCmd = &cobra.Command{
	Use:   "replay <file>",
	Short: "Feed a captured ICAP byte stream through the parser and print every message it completes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runReplay(args[0])
	},
}

var apiKeyCmd = &cobra.Command{
	Use:   "apikey",
	Short: "Manage daemon API keys",
}

var apiKeyCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Mint a new API key and print its hash for storage",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAPIKeyCreate()
	},
}

var apiKeyVerifyCmd = &cobra.Command{
	Use:   "verify <hash>",
	Short: "Check a secret against a stored hash, prompting for the secret",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAPIKeyVerify(args[0])
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect icapcli's own configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the resolved configuration file path",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("Config file: %s\n", viper.ConfigFileUsed())
	},
}

func runAPIKeyCreate() error {
	key, err := apikey.Generate()
	if err != nil {
		return err
	}
	hash, err := apikey.Hash(key.Secret)
	if err != nil {
		return err
	}

	fmt.Printf("API key ID:    %s\n", key.ID)
	fmt.Printf("Secret (once): %s\n", key.Secret)
	fmt.Printf("Stored hash:   %s\n", hash)
	return nil
}

func runAPIKeyVerify(hash string) error {
	fmt.Print("Secret: ")
	secretBytes, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return fmt.Errorf("reading secret: %w", err)
	}

	if apikey.Verify(hash, string(secretBytes)) {
		fmt.Println("OK: secret matches")
		return nil
	}
	fmt.Println("FAIL: secret does not match")
	os.Exit(1)
	return nil
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)
		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".icapcli")
	}

	viper.AutomaticEnv()
	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.icapcli.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	apiKeyCmd.AddCommand(apiKeyCreateCmd, apiKeyVerifyCmd)
	configCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(replayCmd, apiKeyCmd, configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
