package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is set at build time via -ldflags "-X github.com/nextlevelbuilder/modebot/cmd.Version=v1.0.0"
var Version = "dev"

var (
	cfgFile     string
	secretsFile string
	verbose     bool
)

var rootCmd = &cobra.Command{
	Use:   "modebot",
	Short: "Telegram chat bot with switchable conversation modes",
	Long:  "modebot relays Telegram messages to a hosted completion API, prefixing each prompt with the intro of the conversation mode the user picked (casual, professional, romantic).",
	Run: func(cmd *cobra.Command, args []string) {
		runBot()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: config.yaml or $MODEBOT_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&secretsFile, "secrets", "", "secrets file (default: secrets.yaml or $MODEBOT_SECRETS)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(chatCmd())
	rootCmd.AddCommand(modesCmd())
	rootCmd.AddCommand(doctorCmd())
	rootCmd.AddCommand(versionCmd())
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("modebot %s\n", Version)
		},
	}
}

func resolveConfigPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	if v := os.Getenv("MODEBOT_CONFIG"); v != "" {
		return v
	}
	return "config.yaml"
}

func resolveSecretsPath() string {
	if secretsFile != "" {
		return secretsFile
	}
	if v := os.Getenv("MODEBOT_SECRETS"); v != "" {
		return v
	}
	return "secrets.yaml"
}

// Execute runs the root cobra command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
