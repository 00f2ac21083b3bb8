package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/modebot/internal/config"
	"github.com/nextlevelbuilder/modebot/internal/sessions"
)

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check configuration and session store health",
		Run: func(cmd *cobra.Command, args []string) {
			runDoctor()
		},
	}
}

func runDoctor() {
	fmt.Println("modebot doctor")
	fmt.Printf("  Version:  %s\n", Version)
	fmt.Printf("  OS:       %s/%s\n", runtime.GOOS, runtime.GOARCH)
	fmt.Printf("  Go:       %s\n", runtime.Version())
	fmt.Println()

	cfgPath, secPath := resolveConfigPath(), resolveSecretsPath()
	printFileStatus("Config:", cfgPath)
	printFileStatus("Secrets:", secPath)

	cfg, err := config.Load(cfgPath, secPath)
	if err != nil {
		fmt.Printf("  Config load error: %s\n", err)
		return
	}

	fmt.Println()
	fmt.Println("  Effective config (secrets masked):")
	if data, err := json.MarshalIndent(cfg.MaskedCopy(), "    ", "  "); err == nil {
		fmt.Printf("    %s\n", data)
	}

	fmt.Println()
	fmt.Println("  Checks:")
	printCheck("Config:", cfg.Validate())
	printCheck("Telegram:", cfg.ValidateTelegram())

	fmt.Println()
	fmt.Println("  Session store:")
	fmt.Printf("    %-12s %s\n", "Backend:", cfg.Sessions.Backend)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	store, err := sessions.Open(ctx, cfg.Sessions)
	if err != nil {
		fmt.Printf("    %-12s CONNECT FAILED (%s)\n", "Status:", err)
	} else {
		fmt.Printf("    %-12s OK\n", "Status:")
		store.Close()
	}

	fmt.Println()
	fmt.Println("Doctor check complete.")
}

func printFileStatus(label, path string) {
	fmt.Printf("  %-9s %s", label, path)
	if _, err := os.Stat(path); err != nil {
		fmt.Println(" (NOT FOUND)")
	} else {
		fmt.Println(" (OK)")
	}
}

func printCheck(label string, err error) {
	if err != nil {
		fmt.Printf("    %-12s FAIL (%s)\n", label, err)
		return
	}
	fmt.Printf("    %-12s OK\n", label)
}
