package cmd

import (
	"database/sql"
	"fmt"
	"os"
	"runtime"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"

	"github.com/frostwebdev-dotcom/ai-chatbot-agent/internal/config"
	"github.com/frostwebdev-dotcom/ai-chatbot-agent/pkg/protocol"
)

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check environment and configuration health",
		Run: func(cmd *cobra.Command, args []string) {
			runDoctor()
		},
	}
}

func runDoctor() {
	fmt.Println("supportrelay doctor")
	fmt.Printf("  Version:  %s (protocol %d)\n", Version, protocol.ProtocolVersion)
	fmt.Printf("  OS:       %s/%s\n", runtime.GOOS, runtime.GOARCH)
	fmt.Printf("  Go:       %s\n", runtime.Version())
	fmt.Println()

	cfgPath := resolveConfigPath()
	fmt.Printf("  Config:   %s", cfgPath)
	if _, err := os.Stat(cfgPath); err != nil {
		fmt.Println(" (NOT FOUND, using defaults)")
	} else {
		fmt.Println(" (OK)")
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Printf("  Config load error: %s\n", err)
		return
	}

	fmt.Println()
	fmt.Println("  Database:")
	if cfg.Database.PostgresDSN == "" {
		fmt.Printf("    %-12s in-memory (SUPPORTRELAY_POSTGRES_DSN not set)\n", "Mode:")
	} else {
		db, dbErr := sql.Open("pgx", cfg.Database.PostgresDSN)
		if dbErr != nil {
			fmt.Printf("    %-12s CONNECT FAILED (%s)\n", "Status:", dbErr)
		} else if pingErr := db.Ping(); pingErr != nil {
			fmt.Printf("    %-12s CONNECT FAILED (%s)\n", "Status:", pingErr)
			db.Close()
		} else {
			fmt.Printf("    %-12s connected\n", "Status:")
			db.Close()
		}
	}

	fmt.Println()
	fmt.Println("  Responder:")
	if cfg.Responder.APIKey != "" {
		fmt.Printf("    %-12s openai (%s)\n", "Provider:", cfg.Responder.Model)
	} else {
		fmt.Printf("    %-12s static (SUPPORTRELAY_OPENAI_API_KEY not set)\n", "Provider:")
	}

	fmt.Println()
	fmt.Println("  Channels:")
	checkChannel("WhatsApp", cfg.Channels.WhatsApp.Enabled, cfg.Channels.WhatsApp.AccessToken != "" && cfg.Channels.WhatsApp.VerifyToken != "")
	checkChannel("Workspace", cfg.Channels.Workspace.Enabled, cfg.Channels.Workspace.BotToken != "" && cfg.Channels.Workspace.AppToken != "")
	fmt.Printf("    %-12s ws://%s:%d/ws\n", "Gateway:", cfg.Gateway.Host, cfg.Gateway.Port)

	if cfg.Channels.Workspace.Enabled && cfg.Channels.Workspace.EscalationChannel == "" {
		fmt.Println()
		fmt.Println("  WARNING: workspace enabled but escalation_channel is empty")
	}
}

func checkChannel(name string, enabled, secretsOK bool) {
	switch {
	case !enabled:
		fmt.Printf("    %-12s disabled\n", name+":")
	case !secretsOK:
		fmt.Printf("    %-12s enabled (MISSING SECRETS)\n", name+":")
	default:
		fmt.Printf("    %-12s enabled\n", name+":")
	}
}
