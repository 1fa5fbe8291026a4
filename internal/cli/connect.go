package cli

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/vietddude/walletlink/internal/control"
	"github.com/vietddude/walletlink/internal/server"
)

var connectCmd = &cobra.Command{
	Use:   "connect [provider]",
	Short: "Negotiate once with a provider and print the session",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if code := runConnect(args[0]); code != 0 {
			os.Exit(code)
		}
	},
}

func init() {
	rootCmd.AddCommand(connectCmd)
}

// runConnect returns the process exit code after the app is stopped.
func runConnect(provider string) int {
	cfg := loadConfig()

	app, err := control.NewApp(controlConfig(cfg))
	if err != nil {
		slog.Error("Failed to initialize walletlink", "error", err)
		return 1
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.Stop(ctx); err != nil {
			slog.Error("Error during shutdown", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	out, err := app.Manager().SelectProvider(ctx, provider)
	if err != nil {
		slog.Error("Failed to connect", "provider", provider, "error", err)
		return 1
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(map[string]any{
		"attempt_id": out.AttemptID,
		"category":   out.Category,
		"session":    server.NewSessionView(app.Manager().State()),
	})

	if !out.Connected() {
		return 1
	}
	return 0
}
