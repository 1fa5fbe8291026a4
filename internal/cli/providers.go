package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/vietddude/walletlink/internal/control"
	"github.com/vietddude/walletlink/internal/server"
)

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List the wallet providers offered in the selector",
	Run: func(cmd *cobra.Command, args []string) {
		if code := runProviders(); code != 0 {
			os.Exit(code)
		}
	},
}

func init() {
	rootCmd.AddCommand(providersCmd)
}

func runProviders() int {
	cfg := loadConfig()

	app, err := control.NewApp(controlConfig(cfg))
	if err != nil {
		slog.Error("Failed to initialize walletlink", "error", err)
		return 1
	}
	ctx := context.Background()
	defer func() {
		_ = app.Stop(ctx)
	}()

	views, err := server.ProviderViews(ctx, app.Manager().Offers(), app.Attempts())
	if err != nil {
		slog.Error("Failed to count connection attempts", "error", err)
		return 1
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "PROVIDER\tINSTALLED\tAPI\tCONNECTED\tFAILED")
	for _, v := range views {
		_, _ = fmt.Fprintf(w, "%s\t%t\t%s\t%d\t%d\n", v.Name, v.Installed, v.APIVersion, v.Connected, v.Failed)
	}
	_ = w.Flush()
	return 0
}
