// Command bfsctl is the interactive BigFS shell. Its commands use only the
// gateway's public operations; the --metadata address is passed to the
// client, but no shell command takes the client's direct download path.
// Failed operations are reported inside the shell and do not end it; the
// command exits non-zero only when its flags are invalid or reading
// standard input fails.
package main

import (
	"log/slog"
	"os"

	"github.com/Wender13/BigFS/internal/client"
	"github.com/Wender13/BigFS/internal/logging"
	"github.com/Wender13/BigFS/internal/shell"
	"github.com/spf13/cobra"
)

func main() {
	baseHandler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})
	logger := slog.New(logging.NewComponentFilterHandler(baseHandler, slog.LevelWarn))

	rootCmd := &cobra.Command{
		Use:   "bfsctl",
		Short: "Interactive BigFS shell",
		RunE: func(cmd *cobra.Command, args []string) error {
			gatewayAddr, _ := cmd.Flags().GetString("gateway")
			metadataAddr, _ := cmd.Flags().GetString("metadata")

			c := client.New(client.Config{
				GatewayAddr:  gatewayAddr,
				MetadataAddr: metadataAddr,
				Logger:       logger,
			})
			defer c.Close()

			return shell.New(c, os.Stdin, os.Stdout).Run()
		},
	}

	rootCmd.Flags().String("gateway", "localhost:50050", "gateway service address")
	rootCmd.Flags().String("metadata", "localhost:50051", "metadata service address (for direct downloads)")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
