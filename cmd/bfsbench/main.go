// Command bfsbench is an ad-hoc throughput harness for a running BigFS
// cluster. It uploads a number of synthetic files through the gateway,
// downloads them back, verifies the bytes, and reports elapsed time and
// throughput. It contains no core logic of its own.
package main

import (
	"bytes"
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/Wender13/BigFS/internal/client"
	"github.com/Wender13/BigFS/internal/logging"
	"github.com/spf13/cobra"
)

func main() {
	baseHandler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})
	logger := slog.New(logging.NewComponentFilterHandler(baseHandler, slog.LevelWarn))

	rootCmd := &cobra.Command{
		Use:   "bfsbench",
		Short: "BigFS throughput harness",
		RunE: func(cmd *cobra.Command, args []string) error {
			gatewayAddr, _ := cmd.Flags().GetString("gateway")
			metadataAddr, _ := cmd.Flags().GetString("metadata")
			files, _ := cmd.Flags().GetInt("files")
			size, _ := cmd.Flags().GetInt("size")
			direct, _ := cmd.Flags().GetBool("direct")
			keep, _ := cmd.Flags().GetBool("keep")

			c := client.New(client.Config{
				GatewayAddr:  gatewayAddr,
				MetadataAddr: metadataAddr,
				Logger:       logger,
			})
			defer c.Close()

			return run(cmd.Context(), c, files, size, direct, keep)
		},
	}

	rootCmd.Flags().String("gateway", "localhost:50050", "gateway service address")
	rootCmd.Flags().String("metadata", "localhost:50051", "metadata service address (for --direct)")
	rootCmd.Flags().Int("files", 4, "number of synthetic files")
	rootCmd.Flags().Int("size", 4<<20, "bytes per file")
	rootCmd.Flags().Bool("direct", false, "download directly from storage nodes, bypassing the gateway")
	rootCmd.Flags().Bool("keep", false, "leave the synthetic files in the cluster")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, c *client.Client, files, size int, direct, keep bool) error {
	payload := make([]byte, size)
	if _, err := rand.Read(payload); err != nil {
		return err
	}

	names := make([]string, files)
	uploadStart := time.Now()
	for i := range names {
		names[i] = fmt.Sprintf("bench/file-%d-%d", time.Now().UnixNano(), i)
		if err := c.UploadReader(ctx, bytes.NewReader(payload), names[i]); err != nil {
			return fmt.Errorf("upload %s: %w", names[i], err)
		}
	}
	uploadElapsed := time.Since(uploadStart)
	report("upload", files, size, uploadElapsed)

	downloadStart := time.Now()
	for _, name := range names {
		var buf bytes.Buffer
		var err error
		if direct {
			err = c.DownloadDirect(ctx, name, &buf)
		} else {
			err = c.Download(ctx, name, &buf)
		}
		if err != nil {
			return fmt.Errorf("download %s: %w", name, err)
		}
		if !bytes.Equal(buf.Bytes(), payload) {
			return fmt.Errorf("download %s: bytes differ from upload", name)
		}
	}
	downloadElapsed := time.Since(downloadStart)
	report("download", files, size, downloadElapsed)

	if !keep {
		for _, name := range names {
			if _, err := c.Remove(ctx, name); err != nil {
				return fmt.Errorf("remove %s: %w", name, err)
			}
		}
	}
	return nil
}

func report(op string, files, size int, elapsed time.Duration) {
	totalMB := float64(files*size) / (1 << 20)
	fmt.Printf("%s: %d files x %d bytes in %v (%.1f MB/s)\n",
		op, files, size, elapsed.Round(time.Millisecond), totalMB/elapsed.Seconds())
}
