// Command storage runs one BigFS storage node. The node persists chunks
// under storage_<port>/ and advertises itself to the metadata service as
// <ip>:<port>.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	_ "net/http/pprof" //nolint:gosec // G108: pprof is intentionally available when --pprof flag is set
	"os"
	"os/signal"
	"time"

	"github.com/Wender13/BigFS/internal/bigfs"
	"github.com/Wender13/BigFS/internal/logging"
	"github.com/Wender13/BigFS/internal/rpcwire"
	"github.com/Wender13/BigFS/internal/storage"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	baseHandler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelDebug, // Allow all levels; filtering done by ComponentFilterHandler
	})
	filterHandler := logging.NewComponentFilterHandler(baseHandler, slog.LevelInfo)
	logger := slog.New(filterHandler)

	rootCmd := &cobra.Command{
		Use:   "storage",
		Short: "BigFS storage node",
		RunE: func(cmd *cobra.Command, args []string) error {
			port, _ := cmd.Flags().GetInt("port")
			ip, _ := cmd.Flags().GetString("ip")
			dir, _ := cmd.Flags().GetString("dir")
			metadataAddr, _ := cmd.Flags().GetString("metadata")
			compress, _ := cmd.Flags().GetBool("compress")
			levelSpecs, _ := cmd.Flags().GetStringArray("log-level")
			if err := logging.ApplyLevelOverrides(filterHandler, levelSpecs); err != nil {
				return err
			}
			pprofAddr, _ := cmd.Flags().GetString("pprof")
			if pprofAddr != "" {
				go func() {
					logger.Info("pprof server listening", "addr", pprofAddr)
					pprofSrv := &http.Server{Addr: pprofAddr, Handler: nil, ReadHeaderTimeout: 10 * time.Second}
					if err := pprofSrv.ListenAndServe(); err != nil {
						logger.Error("pprof server error", "error", err)
					}
				}()
			}

			if dir == "" {
				dir = fmt.Sprintf("storage_%d", port)
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
			defer cancel()

			return run(ctx, logger, port, ip, dir, metadataAddr, compress)
		},
	}

	rootCmd.Flags().Int("port", 50060, "listen port")
	rootCmd.Flags().String("ip", "127.0.0.1", "IP to advertise to the metadata service")
	rootCmd.Flags().String("dir", "", "chunk store directory (default: storage_<port>)")
	rootCmd.Flags().String("metadata", "localhost:50051", "metadata service address")
	rootCmd.Flags().Bool("compress", false, "compress chunks at rest with zstd")
	rootCmd.Flags().StringArray("log-level", nil, "per-component log level override, component=level (e.g. storage=debug); repeatable")
	rootCmd.Flags().String("pprof", "", "pprof HTTP server address (e.g. localhost:6060); bind to loopback only")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Println(version)
		},
	}
	rootCmd.AddCommand(versionCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, port int, ip, dir, metadataAddr string, compress bool) error {
	advertise := fmt.Sprintf("%s:%d", ip, port)
	svc, err := storage.New(storage.Config{
		Dir:          dir,
		Advertise:    advertise,
		MetadataAddr: metadataAddr,
		Logger:       logger,
		Compress:     compress,
	})
	if err != nil {
		return err
	}
	if err := svc.Start(); err != nil {
		return err
	}

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return err
	}
	server := rpcwire.NewServer(bigfs.WorkerPoolSize)
	rpcwire.RegisterStorageServiceServer(server, svc)

	go func() {
		logger.Info("storage node listening", "addr", advertise, "dir", dir, "compress", compress)
		if err := server.Serve(lis); err != nil {
			logger.Error("server error", "error", err)
		}
	}()

	<-ctx.Done()

	logger.Info("stopping storage node")
	server.GracefulStop()
	if err := svc.Stop(); err != nil {
		return err
	}
	logger.Info("shutdown complete")
	return nil
}
