// Command gateway runs the BigFS gateway service, the only endpoint
// clients talk to.
package main

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	_ "net/http/pprof" //nolint:gosec // G108: pprof is intentionally available when --pprof flag is set
	"os"
	"os/signal"
	"time"

	"github.com/Wender13/BigFS/internal/bigfs"
	"github.com/Wender13/BigFS/internal/gateway"
	"github.com/Wender13/BigFS/internal/logging"
	"github.com/Wender13/BigFS/internal/rpcwire"
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
		Use:   "gateway",
		Short: "BigFS gateway service",
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, _ := cmd.Flags().GetString("addr")
			metadataAddr, _ := cmd.Flags().GetString("metadata")
			tempDir, _ := cmd.Flags().GetString("temp-dir")
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

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
			defer cancel()

			return run(ctx, logger, addr, metadataAddr, tempDir)
		},
	}

	rootCmd.Flags().String("addr", ":50050", "listen address (host:port)")
	rootCmd.Flags().String("metadata", "localhost:50051", "metadata service address")
	rootCmd.Flags().String("temp-dir", "", "upload buffer directory (default: system temp dir)")
	rootCmd.Flags().StringArray("log-level", nil, "per-component log level override, component=level (e.g. gateway=debug); repeatable")
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

func run(ctx context.Context, logger *slog.Logger, addr, metadataAddr, tempDir string) error {
	svc := gateway.New(gateway.Config{
		MetadataAddr: metadataAddr,
		TempDir:      tempDir,
		Logger:       logger,
	})

	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	server := rpcwire.NewServer(bigfs.WorkerPoolSize)
	rpcwire.RegisterGatewayServiceServer(server, svc)

	go func() {
		logger.Info("gateway listening", "addr", addr, "metadata", metadataAddr)
		if err := server.Serve(lis); err != nil {
			logger.Error("server error", "error", err)
		}
	}()

	<-ctx.Done()

	logger.Info("stopping gateway")
	server.GracefulStop()
	if err := svc.Close(); err != nil {
		return err
	}
	logger.Info("shutdown complete")
	return nil
}
