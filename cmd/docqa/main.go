package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "docqa",
		Short:         "Chunk, embed and search documents, and answer questions from them",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().String("config", "", "Path to a config file (yaml, json or toml)")
	rootCmd.PersistentFlags().String("index", "", "Index name, overrides index.name")
	rootCmd.PersistentFlags().String("metrics-addr", "", "Serve prometheus metrics on this address while running")

	rootCmd.AddCommand(
		ingestCmd(),
		queryCmd(),
		askCmd(),
		chunkCmd(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
