// devnet bootstraps a local multi-node Ethereum test network and multiplexes
// its logs into a tmux session.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/ethkit/devnet/config"
	"github.com/ethkit/devnet/network"
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "devnet",
	Short:         "devnet runs a local multi-node Ethereum test network",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var verbose bool

var runCmd = &cobra.Command{
	Use:   "run <num_nodes> [num_logs]",
	Short: "bootstrap the network and open the multiplexed log view",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		numNodes, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid node count %q: %w", args[0], err)
		}

		numLogs, numLogsSet := 0, false
		if len(args) == 2 {
			numLogs, err = strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid log count %q: %w", args[1], err)
			}
			numLogsSet = true
		}
		numLogs, err = network.ResolveLogCount(numNodes, numLogs, numLogsSet)
		if err != nil {
			return err
		}

		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}

		logger := network.NewLogger(cfg, verbose)
		defer func() { _ = logger.Sync() }()

		net := network.New(logger, cfg, numNodes, numLogs)

		// The interrupt path tears down the log view and every launched
		// process; the error path leaves them running.
		ctx := context.Background()
		interrupts := make(chan os.Signal, 1)
		signal.Notify(interrupts, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			<-interrupts
			net.Shutdown(context.Background())
			os.Exit(1)
		}()

		return net.Run(ctx)
	},
}

var downCmd = &cobra.Command{
	Use:   "down",
	Short: "terminate the log view session and all client processes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}

		logger := network.NewLogger(cfg, verbose)
		defer func() { _ = logger.Sync() }()

		network.Down(context.Background(), logger, cfg)
		return nil
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "configuration helpers",
}

var configInitCmd = &cobra.Command{
	Use:   "init <path>",
	Short: "write the default configuration file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return config.WriteDefault(args[0])
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a devnet TOML config file")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "enable debug logging")
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(runCmd, downCmd, configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
