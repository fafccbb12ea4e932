package main

import (
	"log"

	"github.com/spf13/cobra"
)

type RuntimeArguments struct {
	// EnableService: Provide APIs.
	EnableService bool
	// EnableAnnounce: Publish checkpoint records.
	EnableAnnounce bool
	// EnableTest: Drive the chain from the synthetic feed.
	EnableTest bool
	// EnablePprof: Register pprof routes on the API server.
	EnablePprof bool
	// ConfigFilePath: Path to the configuration file.
	ConfigFilePath string
	// MetricAddr: Prometheus listen address.
	MetricAddr string
	// TestEventLimit: Synthetic feed tip used by test mode.
	TestEventLimit uint64
}

func NewRuntimeArguments() *RuntimeArguments {
	return &RuntimeArguments{}
}

func (arguments *RuntimeArguments) MakeCmd() *cobra.Command {
	var rootCmd = &cobra.Command{
		Use:   "skip-checkpoint-chain",
		Short: "Runs the skip checkpoint chain service with optional components.",
		Long: `
		The service drains an application event feed into sequentially numbered
		checkpoints. Each checkpoint carries skip-list fingers back into its own
		history, so any older checkpoint can be authenticated from the newest one
		in a logarithmic number of digest-linked hops.

		Flags:
		- "--service/-s": Activates the web service API, allowing the service to respond to incoming queries.
		- "--announce": Enables checkpoint announcement, publishing each fresh checkpoint record to S3 or a DA layer.
		- "--test": Replaces the MySQL event feed with a deterministic synthetic feed.
		`,

		Run: func(cmd *cobra.Command, args []string) {
			if arguments.EnableService {
				log.Println("Service mode is enabled.")
			} else {
				log.Println("Service mode is disabled.")
			}
			if arguments.EnableAnnounce {
				log.Println("Announce mode is enabled.")
			} else {
				log.Println("Announce mode is disabled.")
			}
			if arguments.EnableTest {
				log.Println("Test mode is enabled.")
			} else {
				log.Println("Test mode is disabled.")
			}
			Execution(arguments)
		},
	}

	rootCmd.Flags().BoolVarP(&arguments.EnableService, "service", "s", false, "Enable this flag to provide API service")
	rootCmd.Flags().BoolVarP(&arguments.EnableAnnounce, "announce", "", false, "Enable this flag to publish checkpoint records")
	rootCmd.Flags().BoolVarP(&arguments.EnableTest, "test", "", false, "Enable this flag to drive the chain from the synthetic feed")
	rootCmd.Flags().BoolVarP(&arguments.EnablePprof, "pprof", "", false, "Enable this flag to register pprof routes on the API server")
	rootCmd.Flags().StringVarP(&arguments.ConfigFilePath, "config", "c", "config.json", "Path to the configuration file")
	rootCmd.Flags().StringVarP(&arguments.MetricAddr, "metrics", "", ":8081", "Prometheus listen address")
	rootCmd.Flags().Uint64VarP(&arguments.TestEventLimit, "limit", "l", 500, "Synthetic feed tip used by test mode")

	return rootCmd
}
