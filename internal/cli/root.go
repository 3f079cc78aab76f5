package cli

import (
	"os"

	"github.com/spf13/cobra"
)

// Options holds CLI-level configuration.
type Options struct {
	API string
	Key string
}

// NewRootCmd wires the cobra root command.
func NewRootCmd() *cobra.Command {
	opts := Options{
		API: os.Getenv("API_BASE"),
		Key: os.Getenv("API_KEY"),
	}
	if opts.API == "" {
		opts.API = "http://localhost:8080"
	}

	root := &cobra.Command{
		Use:           "downdetector-cli",
		Short:         "Query and feed a running downdetector",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.API, "api", opts.API, "API base URL (env API_BASE)")
	root.PersistentFlags().StringVar(&opts.Key, "key", opts.Key, "API key (env API_KEY)")

	client := func() *Client { return NewClient(opts.API, opts.Key) }

	root.AddCommand(
		newStatusCommand(client),
		newHostsCommand(client),
		newEventsCommand(client),
		newObserveCommand(client),
		newClassifyCommand(),
		newInterfacesCommand(),
	)
	return root
}
