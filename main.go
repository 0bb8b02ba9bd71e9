// Command luxe turns a trip request into a day-by-day PDF itinerary and
// emails it to the traveler. It runs one build from the command line or
// serves builds over HTTP.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "luxe",
	Short: "AI travel itinerary builder",
	Long: `luxe asks a language model for a day-by-day travel plan, illustrates
every stop, lays it out as a PDF, saves it locally and emails it.

Configuration comes from the environment, optionally via a .env file in the
working directory. See "luxe build --help" and "luxe serve --help".`,
	Version:      version,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(tokenCmd)
}
