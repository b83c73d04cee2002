package cmd

import (
	"fmt"
	"os"

	"github.com/ValentinKolb/dTravel/cmd/exp"
	"github.com/ValentinKolb/dTravel/cmd/serve"
	"github.com/ValentinKolb/dTravel/cmd/util"
	"github.com/spf13/cobra"
)

const (
	Version = "0.3.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "dtravel",
		Short: "durable store for travel experiences",
		Long: fmt.Sprintf(`dTravel (v%s)

A durable store for travel experience records written in Go. Records are
kept in a transactional storage medium (pebble, sqlite or in memory) and
can optionally be replicated with RAFT consensus.`, Version),
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of dTravel",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("dTravel v%s\n", Version)
		},
	}
)

func init() {
	// Add Commands
	RootCmd.AddCommand(serve.ServeCmd)
	RootCmd.AddCommand(exp.ExperienceCommands)
	RootCmd.AddCommand(versionCmd)

	// Add Flags
	key := "serializer"
	RootCmd.PersistentFlags().String(key, "binary", util.WrapString("serializer to use (json, gob, binary)"))
	key = "transport"
	RootCmd.PersistentFlags().String(key, "http", util.WrapString("transport to use (http)"))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
