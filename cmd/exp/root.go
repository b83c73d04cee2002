package exp

import (
	"github.com/ValentinKolb/dTravel/cmd/util"
	"github.com/ValentinKolb/dTravel/lib/service"
	"github.com/ValentinKolb/dTravel/rpc/client"
	"github.com/spf13/cobra"
)

var (
	rpcService service.IService

	// ExperienceCommands represents the travel experience command group
	ExperienceCommands = &cobra.Command{
		Use:               "exp",
		Short:             "Perform travel experience operations",
		PersistentPreRunE: setupClient,
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitClientConfig)

	// Add common RPC flags to the command group
	util.SetupRPCClientFlags(ExperienceCommands)

	ExperienceCommands.PersistentFlags().Int("shard", 100, util.WrapString("ID of the shard to connect to"))

	// Payload flags of create and replace
	for _, cmd := range []*cobra.Command{createCmd, replaceCmd} {
		setupPayloadFlags(cmd)
	}

	// Add subcommands
	ExperienceCommands.AddCommand(createCmd)
	ExperienceCommands.AddCommand(getCmd)
	ExperienceCommands.AddCommand(replaceCmd)
	ExperienceCommands.AddCommand(setDateCmd)
	ExperienceCommands.AddCommand(deleteCmd)
	ExperienceCommands.AddCommand(listCmd)
	ExperienceCommands.AddCommand(countCmd)
	ExperienceCommands.AddCommand(beforeCmd)
	ExperienceCommands.AddCommand(countBeforeCmd)
	ExperienceCommands.AddCommand(searchCmd)
	ExperienceCommands.AddCommand(sortedCmd)
	ExperienceCommands.AddCommand(latestCmd)
	ExperienceCommands.AddCommand(infoCmd)
	ExperienceCommands.AddCommand(perfTestCmd)
}

// setupClient initializes the RPC service client
func setupClient(cmd *cobra.Command, _ []string) error {
	// Bind command flags to viper
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	// Get client configuration components
	config := util.GetClientConfig()
	shardId := util.GetShardID()

	// Get serializer and transport
	s, err := util.GetSerializer()
	if err != nil {
		return err
	}

	t, err := util.GetTransport()
	if err != nil {
		return err
	}

	// Create the service client
	rpcService, err = client.NewRPCService(
		shardId,
		*config,
		t,
		s,
	)

	return err
}
