package commands

import (
	"github.com/spf13/cobra"
)

var (
	_config = NewDefaultCLIConfig()
)

//RootCmd is the root command for gossipnet
var RootCmd = &cobra.Command{
	Use:              "gossipnet",
	Short:            "gossipnet peer-to-peer node",
	TraverseChildren: true,
}
