package commands

import (
	"fmt"

	"github.com/mosaicnetworks/gossipnet/src/version"
	"github.com/spf13/cobra"
)

// VersionCmd displays the version of gossipnet being used
var VersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version info",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.Version)
		if version.GitCommit != "" {
			fmt.Println("commit:", version.GitCommit)
		}
		fmt.Println("protocol:", version.ProtocolVersion)
	},
}
