package cmd

import (
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matjam/smoothframes/internal/cli/cmd/utils"
	"github.com/matjam/smoothframes/internal/ipc"
)

func NewStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Get smoothframes status",
		Long:  `Returns the current status of the smoothframes process.`,
		Run: func(cmd *cobra.Command, args []string) {
			response, err := ipc.SendStatus()
			if err != nil {
				log.Fatalf("smoothframes does not appear to be running: %v", err)
			}

			utils.PrintJSON(os.Stdout, response)
		},
	}
}
