package cmd

import (
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matjam/smoothframes/internal/ipc"
)

func NewLoadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "load [image1.jpg] [image2.png] ...",
		Short: "Show only the given images until the next reload",
		Args:  cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			// The daemon has its own working directory.
			images := make([]string, 0, len(args))
			for _, arg := range args {
				abs, err := filepath.Abs(arg)
				if err != nil {
					log.Fatalf("Bad path %q: %v", arg, err)
				}
				images = append(images, abs)
			}

			if err := ipc.SendLoad(images); err != nil {
				log.Fatalf("Failed to send 'load' command: %v", err)
			}
			log.Infof("Loaded %d images", len(images))
		},
	}
}
