package cmd

import (
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matjam/smoothframes/internal/ipc"
)

// newControlCmd builds a subcommand that sends a single argument-less command
// to the daemon.
func newControlCmd(t ipc.CommandType, short, sent string) *cobra.Command {
	return &cobra.Command{
		Use:   string(t),
		Short: short,
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			if _, err := ipc.SendCommand(ipc.Command{Type: t}); err != nil {
				log.Fatalf("Failed to send '%s' command: %v", t, err)
			}
			log.Info(sent)
		},
	}
}

func NewStopCmd() *cobra.Command {
	return newControlCmd(ipc.CommandStop, "Stop the smoothframes daemon", "Stop command sent")
}

func NewNextCmd() *cobra.Command {
	return newControlCmd(ipc.CommandNext, "Start the next transition now", "Next command sent")
}

func NewPauseCmd() *cobra.Command {
	return newControlCmd(ipc.CommandPause, "Stop loading new images", "Pause command sent")
}

func NewResumeCmd() *cobra.Command {
	return newControlCmd(ipc.CommandResume, "Resume loading new images", "Resume command sent")
}

func NewReloadCmd() *cobra.Command {
	return newControlCmd(ipc.CommandReload, "Search the image directory again", "Reload command sent")
}
