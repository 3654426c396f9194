/*
Copyright © 2025 Nathan Ollerenshaw <chrome@stupendous.net>
*/
package cli

import (
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/matjam/smoothframes"
	"github.com/matjam/smoothframes/internal/cli/cmd"
	"github.com/matjam/smoothframes/internal/cli/cmd/utils"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "smoothframes",
	Short: "A hardware accelerated slideshow grid",
	Long: `Smoothframes shows a grid of pictures on your desktop and animates
one cell at a time to a new image, using OpenGL for hardware acceleration.

Running it without a subcommand is the same as "smoothframes start".`,
	Run: func(c *cobra.Command, args []string) {
		if v, err := c.Flags().GetBool("show-config"); err == nil && v {
			log.Infof("Using config file: %v", viper.ConfigFileUsed())
			log.Infof("All settings:")
			utils.PrintJSON(os.Stdout, viper.AllSettings())
			return
		}

		babyBlue := lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
		yellow := lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
		green := lipgloss.NewStyle().Foreground(lipgloss.Color("76"))
		if v, err := c.Flags().GetBool("version"); err == nil && v {
			log.Infof("%v version %v © 2025 %v",
				babyBlue.Render("smoothframes "),
				green.Render(strings.Trim(smoothframes.Version, "\n\r ")),
				yellow.Render("Nathan Ollerenshaw"))
			return
		}

		if v, err := c.Flags().GetBool("installconfig"); err == nil && v {
			path, err := utils.InstallDefaultConfig()
			if err != nil {
				log.Fatalf("Error installing config file: %v", err)
			}
			log.Infof("Installed default config file at %v", path)
			return
		}

		cmd.StartManager(c)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(InitConfig)

	RegisterFlags(rootCmd)

	rootCmd.AddCommand(
		cmd.NewStartCmd(),
		cmd.NewStopCmd(),
		cmd.NewNextCmd(),
		cmd.NewPauseCmd(),
		cmd.NewResumeCmd(),
		cmd.NewReloadCmd(),
		cmd.NewLoadCmd(),
		cmd.NewStatusCmd(),
		cmd.NewGenManCmd(rootCmd),
	)
}
