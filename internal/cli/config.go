package cli

import (
	"errors"

	"github.com/charmbracelet/log"
	"github.com/spf13/viper"

	"github.com/matjam/smoothframes/internal/config"
)

func InitConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("smoothframes")
		viper.SetConfigType("toml")
		if viper.GetString("config") != "" {
			viper.SetConfigFile(viper.GetString("config"))
		} else {
			viper.AddConfigPath("$HOME/.config/smoothframes")
			viper.AddConfigPath("/etc/xdg/smoothframes")
		}
	}

	config.SetDefaults(viper.GetViper())

	viper.SetEnvPrefix("smoothframes")
	viper.AutomaticEnv() // read environment variables that match

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			log.Fatalf("Error reading config file: %v", err)
		}
		log.Debug("no config file found, using defaults")
	}

	if viper.GetBool("debug") {
		log.SetLevel(log.DebugLevel)
	}
}
