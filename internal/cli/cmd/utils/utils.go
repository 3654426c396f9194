package utils

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/tidwall/pretty"
	"golang.org/x/term"

	"github.com/matjam/smoothframes"
)

// PrintJSON writes data as indented JSON, colored when w is a terminal.
func PrintJSON(w io.Writer, data any) {
	color := false
	if f, ok := w.(*os.File); ok {
		color = term.IsTerminal(int(f.Fd()))
	}
	if err := WriteJSON(w, data, color); err != nil {
		log.Errorf("Error marshalling JSON: %v", err)
	}
}

func WriteJSON(w io.Writer, data any, color bool) error {
	j, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}
	if color {
		j = pretty.Color(j, nil)
	}
	_, err = fmt.Fprintln(w, string(j))
	return err
}

// ConfigPath is where InstallDefaultConfig writes.
func ConfigPath() string {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		configDir = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return filepath.Join(configDir, "smoothframes", "smoothframes.toml")
}

// InstallDefaultConfig writes the default config file and returns its path.
// An existing file is left alone and reported with os.ErrExist.
func InstallDefaultConfig() (string, error) {
	configPath := ConfigPath()

	if _, err := os.Stat(configPath); err == nil {
		return configPath, fmt.Errorf("%v: %w", configPath, os.ErrExist)
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return "", fmt.Errorf("creating config directory: %w", err)
	}

	if err := os.WriteFile(configPath, []byte(smoothframes.DefaultConfig), 0644); err != nil {
		return "", fmt.Errorf("writing config file: %w", err)
	}

	return configPath, nil
}
