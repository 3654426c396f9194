/*
Copyright © 2025 Nathan Ollerenshaw <chrome@stupendous.net>
*/
package smoothframes

import (
	_ "embed"
)

//go:embed VERSION
var Version string

// DefaultConfig is written out by --installconfig.
//
//go:embed smoothframes.toml
var DefaultConfig string
