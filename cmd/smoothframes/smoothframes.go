package main

import (
	"runtime"

	"github.com/matjam/smoothframes/internal/cli"
)

// OpenGL calls must come from the main thread.
func init() {
	runtime.LockOSThread()
}

func main() {
	cli.Execute()
}
