package main

import (
	"fmt"
	"runtime/debug"
)

// _version is the version of the binary,
// set at build time with -ldflags.
var _version = "dev"

type versionCmd struct{}

func (cmd *versionCmd) Run() error {
	version := _version
	if version == "dev" {
		if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "(devel)" && info.Main.Version != "" {
			version = info.Main.Version
		}
	}

	fmt.Printf("resonate %s\n", version)
	return nil
}
