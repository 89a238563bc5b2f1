package main

import (
	"os"

	"github.com/friendswall/friendswall-go/cmd"
	"github.com/friendswall/friendswall-go/internal/buildinfo"
)

// Set with -ldflags "-X main.version=... -X main.buildDate=..."
var (
	version   = "dev"
	buildDate = ""
)

func main() {
	build := buildinfo.NewContext(version, buildDate)
	if err := cmd.RootCommand(build).Execute(); err != nil {
		os.Exit(1)
	}
}
