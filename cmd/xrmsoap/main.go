// xrmsoap CLI - Command-line client for the Dynamics CRM Organization service
package main

import "github.com/xrmkit/xrmsoap/pkg/cli"

// Build-time variables set via ldflags
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	cli.Version = Version
	cli.Commit = Commit
	cli.BuildDate = BuildDate
	cli.Execute()
}
