// Package main provides the entry point for qrifc-admin.
//
// qrifc-admin is the command-line management tool for the viewer token
// service: project and model version provisioning, token issuance and
// resolution, expiry sweeps, and sample data seeding.
package main

import (
	"fmt"
	"os"

	"github.com/RubioRobin/qr-ifc-viewer/internal/cli/command"
)

func main() {
	app := command.App()

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
