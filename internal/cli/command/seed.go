// Package command provides CLI command definitions for qrifc-admin.
package command

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/RubioRobin/qr-ifc-viewer/internal/core/domain"
)

// Sample data written by the seed command. The IFC file is a public
// test model.
const (
	seedProjectSlug = "sample-office-building"
	seedProjectName = "Sample Office Building"
	seedVersion     = "v1.0"
	seedIFCFileURL  = "https://github.com/IFCjs/test-ifc-files/raw/main/Duplex_A_20110505.ifc"
)

// SeedCommand returns the seed command.
func SeedCommand() *cli.Command {
	return &cli.Command{
		Name:   "seed",
		Usage:  "Seed the store with a sample project and model version",
		Action: seedAction,
	}
}

// seedAction provisions the sample data, tolerating reruns against an
// already-seeded store.
func seedAction(c *cli.Context) error {
	store, err := openStore(c)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if _, err := store.CreateProject(ctx, seedProjectSlug, seedProjectName); err != nil {
		if !domain.IsConflict(err) {
			return fmt.Errorf("create project: %w", err)
		}
		fmt.Fprintf(c.App.Writer, "project already exists: %s\n", seedProjectSlug)
	} else {
		fmt.Fprintf(c.App.Writer, "created project: %s (%s)\n", seedProjectName, seedProjectSlug)
	}

	p, err := store.GetProjectBySlug(ctx, seedProjectSlug)
	if err != nil {
		return fmt.Errorf("get project: %w", err)
	}

	if _, err := store.CreateModelVersion(ctx, p.ID, seedVersion, seedIFCFileURL); err != nil {
		if !domain.IsConflict(err) {
			return fmt.Errorf("create model version: %w", err)
		}
		fmt.Fprintf(c.App.Writer, "model version already exists: %s\n", seedVersion)
	} else {
		fmt.Fprintf(c.App.Writer, "created model version: %s\n", seedVersion)
		fmt.Fprintf(c.App.Writer, "  ifc file: %s\n", seedIFCFileURL)
	}

	fmt.Fprintf(c.App.Writer, "seed complete; issue tokens against project %q\n", seedProjectSlug)
	return nil
}
