// Package command provides CLI command definitions for qrifc-admin.
package command

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v2"
)

// VersionCommand returns the version subcommand group.
func VersionCommand() *cli.Command {
	return &cli.Command{
		Name:    "version",
		Aliases: []string{"ver"},
		Usage:   "Manage model versions",
		Subcommands: []*cli.Command{
			{
				Name:      "add",
				Usage:     "Add a model version to a project",
				ArgsUsage: "PROJECT_SLUG VERSION",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "ifc-url",
						Aliases:  []string{"u"},
						Usage:    "URL of the IFC model file",
						Required: true,
					},
				},
				Action: versionAdd,
			},
			{
				Name:      "latest",
				Usage:     "Show the latest version of a project",
				ArgsUsage: "PROJECT_SLUG",
				Action:    versionLatest,
			},
		},
	}
}

func versionAdd(c *cli.Context) error {
	slug := c.Args().Get(0)
	label := c.Args().Get(1)
	if slug == "" || label == "" {
		return fmt.Errorf("usage: version add PROJECT_SLUG VERSION --ifc-url URL")
	}

	store, err := openStore(c)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	p, err := store.GetProjectBySlug(ctx, slug)
	if err != nil {
		return fmt.Errorf("get project: %w", err)
	}

	id, err := store.CreateModelVersion(ctx, p.ID, label, c.String("ifc-url"))
	if err != nil {
		return fmt.Errorf("add version: %w", err)
	}

	return printResult(c, map[string]string{"id": id, "project": slug, "version": label}, func() {
		fmt.Fprintf(c.App.Writer, "added version %s to %s (%s)\n", label, slug, id)
	})
}

func versionLatest(c *cli.Context) error {
	slug := c.Args().First()
	if slug == "" {
		return fmt.Errorf("missing PROJECT_SLUG argument")
	}

	store, err := openStore(c)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	p, err := store.GetProjectBySlug(ctx, slug)
	if err != nil {
		return fmt.Errorf("get project: %w", err)
	}

	v, err := store.GetLatestModelVersion(ctx, p.ID)
	if err != nil {
		return fmt.Errorf("get latest version: %w", err)
	}

	return printResult(c, v, func() {
		fmt.Fprintf(c.App.Writer, "id:         %s\n", v.ID)
		fmt.Fprintf(c.App.Writer, "version:    %s\n", v.Version)
		fmt.Fprintf(c.App.Writer, "ifc_url:    %s\n", v.IFCFileURL)
		fmt.Fprintf(c.App.Writer, "created_at: %s\n", v.CreatedAtTime().UTC().Format(time.RFC3339))
	})
}
