// Package command provides CLI command definitions for qrifc-admin.
package command

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v2"
)

// ProjectCommand returns the project subcommand group.
func ProjectCommand() *cli.Command {
	return &cli.Command{
		Name:    "project",
		Aliases: []string{"proj"},
		Usage:   "Manage projects",
		Subcommands: []*cli.Command{
			{
				Name:      "create",
				Usage:     "Create a project",
				ArgsUsage: "SLUG",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "name",
						Aliases: []string{"n"},
						Usage:   "Display name (defaults to the slug)",
					},
				},
				Action: projectCreate,
			},
			{
				Name:      "get",
				Usage:     "Show a project",
				ArgsUsage: "SLUG",
				Action:    projectGet,
			},
		},
	}
}

func projectCreate(c *cli.Context) error {
	slug := c.Args().First()
	if slug == "" {
		return fmt.Errorf("missing SLUG argument")
	}
	name := c.String("name")
	if name == "" {
		name = slug
	}

	store, err := openStore(c)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	id, err := store.CreateProject(ctx, slug, name)
	if err != nil {
		return fmt.Errorf("create project: %w", err)
	}

	return printResult(c, map[string]string{"id": id, "slug": slug, "name": name}, func() {
		fmt.Fprintf(c.App.Writer, "created project %s (%s)\n", slug, id)
	})
}

func projectGet(c *cli.Context) error {
	slug := c.Args().First()
	if slug == "" {
		return fmt.Errorf("missing SLUG argument")
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

	return printResult(c, p, func() {
		fmt.Fprintf(c.App.Writer, "id:         %s\n", p.ID)
		fmt.Fprintf(c.App.Writer, "slug:       %s\n", p.Slug)
		fmt.Fprintf(c.App.Writer, "name:       %s\n", p.Name)
		fmt.Fprintf(c.App.Writer, "created_at: %s\n", p.CreatedAtTime().UTC().Format(time.RFC3339))
	})
}
