// Package command provides CLI command definitions for qrifc-admin.
package command

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/RubioRobin/qr-ifc-viewer/internal/core/service"
)

// TokenCommand returns the token subcommand group.
func TokenCommand() *cli.Command {
	return &cli.Command{
		Name:    "token",
		Aliases: []string{"tok"},
		Usage:   "Manage viewer tokens",
		Subcommands: []*cli.Command{
			{
				Name:      "issue",
				Usage:     "Issue a viewer token",
				ArgsUsage: "PROJECT_SLUG IFC_GLOBAL_ID",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "model-version",
						Aliases: []string{"m"},
						Usage:   "Version label (defaults to latest)",
					},
					&cli.IntFlag{
						Name:    "expiry-days",
						Aliases: []string{"e"},
						Usage:   "Validity in calendar days",
						Value:   service.DefaultExpiryDays,
					},
				},
				Action: tokenIssue,
			},
			{
				Name:      "resolve",
				Usage:     "Resolve a viewer token",
				ArgsUsage: "TOKEN",
				Action:    tokenResolve,
			},
			{
				Name:   "sweep",
				Usage:  "Delete expired tokens",
				Action: tokenSweep,
			},
		},
	}
}

func tokenIssue(c *cli.Context) error {
	slug := c.Args().Get(0)
	globalID := c.Args().Get(1)
	if slug == "" || globalID == "" {
		return fmt.Errorf("usage: token issue PROJECT_SLUG IFC_GLOBAL_ID")
	}

	issuer, store, err := newIssuer(c)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	tok, err := issuer.Issue(ctx, &service.IssueRequest{
		ProjectSlug:  slug,
		IFCGlobalID:  globalID,
		ModelVersion: c.String("model-version"),
		ExpiryDays:   c.Int("expiry-days"),
	})
	if err != nil {
		return fmt.Errorf("issue token: %w", err)
	}

	return printResult(c, map[string]string{"token": tok}, func() {
		fmt.Fprintln(c.App.Writer, tok)
	})
}

func tokenResolve(c *cli.Context) error {
	tok := c.Args().First()
	if tok == "" {
		return fmt.Errorf("missing TOKEN argument")
	}

	issuer, store, err := newIssuer(c)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	view, err := issuer.Resolve(ctx, tok)
	if err != nil {
		return fmt.Errorf("resolve token: %w", err)
	}
	if view == nil {
		return fmt.Errorf("token not found or expired")
	}

	return printResult(c, view, func() {
		fmt.Fprintf(c.App.Writer, "project:    %s (%s)\n", view.ProjectName, view.ProjectSlug)
		fmt.Fprintf(c.App.Writer, "version:    %s\n", view.ModelVersion)
		fmt.Fprintf(c.App.Writer, "ifc_url:    %s\n", view.IFCFileURL)
		fmt.Fprintf(c.App.Writer, "global_id:  %s\n", view.IFCGlobalID)
		fmt.Fprintf(c.App.Writer, "expires_at: %s\n", view.ExpiresAt.UTC().Format(time.RFC3339))
	})
}

func tokenSweep(c *cli.Context) error {
	issuer, store, err := newIssuer(c)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	count, err := issuer.Sweep(ctx, time.Now())
	if err != nil {
		return fmt.Errorf("sweep: %w", err)
	}

	return printResult(c, map[string]int{"deleted": count}, func() {
		fmt.Fprintf(c.App.Writer, "deleted %d expired tokens\n", count)
	})
}
