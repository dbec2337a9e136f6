// Package command provides CLI command definitions for qrifc-admin.
package command

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/RubioRobin/qr-ifc-viewer/internal/core/service"
	"github.com/RubioRobin/qr-ifc-viewer/internal/infra/buildinfo"
	"github.com/RubioRobin/qr-ifc-viewer/internal/storage"
)

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:    "qrifc-admin",
		Usage:   "QR-IFC viewer token administration tool",
		Version: buildinfo.String(),
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			ProjectCommand(),
			VersionCommand(),
			TokenCommand(),
			SeedCommand(),
		},
	}
}

// globalFlags returns the global CLI flags.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "data-dir",
			Aliases: []string{"d"},
			Usage:   "Storage data directory",
			EnvVars: []string{"QRIFC_STORAGE__DATA_DIR"},
			Value:   "/var/lib/qrifc-server/data",
		},
		&cli.StringFlag{
			Name:    "backend",
			Aliases: []string{"b"},
			Usage:   "Storage backend: badger, memory",
			EnvVars: []string{"QRIFC_STORAGE__BACKEND"},
			Value:   storage.BackendBadger,
		},
		&cli.StringFlag{
			Name:    "passphrase",
			Usage:   "Snapshot encryption passphrase (memory backend)",
			EnvVars: []string{"QRIFC_STORAGE__ENCRYPTION_PASSPHRASE"},
		},
		&cli.BoolFlag{
			Name:    "json",
			Aliases: []string{"j"},
			Usage:   "Emit JSON instead of plain text",
		},
	}
}

// openStore opens the configured storage backend. The caller must
// Close it.
func openStore(c *cli.Context) (service.Store, error) {
	store, err := storage.Open(storage.Config{
		Backend:              c.String("backend"),
		DataDir:              c.String("data-dir"),
		EncryptionPassphrase: c.String("passphrase"),
		Logger:               slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	return store, nil
}

// newIssuer builds an Issuer over a freshly opened store.
func newIssuer(c *cli.Context) (*service.Issuer, service.Store, error) {
	store, err := openStore(c)
	if err != nil {
		return nil, nil, err
	}
	return service.NewIssuer(store, slog.New(slog.NewTextHandler(io.Discard, nil)), nil), store, nil
}

// printResult writes v as JSON when --json is set, otherwise via the
// plain formatter.
func printResult(c *cli.Context, v any, plain func()) error {
	if c.Bool("json") {
		enc := json.NewEncoder(c.App.Writer)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	plain()
	return nil
}

// PrintError prints an error message to stderr.
func PrintError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
}
