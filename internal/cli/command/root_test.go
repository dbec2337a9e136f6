package command

import (
	"bytes"
	"strings"
	"testing"
)

func TestApp(t *testing.T) {
	app := App()
	if app == nil {
		t.Fatal("App() returned nil")
	}
	if app.Name != "qrifc-admin" {
		t.Errorf("Name = %q, want %q", app.Name, "qrifc-admin")
	}

	commandNames := make(map[string]bool)
	for _, cmd := range app.Commands {
		commandNames[cmd.Name] = true
	}
	for _, name := range []string{"project", "version", "token", "seed"} {
		if !commandNames[name] {
			t.Errorf("missing required command: %s", name)
		}
	}
}

func TestApp_GlobalFlags(t *testing.T) {
	app := App()

	flagNames := make(map[string]bool)
	for _, flag := range app.Flags {
		flagNames[flag.Names()[0]] = true
	}
	for _, name := range []string{"data-dir", "backend", "passphrase", "json"} {
		if !flagNames[name] {
			t.Errorf("missing required flag: %s", name)
		}
	}
}

// runApp executes the app against a memory-backed store in dir and
// returns stdout.
func runApp(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()

	app := App()
	var out bytes.Buffer
	app.Writer = &out

	full := append([]string{"qrifc-admin", "--backend", "memory", "--data-dir", dir}, args...)
	err := app.Run(full)
	return out.String(), err
}

func TestProjectLifecycle(t *testing.T) {
	dir := t.TempDir()

	out, err := runApp(t, dir, "project", "create", "office-tower", "--name", "Office Tower")
	if err != nil {
		t.Fatalf("project create: %v", err)
	}
	if !strings.Contains(out, "office-tower") {
		t.Fatalf("create output = %q", out)
	}

	out, err = runApp(t, dir, "project", "get", "office-tower")
	if err != nil {
		t.Fatalf("project get: %v", err)
	}
	if !strings.Contains(out, "Office Tower") {
		t.Fatalf("get output = %q", out)
	}

	// Duplicate slug fails.
	if _, err = runApp(t, dir, "project", "create", "office-tower"); err == nil {
		t.Fatal("duplicate create succeeded")
	}
}

func TestVersionAndTokenFlow(t *testing.T) {
	dir := t.TempDir()

	if _, err := runApp(t, dir, "project", "create", "p1"); err != nil {
		t.Fatalf("project create: %v", err)
	}
	if _, err := runApp(t, dir, "version", "add", "p1", "v1", "--ifc-url", "https://cdn.example.com/p1-v1.ifc"); err != nil {
		t.Fatalf("version add: %v", err)
	}

	out, err := runApp(t, dir, "version", "latest", "p1")
	if err != nil {
		t.Fatalf("version latest: %v", err)
	}
	if !strings.Contains(out, "v1") {
		t.Fatalf("latest output = %q", out)
	}

	out, err = runApp(t, dir, "token", "issue", "p1", "1kTvXnbbzCWw8lcMd1dR4o")
	if err != nil {
		t.Fatalf("token issue: %v", err)
	}
	tok := strings.TrimSpace(out)
	if tok == "" {
		t.Fatal("empty token")
	}

	out, err = runApp(t, dir, "token", "resolve", tok)
	if err != nil {
		t.Fatalf("token resolve: %v", err)
	}
	if !strings.Contains(out, "https://cdn.example.com/p1-v1.ifc") {
		t.Fatalf("resolve output = %q", out)
	}

	// Unknown token resolves to an error.
	if _, err = runApp(t, dir, "token", "resolve", "no-such-token"); err == nil {
		t.Fatal("unknown token resolved")
	}
}

func TestTokenSweep(t *testing.T) {
	dir := t.TempDir()

	out, err := runApp(t, dir, "token", "sweep")
	if err != nil {
		t.Fatalf("token sweep: %v", err)
	}
	if !strings.Contains(out, "deleted 0 expired tokens") {
		t.Fatalf("sweep output = %q", out)
	}
}

func TestSeed(t *testing.T) {
	dir := t.TempDir()

	out, err := runApp(t, dir, "seed")
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if !strings.Contains(out, "sample-office-building") {
		t.Fatalf("seed output = %q", out)
	}

	// Rerun is tolerated.
	out, err = runApp(t, dir, "seed")
	if err != nil {
		t.Fatalf("second seed: %v", err)
	}
	if !strings.Contains(out, "already exists") {
		t.Fatalf("second seed output = %q", out)
	}

	// Seeded data is immediately usable.
	if _, err = runApp(t, dir, "token", "issue", "sample-office-building", "0aBcDeFgHiJkLmNoPqRsTu"); err != nil {
		t.Fatalf("issue after seed: %v", err)
	}
}

func TestJSONOutput(t *testing.T) {
	dir := t.TempDir()

	out, err := runApp(t, dir, "--json", "project", "create", "p1")
	if err != nil {
		t.Fatalf("project create: %v", err)
	}
	if !strings.Contains(out, `"slug": "p1"`) {
		t.Fatalf("json output = %q", out)
	}
}
