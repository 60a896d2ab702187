package integration

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

// TestMain builds the larder binary once before running tests.
func TestMain(m *testing.M) {
	projectRoot, err := FindProjectRoot()
	if err != nil {
		buildErr = err
		os.Exit(m.Run())
	}

	tmpDir, err := os.MkdirTemp("", "larder-test-*")
	if err != nil {
		buildErr = err
		os.Exit(m.Run())
	}
	larderBin = filepath.Join(tmpDir, "larder")

	cmd := exec.Command("go", "build", "-o", larderBin, "./cmd/larder")
	cmd.Dir = projectRoot
	if output, err := cmd.CombinedOutput(); err != nil {
		buildErr = &BuildError{Err: err, Output: string(output)}
	}

	code := m.Run()
	os.RemoveAll(tmpDir)
	os.Exit(code)
}

const pantrySchema = `models:
  - name: Shelf
    fields:
      - name: id
        type: String
        primaryKey: true
      - name: name
        type: String
        notNull: true
      - name: jars
        type: ArrayOf
        targets: [Jar]
  - name: Jar
    fields:
      - name: id
        type: String
        primaryKey: true
      - name: contents
        type: String
`

const pantrySchemaV2 = `models:
  - name: Shelf
    fields:
      - name: id
        type: String
        primaryKey: true
      - name: name
        type: String
        notNull: true
      - name: jars
        type: ArrayOf
        targets: [Jar]
  - name: Jar
    fields:
      - name: id
        type: String
        primaryKey: true
      - name: contents
        type: Integer
`

func TestInitCreatesDatabase(t *testing.T) {
	env := NewTestEnv(t)
	result := env.MustRunLarder("init")
	if !strings.Contains(result.Stdout, "larder initialized") {
		t.Errorf("unexpected init output %q", result.Stdout)
	}
	if _, err := os.Stat(filepath.Join(env.DataDir, "larder.db")); err != nil {
		t.Errorf("database not created: %v", err)
	}
}

func TestVersion(t *testing.T) {
	env := NewTestEnv(t)
	result := env.MustRunLarder("version")
	if !strings.HasPrefix(result.Stdout, "larder v") {
		t.Errorf("unexpected version output %q", result.Stdout)
	}
}

func TestSchemaLifecycle(t *testing.T) {
	env := NewTestEnv(t)
	v1 := env.WriteFile("schema/v1.yaml", pantrySchema)
	v2 := env.WriteFile("schema/v2.yaml", pantrySchemaV2)

	if r := env.RunLarder("diff", "--schema", v1); r.ExitCode != 1 {
		t.Fatalf("diff before migrate: exit %d, want 1", r.ExitCode)
	}

	plan := env.MustRunLarder("migrate", "--schema", v1, "--dry-run")
	for _, table := range []string{`CREATE TABLE "Shelf"`, `CREATE TABLE "Jar"`} {
		if !strings.Contains(plan.Stdout, table) {
			t.Errorf("dry run missing %s:\n%s", table, plan.Stdout)
		}
	}
	inspect := env.MustRunLarder("inspect")
	if !strings.Contains(inspect.Stdout, "no tables") {
		t.Errorf("dry run created tables:\n%s", inspect.Stdout)
	}

	env.MustRunLarder("migrate", "--schema", v1)
	env.MustRunLarder("diff", "--schema", v1)

	live := ParseJSON[map[string]map[string]map[string]any](t, env.MustRunLarder("--json", "inspect").Stdout)
	if _, ok := live["Jar"]["ownerID"]; !ok {
		t.Errorf("Jar lacks owner linkage columns: %v", live["Jar"])
	}

	if r := env.RunLarder("diff", "--schema", v2); r.ExitCode != 1 {
		t.Errorf("diff after type change: exit %d, want 1", r.ExitCode)
	}

	migrated := env.MustRunLarder("migrate", "--schema", v2)
	if !strings.Contains(migrated.Stdout, "-- rebuild Jar") {
		t.Errorf("type change not planned as rebuild:\n%s", migrated.Stdout)
	}
	live = ParseJSON[map[string]map[string]map[string]any](t, env.MustRunLarder("--json", "inspect").Stdout)
	if got := live["Jar"]["contents"]["type"]; got != "INTEGER" {
		t.Errorf("Jar.contents type = %v, want INTEGER", got)
	}
	env.MustRunLarder("diff", "--schema", v2)
}

func TestExportImportRoundTrip(t *testing.T) {
	env := NewTestEnv(t)
	schemaFile := env.WriteFile("schema.yaml", pantrySchema)
	env.MustRunLarder("migrate", "--schema", schemaFile)

	env.WriteFile("in/Shelf.jsonl", `{"id":"s1","name":"top"}`+"\n")
	env.WriteFile("in/Jar.jsonl",
		`{"id":"j1","contents":"jam","ownerType":"Shelf","ownerID":"s1","ownerField":"jars"}`+"\n"+
			"not json\n"+
			`{"id":"j2","contents":"honey","ownerType":"Shelf","ownerID":"s1","ownerField":"jars"}`+"\n")
	imported := env.MustRunLarder("import", "--schema", schemaFile, "--dir", filepath.Join(env.TempDir, "in"))
	if !strings.Contains(imported.Stdout, "Jar 2 row(s) imported") {
		t.Errorf("unexpected import output:\n%s", imported.Stdout)
	}

	out := filepath.Join(env.TempDir, "out")
	env.MustRunLarder("export", "--schema", schemaFile, "--dir", out)
	jars := ReadJSONLFile[map[string]any](t, filepath.Join(out, "Jar.jsonl"))
	if len(jars) != 2 {
		t.Fatalf("exported %d jars, want 2", len(jars))
	}
	for _, j := range jars {
		if j["ownerID"] != "s1" {
			t.Errorf("jar %v lost its owner", j["id"])
		}
	}
}

func TestInvalidSchemaFile(t *testing.T) {
	env := NewTestEnv(t)
	bad := env.WriteFile("bad.yaml", "models:\n  - name: Jar\n    fields:\n      - name: jars\n        type: ArrayOf\n        targets: [Ghost]\n")
	r := env.RunLarder("migrate", "--schema", bad)
	if r.ExitCode != 1 {
		t.Errorf("exit %d, want 1; stderr: %s", r.ExitCode, r.Stderr)
	}
	if !strings.Contains(r.Stderr, "Error:") {
		t.Errorf("stderr lacks error: %q", r.Stderr)
	}
}
