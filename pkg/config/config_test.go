package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/pflag"
)

func testFlags(args ...string) *pflag.FlagSet {
	f := pflag.NewFlagSet("test", pflag.ContinueOnError)
	f.Int("port", 8080, "")
	f.Int("fps", 30, "")
	f.String("config", DefaultFile, "")
	f.CountP("verbose", "v", "")
	if err := f.Parse(args); err != nil {
		panic(err)
	}
	return f
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	// No nameless-numbers.toml in an empty directory
	t.Chdir(t.TempDir())

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Port != 8080 || cfg.FPS != 30 || cfg.Watch {
		t.Errorf("Unexpected defaults: %+v", cfg)
	}
	if cfg.File != DefaultFile {
		t.Errorf("Expected default config path, got %q", cfg.File)
	}
	if diff := cmp.Diff(Presets(), cfg.Diagrams); diff != "" {
		t.Errorf("Expected presets without configured diagrams (-want +got):\n%s", diff)
	}
}

func TestLoadPriority(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	writeFile(t, dir, DefaultFile, "port = 7000\nfps = 20\n")

	// File over defaults
	cfg, err := Load(testFlags())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Port != 7000 || cfg.FPS != 20 {
		t.Errorf("Expected file values, got port=%d fps=%d", cfg.Port, cfg.FPS)
	}

	// Env over file
	t.Setenv("NAMELESS_NUMBERS_PORT", "7100")
	cfg, err = Load(testFlags())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Port != 7100 {
		t.Errorf("Expected env port 7100, got %d", cfg.Port)
	}

	// Flags over env
	cfg, err = Load(testFlags("--port", "7200", "-vv"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Port != 7200 || cfg.VerboseCnt != 2 {
		t.Errorf("Expected flag values, got port=%d verbose=%d", cfg.Port, cfg.VerboseCnt)
	}
	if cfg.FPS != 20 {
		t.Errorf("Unset flags should not override the file, got fps=%d", cfg.FPS)
	}
}

func TestLoadDiagrams(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "custom.toml", `
[[diagrams]]
id = "fan"
nodes = 6
labels = true
relations = ["x-is-less"]
pivot = 2
width = 300

[[diagrams]]
id = "pairs"
nodes = 4
relations = ["less-than"]
charge = -60
engine = "eades"
`)

	cfg, err := Load(testFlags("--config", path))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	want := []DiagramConfig{
		{
			ID: "fan", Title: "fan", Nodes: 6, Labels: true, Relations: []string{"x-is-less"}, Pivot: 2,
			Width: 300, Height: DefaultHeight, Charge: DefaultCharge, Gravity: DefaultGravity, Engine: DefaultEngine,
		},
		{
			ID: "pairs", Title: "pairs", Nodes: 4, Relations: []string{"less-than"},
			Width: DefaultWidth, Height: DefaultHeight, Charge: -60, Gravity: DefaultGravity, Engine: "eades",
		},
	}
	if diff := cmp.Diff(want, cfg.Diagrams); diff != "" {
		t.Errorf("Diagrams mismatch (-want +got):\n%s", diff)
	}
	if cfg.File != path {
		t.Errorf("Expected config path %s, got %s", path, cfg.File)
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name string
		file string
	}{
		{"missing explicit file", filepath.Join(dir, "nope.toml")},
		{"broken toml", writeFile(t, dir, "broken.toml", "port = = 1")},
		{"duplicate ids", writeFile(t, dir, "dup.toml", "[[diagrams]]\nid = \"a\"\n[[diagrams]]\nid = \"a\"\n")},
		{"missing id", writeFile(t, dir, "noid.toml", "[[diagrams]]\nnodes = 3\n")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(testFlags("--config", tt.file)); err == nil {
				t.Error("Expected an error")
			}
		})
	}
}

func TestPresets(t *testing.T) {
	var ids []string
	for _, p := range Presets() {
		ids = append(ids, p.ID)
		if p.Width == 0 || p.Charge == 0 || p.Engine == "" {
			t.Errorf("Preset %s is not normalized: %+v", p.ID, p)
		}
	}

	want := []string{
		"numbers", "succ", "succ-nameless", "succ-pred", "x-is-less-1", "x-is-less-3",
		"less-than-with-2", "less-than-with-3", "less-than-with-4", "less-than-with-5",
		"nameless-scatter",
	}
	if diff := cmp.Diff(want, ids); diff != "" {
		t.Errorf("Preset ids mismatch (-want +got):\n%s", diff)
	}
}

func TestNormalizeKeepsExplicitValues(t *testing.T) {
	in := DiagramConfig{ID: "x", Title: "X", Width: 10, Height: 20, Charge: -5, Gravity: 0.5, Engine: "eades", Relations: []string{"succ"}}
	out := in.Normalize()

	if diff := cmp.Diff(in, out); diff != "" {
		t.Errorf("Normalize changed explicit values (-in +out):\n%s", diff)
	}

	// The relations slice is copied
	out.Relations[0] = "pred"
	if in.Relations[0] != "succ" {
		t.Error("Normalize should not share the relations slice")
	}
}
