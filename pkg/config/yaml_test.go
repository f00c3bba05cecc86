package config

import (
	"os"
	"path/filepath"
	"testing"

	"gcode-inject/pkg/errors"
)

func TestLoadYAMLFlatProfile(t *testing.T) {
	data := []byte(`
zHop_mm: 5.0
startX: 10.0
suctionState: 1
`)
	cfg, err := LoadYAML(data, "tool vacuum_pnp")
	if err != nil {
		t.Fatalf("LoadYAML: %v", err)
	}
	sec, err := cfg.GetSection("tool vacuum_pnp")
	if err != nil {
		t.Fatal(err)
	}
	if v, _ := sec.GetFloat("zhop_mm"); v != 5 {
		t.Errorf("zhop_mm = %v", v)
	}
	if v, _ := sec.GetFloat("suctionstate"); v != 1 {
		t.Errorf("suctionstate = %v", v)
	}
}

func TestLoadYAMLSections(t *testing.T) {
	data := []byte(`
locator:
  height_tolerance: 0.25
  metric: manhattan
gcode:
  material_axes: [E, A]
tool stamp:
  start_sentinel: "; STAMP START"
  end_sentinel: "; STAMP END"
  template: |
    ; STAMP START
    G0 Z{height}
    ; STAMP END
  height: 1.5
`)
	cfg, err := LoadYAML(data, "")
	if err != nil {
		t.Fatalf("LoadYAML: %v", err)
	}
	loc, _ := cfg.GetSection("locator")
	if m, _ := loc.Get("metric"); m != "manhattan" {
		t.Errorf("metric = %q", m)
	}
	gc, _ := cfg.GetSection("gcode")
	if axes, _ := gc.Get("material_axes"); axes != "E,A" {
		t.Errorf("material_axes = %q", axes)
	}
	stamp, _ := cfg.GetSection("tool stamp")
	if tmpl, _ := stamp.Get("template"); tmpl != "; STAMP START\nG0 Z{height}\n; STAMP END\n" {
		t.Errorf("template = %q", tmpl)
	}
}

func TestLoadYAMLErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
		code errors.ErrorCode
	}{
		{"syntax", "a: [1, 2", errors.ErrConfigType},
		{"not a mapping", "- a\n- b\n", errors.ErrConfigType},
		{"scalar without section", "zHop_mm: 5\n", errors.ErrConfigSection},
		{"nested too deep", "locator:\n  offset:\n    x: 1\n", errors.ErrConfigType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadYAML([]byte(tt.data), ""); !errors.Is(err, tt.code) {
				t.Errorf("expected %s, got %v", tt.code, err)
			}
		})
	}
}

func TestLoadYAMLEmpty(t *testing.T) {
	cfg, err := LoadYAML(nil, "")
	if err != nil {
		t.Fatalf("LoadYAML: %v", err)
	}
	if len(cfg.GetSectionNames()) != 0 {
		t.Error("expected no sections")
	}
}

func TestLoadDispatchesOnExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "screwdriver.yaml")
	if err := os.WriteFile(path, []byte("zHop_mm: 12\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path, "tool screwdriver")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.HasSection("tool screwdriver") {
		t.Errorf("sections: %v", cfg.GetSectionNames())
	}
}
