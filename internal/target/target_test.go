package target

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultsContainKnownTargets(t *testing.T) {
	targets := Defaults()

	if len(targets) != 5 {
		t.Fatalf("expected 5 default targets, got %d", len(targets))
	}

	sebitti, ok := Find(targets, "fi.sbweather.app")
	if !ok {
		t.Fatal("fi.sbweather.app missing from defaults")
	}
	if sebitti.Name != "Sebitti Sää" {
		t.Errorf("name = %q, want %q", sebitti.Name, "Sebitti Sää")
	}
	if sebitti.Locator.Kind != AccessibilityID {
		t.Errorf("locator kind = %q, want accessibility id", sebitti.Locator.Kind)
	}
	if sebitti.Locator.Value != "KOTI\nTab 1 of 3" {
		t.Errorf("locator value = %q, want %q", sebitti.Locator.Value, "KOTI\nTab 1 of 3")
	}
}

func TestFindMissing(t *testing.T) {
	if _, ok := Find(Defaults(), "com.example.absent"); ok {
		t.Error("Find returned ok for an unknown package")
	}
}

func TestLocatorPlaceholder(t *testing.T) {
	tests := []struct {
		name string
		loc  Locator
		want bool
	}{
		{"empty value", Locator{Kind: AccessibilityID, Value: ""}, true},
		{"generic class", Locator{Kind: ClassName, Value: "android.widget.TextView"}, true},
		{"real accessibility id", Locator{Kind: AccessibilityID, Value: "KOTI\nTab 1 of 3"}, false},
		{"real xpath", Locator{Kind: XPath, Value: "//android.widget.Button[@text='Login']"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.loc.Placeholder(); got != tt.want {
				t.Errorf("Placeholder() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "targets.yaml")

	doc := `targets:
  - package: com.example.one
    name: Example One
    locator:
      kind: xpath
      value: "//android.widget.Button[@text='Go']"
  - package: com.example.two
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write targets.yaml: %v", err)
	}

	targets, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if len(targets) != 2 {
		t.Fatalf("expected 2 targets, got %d", len(targets))
	}

	if targets[0].Locator.Kind != XPath {
		t.Errorf("target 0 kind = %q, want xpath", targets[0].Locator.Kind)
	}

	// Name falls back to the package id, kind to accessibility id.
	if targets[1].Name != "com.example.two" {
		t.Errorf("target 1 name = %q, want package id fallback", targets[1].Name)
	}
	if targets[1].Locator.Kind != AccessibilityID {
		t.Errorf("target 1 kind = %q, want accessibility id fallback", targets[1].Locator.Kind)
	}
	if !targets[1].Locator.Placeholder() {
		t.Error("target 1 locator should be a placeholder")
	}
}

func TestLoadFileRejectsMissingPackage(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "targets.yaml")

	doc := `targets:
  - name: No Package
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write targets.yaml: %v", err)
	}

	if _, err := LoadFile(path); err == nil {
		t.Error("expected error for target without package id")
	}
}

func TestLoadFileRejectsUnknownKind(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "targets.yaml")

	doc := `targets:
  - package: com.example.bad
    locator:
      kind: css
      value: "#login"
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write targets.yaml: %v", err)
	}

	if _, err := LoadFile(path); err == nil {
		t.Error("expected error for unknown locator kind")
	}
}

func TestLoadFallsBackToDefaults(t *testing.T) {
	// Point XDG_CONFIG_HOME at an empty directory: no targets.yaml there.
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	targets, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(targets) != len(Defaults()) {
		t.Errorf("expected defaults, got %d targets", len(targets))
	}
}
