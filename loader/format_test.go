package loader

import (
	"strings"
	"testing"
)

func TestNormalizeKind(t *testing.T) {
	tests := []struct {
		name       string
		raw        string
		want       string
		wantLegacy bool
		wantErr    bool
	}{
		{"canonical", "mod", ModKind, false, false},
		{"legacy alias", "mod-definition", ModKind, true, false},
		{"whitespace trimmed", "  mod  ", ModKind, false, false},
		{"empty", "", "", false, true},
		{"unknown", "recipe", "", false, true},
		{"wrong case", "Mod", "", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, legacy, err := NormalizeKind(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("NormalizeKind: %v", err)
			}
			if kind != tt.want || legacy != tt.wantLegacy {
				t.Errorf("got (%q, %v), want (%q, %v)", kind, legacy, tt.want, tt.wantLegacy)
			}
		})
	}
}

func TestValidateSchemaVersion(t *testing.T) {
	valid := []string{"1.0.0", "1.2.3", "1.0.0-beta.1", "1.0.0+build.5", CurrentSchemaVersion}
	for _, v := range valid {
		if err := ValidateSchemaVersion(v); err != nil {
			t.Errorf("ValidateSchemaVersion(%q) = %v, want nil", v, err)
		}
	}

	tests := []struct {
		name    string
		version string
		wantSub string
	}{
		{"empty", "", "required"},
		{"not semver", "one.two.three", "semantic version"},
		{"missing patch", "1.0", "semantic version"},
		{"leading v", "v1.0.0", "semantic version"},
		{"unsupported major", "2.0.0", "unsupported major"},
		{"major zero", "0.9.0", "unsupported major"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSchemaVersion(tt.version)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantSub) {
				t.Errorf("error %q does not mention %q", err, tt.wantSub)
			}
		})
	}
}

func TestToJSON(t *testing.T) {
	t.Run("yaml converted", func(t *testing.T) {
		out, err := toJSON([]byte("name: demo\ncount: 2\n"), "mod.yaml")
		if err != nil {
			t.Fatalf("toJSON: %v", err)
		}
		s := string(out)
		if !strings.Contains(s, `"name":"demo"`) || !strings.Contains(s, `"count":2`) {
			t.Errorf("unexpected JSON: %s", s)
		}
	})

	t.Run("json passed through", func(t *testing.T) {
		in := []byte(`{"name":"demo"}`)
		out, err := toJSON(in, "mod.json")
		if err != nil {
			t.Fatalf("toJSON: %v", err)
		}
		if string(out) != string(in) {
			t.Errorf("JSON input modified: %s", out)
		}
	})

	t.Run("bad yaml", func(t *testing.T) {
		if _, err := toJSON([]byte(":\n\t- broken"), "mod.yml"); err == nil {
			t.Error("expected error")
		}
	})
}
