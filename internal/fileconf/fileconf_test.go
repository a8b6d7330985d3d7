package fileconf

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

type sample struct {
	Items []struct {
		ID string `json:"id" yaml:"id"`
	} `json:"items" yaml:"items"`
}

func TestLoadPicksDecoderByExtension(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"a.yaml": "items:\n  - id: one\n",
		"b.yml":  "items: [{id: one}]\n",
		"c.json": `{"items":[{"id":"one"}]}`,
	}
	for name, body := range files {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
		var out sample
		if err := Load(path, "sample", &out); err != nil {
			t.Fatalf("Load(%s): %v", name, err)
		}
		if len(out.Items) != 1 || out.Items[0].ID != "one" {
			t.Fatalf("Load(%s) decoded %#v", name, out)
		}
	}
}

func TestDecodeWithoutExtensionFallsBack(t *testing.T) {
	var out sample
	if err := Decode([]byte(`{"items":[{"id":"x"}]}`), "", &out); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if out.Items[0].ID != "x" {
		t.Fatalf("unexpected %#v", out)
	}
}

func TestDecodeRejectsUnknownFormats(t *testing.T) {
	var out sample
	if err := Decode([]byte("items: []"), ".toml", &out); !errors.Is(err, ErrUnknownFormat) {
		t.Fatalf("expected ErrUnknownFormat for .toml, got %v", err)
	}
	if err := Decode([]byte("{not json"), ".json", &out); !errors.Is(err, ErrUnknownFormat) {
		t.Fatalf("expected ErrUnknownFormat for broken json, got %v", err)
	}
}

func TestLoadErrors(t *testing.T) {
	var out sample
	if err := Load("  ", "sample", &out); err == nil {
		t.Fatalf("expected error for empty path")
	}
	if err := Load(filepath.Join(t.TempDir(), "missing.yaml"), "sample", &out); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
