// Package fileconf decodes the YAML/JSON registry files kept under configs/.
package fileconf

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrUnknownFormat is returned when no decoder accepts the file.
var ErrUnknownFormat = errors.New("file format not recognized (expected YAML or JSON)")

type decoder struct {
	name string
	exts []string
	fn   func([]byte, any) error
}

var decoders = []decoder{
	{name: "yaml", exts: []string{".yaml", ".yml"}, fn: yaml.Unmarshal},
	{name: "json", exts: []string{".json"}, fn: json.Unmarshal},
}

// Load reads path and decodes it into out. what names the file in errors.
func Load(path, what string, out any) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return fmt.Errorf("%s file path is empty", what)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s file: %w", what, err)
	}
	if err := Decode(raw, filepath.Ext(path), out); err != nil {
		return fmt.Errorf("%s file: %w", what, err)
	}
	return nil
}

// Decode picks the decoder by ext. An empty ext tries every decoder in turn.
func Decode(data []byte, ext string, out any) error {
	ext = strings.ToLower(strings.TrimSpace(ext))

	var lastErr error
	for _, d := range decoders {
		if ext != "" && !matches(d.exts, ext) {
			continue
		}
		if err := d.fn(data, out); err != nil {
			lastErr = fmt.Errorf("decode %s: %w", d.name, err)
			continue
		}
		return nil
	}
	if lastErr != nil {
		return errors.Join(ErrUnknownFormat, lastErr)
	}
	return ErrUnknownFormat
}

func matches(exts []string, ext string) bool {
	for _, e := range exts {
		if e == ext {
			return true
		}
	}
	return false
}
