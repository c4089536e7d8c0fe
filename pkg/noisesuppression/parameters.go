package noisesuppression

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadParameters reads a YAML parameter file into dst. An empty path or an
// empty file leaves dst untouched, so dst should be pre-filled with defaults.
func LoadParameters(path string, dst any) error {
	if path == "" {
		return nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("unable to read the parameters file '%s': %w", path, err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("unable to parse the parameters file '%s': %w", path, err)
	}
	return nil
}
