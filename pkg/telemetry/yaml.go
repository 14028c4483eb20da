package telemetry

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/ardnew/softdac/device/class/uac"
)

// WriteYAML encodes status to w.
func WriteYAML(w io.Writer, status uac.Status) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(status); err != nil {
		return fmt.Errorf("encode status: %w", err)
	}
	return enc.Close()
}
