package output

import (
	"io"

	"gopkg.in/yaml.v3"
)

// yamlWriter emits one YAML document per Write.
type yamlWriter struct {
	enc *yaml.Encoder
}

func newYAMLWriter(w io.Writer) *yamlWriter {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	return &yamlWriter{enc: enc}
}

func (w *yamlWriter) Write(v any) error {
	return w.enc.Encode(v)
}

func (w *yamlWriter) Flush() error {
	return w.enc.Close()
}
