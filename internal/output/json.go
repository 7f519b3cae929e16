package output

import (
	"bufio"
	"encoding/json"
	"io"
)

// jsonWriter encodes each value as it is written. With no indent the
// output is one JSON document per line.
type jsonWriter struct {
	buf *bufio.Writer
	enc *json.Encoder
}

func newJSONWriter(w io.Writer, indent string) *jsonWriter {
	buf := bufio.NewWriter(w)
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if indent != "" {
		enc.SetIndent("", indent)
	}
	return &jsonWriter{buf: buf, enc: enc}
}

func (w *jsonWriter) Write(v any) error {
	if err := w.enc.Encode(v); err != nil {
		return err
	}
	return w.buf.Flush()
}

func (w *jsonWriter) Flush() error {
	return w.buf.Flush()
}
