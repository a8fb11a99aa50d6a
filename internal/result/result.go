// Package result frames return values for the host.
//
// The host scans standard output for Delimiter and decodes the line after it
// as {"result": <value>}. Anything printed before the delimiter is ignored.
package result

import (
	"bytes"
	"encoding/json"
	"io"
)

// Delimiter separates free-form output from the result line.
const Delimiter = "===================="

type envelope struct {
	Result any `json:"result"`
}

// Encode returns the framed bytes for v: delimiter line, then one JSON line.
func Encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(Delimiter)
	buf.WriteByte('\n')
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(envelope{Result: v}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write frames v onto w in a single write.
func Write(w io.Writer, v any) error {
	b, err := Encode(v)
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}

// Decode extracts the result value from host-visible output, ignoring
// everything up to and including the last delimiter line.
func Decode(out []byte, v any) error {
	idx := bytes.LastIndex(out, []byte(Delimiter+"\n"))
	if idx < 0 {
		return io.ErrUnexpectedEOF
	}
	line := bytes.TrimSpace(out[idx+len(Delimiter)+1:])
	var env struct {
		Result json.RawMessage `json:"result"`
	}
	if err := json.Unmarshal(line, &env); err != nil {
		return err
	}
	return json.Unmarshal(env.Result, v)
}
