package staging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/flarebyte/codepen-export/internal/testutil"
)

type fixture struct {
	staging string
	info    string
	dest    string
}

func newFixture(t *testing.T, files map[string]string) fixture {
	t.Helper()
	root := t.TempDir()
	f := fixture{
		staging: filepath.Join(root, "staging"),
		info:    filepath.Join(root, "export_info.json"),
		dest:    filepath.Join(root, "out", "MyPen.html"),
	}
	if err := testutil.WriteTree(f.staging, files); err != nil {
		t.Fatalf("write staging: %v", err)
	}
	writeInfo(t, f.info, `{"html_filename": "index.html", "main_container_width": 600, "main_container_height": 400}`)
	return f
}

func writeInfo(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write info: %v", err)
	}
}

func (f fixture) options() Options {
	return Options{
		StagingDir:     f.staging,
		Destination:    f.dest,
		ExportInfoPath: f.info,
		ScriptFragment: "generated_script.js",
		PrefillURL:     "https://codepen.io/pen/define",
	}
}

// decodeJSConcat evaluates a JS expression made of double-quoted string
// literals joined with +.
func decodeJSConcat(t *testing.T, expr string) string {
	t.Helper()
	var sb strings.Builder
	rest := strings.TrimSpace(expr)
	for {
		dec := json.NewDecoder(strings.NewReader(rest))
		var part string
		if err := dec.Decode(&part); err != nil {
			t.Fatalf("decode literal %q: %v", rest, err)
		}
		sb.WriteString(part)
		rest = strings.TrimSpace(rest[dec.InputOffset():])
		if rest == "" {
			return sb.String()
		}
		if rest[0] != '+' {
			t.Fatalf("unexpected token after literal: %q", rest)
		}
		rest = strings.TrimSpace(rest[1:])
	}
}

// embeddedPayload pulls the jsonData literal out of a loader page and
// decodes it twice.
func embeddedPayload(t *testing.T, doc string) (string, Payload) {
	t.Helper()
	const marker = "var jsonData = "
	i := strings.Index(doc, marker)
	if i < 0 {
		t.Fatalf("no jsonData in document")
	}
	line := doc[i+len(marker):]
	line = line[:strings.IndexByte(line, '\n')]
	line = strings.TrimSuffix(line, ";")
	inner := decodeJSConcat(t, line)
	var p Payload
	if err := json.Unmarshal([]byte(inner), &p); err != nil {
		t.Fatalf("decode payload %q: %v", inner, err)
	}
	return inner, p
}
