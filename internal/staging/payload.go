package staging

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strings"
)

// EditorsLayout selects CodePen's editor layout: HTML and JS open, CSS closed.
const EditorsLayout = "101"

// Placeholder is replaced by the encoded payload in the loader template.
const Placeholder = "${jsonData}"

// Payload is the pen definition posted to the prefill endpoint.
type Payload struct {
	Title   string `json:"title"`
	Editors string `json:"editors"`
	HTML    string `json:"html"`
	JS      string `json:"js"`
}

// NewPayload builds a payload with the fixed editor layout.
func NewPayload(title, html, js string) Payload {
	return Payload{Title: title, Editors: EditorsLayout, HTML: html, JS: js}
}

var (
	scriptCloseRe = regexp.MustCompile(`(?i)(</scr)(ipt)`)
	commentOpenRe = regexp.MustCompile(`<!(--)`)
)

// marshalNoEscape encodes v without turning <, > and & into \u escapes so the
// payload stays byte-for-byte readable in the loader page.
func marshalNoEscape(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// DoubleEncode serializes p to JSON text and then serializes that text again
// as a JSON string literal.
func DoubleEncode(p Payload) (string, error) {
	inner, err := marshalNoEscape(p)
	if err != nil {
		return "", err
	}
	outer, err := marshalNoEscape(string(inner))
	if err != nil {
		return "", err
	}
	return string(outer), nil
}

// EscapeForScript splits every closing script tag and comment opener in a
// double-quoted JS string literal across a "+" concatenation so the HTML
// tokenizer never sees them. The decoded string value is unchanged.
func EscapeForScript(literal string) string {
	s := scriptCloseRe.ReplaceAllString(literal, `$1"+"$2`)
	return commentOpenRe.ReplaceAllString(s, `<!"+"$1`)
}

// EncodeForScript is DoubleEncode followed by EscapeForScript.
func EncodeForScript(p Payload) (string, error) {
	s, err := DoubleEncode(p)
	if err != nil {
		return "", err
	}
	return EscapeForScript(s), nil
}

// RenderLoader substitutes the encoded payload and the prefill endpoint into
// the loader template.
func RenderLoader(encoded, prefillURL string) (string, error) {
	action, err := marshalNoEscape(prefillURL)
	if err != nil {
		return "", err
	}
	doc := strings.Replace(loaderTemplate, actionPlaceholder, EscapeForScript(string(action)), 1)
	return strings.Replace(doc, Placeholder, encoded, 1), nil
}

const actionPlaceholder = "${actionURL}"

const loaderTemplate = `<!doctype html>
<html>
<head>
<title>CodePen Loader</title>
<script>
window.onload = function () {
	var jsonData = ${jsonData};

	var formElement = document.createElement("form");
	formElement.setAttribute("action", ${actionURL});
	formElement.setAttribute("method", "POST");
	formElement.setAttribute("name", "codepen_poster");
	document.body.appendChild(formElement);

	var hiddenInputElement = document.createElement("input");
	hiddenInputElement.setAttribute("type", "hidden");
	hiddenInputElement.setAttribute("name", "data");
	hiddenInputElement.setAttribute("value", jsonData);
	formElement.appendChild(hiddenInputElement);

	document.forms["codepen_poster"].submit();
};
</script>
</head>
<body></body>
</html>
`
