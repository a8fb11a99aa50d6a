package luahook

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func baseInput() Input {
	return Input{
		Fields:            Fields{Title: "MyPen.html", HTML: "<b>hi</b>", JS: "alert(1)"},
		Destination:       "/tmp/out/MyPen.html",
		DocumentArguments: map[string]any{"penTitle": "Custom", "private": true},
	}
}

func TestApply_EmptyCodeIsIdentity(t *testing.T) {
	out, err := Apply(context.Background(), "  ", baseInput(), Limits{})
	require.NoError(t, err)
	require.Equal(t, baseInput().Fields, out)
}

func TestApply_RenamesTitle(t *testing.T) {
	code := `return { title = string.gsub(title, "%.html$", "") }`
	out, err := Apply(context.Background(), code, baseInput(), Limits{TimeoutMs: 500})
	require.NoError(t, err)
	require.Equal(t, "MyPen", out.Title)
	require.Equal(t, "<b>hi</b>", out.HTML)
	require.Equal(t, "alert(1)", out.JS)
}

func TestApply_ExpressionWithoutReturn(t *testing.T) {
	out, err := Apply(context.Background(), `{ title = document_arguments.penTitle }`, baseInput(), Limits{})
	require.NoError(t, err)
	require.Equal(t, "Custom", out.Title)
}

func TestApply_NilKeepsFields(t *testing.T) {
	out, err := Apply(context.Background(), `return nil`, baseInput(), Limits{})
	require.NoError(t, err)
	require.Equal(t, baseInput().Fields, out)
}

func TestApply_RejectsBadShapes(t *testing.T) {
	for name, code := range map[string]string{
		"not table":   `return "x"`,
		"bad type":    `return { title = 3 }`,
		"unknown key": `return { css = "p{}" }`,
		"syntax":      `return {`,
		"runtime":     `return { title = nothing.here }`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Apply(context.Background(), code, baseInput(), Limits{TimeoutMs: 500})
			require.Error(t, err)
		})
	}
}

func TestApply_NoFilesystemAccess(t *testing.T) {
	_, err := Apply(context.Background(), `return { title = dofile("/etc/passwd") }`, baseInput(), Limits{})
	require.Error(t, err)
	_, err = Apply(context.Background(), `return { title = tostring(os) }`, baseInput(), Limits{})
	require.NoError(t, err)
}

func TestApply_StatementsAssignGlobals(t *testing.T) {
	out, err := Apply(context.Background(), `title = "x"`, baseInput(), Limits{})
	require.NoError(t, err)
	require.Equal(t, "x", out.Title)
	require.Equal(t, "<b>hi</b>", out.HTML)

	out, err = Apply(context.Background(), "js = js .. \";\"\n-- trailing comment", baseInput(), Limits{})
	require.NoError(t, err)
	require.Equal(t, "alert(1);", out.JS)
}

func TestApply_ReturnInsideStringIsAnExpression(t *testing.T) {
	out, err := Apply(context.Background(), `{ title = "return policy" }`, baseInput(), Limits{})
	require.NoError(t, err)
	require.Equal(t, "return policy", out.Title)
}

func TestApply_TimeoutViolation(t *testing.T) {
	_, err := Apply(context.Background(), `while true do end return nil`, baseInput(), Limits{TimeoutMs: 20})
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrViolation), "got %v", err)
	require.Contains(t, err.Error(), "sandbox timeout")

	_, err = Apply(context.Background(), `while true do end`, baseInput(), Limits{TimeoutMs: 20})
	require.ErrorIs(t, err, ErrViolation)
}

func TestApply_InstructionLimitViolation(t *testing.T) {
	_, err := Apply(context.Background(), `for i = 1, 10 do end return nil`, baseInput(), Limits{InstructionLimit: 5})
	require.ErrorIs(t, err, ErrViolation)

	_, err = Apply(context.Background(), `while title == "" do end return nil`, baseInput(), Limits{InstructionLimit: 1000})
	require.ErrorIs(t, err, ErrViolation)
}

func TestApply_BoundedLoopWithinLimit(t *testing.T) {
	code := `local s = "" for i = 1, 10 do s = s .. i end return { title = s }`
	out, err := Apply(context.Background(), code, baseInput(), Limits{InstructionLimit: 1000})
	require.NoError(t, err)
	require.Equal(t, "12345678910", out.Title)
}

func TestInstructionLimitWouldTrip(t *testing.T) {
	cases := []struct {
		code  string
		limit int
		trip  bool
	}{
		{`return nil`, 0, false},
		{`for i = 1, 100 do end`, 50, true},
		{`for i = 1, 100 do end`, 200, false},
		{`for i = 10, 1, -1 do end`, 20, false},
		{`for i = 1, n do end`, 1000, true},
		{`for k, v in pairs(t) do end`, 1000, true},
		{`repeat until true`, 1000, true},
		{`local x = "for while repeat"`, 10, false},
		{`return {`, 1, false},
	}
	for _, c := range cases {
		require.Equal(t, c.trip, instructionLimitWouldTrip(c.code, c.limit), c.code)
	}
}
