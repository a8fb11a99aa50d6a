package plugin

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/flarebyte/codepen-export/internal/browser"
	"github.com/flarebyte/codepen-export/internal/config"
	"github.com/flarebyte/codepen-export/internal/testutil"
)

func stagingRequest(t *testing.T) (Request, string) {
	t.Helper()
	root := t.TempDir()
	stagingDir := filepath.Join(root, "staging")
	if err := testutil.WriteTree(stagingDir, map[string]string{
		"index.html":                          "<b>hi</b>",
		"x.hyperesources/generated_script.js": "go()",
	}); err != nil {
		t.Fatalf("write tree: %v", err)
	}
	info := filepath.Join(root, "export_info.json")
	if err := os.WriteFile(info, []byte(`{"html_filename":"index.html"}`), 0o644); err != nil {
		t.Fatalf("write info: %v", err)
	}
	dest := filepath.Join(root, "out", "Pen.html")
	return Request{
		ModifyStagingPath:    stagingDir,
		HasModifyStagingPath: true,
		DestinationPath:      dest,
		ExportInfoJSONPath:   info,
		IsPreview:            "False",
	}, dest
}

func TestModifyStagingPath_WritesAndLaunches(t *testing.T) {
	req, dest := stagingRequest(t)
	rec := &browser.Recorder{}
	res, err := Run(context.Background(), OpModifyStagingPath, req, Deps{Config: config.Defaults(), Launcher: rec})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !res.Emit || res.Value != true {
		t.Fatalf("expected true result, got %+v", res)
	}
	b, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("read dest: %v", err)
	}
	if !strings.Contains(string(b), config.DefaultPrefillURL) {
		t.Fatalf("loader does not post to prefill endpoint")
	}
	if len(rec.Targets) != 1 || rec.Targets[0] != dest {
		t.Fatalf("unexpected launches: %v", rec.Targets)
	}
}

func TestModifyStagingPath_LaunchFailureStillSucceeds(t *testing.T) {
	req, dest := stagingRequest(t)
	rec := &browser.Recorder{Err: errors.New("no browser")}
	res, err := Run(context.Background(), OpModifyStagingPath, req, Deps{Config: config.Defaults(), Launcher: rec})
	if err != nil || res.Value != true {
		t.Fatalf("expected success, got %+v %v", res, err)
	}
	if _, err := os.Stat(dest); err != nil {
		t.Fatalf("destination missing: %v", err)
	}
}

func TestModifyStagingPath_PreviewRejected(t *testing.T) {
	req, dest := stagingRequest(t)
	req.IsPreview = "True"
	rec := &browser.Recorder{}
	_, err := Run(context.Background(), OpModifyStagingPath, req, Deps{Config: config.Defaults(), Launcher: rec})
	if err == nil || !strings.Contains(err.Error(), "preview export is not supported") {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, statErr := os.Stat(dest); statErr == nil {
		t.Fatalf("preview must not write the destination")
	}
	if len(rec.Targets) != 0 {
		t.Fatalf("preview must not launch a browser")
	}
}

func TestModifyStagingPath_FailurePropagates(t *testing.T) {
	req, _ := stagingRequest(t)
	req.ExportInfoJSONPath = filepath.Join(t.TempDir(), "missing.json")
	res, err := Run(context.Background(), OpModifyStagingPath, req, Deps{Config: config.Defaults(), Launcher: &browser.Recorder{}})
	if err == nil || res.Emit {
		t.Fatalf("expected propagated failure, got %+v %v", res, err)
	}
	if !strings.HasPrefix(err.Error(), OpModifyStagingPath+": ") {
		t.Fatalf("error should name the operation: %v", err)
	}
}

func TestModifyStagingPath_UsesConfiguredHook(t *testing.T) {
	req, dest := stagingRequest(t)
	cfg := config.Defaults()
	cfg.Payload = config.Payload{Inline: `return { title = "Renamed" }`, HasInline: true}
	if _, err := Run(context.Background(), OpModifyStagingPath, req, Deps{Config: cfg}); err != nil {
		t.Fatalf("run: %v", err)
	}
	b, _ := os.ReadFile(dest)
	if !strings.Contains(string(b), `\"title\":\"Renamed\"`) {
		t.Fatalf("hook title missing from loader:\n%s", b)
	}
}
