package plugin

import (
	"context"
	"encoding/json"
	"reflect"
	"strconv"
	"testing"

	"github.com/flarebyte/codepen-export/internal/config"
)

func TestGetOptions_PureAndStable(t *testing.T) {
	deps := Deps{Config: config.Defaults()}
	a, err := Run(context.Background(), OpGetOptions, Request{GetOptions: true}, deps)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	b, _ := Run(context.Background(), OpGetOptions, Request{GetOptions: true}, deps)
	if !reflect.DeepEqual(a, b) || !a.Emit {
		t.Fatalf("options not stable: %+v vs %+v", a, b)
	}
	opts := a.Value.(Options)
	if _, err := strconv.Atoi(opts.MinHypeBuildVersion); err != nil {
		t.Fatalf("min build must be an integer string: %q", opts.MinHypeBuildVersion)
	}
	if opts.SaveOptions.AllowsPreview || !opts.SaveOptions.AllowsExport || opts.SaveOptions.FileExtension != "html" {
		t.Fatalf("unexpected save options: %+v", opts.SaveOptions)
	}
}

func TestCapabilities_JSONShape(t *testing.T) {
	b, err := json.Marshal(Capabilities(config.DefaultRuntimeCDN, "574"))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	want := map[string]any{
		"export_options": map[string]any{
			"exportShouldInlineHypeJS":           false,
			"exportShouldInlineDocumentLoader":   false,
			"exportShouldUseExternalRuntime":     true,
			"exportExternalRuntimeURL":           "https://cdn.jsdelivr.net/gh/tumult/hype-runtime",
			"exportShouldSaveHTMLFile":           true,
			"exportShouldNameAsIndexDotHTML":     true,
			"exportShouldBustBrowserCaching":     false,
			"exportShouldIncludeTextContents":    false,
			"exportShouldIncludePIE":             false,
			"exportSupportInternetExplorer6789":  false,
			"exportShouldSaveRestorableDocument": false,
		},
		"save_options": map[string]any{
			"file_extension": "html",
			"allows_export":  true,
			"allows_preview": false,
		},
		"min_hype_build_version": "574",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected options\nwant: %v\n got: %v", want, got)
	}
}

func TestGetOptions_ConfigOverrides(t *testing.T) {
	cfg := config.Defaults()
	cfg.RuntimeCDN = "https://cdn.example.test/runtime"
	cfg.MinHostBuild = "700"
	res, err := Run(context.Background(), OpGetOptions, Request{}, Deps{Config: cfg})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	opts := res.Value.(Options)
	if opts.ExportOptions.ExternalRuntimeURL != cfg.RuntimeCDN || opts.MinHypeBuildVersion != "700" {
		t.Fatalf("overrides ignored: %+v", opts)
	}
}
