package plugin

import "context"

// ExportOptions adjust how the host performs the export that precedes staging.
type ExportOptions struct {
	ShouldInlineHypeJS           bool   `json:"exportShouldInlineHypeJS"`
	ShouldInlineDocumentLoader   bool   `json:"exportShouldInlineDocumentLoader"`
	ShouldUseExternalRuntime     bool   `json:"exportShouldUseExternalRuntime"`
	ExternalRuntimeURL           string `json:"exportExternalRuntimeURL"`
	ShouldSaveHTMLFile           bool   `json:"exportShouldSaveHTMLFile"`
	ShouldNameAsIndexDotHTML     bool   `json:"exportShouldNameAsIndexDotHTML"`
	ShouldBustBrowserCaching     bool   `json:"exportShouldBustBrowserCaching"`
	ShouldIncludeTextContents    bool   `json:"exportShouldIncludeTextContents"`
	ShouldIncludePIE             bool   `json:"exportShouldIncludePIE"`
	SupportInternetExplorer6789  bool   `json:"exportSupportInternetExplorer6789"`
	ShouldSaveRestorableDocument bool   `json:"exportShouldSaveRestorableDocument"`
}

// SaveOptions tell the host where the plugin appears and what it produces.
type SaveOptions struct {
	FileExtension string `json:"file_extension"`
	AllowsExport  bool   `json:"allows_export"`
	// AllowsPreview stays false: preview output must remain a directory the
	// host can locate, and staging replaces it with a single file.
	AllowsPreview bool `json:"allows_preview"`
}

// Options is the capability answer.
type Options struct {
	ExportOptions       ExportOptions `json:"export_options"`
	SaveOptions         SaveOptions   `json:"save_options"`
	MinHypeBuildVersion string        `json:"min_hype_build_version"`
}

// Capabilities builds the capability answer from the runtime CDN and the
// minimum host build number.
func Capabilities(runtimeCDN, minBuild string) Options {
	return Options{
		ExportOptions: ExportOptions{
			ShouldUseExternalRuntime: true,
			ExternalRuntimeURL:       runtimeCDN,
			ShouldSaveHTMLFile:       true,
			ShouldNameAsIndexDotHTML: true,
		},
		SaveOptions: SaveOptions{
			FileExtension: "html",
			AllowsExport:  true,
			AllowsPreview: false,
		},
		MinHypeBuildVersion: minBuild,
	}
}

func getOptions(_ context.Context, _ Request, deps Deps) (Result, error) {
	return Value(Capabilities(deps.Config.RuntimeCDN, deps.Config.MinHostBuild)), nil
}

func init() {
	Register(OpGetOptions, Operation{Handler: getOptions, Policy: Propagate})
}
