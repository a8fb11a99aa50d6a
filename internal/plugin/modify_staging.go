package plugin

import (
	"context"
	"fmt"

	"github.com/flarebyte/codepen-export/internal/luahook"
	"github.com/flarebyte/codepen-export/internal/staging"
)

func modifyStagingPath(ctx context.Context, req Request, deps Deps) (Result, error) {
	preview, err := ParseBool(req.IsPreview)
	if err != nil {
		return Result{}, fmt.Errorf("%s: is_preview: %w", OpModifyStagingPath, err)
	}
	cfg := deps.Config
	res, err := staging.Transform(ctx, staging.Options{
		StagingDir:     req.ModifyStagingPath,
		Destination:    req.DestinationPath,
		ExportInfoPath: req.ExportInfoJSONPath,
		Preview:        preview,
		ScriptFragment: cfg.ScriptFragment,
		PrefillURL:     cfg.PrefillURL,
		Hook:           cfg.Payload.Inline,
		HookLimits: luahook.Limits{
			TimeoutMs:        cfg.Lua.TimeoutMs,
			InstructionLimit: cfg.Lua.InstructionLimit,
		},
	})
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", OpModifyStagingPath, err)
	}
	logger := deps.Log.With("destination", res.Destination)
	logger.Info("loader written", map[string]any{
		"html":   res.HTMLPath,
		"script": res.ScriptPath,
		"bytes":  res.Size,
	})

	if deps.Launcher != nil {
		if err := deps.Launcher.Open(res.Destination); err != nil {
			// The loader is fully staged; the user can still open it by hand.
			logger.Warn("could not open browser", map[string]any{"error": err.Error()})
		}
	}
	return Value(true), nil
}

func init() {
	Register(OpModifyStagingPath, Operation{Handler: modifyStagingPath, Policy: Propagate})
}
