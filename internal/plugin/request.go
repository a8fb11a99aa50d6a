package plugin

import (
	"fmt"
	"strings"
)

// Operation names, in the order the host flags are checked.
const (
	OpGetOptions        = "get-options"
	OpReplaceURL        = "replace-url"
	OpModifyStagingPath = "modify-staging-path"
	OpCheckForUpdates   = "check-for-updates"
)

// Request is the parsed host invocation.
type Request struct {
	HypeVersion string
	HypeBuild   string
	ExportUID   string

	GetOptions bool

	ReplaceURL    string
	HasReplaceURL bool
	URLType       string
	IsReference   string
	ShouldPreload string
	HasPreload    bool

	ModifyStagingPath    string
	HasModifyStagingPath bool
	DestinationPath      string
	ExportInfoJSONPath   string
	IsPreview            string

	CheckForUpdates bool
}

// OperationName picks the single operation a request selects, or "".
func (r Request) OperationName() string {
	switch {
	case r.GetOptions:
		return OpGetOptions
	case r.HasReplaceURL:
		return OpReplaceURL
	case r.HasModifyStagingPath:
		return OpModifyStagingPath
	case r.CheckForUpdates:
		return OpCheckForUpdates
	default:
		return ""
	}
}

// ParseBool accepts the usual yes/no truth tokens, case-insensitively.
func ParseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "y", "yes", "t", "true", "on", "1":
		return true, nil
	case "n", "no", "f", "false", "off", "0":
		return false, nil
	default:
		return false, fmt.Errorf("invalid truth value %q", s)
	}
}
