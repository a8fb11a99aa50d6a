package plugin

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// URLType classifies a resource reference the host is about to write.
type URLType int

const (
	URLTypeUnknown URLType = iota
	URLTypeHypeJS
	URLTypeResource
	URLTypeLink
	URLTypeResourcesFolder
)

// SameDirectory collapses the resources folder into the HTML file's directory.
const SameDirectory = "."

// URLInfo is the rewrite answer. ShouldPreload is omitted when the host gave
// no preload hint.
type URLInfo struct {
	URL           string `json:"url"`
	IsReference   bool   `json:"is_reference"`
	ShouldPreload *bool  `json:"should_preload,omitempty"`
}

// ParseURLType parses the numeric --url_type value.
func ParseURLType(s string) (URLType, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return URLTypeUnknown, fmt.Errorf("invalid url type %q", s)
	}
	return URLType(n), nil
}

// RewriteURL answers one rewrite query.
func RewriteURL(url string, kind URLType, isReference string, shouldPreload *string) (URLInfo, error) {
	ref, err := ParseBool(isReference)
	if err != nil {
		return URLInfo{}, fmt.Errorf("is_reference: %w", err)
	}
	info := URLInfo{URL: url, IsReference: ref}
	if shouldPreload != nil {
		p, err := ParseBool(*shouldPreload)
		if err != nil {
			return URLInfo{}, fmt.Errorf("should_preload: %w", err)
		}
		info.ShouldPreload = &p
	}
	if kind == URLTypeResourcesFolder {
		info.URL = SameDirectory
	}
	return info, nil
}

func replaceURL(_ context.Context, req Request, _ Deps) (Result, error) {
	kind, err := ParseURLType(req.URLType)
	if err != nil {
		return Result{}, err
	}
	var preload *string
	// The host may spell out a missing hint as "None".
	if req.HasPreload && !strings.EqualFold(strings.TrimSpace(req.ShouldPreload), "none") {
		preload = &req.ShouldPreload
	}
	info, err := RewriteURL(req.ReplaceURL, kind, req.IsReference, preload)
	if err != nil {
		return Result{}, err
	}
	return Value(info), nil
}

func init() {
	Register(OpReplaceURL, Operation{Handler: replaceURL, Policy: Propagate})
}
