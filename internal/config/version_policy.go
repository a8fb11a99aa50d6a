package config

import (
	"fmt"
	"slices"
	"strings"
)

// CurrentConfigVersion is the configVersion written by this release.
const CurrentConfigVersion = "1"

// SupportedConfigVersions lists every configVersion Load accepts.
var SupportedConfigVersions = []string{CurrentConfigVersion}

// IsSupportedConfigVersion reports whether v can be loaded.
func IsSupportedConfigVersion(v string) bool {
	return slices.Contains(SupportedConfigVersions, v)
}

func checkConfigVersion(v string) error {
	if IsSupportedConfigVersion(v) {
		return nil
	}
	return fmt.Errorf("unsupported configVersion: %q (supported: %s)", v, strings.Join(SupportedConfigVersions, ", "))
}
