package sitehandler

import (
	"strings"

	"github.com/keithlinneman/socialblog/internal/pathutil"
)

// cleanAssetPath maps the /static/* remainder to a name inside the static
// FS. ok is false for anything fs.ValidPath would reject or that contains
// dot segments.
func cleanAssetPath(rest string) (string, bool) {
	name := strings.TrimPrefix(rest, "/")
	if name == "" || strings.HasSuffix(name, "/") {
		return "", false
	}
	if strings.Contains(name, "\x00") || strings.Contains(name, "\\") {
		return "", false
	}
	if pathutil.HasDotSegments(name) {
		return "", false
	}
	return name, true
}
