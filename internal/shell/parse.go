package shell

import (
	"strings"

	"github.com/Wender13/BigFS/internal/rpcwire"
	"github.com/bmatcuk/doublestar/v4"
)

// ParsePath normalizes a user-supplied BigFS path: the bfs:// scheme prefix
// and surrounding slashes are stripped, leaving the opaque flat name the
// cluster knows the file by.
func ParsePath(p string) string {
	p = strings.TrimPrefix(p, "bfs://")
	return strings.Trim(p, "/")
}

// FilterFiles returns the files whose names match the glob pattern. The
// metadata service ignores its path filter, so pattern matching happens
// here, with doublestar semantics ("reports/**/*.log"). An empty or invalid
// pattern passes everything through.
func FilterFiles(pattern string, files []rpcwire.FileInfo) []rpcwire.FileInfo {
	if pattern == "" {
		return files
	}
	out := make([]rpcwire.FileInfo, 0, len(files))
	for _, f := range files {
		ok, err := doublestar.Match(pattern, f.Filename)
		if err != nil {
			return files
		}
		if ok {
			out = append(out, f)
		}
	}
	return out
}
