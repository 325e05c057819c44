package stack

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
)

// Match is the outcome of routing one request path through the entry point.
type Match struct {
	Route RouteBinding
	Unit  ComputeUnit
	// ForwardedPath is the path the service sees once the prefix is stripped.
	ForwardedPath string
}

// Resolve routes path the way the entry point does: a request reaches the
// unit whose prefix equals the path, or whose prefix is a segment-wise prefix
// of it when the binding matches sub-paths. A false result is a routing miss.
func (d Declaration) Resolve(path string) (Match, bool) {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	for _, r := range d.Routes {
		prefix := "/" + strings.Trim(r.PathPrefix, "/")
		var forwarded string
		switch {
		case path == prefix || path == prefix+"/":
			forwarded = "/"
		case r.MatchesSubPaths && strings.HasPrefix(path, prefix+"/"):
			forwarded = path[len(prefix):]
		default:
			continue
		}
		unit, ok := d.Unit(r.Target)
		if !ok {
			return Match{}, false
		}
		return Match{Route: r, Unit: unit, ForwardedPath: forwarded}, true
	}
	return Match{}, false
}

// Fingerprint is a stable digest of the declaration. Any change to services,
// routes or the entry point changes it.
func (d Declaration) Fingerprint() string {
	raw, err := json.Marshal(d)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}
