package stack

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNoServices         = errors.New("no services declared")
	ErrDuplicateService   = errors.New("duplicate service")
	ErrInvalidPrefix      = errors.New("invalid path prefix")
	ErrOverlappingRoutes  = errors.New("overlapping route prefixes")
	ErrUnknownTarget      = errors.New("route targets unknown compute unit")
	ErrUnroutedService    = errors.New("service has no route")
	ErrMissingEntryPoint  = errors.New("entry point name required")
	ErrMissingSourcePath  = errors.New("service source path required")
	ErrMissingServiceName = errors.New("service name required")
)

// Validate checks the declaration's invariants. Prefixes must be rooted,
// non-empty, and disjoint; every route must target a declared unit and every
// unit must be routed exactly once.
func (d Declaration) Validate() error {
	if strings.TrimSpace(d.API.Name) == "" {
		return ErrMissingEntryPoint
	}
	if len(d.Services) == 0 {
		return ErrNoServices
	}

	names := make(map[string]bool, len(d.Services))
	resources := make(map[string]bool, len(d.Services))
	for _, svc := range d.Services {
		if strings.TrimSpace(svc.Name) == "" {
			return ErrMissingServiceName
		}
		if strings.TrimSpace(svc.SourcePath) == "" {
			return fmt.Errorf("%w: %s", ErrMissingSourcePath, svc.Name)
		}
		if names[svc.Name] {
			return fmt.Errorf("%w: %s", ErrDuplicateService, svc.Name)
		}
		if svc.Resource != "" && resources[svc.Resource] {
			return fmt.Errorf("%w: resource %s", ErrDuplicateService, svc.Resource)
		}
		names[svc.Name] = true
		resources[svc.Resource] = true
	}

	routed := make(map[string]int, len(d.Routes))
	for i, r := range d.Routes {
		if _, err := segments(r.PathPrefix); err != nil {
			return err
		}
		if !names[r.Target] {
			return fmt.Errorf("%w: %s -> %s", ErrUnknownTarget, r.PathPrefix, r.Target)
		}
		routed[r.Target]++
		for _, other := range d.Routes[:i] {
			if overlaps(r.PathPrefix, other.PathPrefix) {
				return fmt.Errorf("%w: %s and %s", ErrOverlappingRoutes, other.PathPrefix, r.PathPrefix)
			}
		}
	}
	for _, svc := range d.Services {
		if routed[svc.Name] != 1 {
			return fmt.Errorf("%w: %s bound %d times", ErrUnroutedService, svc.Name, routed[svc.Name])
		}
	}
	return nil
}

// segments splits a rooted prefix like "/users" into its path segments.
func segments(prefix string) ([]string, error) {
	if !strings.HasPrefix(prefix, "/") {
		return nil, fmt.Errorf("%w: %q must start with /", ErrInvalidPrefix, prefix)
	}
	trimmed := strings.Trim(prefix, "/")
	if trimmed == "" {
		return nil, fmt.Errorf("%w: %q binds the API root", ErrInvalidPrefix, prefix)
	}
	parts := strings.Split(trimmed, "/")
	for _, p := range parts {
		if p == "" || strings.ContainsAny(p, "{}*") {
			return nil, fmt.Errorf("%w: %q", ErrInvalidPrefix, prefix)
		}
	}
	return parts, nil
}

// overlaps reports whether one prefix is a segment-wise prefix of the other.
// "/users" overlaps "/users/admin" but not "/usersx".
func overlaps(a, b string) bool {
	as, err := segments(a)
	if err != nil {
		return false
	}
	bs, err := segments(b)
	if err != nil {
		return false
	}
	if len(bs) < len(as) {
		as, bs = bs, as
	}
	for i := range as {
		if as[i] != bs[i] {
			return false
		}
	}
	return true
}
