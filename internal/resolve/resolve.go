// Package resolve provides the stock resolution strategies a host can hang
// on a context: a fixed in-memory map, and a directory scan that picks the
// best available manifest version. Both produce loader.Hook values.
package resolve

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/vk/modcell/internal/ctxlog"
	"github.com/vk/modcell/internal/fsutil"
	"github.com/vk/modcell/internal/loader"
	"github.com/vk/modcell/internal/manifest"
	"github.com/vk/modcell/internal/module"
	"github.com/vk/modcell/internal/version"
)

// None is the no-op strategy: it never answers. Useful for pinning a context
// to exactly what was loaded explicitly.
func None() loader.Hook {
	return func(context.Context, string) (*loader.Source, error) {
		return nil, nil
	}
}

// Map answers from a fixed simpleName -> payload-path table. Names outside
// the table are not handled.
func Map(paths map[string]string) loader.Hook {
	return func(ctx context.Context, simpleName string) (*loader.Source, error) {
		path, ok := paths[simpleName]
		if !ok {
			return nil, nil
		}
		return FromFile(ctx, simpleName, path)
	}
}

// Directory scans a directory tree of .hcl payloads and answers with the
// highest version found for the requested simple name. constraint narrows
// the acceptable versions; pass the zero Constraint to accept any.
//
// The scan happens per request, so payloads dropped into the directory after
// the context was created are still found.
func Directory(root string, constraint version.Constraint) loader.Hook {
	return func(ctx context.Context, simpleName string) (*loader.Source, error) {
		logger := ctxlog.FromContext(ctx)

		paths, err := fsutil.FindFilesByExtension(root, ".hcl")
		if err != nil {
			return nil, fmt.Errorf("resolve: scan %s: %w", root, err)
		}

		type candidate struct {
			path    string
			payload []byte
			version version.Version
		}
		var best *candidate

		for _, path := range paths {
			payload, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("resolve: read %s: %w", path, err)
			}
			mod, err := manifest.Parse(ctx, payload, filepath.Base(path))
			if err != nil {
				// Unparseable files in the search path are skipped, not fatal:
				// the directory may mix payloads with other HCL.
				logger.Debug("Skipping unparseable payload during scan.", "path", path, "error", err)
				continue
			}
			if mod.Name != simpleName {
				continue
			}
			if constraint != (version.Constraint{}) && !version.Satisfies(mod.Version, constraint) {
				continue
			}
			if best == nil || version.Compare(mod.Version, best.version) > 0 {
				best = &candidate{path: path, payload: payload, version: mod.Version}
			}
		}

		if best == nil {
			return nil, nil
		}
		logger.Debug("Directory scan selected payload.", "module", simpleName, "version", best.version.String(), "path", best.path)
		return &loader.Source{
			Identity: module.Identity{Name: simpleName, Version: best.version},
			Payload:  best.payload,
		}, nil
	}
}

// FromFile reads a payload from disk and checks it names the expected
// module. The declared version becomes the load identity.
func FromFile(ctx context.Context, simpleName, path string) (*loader.Source, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("resolve: read %s: %w", path, err)
	}
	mod, err := manifest.Parse(ctx, payload, filepath.Base(path))
	if err != nil {
		return nil, err
	}
	if mod.Name != simpleName {
		return nil, fmt.Errorf("resolve: %s declares module %q, expected %q", path, mod.Name, simpleName)
	}
	return &loader.Source{
		Identity: module.Identity{Name: mod.Name, Version: mod.Version},
		Payload:  payload,
	}, nil
}
