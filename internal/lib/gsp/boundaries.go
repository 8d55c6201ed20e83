// Package gsp loads grid supply point region boundaries.
package gsp

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/rs/zerolog"
)

// GSPIDProperty is the feature property carrying the GSP id.
const GSPIDProperty = "gsp_id"

// BoundaryProvider returns the GSP boundaries as a GeoJSON feature collection.
type BoundaryProvider interface {
	Boundaries(ctx context.Context) (*geojson.FeatureCollection, error)
}

// FileBoundaryProvider reads the boundaries from a GeoJSON file on disk.
// The file is parsed once; a failed read is retried on the next call.
type FileBoundaryProvider struct {
	path string
	log  *zerolog.Logger

	mu     sync.Mutex
	loaded *geojson.FeatureCollection
}

// NewFileBoundaryProvider returns a provider backed by the file at path.
func NewFileBoundaryProvider(path string, logger *zerolog.Logger) *FileBoundaryProvider {
	return &FileBoundaryProvider{path: path, log: logger}
}

func (p *FileBoundaryProvider) Boundaries(_ context.Context) (*geojson.FeatureCollection, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.loaded != nil {
		return p.loaded, nil
	}

	data, err := os.ReadFile(p.path)
	if err != nil {
		return nil, fmt.Errorf("reading gsp boundaries: %w", err)
	}

	fc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing gsp boundaries %s: %w", p.path, err)
	}

	p.log.Info().
		Str("path", p.path).
		Int("features", len(fc.Features)).
		Msg("loaded gsp boundaries")

	p.loaded = fc
	return fc, nil
}

// Parse decodes a feature collection and checks each feature is a polygon
// tagged with a GSP id.
func Parse(data []byte) (*geojson.FeatureCollection, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, err
	}

	for i, f := range fc.Features {
		switch f.Geometry.(type) {
		case orb.Polygon, orb.MultiPolygon:
		default:
			return nil, fmt.Errorf("feature %d: unsupported geometry %T", i, f.Geometry)
		}
		if _, ok := f.Properties[GSPIDProperty]; !ok {
			return nil, fmt.Errorf("feature %d: missing %q property", i, GSPIDProperty)
		}
	}

	return fc, nil
}
