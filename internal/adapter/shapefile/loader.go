// Package shapefile loads vector layers from ESRI shapefiles and normalizes
// them to the canonical CRS, with a TTL cache in front of the reads.
package shapefile

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/ctessum/geom/encoding/shp"
	"github.com/ctessum/geom/proj"

	"github.com/evaqua/glacier-risk-core/internal/domain"
)

// Loader implements domain.LayerLoader for shapefiles. Geometry is
// reprojected to EPSG:4326 when the .prj declares another reference; a
// missing .prj is treated as undeclared and the canonical CRS is assumed.
type Loader struct {
	fields []string // attribute columns to keep; empty keeps none
	logger *slog.Logger
}

// NewLoader creates a shapefile loader retaining the named attribute columns.
func NewLoader(logger *slog.Logger, fields ...string) *Loader {
	return &Loader{fields: fields, logger: logger}
}

// Load reads, validates, and reprojects one shapefile.
func (l *Loader) Load(ctx context.Context, path string) (domain.SpatialLayer, error) {
	if err := ctx.Err(); err != nil {
		return domain.SpatialLayer{}, err
	}

	fi, err := os.Stat(path)
	if err != nil {
		return domain.SpatialLayer{}, &domain.LoadError{Path: path, Err: err}
	}

	dec, err := shp.NewDecoder(path)
	if err != nil {
		return domain.SpatialLayer{}, &domain.LoadError{Path: path, Err: err}
	}
	defer dec.Close()

	canonical, err := proj.Parse(domain.CanonicalProj)
	if err != nil {
		return domain.SpatialLayer{}, &domain.ProjectionError{Path: path, SourceSR: domain.CanonicalProj, Err: err}
	}

	var transform proj.Transformer
	if sr, srErr := dec.SR(); srErr != nil {
		l.logger.Warn("layer has no usable spatial reference, assuming WGS-84",
			"path", path, "error", srErr)
	} else {
		transform, err = sr.NewTransform(canonical)
		if err != nil {
			return domain.SpatialLayer{}, &domain.ProjectionError{Path: path, SourceSR: sr.Name, Err: err}
		}
	}

	var features []domain.Feature
	for {
		g, fields, more := dec.DecodeRowFields(l.fields...)
		if !more {
			break
		}
		if transform != nil {
			g, err = g.Transform(transform)
			if err != nil {
				return domain.SpatialLayer{}, &domain.ProjectionError{Path: path, SourceSR: "", Err: err}
			}
		}
		features = append(features, domain.Feature{Geom: g, Fields: fields})
	}
	if err := dec.Error(); err != nil {
		return domain.SpatialLayer{}, &domain.LoadError{Path: path, Err: err}
	}

	layer := domain.SpatialLayer{
		Name:        strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		Path:        path,
		Fingerprint: fmt.Sprintf("%s|%d|%d", path, fi.Size(), fi.ModTime().UnixNano()),
		Features:    features,
		LoadedAt:    domain.Now(),
	}

	l.logger.Debug("layer loaded", "path", path, "features", len(features))
	return layer, nil
}
