package mapping

import (
	"encoding/json"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"
)

// Marker is one point to place on the map.
type Marker struct {
	ID         string
	Position   LatLng
	Properties map[string]any
}

// Markers builds a FeatureCollection of points. GeoJSON positions are
// [longitude, latitude].
func Markers(markers []Marker) *geojson.FeatureCollection {
	fc := &geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, len(markers))}
	for _, m := range markers {
		pt := geom.NewPointFlat(geom.XY, []float64{m.Position.Lng(), m.Position.Lat()})
		fc.Features = append(fc.Features, &geojson.Feature{
			ID:         m.ID,
			Geometry:   pt,
			Properties: m.Properties,
		})
	}
	return fc
}

// CodeProperty is the feature property that joins a boundary to a geographic
// unit code.
const CodeProperty = "code"

// MergeBoundaries combines per-unit boundary responses into one collection.
// A body may be a Feature or a FeatureCollection. Nil bodies (failed fetches)
// are skipped; undecodable ones are logged and skipped.
func MergeBoundaries(bodies [][]byte) *geojson.FeatureCollection {
	fc := &geojson.FeatureCollection{Features: []*geojson.Feature{}}
	for i, body := range bodies {
		if body == nil {
			continue
		}
		features, err := decodeFeatures(body)
		if err != nil {
			zap.L().Warn("mapping: skipping boundary", zap.Int("index", i), zap.Error(err))
			continue
		}
		fc.Features = append(fc.Features, features...)
	}
	return fc
}

func decodeFeatures(body []byte) ([]*geojson.Feature, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(body, &head); err != nil {
		return nil, eris.Wrap(err, "mapping: read geojson type")
	}
	switch head.Type {
	case "FeatureCollection":
		var fc geojson.FeatureCollection
		if err := json.Unmarshal(body, &fc); err != nil {
			return nil, eris.Wrap(err, "mapping: decode feature collection")
		}
		return fc.Features, nil
	case "Feature":
		var f geojson.Feature
		if err := json.Unmarshal(body, &f); err != nil {
			return nil, eris.Wrap(err, "mapping: decode feature")
		}
		return []*geojson.Feature{&f}, nil
	default:
		return nil, eris.Errorf("mapping: unexpected geojson type %q", head.Type)
	}
}

// FeatureCode returns the join code of a boundary feature.
func FeatureCode(f *geojson.Feature) string {
	if f == nil {
		return ""
	}
	if code, ok := f.Properties[CodeProperty].(string); ok {
		return code
	}
	return ""
}

// MissingBoundaries lists the requested codes that have no feature.
func MissingBoundaries(fc *geojson.FeatureCollection, codes []string) []string {
	have := make(map[string]struct{}, len(fc.Features))
	for _, f := range fc.Features {
		have[FeatureCode(f)] = struct{}{}
	}
	var missing []string
	for _, c := range codes {
		if _, ok := have[c]; !ok {
			missing = append(missing, c)
		}
	}
	return missing
}
