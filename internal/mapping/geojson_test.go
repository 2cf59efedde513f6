package mapping

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
)

func TestMarkers(t *testing.T) {
	fc := Markers([]Marker{
		{ID: "12345678900012", Position: LatLng{45.76, 4.83}, Properties: map[string]any{"denomination": "BOULANGERIE"}},
	})
	require.Len(t, fc.Features, 1)

	pt, ok := fc.Features[0].Geometry.(*geom.Point)
	require.True(t, ok)
	assert.InDelta(t, 4.83, pt.X(), 1e-12)
	assert.InDelta(t, 45.76, pt.Y(), 1e-12)

	data, err := json.Marshal(fc)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"FeatureCollection"`)
	assert.Contains(t, string(data), `[4.83,45.76]`)
	assert.Contains(t, string(data), `"BOULANGERIE"`)
}

func TestMarkers_Empty(t *testing.T) {
	fc := Markers(nil)
	assert.Empty(t, fc.Features)
}

const communeFeature = `{"type":"Feature","properties":{"code":"69381","nom":"Lyon 1er Arrondissement"},
 "geometry":{"type":"Polygon","coordinates":[[[4.82,45.76],[4.84,45.76],[4.84,45.78],[4.82,45.76]]]}}`

const departementCollection = `{"type":"FeatureCollection","features":[
 {"type":"Feature","properties":{"code":"01"},"geometry":{"type":"Polygon","coordinates":[[[5,46],[6,46],[6,47],[5,46]]]}},
 {"type":"Feature","properties":{"code":"69"},"geometry":{"type":"Polygon","coordinates":[[[4,45],[5,45],[5,46],[4,45]]]}}]}`

func TestMergeBoundaries(t *testing.T) {
	fc := MergeBoundaries([][]byte{
		[]byte(communeFeature),
		nil,
		[]byte(`not json`),
		[]byte(`{"type":"Point","coordinates":[1,2]}`),
		[]byte(departementCollection),
	})

	require.Len(t, fc.Features, 3)
	assert.Equal(t, "69381", FeatureCode(fc.Features[0]))
	assert.Equal(t, "01", FeatureCode(fc.Features[1]))
	assert.Equal(t, "69", FeatureCode(fc.Features[2]))

	_, ok := fc.Features[0].Geometry.(*geom.Polygon)
	assert.True(t, ok)

	assert.Equal(t, []string{"69382"}, MissingBoundaries(fc, []string{"69381", "69382", "69"}))
}

func TestFeatureCode_Missing(t *testing.T) {
	assert.Equal(t, "", FeatureCode(nil))
	fc := MergeBoundaries([][]byte{[]byte(`{"type":"Feature","properties":{"code":75},"geometry":{"type":"Point","coordinates":[2.35,48.85]}}`)})
	require.Len(t, fc.Features, 1)
	assert.Equal(t, "", FeatureCode(fc.Features[0]))
}
