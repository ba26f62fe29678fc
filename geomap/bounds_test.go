package geomap

import (
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoundsEmpty(t *testing.T) {
	assert.Nil(t, Bounds())
	assert.Nil(t, LayerBounds(map[string]orb.Geometry{}))
	assert.Nil(t, Bounds(nil, orb.Collection{}))
	assert.Nil(t, Bounds(orb.Point{math.NaN(), 1}))
}

func TestBoundsWalksCollections(t *testing.T) {
	g := orb.Collection{
		orb.Point{-3, 4},
		orb.Collection{
			orb.LineString{{0, 0}, {10, -2}},
			orb.MultiPolygon{{{{1, 1}, {2, 8}, {3, 1}, {1, 1}}}},
		},
	}

	b := Bounds(g)
	require.NotNil(t, b)
	assert.Equal(t, orb.Point{-3, -2}, b.Min)
	assert.Equal(t, orb.Point{10, 8}, b.Max)
}

func TestFocusBoundsPrefersPrimaryLayers(t *testing.T) {
	m := &NormalizedMap{Layers: map[string]orb.Geometry{
		"trees":     orb.MultiPoint{{500, 500}},
		"buildings": orb.Polygon{{{0, 0}, {10, 0}, {10, 10}, {0, 0}}},
		"districts": orb.Polygon{{{-5, -5}, {20, -5}, {20, 20}, {-5, -5}}},
	}}

	b := FocusBounds(m)
	require.NotNil(t, b)
	assert.Equal(t, orb.Point{-5, -5}, b.Min)
	assert.Equal(t, orb.Point{20, 20}, b.Max)
}

func TestFocusBoundsFallsBackToAllLayers(t *testing.T) {
	m := &NormalizedMap{Layers: map[string]orb.Geometry{
		"values": nil,
		"trees":  orb.MultiPoint{{1, 2}, {3, 7}},
		"roads":  orb.LineString{{-1, 0}, {2, 2}},
	}}

	b := FocusBounds(m)
	require.NotNil(t, b)
	assert.Equal(t, orb.Point{-1, 0}, b.Min)
	assert.Equal(t, orb.Point{3, 7}, b.Max)

	assert.Nil(t, FocusBounds(nil))
	assert.Nil(t, FocusBounds(&NormalizedMap{Layers: map[string]orb.Geometry{"values": nil}}))
}
