package helper

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"

	"GazetteHere-App/internal/domain/model"
)

var paris = model.LatLng{Lat: 48.8566, Lng: 2.3522}

func TestDistance(t *testing.T) {
	t.Run("同一地点は0", func(t *testing.T) {
		assert.Equal(t, 0.0, Distance(paris, paris))
	})

	t.Run("対称性", func(t *testing.T) {
		bayeux := model.LatLng{Lat: 49.2764, Lng: -0.7024}
		assert.Equal(t, Distance(paris, bayeux), Distance(bayeux, paris))
	})

	t.Run("パリ-バイユー間は約227km", func(t *testing.T) {
		bayeux := model.LatLng{Lat: 49.2764, Lng: -0.7024}
		assert.InEpsilon(t, 227_360.0, Distance(paris, bayeux), 0.01)
	})

	t.Run("緯度0.001度は約111m", func(t *testing.T) {
		north := model.LatLng{Lat: 48.8576, Lng: 2.3522}
		assert.InDelta(t, 111.19, Distance(paris, north), 0.1)
	})

	t.Run("PositionとLatLngを混在できる", func(t *testing.T) {
		pos := model.Position{Latitude: 48.85665, Longitude: 2.3522}
		assert.InDelta(t, 5.56, Distance(pos, paris), 0.01)
		assert.InDelta(t, 5.56, Distance(paris, orb.Point{2.3522, 48.85665}), 0.01)
	})
}

func TestWithinMeters(t *testing.T) {
	near := model.LatLng{Lat: 48.8570, Lng: 2.3522} // 約44m
	assert.True(t, WithinMeters(paris, near, 50))
	assert.False(t, WithinMeters(paris, near, 40))
}

func TestWithinTolerance(t *testing.T) {
	assert.True(t, WithinTolerance(model.LatLng{Lat: 48.8570, Lng: 2.3530}, paris, 0.001))
	assert.False(t, WithinTolerance(model.LatLng{Lat: 48.8590, Lng: 2.3522}, paris, 0.001))
}
