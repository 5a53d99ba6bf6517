package service

import (
	"testing"

	"GazetteHere-App/internal/domain/model"

	"github.com/stretchr/testify/assert"
)

func TestLocationGate_Classify(t *testing.T) {
	gate := NewLocationGate(0)
	paris := model.Position{Latitude: 48.8566, Longitude: 2.3522}

	t.Run("現在位置がない場合は常にNewPlace", func(t *testing.T) {
		assert.Equal(t, model.GateNewPlace, gate.Classify(nil, paris))
	})

	t.Run("同じ座標はSameArea", func(t *testing.T) {
		current := paris
		assert.Equal(t, model.GateSameArea, gate.Classify(&current, paris))
	})

	t.Run("約111m北はNewPlace", func(t *testing.T) {
		current := paris
		north := model.Position{Latitude: 48.8576, Longitude: 2.3522}
		assert.Equal(t, model.GateNewPlace, gate.Classify(&current, north))
	})

	t.Run("約5.5mの移動はSameArea", func(t *testing.T) {
		current := paris
		near := model.Position{Latitude: 48.85665, Longitude: 2.3522}
		assert.Equal(t, model.GateSameArea, gate.Classify(&current, near))
	})

	t.Run("しきい値を指定できる", func(t *testing.T) {
		strict := NewLocationGate(3)
		current := paris
		near := model.Position{Latitude: 48.85665, Longitude: 2.3522}
		assert.Equal(t, model.GateNewPlace, strict.Classify(&current, near))
	})
}
