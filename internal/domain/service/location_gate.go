package service

import (
	"GazetteHere-App/internal/domain/helper"
	"GazetteHere-App/internal/domain/model"
)

// 距離のしきい値（メートル）
const (
	SameAreaSuppressMeters   = 50.0  // 単発取得で「同じエリア」とみなす距離
	NewPlaceThresholdMeters  = 100.0 // Gateが新しい場所と判定する距離
	ContinuousMovementMeters = 200.0 // 継続追跡でGateに転送する移動距離
)

// LocationGate は新しい測位結果が「新しい場所」かどうかを判定する
type LocationGate interface {
	Classify(current *model.Position, incoming model.Position) model.GateDecision
}

type locationGate struct {
	thresholdMeters float64
}

// NewLocationGate は新しいLocationGateを作成（thresholdMeters が0以下なら100m）
func NewLocationGate(thresholdMeters float64) LocationGate {
	if thresholdMeters <= 0 {
		thresholdMeters = NewPlaceThresholdMeters
	}
	return &locationGate{thresholdMeters: thresholdMeters}
}

// Classify 現在位置が未記録、またはしきい値を超えて離れていればNewPlace
func (g *locationGate) Classify(current *model.Position, incoming model.Position) model.GateDecision {
	if current == nil {
		return model.GateNewPlace
	}
	if helper.Distance(*current, incoming) > g.thresholdMeters {
		return model.GateNewPlace
	}
	return model.GateSameArea
}
