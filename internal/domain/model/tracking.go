package model

// TrackingMode 現在有効な測位モード（同時に1つのみ）
type TrackingMode string

const (
	TrackingIdle              TrackingMode = "idle"
	TrackingSingleShot        TrackingMode = "single_shot"
	TrackingForcedMultiSample TrackingMode = "forced_multi_sample"
	TrackingContinuous        TrackingMode = "continuous"
)

// GateDecision 場所変化ゲートの判定結果
type GateDecision string

const (
	GateSameArea GateDecision = "same_area"
	GateNewPlace GateDecision = "new_place"
)

// LocationUpdateStatus 位置更新APIの結果種別
type LocationUpdateStatus string

const (
	// LocationNoUpdate 直前の採用位置から50m以内のためゲートに渡さなかった
	LocationNoUpdate LocationUpdateStatus = "no_update"
	LocationSameArea LocationUpdateStatus = "same_area"
	LocationNewPlace LocationUpdateStatus = "new_place"
)

// StatusFromDecision ゲート判定をAPIの結果種別に変換
func StatusFromDecision(d GateDecision) LocationUpdateStatus {
	if d == GateNewPlace {
		return LocationNewPlace
	}
	return LocationSameArea
}
