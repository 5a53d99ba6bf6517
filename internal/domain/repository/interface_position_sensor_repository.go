package repository

import (
	"GazetteHere-App/internal/domain/model"
	"context"
)

// PositionSensor は端末の測位機能を抽象化したインターフェース
type PositionSensor interface {
	// CurrentPosition は1回分の測位結果を取得する（opts.Timeout を超えると timeout エラー）
	CurrentPosition(ctx context.Context, opts model.SensorOptions) (*model.Position, error)

	// Watch は測位結果のストリームを購読する。ctx がキャンセルされるとチャネルは閉じられる
	Watch(ctx context.Context, opts model.SensorOptions) (<-chan model.SensorReading, error)
}
