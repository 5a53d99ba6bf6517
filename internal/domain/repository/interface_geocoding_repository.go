package repository

import (
	"GazetteHere-App/internal/domain/model"
	"context"
)

// GeocodingRepository は地名検索と逆ジオコーディングの責務を持つリポジトリインターフェース
type GeocodingRepository interface {
	// Search は自由入力の地名から座標を取得する（見つからない場合は model.ErrLocationNotFound）
	Search(ctx context.Context, query string) (*model.LatLng, error)

	// Reverse は座標から場所の情報を取得する
	Reverse(ctx context.Context, coords model.LatLng) (*model.LocationContext, error)
}
