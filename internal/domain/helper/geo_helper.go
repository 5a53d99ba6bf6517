package helper

import (
	"math"

	"github.com/paulmach/orb"
)

const earthRadiusMeters = 6371000.0

// Distance は2地点間の大円距離を計算する (m)
// Position / LatLng / orb.Point のいずれも orb.Pointer として渡せる
func Distance(a, b orb.Pointer) float64 {
	p1 := a.Point()
	p2 := b.Point()
	if p1.Equal(p2) {
		return 0
	}

	lat1 := p1.Lat() * math.Pi / 180
	lat2 := p2.Lat() * math.Pi / 180
	dLat := lat2 - lat1
	dLng := (p2.Lon() - p1.Lon()) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return earthRadiusMeters * c
}

// WithinMeters は2地点間の距離が指定メートル以内かどうか
func WithinMeters(a, b orb.Pointer, meters float64) bool {
	return Distance(a, b) <= meters
}

// WithinTolerance は点が中心座標から度単位の許容範囲（矩形）に入っているかどうか
func WithinTolerance(p, center orb.Pointer, toleranceDegrees float64) bool {
	c := center.Point()
	bound := orb.Bound{Min: c, Max: c}.Pad(toleranceDegrees)
	return bound.Contains(p.Point())
}
