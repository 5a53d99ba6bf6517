package model

import (
	"fmt"
	"strings"
)

// LocationContext 逆ジオコーディングで得られた場所の情報
type LocationContext struct {
	DisplayName string            `json:"display_name"`
	Address     map[string]string `json:"address,omitempty"` // country, city/town/village, state, county など（全て任意）
	Coordinates LatLng            `json:"coordinates"`
}

// NewFallbackLocationContext 逆ジオコーディングに失敗した場合の最小限のコンテキスト
func NewFallbackLocationContext(coords LatLng) *LocationContext {
	return &LocationContext{
		DisplayName: fmt.Sprintf("Location at %.4f, %.4f", coords.Lat, coords.Lng),
		Address:     map[string]string{},
		Coordinates: coords,
	}
}

// AddressField 住所フィールドを取得（存在しない場合は空文字列）
func (c *LocationContext) AddressField(name string) string {
	if c == nil || c.Address == nil {
		return ""
	}
	return c.Address[name]
}

// Locality village / town / city のうち最初に見つかったもの
func (c *LocationContext) Locality() string {
	return firstNonEmpty(c.AddressField("village"), c.AddressField("town"), c.AddressField("city"))
}

// Country 国名
func (c *LocationContext) Country() string {
	return c.AddressField("country")
}

// FormattedName 表示用の地名（集落, 郡, 州, 国）を組み立てる
func (c *LocationContext) FormattedName() string {
	if c == nil {
		return ""
	}

	parts := make([]string, 0, 4)
	if locality := c.Locality(); locality != "" {
		parts = append(parts, locality)
	}
	if county := firstNonEmpty(c.AddressField("county"), c.AddressField("state_district")); county != "" {
		parts = append(parts, county)
	}
	if state := c.AddressField("state"); state != "" {
		parts = append(parts, state)
	}
	if country := c.Country(); country != "" {
		parts = append(parts, country)
	}

	if len(parts) == 0 {
		return c.DisplayName
	}
	return strings.Join(parts, ", ")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
