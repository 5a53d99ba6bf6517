package geocoding

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"GazetteHere-App/internal/domain/model"
	"GazetteHere-App/internal/domain/repository"

	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL はOpenStreetMap NominatimのURL
	DefaultBaseURL = "https://nominatim.openstreetmap.org"
	userAgent      = "GazetteHere/1.0"
)

// NominatimClient はNominatim APIを使用した地名検索と逆ジオコーディングの実装
type NominatimClient struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewNominatimClient は新しいクライアントを生成する（利用規約に従い1秒1リクエストに制限）
func NewNominatimClient(baseURL string) *NominatimClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &NominatimClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		limiter:    rate.NewLimiter(rate.Every(time.Second), 1),
	}
}

// WithLimiter レート制限を差し替える
func (c *NominatimClient) WithLimiter(limiter *rate.Limiter) *NominatimClient {
	c.limiter = limiter
	return c
}

type searchResult struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

type reverseResult struct {
	DisplayName string            `json:"display_name"`
	Address     map[string]string `json:"address"`
	Error       string            `json:"error"`
}

// Search は自由入力の地名から最も一致する座標を取得する
func (c *NominatimClient) Search(ctx context.Context, query string) (*model.LatLng, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, model.ErrEmptyQuery
	}

	params := url.Values{}
	params.Set("format", "json")
	params.Set("q", query)
	params.Set("limit", "1")

	var results []searchResult
	if err := c.get(ctx, "/search", params, &results); err != nil {
		return nil, fmt.Errorf("地名検索に失敗: %w", err)
	}
	if len(results) == 0 {
		return nil, model.ErrLocationNotFound
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return nil, fmt.Errorf("緯度のパースに失敗: %w", err)
	}
	lng, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return nil, fmt.Errorf("経度のパースに失敗: %w", err)
	}
	return &model.LatLng{Lat: lat, Lng: lng}, nil
}

// Reverse は座標から表示名と住所を取得する
func (c *NominatimClient) Reverse(ctx context.Context, coords model.LatLng) (*model.LocationContext, error) {
	params := url.Values{}
	params.Set("format", "json")
	params.Set("lat", strconv.FormatFloat(coords.Lat, 'f', -1, 64))
	params.Set("lon", strconv.FormatFloat(coords.Lng, 'f', -1, 64))
	params.Set("zoom", "10")
	params.Set("addressdetails", "1")

	var result reverseResult
	if err := c.get(ctx, "/reverse", params, &result); err != nil {
		return nil, fmt.Errorf("逆ジオコーディングに失敗: %w", err)
	}
	if result.Error != "" {
		return nil, fmt.Errorf("逆ジオコーディングに失敗: %s", result.Error)
	}

	address := result.Address
	if address == nil {
		address = map[string]string{}
	}
	return &model.LocationContext{
		DisplayName: result.DisplayName,
		Address:     address,
		Coordinates: coords,
	}, nil
}

func (c *NominatimClient) get(ctx context.Context, path string, params url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("レート制限の待機に失敗: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("リクエストの作成に失敗: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("APIリクエストに失敗: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("APIからエラーステータスが返されました: %s", resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("JSONのパースに失敗: %w", err)
	}
	return nil
}

var _ repository.GeocodingRepository = (*NominatimClient)(nil)
