package geocoding

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"GazetteHere-App/internal/domain/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func newTestClient(url string) *NominatimClient {
	return NewNominatimClient(url).WithLimiter(rate.NewLimiter(rate.Inf, 1))
}

func TestNominatimClient_Search(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		assert.Equal(t, "1", r.URL.Query().Get("limit"))
		assert.NotEmpty(t, r.Header.Get("User-Agent"))

		switch r.URL.Query().Get("q") {
		case "Bayeux":
			w.Write([]byte(`[{"lat":"49.2764","lon":"-0.7024","display_name":"Bayeux, Calvados"}]`))
		default:
			w.Write([]byte(`[]`))
		}
	}))
	defer server.Close()
	client := newTestClient(server.URL)

	t.Run("最初の結果の座標を返す", func(t *testing.T) {
		coords, err := client.Search(context.Background(), "  Bayeux ")
		require.NoError(t, err)
		assert.Equal(t, model.LatLng{Lat: 49.2764, Lng: -0.7024}, *coords)
	})

	t.Run("結果がない場合", func(t *testing.T) {
		_, err := client.Search(context.Background(), "nowhere")
		assert.ErrorIs(t, err, model.ErrLocationNotFound)
	})

	t.Run("空の検索語", func(t *testing.T) {
		_, err := client.Search(context.Background(), "   ")
		assert.ErrorIs(t, err, model.ErrEmptyQuery)
	})
}

func TestNominatimClient_Reverse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/reverse", r.URL.Path)
		assert.Equal(t, "10", r.URL.Query().Get("zoom"))
		assert.Equal(t, "1", r.URL.Query().Get("addressdetails"))
		assert.Equal(t, "49.2764", r.URL.Query().Get("lat"))
		assert.Equal(t, "-0.7024", r.URL.Query().Get("lon"))
		w.Write([]byte(`{"display_name":"Bayeux, Calvados, Normandie, France","address":{"town":"Bayeux","county":"Calvados","state":"Normandie","country":"France"}}`))
	}))
	defer server.Close()

	lc, err := newTestClient(server.URL).Reverse(context.Background(), model.LatLng{Lat: 49.2764, Lng: -0.7024})

	require.NoError(t, err)
	assert.Equal(t, "Bayeux, Calvados, Normandie, France", lc.DisplayName)
	assert.Equal(t, "France", lc.Country())
	assert.Equal(t, "Bayeux, Calvados, Normandie, France", lc.FormattedName())
	assert.Equal(t, model.LatLng{Lat: 49.2764, Lng: -0.7024}, lc.Coordinates)
}

func TestNominatimClient_Errors(t *testing.T) {
	t.Run("エラーステータス", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer server.Close()

		_, err := newTestClient(server.URL).Reverse(context.Background(), model.LatLng{})
		assert.Error(t, err)
	})

	t.Run("海上などで住所がない場合", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"error":"Unable to geocode"}`))
		}))
		defer server.Close()

		_, err := newTestClient(server.URL).Reverse(context.Background(), model.LatLng{Lat: 0, Lng: -30})
		assert.Error(t, err)
	})
}
