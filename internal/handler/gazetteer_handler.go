package handler

import (
	"errors"
	"net/http"
	"time"

	"GazetteHere-App/internal/domain/model"
	"GazetteHere-App/internal/usecase"

	"github.com/gin-gonic/gin"
)

// ReadingSink は端末から送られた測位結果を受け取る
type ReadingSink interface {
	Push(reading model.SensorReading)
}

// GazetteerHandler は位置取得と会話APIのハンドラー
type GazetteerHandler struct {
	useCase usecase.GazetteerUseCase
	sink    ReadingSink
}

// NewGazetteerHandler は新しいGazetteerHandlerインスタンスを作成
func NewGazetteerHandler(useCase usecase.GazetteerUseCase, sink ReadingSink) *GazetteerHandler {
	return &GazetteerHandler{
		useCase: useCase,
		sink:    sink,
	}
}

// PostSensorReading は端末の測位結果を受け付けるエンドポイント
// POST /api/sensor/readings
func (h *GazetteerHandler) PostSensorReading(c *gin.Context) {
	if h.sink == nil {
		c.JSON(http.StatusNotImplemented, gin.H{
			"error":   "sensor_unavailable",
			"message": "This server does not accept device readings.",
		})
		return
	}

	var req model.SensorReadingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Invalid JSON format: " + err.Error(),
		})
		return
	}

	reading, err := req.ToSensorReading(time.Now())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": err.Error(),
		})
		return
	}

	h.sink.Push(reading)
	c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
}

// PostCurrentLocation は現在地を1回取得するエンドポイント
// POST /api/location/current
func (h *GazetteerHandler) PostCurrentLocation(c *gin.Context) {
	response, err := h.useCase.LocateOnce(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response)
}

// PostForcedLocation は精度優先で現在地を取得するエンドポイント
// POST /api/location/forced
func (h *GazetteerHandler) PostForcedLocation(c *gin.Context) {
	response, err := h.useCase.LocateForced(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response)
}

// PostSearchLocation は地名で場所を指定するエンドポイント
// POST /api/location/search
func (h *GazetteerHandler) PostSearchLocation(c *gin.Context) {
	var req model.LocationSearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Invalid JSON format: " + err.Error(),
		})
		return
	}

	response, err := h.useCase.SearchLocation(c.Request.Context(), req.Query)
	if err != nil {
		if isUnclassified(err) {
			c.JSON(http.StatusBadGateway, gin.H{
				"error":   "search_failed",
				"message": usecase.SearchErrorMessage,
			})
			return
		}
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response)
}

// PostStartTracking は継続追跡を開始するエンドポイント
// POST /api/tracking/start
func (h *GazetteerHandler) PostStartTracking(c *gin.Context) {
	status, err := h.useCase.StartTracking(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

// PostStopTracking は継続追跡を停止するエンドポイント
// POST /api/tracking/stop
func (h *GazetteerHandler) PostStopTracking(c *gin.Context) {
	c.JSON(http.StatusOK, h.useCase.StopTracking())
}

// GetTracking は測位モードを取得するエンドポイント
// GET /api/tracking
func (h *GazetteerHandler) GetTracking(c *gin.Context) {
	c.JSON(http.StatusOK, h.useCase.TrackingStatus())
}

// PostChat はユーザーメッセージに応答するエンドポイント
// POST /api/chat
func (h *GazetteerHandler) PostChat(c *gin.Context) {
	var req model.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Invalid JSON format: " + err.Error(),
		})
		return
	}

	response, err := h.useCase.Chat(c.Request.Context(), req.Message)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response)
}

// GetSession は現在のセッション状態を取得するエンドポイント
// GET /api/session
func (h *GazetteerHandler) GetSession(c *gin.Context) {
	c.JSON(http.StatusOK, h.useCase.Snapshot())
}

// respondError はユースケースのエラーをHTTPレスポンスに変換する
func respondError(c *gin.Context, err error) {
	if acqErr, ok := model.AsAcquisitionError(err); ok {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":   string(acqErr.Kind),
			"message": acqErr.UserMessage(),
		})
		return
	}

	switch {
	case errors.Is(err, model.ErrTrackingActive):
		c.JSON(http.StatusConflict, gin.H{"error": "tracking_active", "message": err.Error()})
	case errors.Is(err, model.ErrNoLocation):
		c.JSON(http.StatusConflict, gin.H{"error": "no_location", "message": "Set a location before starting a conversation."})
	case errors.Is(err, model.ErrEmptyQuery):
		c.JSON(http.StatusBadRequest, gin.H{"error": "empty_query", "message": usecase.SearchEmptyMessage})
	case errors.Is(err, model.ErrEmptyMessage):
		c.JSON(http.StatusBadRequest, gin.H{"error": "empty_message", "message": "Message must not be empty."})
	case errors.Is(err, model.ErrLocationNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "location_not_found", "message": usecase.SearchNotFoundMessage})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": err.Error()})
	}
}

// isUnclassified 既知のエラー種別に当てはまらないか
func isUnclassified(err error) bool {
	if _, ok := model.AsAcquisitionError(err); ok {
		return false
	}
	for _, known := range []error{model.ErrTrackingActive, model.ErrNoLocation, model.ErrEmptyQuery, model.ErrEmptyMessage, model.ErrLocationNotFound} {
		if errors.Is(err, known) {
			return false
		}
	}
	return true
}
