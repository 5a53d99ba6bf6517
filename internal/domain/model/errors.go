package model

import (
	"errors"
	"fmt"
)

// ユースケース層で使うエラー
var (
	ErrNoLocation       = errors.New("no location has been resolved yet")
	ErrLocationNotFound = errors.New("location not found")
	ErrEmptyQuery       = errors.New("empty location query")
	ErrEmptyMessage     = errors.New("empty chat message")
	ErrTrackingActive   = errors.New("another tracking mode is active")
)

// AcquisitionErrorKind 測位エラーの種別
type AcquisitionErrorKind string

const (
	AcquisitionPermissionDenied    AcquisitionErrorKind = "permission_denied"
	AcquisitionPositionUnavailable AcquisitionErrorKind = "position_unavailable"
	AcquisitionTimeout             AcquisitionErrorKind = "timeout"
	AcquisitionUnsupported         AcquisitionErrorKind = "unsupported"
)

var acquisitionMessages = map[AcquisitionErrorKind]string{
	AcquisitionPermissionDenied:    "Location access denied by user.",
	AcquisitionPositionUnavailable: "Location information is unavailable.",
	AcquisitionTimeout:             "Location request timed out.",
	AcquisitionUnsupported:         "Geolocation is not supported by your browser.",
}

// ParseAcquisitionErrorKind 文字列から測位エラー種別を取得
func ParseAcquisitionErrorKind(s string) (AcquisitionErrorKind, bool) {
	kind := AcquisitionErrorKind(s)
	_, ok := acquisitionMessages[kind]
	return kind, ok
}

// AcquisitionError 測位処理で発生したエラー（致命的ではなく利用者は再試行できる）
type AcquisitionError struct {
	Kind AcquisitionErrorKind
	Err  error
}

// NewAcquisitionError 新しいAcquisitionErrorを作成
func NewAcquisitionError(kind AcquisitionErrorKind, err error) *AcquisitionError {
	return &AcquisitionError{Kind: kind, Err: err}
}

func (e *AcquisitionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return string(e.Kind)
}

func (e *AcquisitionError) Unwrap() error { return e.Err }

// UserMessage 利用者に表示するメッセージ
func (e *AcquisitionError) UserMessage() string {
	if msg, ok := acquisitionMessages[e.Kind]; ok {
		return msg
	}
	return "Unable to retrieve your location."
}

// Terminal 継続監視を終了させるエラーかどうか（タイムアウトのみ一時的とみなす）
func (e *AcquisitionError) Terminal() bool {
	return e.Kind != AcquisitionTimeout
}

// AsAcquisitionError errから*AcquisitionErrorを取り出す
func AsAcquisitionError(err error) (*AcquisitionError, bool) {
	var acqErr *AcquisitionError
	if errors.As(err, &acqErr) {
		return acqErr, true
	}
	return nil, false
}

// BackendErrorKind 生成バックエンドのエラー分類
type BackendErrorKind string

const (
	BackendUnauthorized  BackendErrorKind = "unauthorized"
	BackendRateLimited   BackendErrorKind = "rate_limited"
	BackendQuotaExceeded BackendErrorKind = "quota_exceeded"
	BackendGeneric       BackendErrorKind = "generic"
)

// BackendError 生成バックエンド呼び出しの失敗
type BackendError struct {
	Kind    BackendErrorKind
	Status  int    // HTTPステータス（通信エラーの場合は0）
	Code    string // プロバイダ固有のエラーコード
	Message string
	Err     error
}

func (e *BackendError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "generation backend error"
	}
	if e.Status != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.Status)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

func (e *BackendError) Unwrap() error { return e.Err }

// ClassifyBackendError 任意のエラーを分類する（BackendError以外は通信エラー扱いでGeneric）
func ClassifyBackendError(err error) *BackendError {
	if err == nil {
		return nil
	}
	var be *BackendError
	if errors.As(err, &be) {
		return be
	}
	return &BackendError{Kind: BackendGeneric, Message: "network error", Err: err}
}
