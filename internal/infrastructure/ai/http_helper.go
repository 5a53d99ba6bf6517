package ai

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
)

// maxResponseBody はAPIから読み込むレスポンスボディの上限
const maxResponseBody = 10 * 1024 * 1024 // 10 MB

// postJSON はJSONをPOSTし、ステータスコードとボディを返す（ステータスの判定は呼び出し側で行う）
func postJSON(ctx context.Context, client *http.Client, url string, body []byte, headers map[string]string) (int, []byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, nil, fmt.Errorf("HTTPリクエストの作成に失敗: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return 0, nil, fmt.Errorf("APIリクエストに失敗: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("レスポンスの読み取りに失敗: %w", err)
	}
	return resp.StatusCode, respBody, nil
}
