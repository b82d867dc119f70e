package gateway

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/baccaristic/foodify-restaurant-agent/internal/apperrors"
)

// backendErrorResponse mirrors the error body returned by the Foodify API.
type backendErrorResponse struct {
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// parseResponseError reads the body of a non-2xx response and translates it
// into an AppError. Structured error bodies keep their code and message;
// anything else falls back to a generic error carrying the raw body. The
// response body is fully consumed and closed.
func parseResponseError(resp *http.Response) error {
	defer func() { _ = resp.Body.Close() }()

	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20)) // 1 MB limit
	if err != nil {
		return fmt.Errorf("backend returned status %d (failed to read body: %w)", resp.StatusCode, err)
	}

	var backend backendErrorResponse
	if json.Unmarshal(bodyBytes, &backend) == nil && backend.Error != nil {
		return apperrors.FromStatus(resp.StatusCode, backend.Error.Code, backend.Error.Message)
	}

	return apperrors.FromStatus(resp.StatusCode, "BACKEND_ERROR",
		fmt.Sprintf("backend returned status %d: %s", resp.StatusCode, string(bodyBytes)))
}
