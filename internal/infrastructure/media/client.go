// Package media holds the HTTP clients for the OCR and transcription
// collaborators. Both services accept a multipart upload and reply with the
// extracted text; the engine indexes that text like any other document
// content.
package media

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

const defaultRequestTimeout = 120 * time.Second

type client struct {
	baseURL    string
	httpClient *http.Client
}

func newClient(baseURL string) client {
	return client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: defaultRequestTimeout,
		},
	}
}

type extractResponse struct {
	Text string `json:"text"`
}

// postFile uploads body as a multipart file and returns the service's
// extracted text.
func (c client) postFile(ctx context.Context, path string, body io.Reader, filename, operation string) (string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("create %s form file: %w", operation, err)
	}
	if _, err := io.Copy(part, body); err != nil {
		return "", fmt.Errorf("copy %s payload: %w", operation, err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("finish %s form: %w", operation, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return "", fmt.Errorf("create %s request: %w", operation, err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%s request: %w", operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", fmt.Errorf("%s: unexpected status %s: %s", operation, resp.Status, strings.TrimSpace(string(raw)))
	}

	var parsed extractResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode %s response: %w", operation, err)
	}
	return parsed.Text, nil
}
