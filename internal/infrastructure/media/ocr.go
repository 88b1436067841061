package media

import (
	"context"
	"io"
)

// OCRClient implements ports.OCREngine against the OCR collaborator service.
type OCRClient struct {
	client
}

func NewOCRClient(baseURL string) *OCRClient {
	return &OCRClient{client: newClient(baseURL)}
}

func (c *OCRClient) ExtractText(ctx context.Context, body io.Reader, filename string) (string, error) {
	return c.postFile(ctx, "/v1/ocr", body, filename, "ocr")
}
