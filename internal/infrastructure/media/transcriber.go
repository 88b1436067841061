package media

import (
	"context"
	"io"
)

// TranscriberClient implements ports.Transcriber against the transcription
// collaborator service.
type TranscriberClient struct {
	client
}

func NewTranscriberClient(baseURL string) *TranscriberClient {
	return &TranscriberClient{client: newClient(baseURL)}
}

func (c *TranscriberClient) Transcribe(ctx context.Context, body io.Reader, filename string) (string, error) {
	return c.postFile(ctx, "/v1/transcribe", body, filename, "transcribe")
}
