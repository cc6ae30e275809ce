package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
)

type uploadResponse struct {
	URL string `json:"url"`
}

// Upload stores a binary asset and returns its hosted URL.
func (c *Client) Upload(ctx context.Context, filename, contentType string, data []byte) (string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	if err != nil {
		return "", fmt.Errorf("build upload: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("build upload: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("build upload: %w", err)
	}

	var out uploadResponse
	p := &payload{contentType: w.FormDataContentType(), body: buf.Bytes()}
	if err := c.do(ctx, "storage.upload", http.MethodPost, "/api/storage/upload", p, &out); err != nil {
		return "", err
	}
	if out.URL == "" {
		return "", errors.New("upload returned no url")
	}
	return out.URL, nil
}
