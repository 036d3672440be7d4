package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"

	http "github.com/bogdanfinn/fhttp"

	apierrors "github.com/marcos/novachat/internal/errors"
	"github.com/marcos/novachat/internal/models"
)

// ExtractFile uploads a file to the extraction endpoint and returns the
// extracted plain text. The raw file never reaches the chat backend; only
// the extracted text travels in subsequent wire messages.
func (c *Client) ExtractFile(ctx context.Context, reader io.Reader, fileName string) (*models.Extraction, error) {
	data, err := io.ReadAll(io.LimitReader(reader, models.MaxAttachmentSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read file data: %w", err)
	}
	if int64(len(data)) > models.MaxAttachmentSize {
		return nil, apierrors.NewExtractionError(fileName, fmt.Sprintf("file exceeds maximum size of %d bytes", models.MaxAttachmentSize))
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", fileName)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("failed to write file data: %w", err)
	}
	_ = writer.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(models.EndpointExtract), &body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != 200 {
		respBody, _ := readBody(resp, 4096)
		return nil, apierrors.NewExtractionError(fileName, fmt.Sprintf("extraction failed with status %d: %s", resp.StatusCode, string(respBody)))
	}

	respBody, err := readBody(resp, 32*1024*1024)
	if err != nil {
		return nil, apierrors.NewNetworkError("read extract response", models.EndpointExtract, err)
	}

	var extraction models.Extraction
	if err := json.Unmarshal(respBody, &extraction); err != nil {
		return nil, apierrors.NewParseError("invalid extract response", "")
	}

	if extraction.Text == "" {
		return nil, apierrors.NewExtractionError(fileName, "no text content found in file")
	}

	return &extraction, nil
}

// ExtractPath is a convenience wrapper for extracting a file from disk.
func (c *Client) ExtractPath(ctx context.Context, path string) (*models.Extraction, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	if info.Size() > models.MaxAttachmentSize {
		return nil, apierrors.NewExtractionError(filepath.Base(path), fmt.Sprintf("file exceeds maximum size of %d bytes", models.MaxAttachmentSize))
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	return c.ExtractFile(ctx, f, filepath.Base(path))
}
