package ml

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"

	"skin-detect/internal/domain"
)

// InferenceClient talks to the external classification API.
type InferenceClient struct {
	endpoint string
	client   *http.Client
}

// NewInferenceClient posts to endpoint. A nil client means a default one.
func NewInferenceClient(endpoint string, client *http.Client) *InferenceClient {
	if client == nil {
		client = &http.Client{}
	}
	return &InferenceClient{
		endpoint: endpoint,
		client:   client,
	}
}

// Endpoint is the detect URL requests go to.
func (c *InferenceClient) Endpoint() string {
	return c.endpoint
}

// Detect posts one image with the enhancement flag and decodes the result.
// It never retries.
func (c *InferenceClient) Detect(ctx context.Context, img domain.SelectedImage, useEnhancement bool) (*domain.InferenceResult, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	filename := img.Filename
	if filename == "" {
		filename = "image.jpg"
	}

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, bytes.NewReader(img.Data)); err != nil {
		return nil, fmt.Errorf("copy image data: %w", err)
	}
	if err := writer.WriteField("use_enhancement", strconv.FormatBool(useEnhancement)); err != nil {
		return nil, fmt.Errorf("write enhancement field: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close multipart: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &domain.TransportError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &domain.TransportError{StatusCode: resp.StatusCode, Status: statusLine(resp)}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.TransportError{StatusCode: resp.StatusCode, Status: statusLine(resp), Err: err}
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, domain.ErrEmptyResponse
	}

	var result domain.InferenceResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, &domain.ParseError{Err: err}
	}
	if err := result.Validate(); err != nil {
		return nil, &domain.ParseError{Err: err}
	}

	return &result, nil
}

// Ping checks that the inference origin answers at all. Any HTTP response
// counts as reachable.
func (c *InferenceClient) Ping(ctx context.Context) error {
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return fmt.Errorf("parse endpoint: %w", err)
	}
	origin := (&url.URL{Scheme: u.Scheme, Host: u.Host, Path: "/"}).String()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, origin, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("inference service unreachable: %w", err)
	}
	resp.Body.Close()
	return nil
}

func statusLine(resp *http.Response) string {
	if resp.Status != "" {
		return resp.Status
	}
	return fmt.Sprintf("%d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
}
