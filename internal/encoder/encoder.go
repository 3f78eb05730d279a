// Package encoder talks to the face encoder sidecar that performs face
// detection and encoding extraction. The sidecar wraps the actual deep
// learning model; this client only handles transport and validation.
package encoder

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
)

const (
	defaultEncoderURL = "http://localhost:8000"

	// MaxImageBytes caps photo uploads accepted for encoding (16 MiB).
	MaxImageBytes = 16 * 1024 * 1024
)

var (
	ErrNoFace           = errors.New("no face found in image")
	ErrTooManyFaces     = errors.New("more than one face found in image")
	ErrImageTooLarge    = errors.New("image file size too large")
	ErrUnsupportedImage = errors.New("unsupported image format")
	ErrBadDimension     = errors.New("encoding dimension does not match configured model")
)

// Face is one detected face: its encoding vector, bounding box in
// [top, right, bottom, left] pixel coordinates, and detection score.
type Face struct {
	Encoding []float32 `json:"embedding"`
	Box      []int     `json:"bbox"`
	Score    float64   `json:"score"`
}

// encodeResponse is the sidecar's JSON reply.
type encodeResponse struct {
	Faces []Face `json:"faces"`
	Model string `json:"model"`
	Dim   int    `json:"dim"`
}

// Client computes face encodings using the encoder sidecar.
type Client struct {
	baseURL string
	dim     int
	client  *http.Client
}

// NewClient creates a new encoder client. When dim is positive, every
// encoding returned by the sidecar must have exactly that many components.
func NewClient(baseURL string, dim int) *Client {
	if baseURL == "" {
		baseURL = defaultEncoderURL
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		dim:     dim,
		client:  &http.Client{},
	}
}

// postMultipartImage constructs a multipart form with the image data and
// posts it to the given endpoint.
func (c *Client) postMultipartImage(ctx context.Context, endpoint string, imageData []byte) ([]byte, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="image.jpg"`)
	h.Set("Content-Type", DetectMIMEType(imageData))
	part, err := writer.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}

	if _, err := part.Write(imageData); err != nil {
		return nil, fmt.Errorf("failed to write image data: %w", err)
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	return body, nil
}

// validate rejects oversized or unrecognized images before upload.
func validate(imageData []byte) error {
	if len(imageData) > MaxImageBytes {
		return ErrImageTooLarge
	}
	if !IsSupportedImage(imageData) {
		return ErrUnsupportedImage
	}
	return nil
}

// Encode extracts encodings for every face in the image.
// Returns ErrNoFace when the sidecar detects no faces.
func (c *Client) Encode(ctx context.Context, imageData []byte) ([]Face, error) {
	if err := validate(imageData); err != nil {
		return nil, err
	}

	body, err := c.postMultipartImage(ctx, "/encode", imageData)
	if err != nil {
		return nil, err
	}

	var encResp encodeResponse
	if err := json.Unmarshal(body, &encResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if len(encResp.Faces) == 0 {
		return nil, ErrNoFace
	}
	if c.dim > 0 {
		for _, face := range encResp.Faces {
			if len(face.Encoding) != c.dim {
				return nil, fmt.Errorf("%w: got %d, want %d",
					ErrBadDimension, len(face.Encoding), c.dim)
			}
		}
	}
	return encResp.Faces, nil
}

// EncodeSingle extracts the encoding of exactly one face; photos with zero
// or multiple faces are rejected. Used on the training path.
func (c *Client) EncodeSingle(ctx context.Context, imageData []byte) (*Face, error) {
	faces, err := c.Encode(ctx, imageData)
	if err != nil {
		return nil, err
	}
	if len(faces) > 1 {
		return nil, ErrTooManyFaces
	}
	return &faces[0], nil
}
