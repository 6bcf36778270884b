// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
)

// =============================================================================
// VISION ENDPOINTS
// =============================================================================

// VisionResult is the reply from the /vision/ endpoints.
type VisionResult struct {
	Description string `json:"description,omitempty"`
	Text        string `json:"text,omitempty"`
	Error       string `json:"error,omitempty"`
}

// AnalyzeImage uploads an image for description by the backend's vision
// model and returns the generated description.
func (c *Client) AnalyzeImage(ctx context.Context, filename string, image io.Reader) (string, error) {
	result, err := c.postVision(ctx, "/vision/analyze", filename, image)
	if err != nil {
		return "", err
	}
	return result.Description, nil
}

// ExtractText uploads an image and returns the text recognized in it.
func (c *Client) ExtractText(ctx context.Context, filename string, image io.Reader) (string, error) {
	result, err := c.postVision(ctx, "/vision/extract-text", filename, image)
	if err != nil {
		return "", err
	}
	return result.Text, nil
}

// postVision uploads the image and decodes the shared vision reply shape.
func (c *Client) postVision(ctx context.Context, path, filename string, image io.Reader) (*VisionResult, error) {
	body, err := c.postMultipart(ctx, path, "file", filename, image)
	if err != nil {
		return nil, err
	}

	var result VisionResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse vision reply: %w", err)
	}
	if result.Error != "" {
		return nil, &ResponseError{Message: result.Error}
	}

	return &result, nil
}
