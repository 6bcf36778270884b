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
// DOCUMENT UPLOAD
// =============================================================================

// UploadResult is the reply from POST /documents/upload.
type UploadResult struct {
	Filename string `json:"filename"`
	Chunks   int    `json:"chunks"`
	Error    string `json:"error,omitempty"`
}

// UploadDocument sends a document to the backend for ingestion and returns
// the number of chunks indexed from it.
func (c *Client) UploadDocument(ctx context.Context, filename string, r io.Reader) (*UploadResult, error) {
	body, err := c.postMultipart(ctx, "/documents/upload", "file", filename, r)
	if err != nil {
		return nil, err
	}

	var result UploadResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse upload reply: %w", err)
	}
	if result.Error != "" {
		return nil, &ResponseError{Message: result.Error}
	}
	if result.Filename == "" {
		result.Filename = filename
	}

	return &result, nil
}
