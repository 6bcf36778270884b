// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
)

// =============================================================================
// AUDIO ENDPOINTS
// =============================================================================

// TranscriptionResult is the reply from POST /audio/transcribe.
type TranscriptionResult struct {
	Text  string `json:"text"`
	Error string `json:"error,omitempty"`
}

// SynthesisResult is the reply from POST /audio/synthesize. When the
// backend has no voice for the request it signals Fallback instead of
// returning audio, leaving playback to the caller's local synthesizer.
type SynthesisResult struct {
	AudioBase64 string `json:"audio_base64,omitempty"`
	Fallback    bool   `json:"fallback,omitempty"`
	Error       string `json:"error,omitempty"`
}

// synthesizeRequest is the request body for POST /audio/synthesize.
type synthesizeRequest struct {
	Text   string `json:"text"`
	UserID string `json:"user_id,omitempty"`
}

// Transcribe uploads recorded audio and returns the transcribed text.
func (c *Client) Transcribe(ctx context.Context, filename string, audio io.Reader) (string, error) {
	body, err := c.postMultipart(ctx, "/audio/transcribe", "file", filename, audio)
	if err != nil {
		return "", err
	}

	var result TranscriptionResult
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("failed to parse transcription: %w", err)
	}
	if result.Error != "" {
		return "", &ResponseError{Message: result.Error}
	}

	return result.Text, nil
}

// Synthesize converts text to speech via the backend.
//
// Exactly two attempts are made: the initial call and, when it fails with
// a retryable transport error, one follow-up call. The retry is a separate
// explicit step so the at-most-one-retry bound is visible here rather than
// buried in recursion.
func (c *Client) Synthesize(ctx context.Context, text string) (*SynthesisResult, error) {
	result, err := c.synthesizeOnce(ctx, text)
	if err == nil {
		return result, nil
	}
	if !c.isRetryable(err) {
		return nil, err
	}

	result, retryErr := c.synthesizeOnce(ctx, text)
	if retryErr != nil {
		return nil, fmt.Errorf("synthesis retry failed: %w", retryErr)
	}
	return result, nil
}

// synthesizeOnce performs a single synthesis request.
func (c *Client) synthesizeOnce(ctx context.Context, text string) (*SynthesisResult, error) {
	if text == "" {
		return nil, ErrEmptyMessage
	}

	body, err := c.postJSON(ctx, "/audio/synthesize", synthesizeRequest{
		Text:   text,
		UserID: c.userID,
	})
	if err != nil {
		return nil, err
	}

	var result SynthesisResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse synthesis reply: %w", err)
	}
	if result.Error != "" {
		return nil, &ResponseError{Message: result.Error}
	}
	if result.AudioBase64 == "" && !result.Fallback {
		return nil, errors.New("synthesis reply carried no audio and no fallback signal")
	}

	return &result, nil
}

// postMultipart uploads a single file field to path and returns the reply body.
func (c *Client) postMultipart(ctx context.Context, path, field, filename string, r io.Reader) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile(field, filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, fmt.Errorf("failed to copy upload data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize form: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("User-Agent", "treq/0.3.0")

	resp, err := sharedHTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := readResponse(resp)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, c.handleErrorResponse(resp.StatusCode, body)
	}

	return body, nil
}
