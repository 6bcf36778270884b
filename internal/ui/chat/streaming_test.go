// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat view component for the TUI.
package chat

import (
	"testing"
	"time"
)

// =============================================================================
// STREAMING BUFFER TESTS
// =============================================================================

func TestNewStreamingBuffer(t *testing.T) {
	sb := NewStreamingBuffer()

	if sb == nil {
		t.Fatal("NewStreamingBuffer returned nil")
	}

	batchSize, maxFPS, minFlushMs := sb.GetConfig()
	if batchSize != 15 {
		t.Errorf("Expected default batch size 15, got %d", batchSize)
	}
	if maxFPS != 30 {
		t.Errorf("Expected default maxFPS 30, got %d", maxFPS)
	}
	expectedMinFlushMs := time.Duration(1000/30) * time.Millisecond
	if minFlushMs != expectedMinFlushMs {
		t.Errorf("Expected minFlushMs %v, got %v", expectedMinFlushMs, minFlushMs)
	}
}

func TestStreamingBufferWrite(t *testing.T) {
	sb := NewStreamingBuffer()

	sb.Write("Olá")
	sb.Write(" ")
	sb.Write("mundo")

	if pending := sb.Pending(); pending != 3 {
		t.Errorf("Expected 3 pending chunks, got %d", pending)
	}
}

func TestStreamingBufferFlushBySize(t *testing.T) {
	sb := NewStreamingBufferWithConfig(3, 30)

	sb.Write("A")
	sb.Write("B")

	// Below batch size, before the time threshold
	if _, hasContent := sb.Flush(); hasContent {
		t.Error("Should not flush before reaching batch size")
	}

	sb.Write("C")

	content, hasContent := sb.Flush()
	if !hasContent {
		t.Error("Should flush after reaching batch size")
	}
	if content != "ABC" {
		t.Errorf("Expected flushed content 'ABC', got '%s'", content)
	}

	if pending := sb.Pending(); pending != 0 {
		t.Errorf("Expected 0 pending chunks after flush, got %d", pending)
	}
}

func TestStreamingBufferFlushByTime(t *testing.T) {
	sb := NewStreamingBufferWithConfig(100, 30) // Large batch size, 30fps

	sb.Write("A")

	if _, hasContent := sb.Flush(); hasContent {
		t.Error("Should not flush immediately")
	}

	// Wait past the flush interval (33ms for 30fps)
	time.Sleep(35 * time.Millisecond)

	content, hasContent := sb.Flush()
	if !hasContent {
		t.Error("Should flush after time threshold")
	}
	if content != "A" {
		t.Errorf("Expected flushed content 'A', got '%s'", content)
	}
}

func TestStreamingBufferForceFlush(t *testing.T) {
	sb := NewStreamingBuffer()

	sb.Write("Test")

	content, hasContent := sb.ForceFlush()
	if !hasContent {
		t.Error("ForceFlush should return content")
	}
	if content != "Test" {
		t.Errorf("Expected 'Test', got '%s'", content)
	}

	if pending := sb.Pending(); pending != 0 {
		t.Errorf("Expected 0 pending after force flush, got %d", pending)
	}
}

func TestStreamingBufferReset(t *testing.T) {
	sb := NewStreamingBuffer()

	sb.Write("A")
	sb.Write("B")
	sb.Write("C")

	sb.Reset()

	if pending := sb.Pending(); pending != 0 {
		t.Errorf("Expected 0 pending after reset, got %d", pending)
	}

	if _, hasContent := sb.Flush(); hasContent {
		t.Error("Should have no content after reset")
	}
}

func TestStreamingBufferConcurrency(t *testing.T) {
	sb := NewStreamingBuffer()

	// Concurrent writes (simulating the streaming goroutine)
	done := make(chan bool)
	go func() {
		for i := 0; i < 100; i++ {
			sb.Write("x")
			time.Sleep(time.Millisecond)
		}
		done <- true
	}()

	// Concurrent flushes (simulating the main loop)
	flushCount := 0
	go func() {
		for i := 0; i < 100; i++ {
			if _, hasContent := sb.Flush(); hasContent {
				flushCount++
			}
			time.Sleep(time.Millisecond)
		}
		done <- true
	}()

	<-done
	<-done

	// Should have no data races (test with -race flag)
	t.Logf("Completed with %d flushes", flushCount)
}

func TestStreamingBufferUnicode(t *testing.T) {
	sb := NewStreamingBuffer()

	sb.Write("Produção")
	sb.Write(" ")
	sb.Write("diária")
	sb.Write("!")

	content, hasContent := sb.ForceFlush()
	if !hasContent {
		t.Error("Should have content")
	}

	expected := "Produção diária!"
	if content != expected {
		t.Errorf("Expected '%s', got '%s'", expected, content)
	}
}

func TestStreamingBufferSetters(t *testing.T) {
	sb := NewStreamingBuffer()

	sb.SetBatchSize(20)
	batchSize, _, _ := sb.GetConfig()
	if batchSize != 20 {
		t.Errorf("Expected batch size 20, got %d", batchSize)
	}

	sb.SetMaxFPS(60)
	_, maxFPS, minFlushMs := sb.GetConfig()
	if maxFPS != 60 {
		t.Errorf("Expected maxFPS 60, got %d", maxFPS)
	}
	expectedMinFlushMs := time.Duration(1000/60) * time.Millisecond
	if minFlushMs != expectedMinFlushMs {
		t.Errorf("Expected minFlushMs %v, got %v", expectedMinFlushMs, minFlushMs)
	}
}

// =============================================================================
// INTEGRATION TESTS
// =============================================================================

func TestStreamingBufferIntegration(t *testing.T) {
	// Simulate a real streaming burst
	sb := NewStreamingBufferWithConfig(10, 30)

	chunks := []string{"O", " volume", " processado", " ontem", " foi", " de", " 1450", " eventos", ".", " OK"}

	for i, chunk := range chunks {
		sb.Write(chunk)

		// After 10 chunks, flush triggers by size
		if i == 9 && !sb.ShouldFlush() {
			t.Error("Should be ready to flush after 10 chunks")
		}
	}

	content, hasContent := sb.ForceFlush()
	if !hasContent {
		t.Error("Should have remaining content")
	}

	expected := "O volume processado ontem foi de 1450 eventos. OK"
	if content != expected {
		t.Errorf("Expected '%s', got '%s'", expected, content)
	}
}

// =============================================================================
// BENCHMARK TESTS
// =============================================================================

func BenchmarkStreamingBufferWrite(b *testing.B) {
	sb := NewStreamingBuffer()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		sb.Write("chunk")
	}
}

func BenchmarkStreamingBufferFlush(b *testing.B) {
	sb := NewStreamingBuffer()
	for i := 0; i < 100; i++ {
		sb.Write("chunk")
	}
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		sb.Flush()
	}
}
