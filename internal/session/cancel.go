// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"sync"
)

// =============================================================================
// CANCEL HANDLE MANAGEMENT (THREAD-SAFE)
// =============================================================================

// cancelManager holds the cancel function of the active stream with mutex
// protection. It is the explicit replacement for the browser client's
// module-scoped AbortController ref: each controller carries its own, so
// independent conversations can never cancel each other.
// IMPORTANT: Always held as a pointer so the mutex is never copied.
type cancelManager struct {
	mu         sync.Mutex
	cancelFunc context.CancelFunc
}

// newCancelManager creates a new cancelManager pointer.
func newCancelManager() *cancelManager {
	return &cancelManager{}
}

// set stores the cancel function for a newly started stream, cancelling
// any stream that was still registered. Superseding aborts the old stream
// before the new one begins.
func (cm *cancelManager) set(fn context.CancelFunc) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	if cm.cancelFunc != nil {
		cm.cancelFunc()
	}
	cm.cancelFunc = fn
}

// cancel invokes the stored cancel function and clears it.
// Safe to call multiple times or with no cancel function set.
func (cm *cancelManager) cancel() {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	if cm.cancelFunc != nil {
		cm.cancelFunc()
		cm.cancelFunc = nil
	}
}

// clear cancels any registered context and drops the handle. Contexts are
// always cancelled on the way out to prevent resource leaks.
func (cm *cancelManager) clear() {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	if cm.cancelFunc != nil {
		cm.cancelFunc()
		cm.cancelFunc = nil
	}
}
