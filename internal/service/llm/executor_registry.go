package llm

import (
	"context"
	"sync"
	"time"

	"atelier/internal/domain/models/chat"
)

// TurnExecutorRegistry manages all active TurnExecutor instances.
//
// Design:
//   - One executor per turn (keyed by turn_id)
//   - Thread-safe access via RWMutex
//   - Background cleanup removes completed/errored/cancelled executors
//   - Singleton pattern for global access
//
// Lifecycle:
//  1. StreamingService creates an executor and registers it
//  2. SSE clients connect and get the executor from the registry
//  3. Executor reaches a terminal state and updates status
//  4. Cleanup goroutine removes old executors after the retention period
type TurnExecutorRegistry struct {
	executors map[string]*TurnExecutor // turnID -> executor
	mu        sync.RWMutex

	cleanupInterval time.Duration
	retentionPeriod time.Duration // how long to keep finished executors

	// Tracking for cleanup
	completionTimes map[string]time.Time // turnID -> completion time
	timesMu         sync.RWMutex
}

// Global registry instance
var (
	globalRegistry     *TurnExecutorRegistry
	globalRegistryOnce sync.Once
)

// GetGlobalRegistry returns the singleton TurnExecutorRegistry instance.
func GetGlobalRegistry() *TurnExecutorRegistry {
	globalRegistryOnce.Do(func() {
		globalRegistry = NewTurnExecutorRegistry(
			1*time.Minute,  // cleanup every minute
			10*time.Minute, // keep finished executors for reconnect catchup
		)
		go globalRegistry.StartCleanup(context.Background())
	})
	return globalRegistry
}

// NewTurnExecutorRegistry creates a new TurnExecutorRegistry.
// For testing only - use GetGlobalRegistry() in production.
func NewTurnExecutorRegistry(cleanupInterval, retentionPeriod time.Duration) *TurnExecutorRegistry {
	return &TurnExecutorRegistry{
		executors:       make(map[string]*TurnExecutor),
		cleanupInterval: cleanupInterval,
		retentionPeriod: retentionPeriod,
		completionTimes: make(map[string]time.Time),
	}
}

// Register registers a new TurnExecutor for a turn.
// Returns false if an executor already exists for this turn.
func (r *TurnExecutorRegistry) Register(turnID string, executor *TurnExecutor) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.executors[turnID]; exists {
		return false
	}

	r.executors[turnID] = executor
	return true
}

// Get retrieves the TurnExecutor for a turn.
// Returns nil if no executor exists.
func (r *TurnExecutorRegistry) Get(turnID string) *TurnExecutor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.executors[turnID]
}

// Remove removes a TurnExecutor from the registry.
// Safe to call even if the executor doesn't exist.
func (r *TurnExecutorRegistry) Remove(turnID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.executors, turnID)

	r.timesMu.Lock()
	delete(r.completionTimes, turnID)
	r.timesMu.Unlock()
}

// MarkCompleted marks an executor as completed for cleanup tracking.
// Should be called when the executor reaches a terminal state.
func (r *TurnExecutorRegistry) MarkCompleted(turnID string) {
	r.timesMu.Lock()
	defer r.timesMu.Unlock()

	r.completionTimes[turnID] = time.Now()
}

// StartCleanup runs the background cleanup loop until ctx is cancelled.
func (r *TurnExecutorRegistry) StartCleanup(ctx context.Context) {
	ticker := time.NewTicker(r.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.cleanup()
		}
	}
}

// cleanup removes finished executors past the retention period.
func (r *TurnExecutorRegistry) cleanup() {
	now := time.Now()

	var toRemove []string

	r.mu.RLock()
	for turnID, executor := range r.executors {
		switch executor.GetStatus() {
		case chat.TurnStatusComplete, chat.TurnStatusError, chat.TurnStatusCancelled:
			r.timesMu.RLock()
			completionTime, exists := r.completionTimes[turnID]
			r.timesMu.RUnlock()

			if exists && now.Sub(completionTime) > r.retentionPeriod {
				toRemove = append(toRemove, turnID)
			} else if !exists {
				// Terminal but untracked; start the retention clock now
				r.MarkCompleted(turnID)
			}
		}
	}
	r.mu.RUnlock()

	if len(toRemove) > 0 {
		r.mu.Lock()
		for _, turnID := range toRemove {
			delete(r.executors, turnID)
		}
		r.mu.Unlock()

		r.timesMu.Lock()
		for _, turnID := range toRemove {
			delete(r.completionTimes, turnID)
		}
		r.timesMu.Unlock()
	}
}

// Count returns the number of active executors.
func (r *TurnExecutorRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.executors)
}

// GetAll returns all turn IDs with active executors.
func (r *TurnExecutorRegistry) GetAll() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	turnIDs := make([]string, 0, len(r.executors))
	for turnID := range r.executors {
		turnIDs = append(turnIDs, turnID)
	}

	return turnIDs
}
