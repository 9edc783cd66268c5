package service

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// PresenceTracker keeps one logical online record per user across any
// number of simultaneous connections. A connection count per user decides
// the offline transition: the user goes offline only when the last live
// connection drops, so a second device never flaps the status.
// Last-active timestamps live in Redis so they survive a restart.
type PresenceTracker struct {
	mu    sync.Mutex
	conns map[string]int

	repo        PresenceRepoIn
	broadcaster Broadcaster
	now         func() time.Time
}

func NewPresenceTracker(repo PresenceRepoIn, broadcaster Broadcaster) *PresenceTracker {
	return &PresenceTracker{
		conns:       make(map[string]int),
		repo:        repo,
		broadcaster: broadcaster,
		now:         time.Now,
	}
}

// Connect registers one more live connection for the user and broadcasts
// online=true to the overview room.
func (pt *PresenceTracker) Connect(ctx context.Context, userID string) {
	if userID == "" {
		return
	}

	pt.mu.Lock()
	pt.conns[userID]++
	pt.mu.Unlock()

	pt.markOnline(ctx, userID)
}

// Disconnect drops one connection. Only the last one marks the user
// offline. Safe to call for users that were never identified.
func (pt *PresenceTracker) Disconnect(ctx context.Context, userID string) {
	if userID == "" {
		return
	}

	pt.mu.Lock()
	pt.conns[userID]--
	remaining := pt.conns[userID]
	if remaining <= 0 {
		delete(pt.conns, userID)
	}
	pt.mu.Unlock()

	if remaining > 0 {
		return
	}

	if err := pt.repo.DeleteLastActive(ctx, userID); err != nil {
		slog.Error("Failed to clear presence", "user_id", userID, "error", err)
	}

	pt.broadcaster.Broadcast(OverviewRoom, EventReceiveOnlineStatus, OnlineStatusDTO{
		UserID:     userID,
		IsOnline:   false,
		LastActive: pt.now().UTC(),
	})
	slog.Info("User went offline", "user_id", userID)
}

// Heartbeat refreshes the last-active timestamp and re-broadcasts
// online=true. Both the explicit ping verb and the activity verb land
// here; heartbeats are idempotent and last-timestamp-wins.
func (pt *PresenceTracker) Heartbeat(ctx context.Context, userID string) {
	if userID == "" {
		return
	}
	pt.markOnline(ctx, userID)
}

func (pt *PresenceTracker) markOnline(ctx context.Context, userID string) {
	now := pt.now().UTC()

	if err := pt.repo.UpdateLastActive(ctx, userID, now); err != nil {
		slog.Error("Failed to update last active", "user_id", userID, "error", err)
	}

	pt.broadcaster.Broadcast(OverviewRoom, EventReceiveOnlineStatus, OnlineStatusDTO{
		UserID:     userID,
		IsOnline:   true,
		LastActive: now,
	})
}

// RunOfflineScanner sweeps the last-active store and broadcasts offline
// for users whose record went stale without a clean disconnect (crashed
// client, dropped network). Presence stays event-driven otherwise; this
// is a hardening layer, not the primary offline path.
func (pt *PresenceTracker) RunOfflineScanner(ctx context.Context, interval, threshold time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pt.sweepStale(ctx, threshold)
		}
	}
}

func (pt *PresenceTracker) sweepStale(ctx context.Context, threshold time.Duration) {
	userIDs, err := pt.repo.OnlineUserIDs(ctx)
	if err != nil {
		slog.Error("Failed to list online users", "error", err)
		return
	}

	now := pt.now().UTC()
	for _, userID := range userIDs {
		if pt.IsOnline(userID) {
			// Live connections heartbeat on their own.
			continue
		}

		lastActive, ok, err := pt.repo.GetLastActive(ctx, userID)
		if err != nil || !ok {
			continue
		}
		if now.Sub(lastActive) <= threshold {
			continue
		}

		if err := pt.repo.DeleteLastActive(ctx, userID); err != nil {
			slog.Error("Failed to clear stale presence", "user_id", userID, "error", err)
			continue
		}
		pt.broadcaster.Broadcast(OverviewRoom, EventReceiveOnlineStatus, OnlineStatusDTO{
			UserID:     userID,
			IsOnline:   false,
			LastActive: lastActive,
		})
		slog.Info("User went offline after inactivity", "user_id", userID)
	}
}

// IsOnline reports whether the user holds at least one live connection
// on this process.
func (pt *PresenceTracker) IsOnline(userID string) bool {
	pt.mu.Lock()
	defer pt.mu.Unlock()
	return pt.conns[userID] > 0
}
