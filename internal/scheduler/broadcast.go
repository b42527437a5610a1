package scheduler

import (
	"context"
	"time"

	"github.com/charleschow/mispricing-detector/internal/store"
)

// Snapshot is the wire format published to hub subscribers.
type Snapshot struct {
	TakenAt       time.Time      `json:"taken_at"`
	Signals       []store.Signal `json:"signals"`
	OpenPositions []store.Position `json:"open_positions"`
}

func (s *Scheduler) runBroadcastCycle(ctx context.Context) error {
	signals, err := s.st.ActiveSignals(ctx)
	if err != nil {
		return err
	}
	positions, err := s.st.OpenPositions(ctx)
	if err != nil {
		return err
	}

	var realized, unrealized float64
	for _, p := range positions {
		realized += p.RealizedPnL
		unrealized += p.UnrealizedPnL
	}
	if err := s.st.InsertSnapshot(ctx, len(positions), realized, unrealized); err != nil {
		return err
	}

	snap := Snapshot{TakenAt: time.Now().UTC(), Signals: signals, OpenPositions: positions}

	s.mu.Lock()
	s.snapshot = snap
	s.mu.Unlock()

	if s.hub != nil {
		s.hub.Broadcast(snap)
	}
	return nil
}

// LatestSnapshot returns the most recently broadcast snapshot.
func (s *Scheduler) LatestSnapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}
