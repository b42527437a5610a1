package paper

import (
	"context"
	"time"
)

// AutoClose closes any open position whose underlying event has already
// started. Settlement uses the locked-in entry spread as the realized
// PnL rather than re-pricing against a post-kickoff quote — the simplified
// settlement model documented for this system, since a resolved sports
// market's post-start quote is not a meaningful mark.
func (s *Simulator) AutoClose(ctx context.Context, now time.Time) error {
	positions, err := s.st.OpenPositions(ctx)
	if err != nil {
		return err
	}

	for _, p := range positions {
		sig, ok, err := s.st.GetSignal(ctx, p.SignalID)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}

		started, err := s.eventStarted(ctx, sig.CanonicalEventID, now)
		if err != nil {
			return err
		}
		if !started {
			continue
		}

		realized := (p.SellFillPrice - p.BuyFillPrice) * p.Size
		if err := s.st.ClosePosition(ctx, p.ID, realized); err != nil {
			return err
		}
	}
	return nil
}

func (s *Simulator) eventStarted(ctx context.Context, eventID string, now time.Time) (bool, error) {
	evt, ok, err := s.st.GetCanonicalEvent(ctx, eventID)
	if err != nil || !ok {
		return false, err
	}
	return !evt.StartTimeUTC.IsZero() && !now.Before(evt.StartTimeUTC), nil
}
