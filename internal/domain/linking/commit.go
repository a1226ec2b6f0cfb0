package linking

import (
	"context"
	"fmt"
	"time"

	"ledgerlink/internal/infrastructure/ledgerapi"
)

const (
	progressTick = 300 * time.Millisecond
	progressStep = 10
	progressMax  = 100
)

// ProgressFunc receives simulated sync progress values: 0 first, then
// monotonically increasing up to 100.
type ProgressFunc func(progress int)

// CommitDriver persists the user's final selection and drives the
// client-visible sync progress indicator. The indicator is a fixed-rate
// timer, not a reflection of real backend progress.
type CommitDriver struct {
	api  ledgerapi.ClientInterface
	tick time.Duration
	step int
}

// NewCommitDriver creates a commit driver over the backend client
func NewCommitDriver(api ledgerapi.ClientInterface) *CommitDriver {
	return &CommitDriver{api: api, tick: progressTick, step: progressStep}
}

// WithTick overrides the progress tick interval; zero keeps the default
func (d *CommitDriver) WithTick(tick time.Duration) *CommitDriver {
	if tick > 0 {
		d.tick = tick
	}
	return d
}

// ConnectBank submits the enrollment bundle and selected account ids
func (d *CommitDriver) ConnectBank(ctx context.Context, bundle *HandshakeResult, selectedIDs []string) error {
	if bundle == nil || bundle.Enrollment == nil {
		return ErrHandshakeRequired
	}
	if err := d.api.ConnectBank(ctx, *bundle.Enrollment, selectedIDs); err != nil {
		return fmt.Errorf("failed to connect accounts: %w", err)
	}
	return nil
}

// CommitService persists the preference object, then starts the backend
// sync. The sync is only started once the preferences were saved.
func (d *CommitDriver) CommitService(ctx context.Context, provider string, sel *Selection) error {
	if err := d.api.SaveSyncPreferences(ctx, provider, sel.SyncPreferences()); err != nil {
		return fmt.Errorf("failed to save sync preferences: %w", err)
	}
	if err := d.api.StartSync(ctx, provider); err != nil {
		return fmt.Errorf("failed to start sync: %w", err)
	}
	return nil
}

// DriveProgress reports 0, then +step every tick until exactly 100, then
// returns. The single ticker is stopped exactly once via defer; cancelling
// the context stops the run early.
func (d *CommitDriver) DriveProgress(ctx context.Context, report ProgressFunc) error {
	report(0)

	ticker := time.NewTicker(d.tick)
	defer ticker.Stop()

	progress := 0
	for progress < progressMax {
		select {
		case <-ticker.C:
			progress += d.step
			if progress > progressMax {
				progress = progressMax
			}
			report(progress)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}
