package scheduler

import "time"

// Platform is the timer facility the scheduler registers with. Mobile hosts
// back this with their background-execution scheduler and require the Finish
// acknowledgement to settle their execution budget; the default desktop
// implementation is a plain ticker with a no-op Finish.
type Platform interface {
	// Schedule registers fire to be called no more often than minInterval.
	// The returned function deregisters the callback.
	Schedule(minInterval time.Duration, fire func()) (stop func())

	// Finish acknowledges that a triggered run has completed.
	Finish()
}

// TickerPlatform implements Platform on a time.Ticker.
type TickerPlatform struct{}

// NewTickerPlatform creates the default platform timer.
func NewTickerPlatform() *TickerPlatform {
	return &TickerPlatform{}
}

// Schedule implements Platform.
func (p *TickerPlatform) Schedule(minInterval time.Duration, fire func()) func() {
	ticker := time.NewTicker(minInterval)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				fire()
			}
		}
	}()
	return func() {
		ticker.Stop()
		close(done)
	}
}

// Finish implements Platform. The ticker tracks no execution budget.
func (p *TickerPlatform) Finish() {}
