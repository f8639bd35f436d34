// Package timer refreshes remote profiles on their configured update interval.
package timer

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"verge-go/internal/profiles"
)

// Fetcher downloads a remote profile.
type Fetcher interface {
	FromURL(ctx context.Context, rawURL string, name, desc *string, opt *profiles.Option) (*profiles.Item, error)
}

// Collection is the profile collection the timer reads and updates.
type Collection interface {
	Items() []profiles.Item
	UpdateItem(uid string, fetched *profiles.Item) error
}

type task struct {
	interval uint64
	cancel   context.CancelFunc
}

// Timer runs one refresh loop per remote profile with update_interval > 0.
type Timer struct {
	fetcher    Fetcher
	collection Collection
	logger     *zap.Logger
	// unit is the length of one update_interval step.
	unit      time.Duration
	onUpdated func(uid string)

	mu    sync.Mutex
	ctx   context.Context
	tasks map[string]task
	wg    sync.WaitGroup
}

// New creates a timer. onUpdated, when set, runs after every successful refresh.
func New(fetcher Fetcher, collection Collection, onUpdated func(uid string), logger *zap.Logger) *Timer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Timer{
		fetcher:    fetcher,
		collection: collection,
		logger:     logger,
		unit:       time.Minute,
		onUpdated:  onUpdated,
		tasks:      map[string]task{},
	}
}

// Init starts the refresh loops. They stop when ctx is cancelled or Stop is called.
func (t *Timer) Init(ctx context.Context) error {
	t.mu.Lock()
	t.ctx = ctx
	t.mu.Unlock()
	return t.Refresh()
}

// Refresh reconciles the running loops with the current collection.
func (t *Timer) Refresh() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.ctx == nil {
		return fmt.Errorf("timer is not initialized")
	}

	wanted := map[string]profiles.Item{}
	for _, item := range t.collection.Items() {
		if interval := updateInterval(item); interval > 0 && item.Type == profiles.TypeRemote && item.URL != "" {
			wanted[item.UID] = item
		}
	}

	for uid, running := range t.tasks {
		item, ok := wanted[uid]
		if !ok || updateInterval(item) != running.interval {
			running.cancel()
			delete(t.tasks, uid)
		}
	}

	for uid, item := range wanted {
		if _, ok := t.tasks[uid]; ok {
			continue
		}
		interval := updateInterval(item)
		every, ok := t.period(interval)
		if !ok {
			t.logger.Warn("Ignoring out of range update interval",
				zap.String("uid", uid), zap.Uint64("interval_minutes", interval))
			continue
		}
		ctx, cancel := context.WithCancel(t.ctx)
		t.tasks[uid] = task{interval: interval, cancel: cancel}

		t.wg.Add(1)
		go t.loop(ctx, uid, every)
		t.logger.Debug("Profile refresh scheduled", zap.String("uid", uid), zap.Uint64("interval_minutes", interval))
	}
	return nil
}

// Scheduled returns the uids with a running refresh loop.
func (t *Timer) Scheduled() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	uids := make([]string, 0, len(t.tasks))
	for uid := range t.tasks {
		uids = append(uids, uid)
	}
	return uids
}

// Stop cancels every loop and waits for them to return.
func (t *Timer) Stop() {
	t.mu.Lock()
	for uid, running := range t.tasks {
		running.cancel()
		delete(t.tasks, uid)
	}
	t.mu.Unlock()
	t.wg.Wait()
}

func (t *Timer) loop(ctx context.Context, uid string, every time.Duration) {
	defer t.wg.Done()

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := t.refreshOne(ctx, uid); err != nil {
				t.logger.Warn("Failed to refresh profile", zap.String("uid", uid), zap.Error(err))
			}
		}
	}
}

func (t *Timer) refreshOne(ctx context.Context, uid string) error {
	var item profiles.Item
	found := false
	for _, candidate := range t.collection.Items() {
		if candidate.UID == uid {
			item, found = candidate, true
			break
		}
	}
	if !found {
		return fmt.Errorf("profile %s not found", uid)
	}

	fetched, err := t.fetcher.FromURL(ctx, item.URL, nil, nil, item.Option)
	if err != nil {
		return err
	}
	if err := t.collection.UpdateItem(uid, fetched); err != nil {
		return err
	}

	t.logger.Info("Profile refreshed", zap.String("uid", uid))
	if t.onUpdated != nil {
		t.onUpdated(uid)
	}
	return nil
}

// period converts an update interval to a ticker period. It reports false when
// the result would not be a positive duration.
func (t *Timer) period(interval uint64) (time.Duration, bool) {
	if interval == 0 || t.unit <= 0 || interval > uint64(math.MaxInt64/int64(t.unit)) {
		return 0, false
	}
	return time.Duration(interval) * t.unit, true
}

func updateInterval(item profiles.Item) uint64 {
	if item.Option == nil || item.Option.UpdateInterval == nil {
		return 0
	}
	return *item.Option.UpdateInterval
}
