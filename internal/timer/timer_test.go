package timer

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"verge-go/internal/profiles"
)

type memCollection struct {
	mu      sync.Mutex
	items   []profiles.Item
	updates map[string]int
}

func (c *memCollection) Items() []profiles.Item {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]profiles.Item(nil), c.items...)
}

func (c *memCollection) UpdateItem(uid string, _ *profiles.Item) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.updates == nil {
		c.updates = map[string]int{}
	}
	c.updates[uid]++
	return nil
}

func (c *memCollection) count(uid string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.updates[uid]
}

func (c *memCollection) set(items ...profiles.Item) {
	c.mu.Lock()
	c.items = items
	c.mu.Unlock()
}

type stubFetcher struct {
	err error
}

func (f stubFetcher) FromURL(_ context.Context, rawURL string, _, _ *string, _ *profiles.Option) (*profiles.Item, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &profiles.Item{URL: rawURL, FileData: "proxies: []\n"}, nil
}

func remote(uid string, interval uint64) profiles.Item {
	return profiles.Item{
		UID:    uid,
		Type:   profiles.TypeRemote,
		URL:    "https://example.com/" + uid,
		Option: &profiles.Option{UpdateInterval: &interval},
	}
}

func TestSchedulesOnlyRemoteWithInterval(t *testing.T) {
	c := &memCollection{}
	c.set(remote("r1", 1), remote("r2", 0), profiles.Item{UID: "l1", Type: profiles.TypeLocal})

	tm := New(stubFetcher{}, c, nil, nil)
	require.NoError(t, tm.Init(context.Background()))
	defer tm.Stop()

	assert.Equal(t, []string{"r1"}, tm.Scheduled())
}

func TestRefreshesAndReconciles(t *testing.T) {
	c := &memCollection{}
	c.set(remote("r1", 1))

	var mu sync.Mutex
	var updated []string
	tm := New(stubFetcher{}, c, func(uid string) {
		mu.Lock()
		updated = append(updated, uid)
		mu.Unlock()
	}, nil)
	tm.unit = 10 * time.Millisecond

	require.NoError(t, tm.Init(context.Background()))
	assert.Eventually(t, func() bool { return c.count("r1") >= 2 }, 2*time.Second, 5*time.Millisecond)

	c.set(remote("r2", 1))
	require.NoError(t, tm.Refresh())
	assert.Equal(t, []string{"r2"}, tm.Scheduled())

	tm.Stop()
	assert.Empty(t, tm.Scheduled())

	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, updated, "r1")
}

func TestIntervalChangeRestartsLoop(t *testing.T) {
	c := &memCollection{}
	c.set(remote("r1", 5), remote("r2", 5))

	tm := New(stubFetcher{}, c, nil, nil)
	require.NoError(t, tm.Init(context.Background()))
	defer tm.Stop()

	c.set(remote("r1", 10), remote("r2", 5))
	require.NoError(t, tm.Refresh())

	scheduled := tm.Scheduled()
	sort.Strings(scheduled)
	assert.Equal(t, []string{"r1", "r2"}, scheduled)
	tm.mu.Lock()
	assert.Equal(t, uint64(10), tm.tasks["r1"].interval)
	tm.mu.Unlock()
}

func TestFetchFailureKeepsLoop(t *testing.T) {
	c := &memCollection{}
	c.set(remote("r1", 1))

	tm := New(stubFetcher{err: errors.New("offline")}, c, nil, nil)
	tm.unit = 5 * time.Millisecond
	require.NoError(t, tm.Init(context.Background()))

	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, []string{"r1"}, tm.Scheduled())
	assert.Zero(t, c.count("r1"))
	tm.Stop()
}

func TestCancelledContextStopsLoops(t *testing.T) {
	c := &memCollection{}
	c.set(remote("r1", 1))

	ctx, cancel := context.WithCancel(context.Background())
	tm := New(stubFetcher{}, c, nil, nil)
	require.NoError(t, tm.Init(ctx))
	cancel()

	done := make(chan struct{})
	go func() {
		tm.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("loops did not stop")
	}
}

func TestRefreshBeforeInit(t *testing.T) {
	tm := New(stubFetcher{}, &memCollection{}, nil, nil)
	assert.Error(t, tm.Refresh())
}

func TestOverflowingIntervalIsSkipped(t *testing.T) {
	c := &memCollection{}
	c.set(remote("huge", 2562048*60), remote("max", ^uint64(0)), remote("ok", 30))

	tm := New(stubFetcher{}, c, nil, nil)
	require.NotPanics(t, func() {
		require.NoError(t, tm.Init(context.Background()))
	})
	defer tm.Stop()

	assert.Equal(t, []string{"ok"}, tm.Scheduled())
}

func TestPeriod(t *testing.T) {
	tm := New(stubFetcher{}, &memCollection{}, nil, nil)

	every, ok := tm.period(90)
	assert.True(t, ok)
	assert.Equal(t, 90*time.Minute, every)

	_, ok = tm.period(0)
	assert.False(t, ok)
	_, ok = tm.period(153722880)
	assert.False(t, ok)
}
