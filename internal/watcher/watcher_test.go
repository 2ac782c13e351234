package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventTypeString(t *testing.T) {
	testCases := []struct {
		eventType EventType
		expected  string
	}{
		{EventTypeCreated, "created"},
		{EventTypeModified, "modified"},
		{EventTypeDeleted, "deleted"},
		{EventTypeRenamed, "renamed"},
		{EventType(99), "unknown"},
	}

	for _, tc := range testCases {
		t.Run(tc.expected, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.eventType.String())
		})
	}
}

func TestFilters(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, ".contactform.yml")

	filter := ExactFileFilter(target)
	assert.True(t, filter(target))
	assert.False(t, filter(filepath.Join(dir, "other.yml")))

	assert.True(t, NoSwapFilter(target))
	assert.False(t, NoSwapFilter(filepath.Join(dir, ".contactform.yml.swp")))
	assert.False(t, NoSwapFilter(filepath.Join(dir, ".contactform.yml~")))
}

func TestDebouncerGroupsEvents(t *testing.T) {
	d := &Debouncer{
		delay:  20 * time.Millisecond,
		events: make(chan ChangeEvent, 10),
		output: make(chan []ChangeEvent, 1),
	}

	d.addEvent(ChangeEvent{Type: EventTypeCreated, Path: "a"})
	d.addEvent(ChangeEvent{Type: EventTypeModified, Path: "a"})
	d.addEvent(ChangeEvent{Type: EventTypeModified, Path: "b"})

	select {
	case events := <-d.output:
		require.Len(t, events, 2)
		assert.Equal(t, "a", events[0].Path)
		assert.Equal(t, EventTypeModified, events[0].Type)
		assert.Equal(t, "b", events[1].Path)
	case <-time.After(time.Second):
		t.Fatal("debouncer never flushed")
	}
}

func TestFileWatcherReportsWrites(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, ".contactform.yml")
	require.NoError(t, os.WriteFile(target, []byte("form:\n  success_window: 3s\n"), 0600))

	fw, err := NewFileWatcher(20*time.Millisecond, nil)
	require.NoError(t, err)
	defer fw.Stop()

	var mu sync.Mutex
	var got []ChangeEvent
	fw.AddFilter(NoSwapFilter)
	fw.AddHandler(func(events []ChangeEvent) error {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, events...)
		return nil
	})
	require.NoError(t, fw.WatchFile(target))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	fw.Start(ctx)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "unrelated.txt"), []byte("x"), 0600))
	require.NoError(t, os.WriteFile(target, []byte("form:\n  success_window: 5s\n"), 0600))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) > 0
	}, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	for _, ev := range got {
		assert.Equal(t, target, ev.Path)
	}
}

func TestFileWatcherStopIsIdempotent(t *testing.T) {
	fw, err := NewFileWatcher(10*time.Millisecond, nil)
	require.NoError(t, err)

	assert.NoError(t, fw.Stop())
	assert.NoError(t, fw.Stop())
}
