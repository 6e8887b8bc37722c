package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/deepnoodle-ai/wonton/assert"
)

func TestWatcherReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cowrite.yaml")
	assert.NoError(t, os.WriteFile(path, []byte("log:\n  level: info\n"), 0644))

	reloaded := make(chan *Config, 1)
	watcher, err := NewWatcher(path, nil, func(c *Config) {
		select {
		case reloaded <- c:
		default:
		}
	})
	assert.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		watcher.Start(ctx)
		close(done)
	}()

	// Give the watcher a moment to arm before writing
	time.Sleep(100 * time.Millisecond)
	assert.NoError(t, os.WriteFile(path, []byte("log:\n  level: debug\n"), 0644))

	select {
	case config := <-reloaded:
		assert.Equal(t, "debug", config.Log.Level)
	case <-time.After(3 * time.Second):
		t.Fatal("no reload observed")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestWatcherSkipsInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cowrite.yaml")
	assert.NoError(t, os.WriteFile(path, []byte("log:\n  level: info\n"), 0644))

	reloaded := make(chan *Config, 1)
	watcher, err := NewWatcher(path, nil, func(c *Config) {
		reloaded <- c
	})
	assert.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go watcher.Start(ctx)

	time.Sleep(100 * time.Millisecond)
	assert.NoError(t, os.WriteFile(path, []byte("log:\n  level: whisper\n"), 0644))

	select {
	case <-reloaded:
		t.Fatal("invalid config should not be delivered")
	case <-time.After(time.Second):
	}
}

func TestNewWatcherRequiresCallback(t *testing.T) {
	_, err := NewWatcher("x.yaml", nil, nil)
	assert.Error(t, err)
}
