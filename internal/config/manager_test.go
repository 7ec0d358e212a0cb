package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadYAML(t *testing.T) {
	path := writeConfig(t, "config.yaml", `
logging:
  level: debug
  console: true
storage:
  path: ./data/state.json
scheduler:
  enabled: true
  spec: "@every 30s"
dispatcher:
  workers: 2
  platform_delay: 500ms
media:
  library_dir: ./media
platforms:
  default: [facebook, instagram]
  telegram:
    token: abc
    chat_id: 42
`)

	m := NewManager(path)
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Logging.Level != "debug" || !cfg.Scheduler.Enabled {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.Scheduler.Spec != "@every 30s" {
		t.Fatalf("spec = %q", cfg.Scheduler.Spec)
	}
	if cfg.Platforms.Telegram == nil || cfg.Platforms.Telegram.ChatID != 42 {
		t.Fatalf("telegram section: %+v", cfg.Platforms.Telegram)
	}
	if got := m.Get(); got != cfg {
		t.Fatal("Get did not return the committed snapshot")
	}
}

func TestLoadJSON(t *testing.T) {
	path := writeConfig(t, "config.json", `{
  "logging": {"console": true},
  "storage": {"path": "./state.json"},
  "scheduler": {"enabled": false},
  "media": {"library_dir": "./media"},
  "platforms": {}
}`)

	m := NewManager(path)
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Storage.Path != "./state.json" {
		t.Fatalf("storage path = %q", cfg.Storage.Path)
	}
}

func TestLoadRejectsUnknownField(t *testing.T) {
	path := writeConfig(t, "config.yaml", `
logging:
  console: true
storage:
  path: ./state.json
schedulr:
  enabled: true
media:
  library_dir: ./media
platforms: {}
`)

	m := NewManager(path)
	if _, err := m.Load(); err == nil {
		t.Fatal("expected unknown-field error")
	}
}

func TestLoadRejectsTrailingData(t *testing.T) {
	path := writeConfig(t, "config.json", `{"platforms": {}}{"extra": true}`)
	m := NewManager(path)
	if _, err := m.Load(); err == nil {
		t.Fatal("expected trailing-data error")
	}
}

func TestSubscribePublishAndUnsubscribe(t *testing.T) {
	path := writeConfig(t, "config.json", `{"platforms": {}}`)
	m := NewManager(path)
	if _, err := m.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}

	ch := m.Subscribe(1)
	cfg := &Config{}
	m.publish(cfg)

	select {
	case got := <-ch:
		if got != cfg {
			t.Fatal("subscriber received wrong snapshot")
		}
	case <-time.After(time.Second):
		t.Fatal("subscriber never received config")
	}

	m.Unsubscribe(ch)
	if _, ok := <-ch; ok {
		t.Fatal("channel still open after Unsubscribe")
	}
}

func TestPublishDropsOldestWhenSlow(t *testing.T) {
	m := NewManager("unused")
	ch := m.Subscribe(1)

	first, second := &Config{}, &Config{}
	m.publish(first)
	m.publish(second)

	got := <-ch
	if got != second {
		t.Fatal("expected the newest snapshot to win")
	}
}

func TestDurationFields(t *testing.T) {
	d, err := Duration("x", " 500ms ")
	if err != nil || d != 500*time.Millisecond {
		t.Fatalf("got %v, %v", d, err)
	}
	if _, err := Duration("x", "fast"); err == nil {
		t.Fatal("expected error for garbage duration")
	}
	if _, err := Duration("x", "-1s"); err == nil {
		t.Fatal("expected error for negative duration")
	}
	d, err = DurationOr("x", "", 2*time.Second)
	if err != nil || d != 2*time.Second {
		t.Fatalf("default: got %v, %v", d, err)
	}
	d, err = DurationOr("x", "3s", 2*time.Second)
	if err != nil || d != 3*time.Second {
		t.Fatalf("explicit: got %v, %v", d, err)
	}
}
