package config

import (
	"sync"
	"testing"
)

func TestSingleton(t *testing.T) {
	SetConfig(nil)
	t.Cleanup(func() { SetConfig(nil) })

	if GetConfig() != nil {
		t.Fatal("expected nil config before initialization")
	}

	func() {
		defer func() {
			if recover() == nil {
				t.Error("MustGetConfig() did not panic before initialization")
			}
		}()
		MustGetConfig()
	}()

	cfg := NewDefaultConfig()
	SetConfig(cfg)
	if GetConfig() != cfg || MustGetConfig() != cfg {
		t.Error("GetConfig() did not return the installed config")
	}
}

func TestReloadConfig(t *testing.T) {
	SetConfig(nil)
	t.Cleanup(func() { SetConfig(nil) })

	path := writeConfig(t, "store:\n  driver: memory\nscheduler:\n  workers: 2\n")
	cfg, err := ReloadConfig(path)
	if err != nil {
		t.Fatalf("ReloadConfig() error = %v", err)
	}
	if cfg.Scheduler.Workers != 2 || GetConfig() != cfg {
		t.Errorf("reloaded config not installed: %+v", GetConfig().Scheduler)
	}

	bad := writeConfig(t, "store:\n  driver: nope\n")
	if _, err := ReloadConfig(bad); err == nil {
		t.Fatal("ReloadConfig(bad) error = nil")
	}
	if GetConfig() != cfg {
		t.Error("failed reload replaced the configuration")
	}
}

func TestSingleton_ConcurrentAccess(t *testing.T) {
	SetConfig(NewDefaultConfig())
	t.Cleanup(func() { SetConfig(nil) })

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = GetConfig()
		}()
		go func() {
			defer wg.Done()
			SetConfig(NewDefaultConfig())
		}()
	}
	wg.Wait()

	if GetConfig() == nil {
		t.Error("expected config after concurrent access")
	}
}
