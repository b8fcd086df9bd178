package core

import (
	"os"
	"path/filepath"
	"testing"
)

func TestConfigValidate(t *testing.T) {
	base := func() *Config {
		c := NewConfig()
		c.Workers = 1
		c.Listens = []string{"tcp://:1111"}
		c.Go.GcInterval = 60
		c.Log.Tank = "console"
		c.Log.Level = "trace"
		return c
	}

	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"zero workers", func(c *Config) { c.Workers = 0 }, true},
		{"too many workers", func(c *Config) { c.Workers = 65 }, true},
		{"no listens", func(c *Config) { c.Listens = nil }, true},
		{"bad gc interval", func(c *Config) { c.Go.GcInterval = 0 }, true},
		{"bad log level", func(c *Config) { c.Log.Level = "verbose" }, true},
		{"bad log tank", func(c *Config) { c.Log.Tank = "syslog" }, true},
		{"file tank needs file", func(c *Config) { c.Log.Tank = "file"; c.Log.File = "" }, true},
		{"file tank with file ok", func(c *Config) { c.Log.Tank = "file"; c.Log.File = "a.log" }, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := base()
			tc.mutate(c)
			err := c.Validate()
			if tc.wantErr && err == nil {
				t.Fatalf("Validate() = nil, want error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("Validate() = %v, want nil", err)
			}
		})
	}
}

func TestConfigLoads(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "amfdump.json")
	body := `{
		// comments are allowed by the json-plus reader
		"workers": 2,
		"listens": ["tcp://:1111"],
		"api": "127.0.0.1:1112",
		"translate_case": true,
		"go": { "gc_interval": 30 },
		"log": { "tank": "console", "level": "info", "file": "" }
	}`
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	c := NewConfig()
	if err := c.Loads(path); err != nil {
		t.Fatalf("Loads: %v", err)
	}
	if c.Workers != 2 {
		t.Errorf("Workers = %v, want 2", c.Workers)
	}
	if c.Api != "127.0.0.1:1112" {
		t.Errorf("Api = %v, want 127.0.0.1:1112", c.Api)
	}
	if !c.TranslateCase {
		t.Errorf("TranslateCase = false, want true")
	}
}

func TestConfigSubscribeUnsubscribe(t *testing.T) {
	c := NewConfig()
	h := &stubHandler{}

	c.Subscribe(h)
	c.Subscribe(h) // idempotent
	if len(c.reloadHandlers) != 1 {
		t.Fatalf("reloadHandlers = %v, want 1 entry", len(c.reloadHandlers))
	}

	c.Unsubscribe(h)
	if len(c.reloadHandlers) != 0 {
		t.Fatalf("reloadHandlers = %v, want empty", len(c.reloadHandlers))
	}
}

type stubHandler struct{}

func (*stubHandler) OnReloadGlobal(scope int, cc, pc *Config) error { return nil }
