package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTempFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func envMap(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestLoadYAML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.yaml", "addr: :9999\nbase_url: http://gpu:11434\nmodel: llama3\ntimeout_seconds: 30\ncors_origins: [\"http://a\"]\n")
	cfg, err := Load(p)
	if err != nil { t.Fatalf("load: %v", err) }
	if cfg.Addr != ":9999" || cfg.BaseURL != "http://gpu:11434" || cfg.Model != "llama3" || cfg.TimeoutSeconds != 30 || len(cfg.CORSOrigins) != 1 {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
}

func TestLoadJSON(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.json", `{"addr":":7070","base_url":"http://h:1","model":"m2","log_level":"debug","metrics_addr":":9090"}`)
	cfg, err := Load(p)
	if err != nil { t.Fatalf("load: %v", err) }
	if cfg.Addr != ":7070" || cfg.BaseURL != "http://h:1" || cfg.Model != "m2" || cfg.LogLevel != "debug" || cfg.MetricsAddr != ":9090" {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
}

func TestLoadTOML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.toml", "addr=\":8081\"\nbase_url=\"http://x:2\"\nmodel=\"m3\"\ncors_enabled=true\n")
	cfg, err := Load(p)
	if err != nil { t.Fatalf("load: %v", err) }
	if cfg.Addr != ":8081" || cfg.BaseURL != "http://x:2" || cfg.Model != "m3" || !cfg.CORSEnabled {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(""); err == nil { t.Fatalf("expected error on empty path") }
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.txt", "not supported")
	if _, err := Load(p); err == nil { t.Fatalf("expected unsupported extension error") }
}

func TestFromEnv(t *testing.T) {
	cfg, err := FromEnv(envMap(map[string]string{
		"OLLAMAPROXY_BASE_URL":        "http://env:11434",
		"OLLAMAPROXY_MODEL":           " phi3 ",
		"OLLAMAPROXY_TIMEOUT_SECONDS": "12",
		"OLLAMAPROXY_CORS_ENABLED":    "true",
		"OLLAMAPROXY_CORS_ORIGINS":    "http://a, http://b,",
	}))
	if err != nil { t.Fatalf("from env: %v", err) }
	if cfg.BaseURL != "http://env:11434" || cfg.Model != "phi3" || cfg.TimeoutSeconds != 12 || !cfg.CORSEnabled {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "http://b" {
		t.Fatalf("unexpected origins: %v", cfg.CORSOrigins)
	}
}

func TestFromEnv_BadValues(t *testing.T) {
	if _, err := FromEnv(envMap(map[string]string{"OLLAMAPROXY_TIMEOUT_SECONDS": "soon"})); err == nil {
		t.Fatalf("expected timeout parse error")
	}
	if _, err := FromEnv(envMap(map[string]string{"OLLAMAPROXY_CORS_ENABLED": "maybe"})); err == nil {
		t.Fatalf("expected bool parse error")
	}
}

func TestResolve_Precedence(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.yaml", "addr: :1111\nmodel: file-model\n")
	cfg, err := Resolve(p, envMap(map[string]string{"OLLAMAPROXY_MODEL": "env-model"}))
	if err != nil { t.Fatalf("resolve: %v", err) }
	if cfg.Addr != ":1111" { t.Fatalf("file should override default addr: %+v", cfg) }
	if cfg.Model != "env-model" { t.Fatalf("env should override file model: %+v", cfg) }
	if cfg.BaseURL != "http://localhost:11434" { t.Fatalf("default base url lost: %+v", cfg) }
}

func TestResolve_NoFile(t *testing.T) {
	cfg, err := Resolve("", envMap(nil))
	if err != nil { t.Fatalf("resolve: %v", err) }
	if cfg.Model != "gemma3:4b" || cfg.Addr != ":8080" { t.Fatalf("unexpected default model: %+v", cfg) }
}

func TestValidate(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil { t.Fatalf("default must validate: %v", err) }
	bad := Default()
	bad.BaseURL = "localhost:11434"
	if err := bad.Validate(); err == nil { t.Fatalf("expected scheme error") }
	bad = Default()
	bad.TimeoutSeconds = -1
	if err := bad.Validate(); err == nil { t.Fatalf("expected timeout error") }
	bad = Default()
	bad.LogFormat = "xml"
	if err := bad.Validate(); err == nil { t.Fatalf("expected log format error") }
}

func TestLoadDotEnv(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, ".env", "OLLAMAPROXY_TEST_DOTENV=from-file\n")
	t.Setenv("OLLAMAPROXY_TEST_DOTENV", "")
	_ = os.Unsetenv("OLLAMAPROXY_TEST_DOTENV")
	if err := LoadDotEnv(filepath.Join(d, "missing.env"), p); err != nil { t.Fatalf("load dotenv: %v", err) }
	if v := os.Getenv("OLLAMAPROXY_TEST_DOTENV"); v != "from-file" { t.Fatalf("got %q", v) }
}

func TestSplitCSV(t *testing.T) {
	cases := []struct{ in string; want []string }{
		{"a,b,c", []string{"a","b","c"}},
		{" a , b , c ", []string{"a","b","c"}},
		{"a,,c", []string{"a","c"}},
		{"", nil},
	}
	for _, c := range cases {
		got := SplitCSV(c.in)
		if len(got) != len(c.want) { t.Fatalf("%q -> %v, want %v", c.in, got, c.want) }
		for i := range got {
			if got[i] != c.want[i] { t.Fatalf("%q -> %v, want %v", c.in, got, c.want) }
		}
	}
}

func TestResolveFrom_BaseLayerYieldsToFileAndEnv(t *testing.T) {
	base := Default()
	base.LogLevel = "warn"

	cfg, err := ResolveFrom(base, "", envMap(nil))
	if err != nil { t.Fatalf("resolve: %v", err) }
	if cfg.LogLevel != "warn" { t.Fatalf("base level lost: %q", cfg.LogLevel) }

	p := writeTempFile(t, t.TempDir(), "cfg.yaml", "log_level: debug\n")
	cfg, err = ResolveFrom(base, p, envMap(nil))
	if err != nil { t.Fatalf("resolve: %v", err) }
	if cfg.LogLevel != "debug" { t.Fatalf("file level ignored: %q", cfg.LogLevel) }

	cfg, err = ResolveFrom(base, p, envMap(map[string]string{"OLLAMAPROXY_LOG_LEVEL": "error"}))
	if err != nil { t.Fatalf("resolve: %v", err) }
	if cfg.LogLevel != "error" { t.Fatalf("env level ignored: %q", cfg.LogLevel) }
}
