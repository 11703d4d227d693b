package debug

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestShouldEnableFromEnv(t *testing.T) {
	tests := []struct {
		name    string
		enabled string
		path    string
		want    bool
	}{
		{name: "disabled by default", enabled: "", path: "", want: false},
		{name: "enabled explicit", enabled: "1", path: "", want: true},
		{name: "enabled word", enabled: "on", path: "", want: true},
		{name: "enabled via path", enabled: "", path: "/tmp/scamsim.log", want: true},
		{name: "explicit off wins", enabled: "0", path: "/tmp/scamsim.log", want: false},
		{name: "unknown toggle without path", enabled: "maybe", path: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(EnvEnabled, tt.enabled)
			t.Setenv(EnvLogPath, tt.path)
			if got := ShouldEnableFromEnv(); got != tt.want {
				t.Fatalf("ShouldEnableFromEnv() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDisabledIsNoop(t *testing.T) {
	Close()
	if Enabled() {
		t.Fatal("Enabled() = true before Init")
	}
	if Path() != "" {
		t.Fatalf("Path() = %q, want empty", Path())
	}
	Log("test", "dropped")
	LogKV("test", "dropped", "k", "v")
}

func TestInitCreatesFreshLog(t *testing.T) {
	defer Close()
	t.Setenv(EnvLogPath, "")
	dir := t.TempDir()

	path, err := Init(dir)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	if filepath.Dir(path) != filepath.Join(dir, "debug") {
		t.Fatalf("log dir = %q, want %q", filepath.Dir(path), filepath.Join(dir, "debug"))
	}
	again, err := Init(t.TempDir())
	if err != nil {
		t.Fatalf("second Init: %v", err)
	}
	if again != path {
		t.Fatalf("second Init path = %q, want %q", again, path)
	}
	if !Enabled() {
		t.Fatal("Enabled() = false after Init")
	}
}

func TestInitAppendsToEnvPath(t *testing.T) {
	defer Close()

	logPath := filepath.Join(t.TempDir(), "nested", "aggregate.log")
	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(logPath, []byte("existing\n"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	t.Setenv(EnvLogPath, logPath)

	gotPath, err := Init(t.TempDir())
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	if gotPath != logPath {
		t.Fatalf("Init() path = %q, want %q", gotPath, logPath)
	}

	LogKV("playback", "turn delivered", "index", 3)
	Logf("cli", "exit %s", "success")
	Close()

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	s := string(data)
	if !strings.HasPrefix(s, "existing\n") {
		t.Fatalf("expected existing content to remain at beginning, got %q", s)
	}
	for _, want := range []string{
		"=== SCAMSIM DEBUG LOG ===",
		"[playback",
		"turn delivered index=3",
		"exit success",
		"debug/debug_test.go:",
		"=== DEBUG LOG CLOSED ===",
	} {
		if !strings.Contains(s, want) {
			t.Fatalf("log missing %q:\n%s", want, s)
		}
	}
}
