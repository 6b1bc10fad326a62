package locate

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const daemonConfig = "mixed-port: 7890\nproxies: []\n"

func writeFile(t *testing.T, path, content string, mtime time.Time) string {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	if !mtime.IsZero() {
		if err := os.Chtimes(path, mtime, mtime); err != nil {
			t.Fatal(err)
		}
	}
	return path
}

func TestScanPrefersNewest(t *testing.T) {
	home := t.TempDir()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	writeFile(t, filepath.Join(home, ".config", "mihomo-extra", "a", "config.yaml"), daemonConfig, base)
	newer := writeFile(t, filepath.Join(home, ".config", "verge-data", "config.yaml"), daemonConfig, base.Add(time.Hour))

	got, ok := Config("", Env{Home: home})
	if !ok {
		t.Fatal("expected a config")
	}
	if got.Path != newer {
		t.Fatalf("path = %s, want %s", got.Path, newer)
	}
	if !got.ModTime.Equal(base.Add(time.Hour)) {
		t.Fatalf("modtime = %v", got.ModTime)
	}
}

func TestScanTieKeepsWalkOrder(t *testing.T) {
	home := t.TempDir()
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	first := writeFile(t, filepath.Join(home, ".config", "mihomo-a", "config.yaml"), daemonConfig, ts)
	writeFile(t, filepath.Join(home, ".config", "mihomo-b", "config.yaml"), daemonConfig, ts)

	got, ok := Config("", Env{Home: home})
	if !ok || got.Path != first {
		t.Fatalf("got %+v, want %s", got, first)
	}
}

func TestContentHeuristicRejectsUnrelatedYAML(t *testing.T) {
	home := t.TempDir()
	writeFile(t, filepath.Join(home, ".config", "clash", "config.yaml"), "name: app\nitems: [1, 2]\n", time.Time{})
	writeFile(t, filepath.Join(home, ".config", "mihomo-x", "config.yml"), "{not yaml", time.Time{})

	if got, ok := Config("", Env{Home: home}); ok {
		t.Fatalf("unexpected config %+v", got)
	}
}

func TestPathHeuristicFiltersScan(t *testing.T) {
	home := t.TempDir()
	writeFile(t, filepath.Join(home, ".config", "someapp", "config.yaml"), daemonConfig, time.Time{})

	if got, ok := Config("", Env{Home: home}); ok {
		t.Fatalf("unexpected config %+v", got)
	}
}

func TestSkipsHeavyDirectories(t *testing.T) {
	home := t.TempDir()
	writeFile(t, filepath.Join(home, ".config", "mihomo-x", "node_modules", "config.yaml"), daemonConfig, time.Time{})
	writeFile(t, filepath.Join(home, ".config", "mihomo-x", "Cache", "config.yaml"), daemonConfig, time.Time{})

	if got, ok := Config("", Env{Home: home}); ok {
		t.Fatalf("unexpected config %+v", got)
	}
}

func TestScanDepthIsBounded(t *testing.T) {
	home := t.TempDir()
	writeFile(t, filepath.Join(home, ".config", "mihomo-x", "b", "c", "d", "config.yaml"), daemonConfig, time.Time{})
	if got, ok := Config("", Env{Home: home}); ok {
		t.Fatalf("unexpected config %+v", got)
	}

	want := writeFile(t, filepath.Join(home, ".config", "mihomo-x", "b", "c", "config.yaml"), daemonConfig, time.Time{})
	got, ok := Config("", Env{Home: home})
	if !ok || got.Path != want {
		t.Fatalf("got %+v, want %s", got, want)
	}
}

func TestWellKnownBeforeScan(t *testing.T) {
	home := t.TempDir()
	old := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	want := writeFile(t, filepath.Join(home, ".config", "clash", "config.yaml"), daemonConfig, old)
	writeFile(t, filepath.Join(home, ".config", "mihomo-x", "config.yaml"), daemonConfig, time.Time{})

	got, ok := Config("", Env{Home: home})
	if !ok || got.Path != want {
		t.Fatalf("got %+v, want %s", got, want)
	}
}

func TestSystemDirsOnlyWithoutHint(t *testing.T) {
	sys := t.TempDir()
	want := writeFile(t, filepath.Join(sys, "config.yaml"), daemonConfig, time.Time{})
	env := Env{Home: t.TempDir(), SystemDirs: []string{sys}}

	got, ok := Config("", env)
	if !ok || got.Path != want {
		t.Fatalf("got %+v, want %s", got, want)
	}
	if got, ok := Config(filepath.Join(t.TempDir(), "missing"), env); ok {
		t.Fatalf("hinted lookup should skip system dirs, got %+v", got)
	}
}

func TestEnvOverride(t *testing.T) {
	dir := t.TempDir()
	want := writeFile(t, filepath.Join(dir, "config.yml"), daemonConfig, time.Time{})
	env := Env{Home: t.TempDir(), ConfigPath: dir}

	got, ok := Config("", env)
	if !ok || got.Path != want {
		t.Fatalf("dir override: got %+v, want %s", got, want)
	}

	file := writeFile(t, filepath.Join(t.TempDir(), "custom.yaml"), "anything: true\n", time.Time{})
	env.ConfigPath = file
	got, ok = Config("", env)
	if !ok || got.Path != file {
		t.Fatalf("file override: got %+v, want %s", got, file)
	}
	if !env.Pinned() {
		t.Fatal("expected pinned env")
	}
}

func TestEnvOverrideDirectoryIsWalked(t *testing.T) {
	dir := t.TempDir()
	want := writeFile(t, filepath.Join(dir, "nested", "config.yaml"), daemonConfig, time.Time{})

	got, ok := Config("", Env{ConfigPath: dir})
	if !ok || got.Path != want {
		t.Fatalf("got %+v, want %s", got, want)
	}
}

func TestHintFileUsedDirectly(t *testing.T) {
	hint := writeFile(t, filepath.Join(t.TempDir(), "my.yaml"), "x: 1\n", time.Time{})
	got, ok := Config(hint, Env{})
	if !ok || got.Path != hint {
		t.Fatalf("got %+v, want %s", got, hint)
	}
}

func TestProfileListFromConfigHint(t *testing.T) {
	root := filepath.Join(t.TempDir(), "mihomo-party")
	hint := writeFile(t, filepath.Join(root, "work", "config.yaml"), daemonConfig, time.Time{})
	want := writeFile(t, filepath.Join(root, "profile.yaml"), "items: []\n", time.Time{})

	got, ok := ProfileList(hint, Env{Home: t.TempDir()})
	if !ok || got.Path != want {
		t.Fatalf("got %+v, want %s", got, want)
	}
}

func TestProfileListPartyDir(t *testing.T) {
	dir := t.TempDir()
	want := writeFile(t, filepath.Join(dir, "profile.yaml"), "items: []\n", time.Time{})
	work := writeFile(t, filepath.Join(dir, "work", "config.yaml"), daemonConfig, time.Time{})
	env := Env{PartyDir: dir}

	got, ok := ProfileList("", env)
	if !ok || got.Path != want {
		t.Fatalf("got %+v, want %s", got, want)
	}
	got, ok = Config("", env)
	if !ok || got.Path != work {
		t.Fatalf("config via party dir: got %+v, want %s", got, work)
	}
}

func TestProfileListScan(t *testing.T) {
	home := t.TempDir()
	want := writeFile(t, filepath.Join(home, "AppData", "Roaming", "vendor", "app", "profile.yaml"), "items: []\n", time.Time{})

	got, ok := ProfileList("", Env{Home: home})
	if !ok || got.Path != want {
		t.Fatalf("got %+v, want %s", got, want)
	}
}

func TestNothingFound(t *testing.T) {
	env := Env{Home: t.TempDir()}
	if _, ok := Config("", env); ok {
		t.Fatal("unexpected config")
	}
	if _, ok := ProfileList("", env); ok {
		t.Fatal("unexpected profile list")
	}
}
