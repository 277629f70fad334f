package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xtxerr/telemetrygen/internal/errors"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestGenerateAndInspect(t *testing.T) {
	dir := t.TempDir()

	out, err := execute(t, "generate",
		"--duration", "1",
		"--khz", "0.01",
		"--launch-id", "SIM-T",
		"--output", dir,
		"--row-group-size", "100",
		"--disable-progress",
		"--log-level", "error",
	)
	if err != nil {
		t.Fatalf("generate: %v\n%s", err, out)
	}
	if !strings.Contains(out, "completed") {
		t.Errorf("summary missing termination: %s", out)
	}

	path := filepath.Join(dir, "SIM-T_10hz_1s.parquet")
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected output file: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "SIM-T_10hz_1s.manifest.json")); err != nil {
		t.Errorf("expected manifest: %v", err)
	}

	out, err = execute(t, "inspect", "--check-order", path)
	if err != nil {
		t.Fatalf("inspect: %v\n%s", err, out)
	}
	for _, want := range []string{"251 records", "order violations: 0", "one_hertz", "thrust_n"} {
		if !strings.Contains(out, want) {
			t.Errorf("inspect output missing %q:\n%s", want, out)
		}
	}
}

func TestGenerateRejectsZeroRate(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")

	_, err := execute(t, "generate", "--khz", "0", "--output", dir, "--log-level", "error")
	if !errors.IsConfig(err) {
		t.Fatalf("expected config error, got %v", err)
	}
	if errors.ExitCode(err) != errors.ExitConfig {
		t.Errorf("exit code = %d", errors.ExitCode(err))
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Errorf("output dir should not exist: %v", err)
	}
}

func TestSensorsListsCatalog(t *testing.T) {
	out, err := execute(t, "sensors", "--khz", "2")
	if err != nil {
		t.Fatalf("sensors: %v", err)
	}
	for _, want := range []string{"vibration_g", "2000Hz", "one_hertz", "flight:thrust"} {
		if !strings.Contains(out, want) {
			t.Errorf("sensors output missing %q", want)
		}
	}
}
