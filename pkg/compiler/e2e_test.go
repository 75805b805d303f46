package compiler

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

// Scenario is one end-to-end program from testdata/scenarios.yaml.
type Scenario struct {
	Name      string `yaml:"name"`
	Source    string `yaml:"source"`
	Helper    string `yaml:"helper"` // C source linked next to the listing
	FrameSize int    `yaml:"frame_size"`
	ExitCode  int    `yaml:"exit_code"`
	Error     string `yaml:"error"`
}

type scenarioFile struct {
	Scenarios []Scenario `yaml:"scenarios"`
}

func loadScenarios(t *testing.T) []Scenario {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", "scenarios.yaml"))
	if err != nil {
		t.Fatalf("reading scenarios: %v", err)
	}
	var f scenarioFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		t.Fatalf("parsing scenarios: %v", err)
	}
	if len(f.Scenarios) == 0 {
		t.Fatal("no scenarios loaded")
	}
	return f.Scenarios
}

// requireToolchain skips unless the listing can be assembled and run here.
func requireToolchain(t *testing.T) string {
	t.Helper()
	if runtime.GOOS != "linux" || runtime.GOARCH != "amd64" {
		t.Skipf("end-to-end tests need linux/amd64, have %s/%s", runtime.GOOS, runtime.GOARCH)
	}
	cc, err := exec.LookPath("cc")
	if err != nil {
		t.Skip("no cc on PATH")
	}
	return cc
}

// runCode compiles src, links it with the optional C helper and returns
// the exit status of the resulting program.
func runCode(t *testing.T, cc string, sc Scenario) int {
	t.Helper()
	listing, err := Compile(sc.Source, Options{FrameSize: sc.FrameSize, Check: true})
	if err != nil {
		t.Fatalf("Compile error = %v", err)
	}

	dir := t.TempDir()
	asmPath := filepath.Join(dir, "prog.s")
	if err := os.WriteFile(asmPath, []byte(listing), 0o644); err != nil {
		t.Fatal(err)
	}
	args := []string{"-o", filepath.Join(dir, "prog"), asmPath}
	if sc.Helper != "" {
		helperPath := filepath.Join(dir, "helper.c")
		if err := os.WriteFile(helperPath, []byte(sc.Helper), 0o644); err != nil {
			t.Fatal(err)
		}
		args = append(args, helperPath)
	}
	if out, err := exec.Command(cc, args...).CombinedOutput(); err != nil {
		t.Fatalf("cc failed: %v\n%s\nlisting:\n%s", err, out, listing)
	}

	err = exec.Command(filepath.Join(dir, "prog")).Run()
	var exitErr *exec.ExitError
	switch {
	case err == nil:
		return 0
	case errors.As(err, &exitErr):
		return exitErr.ExitCode()
	}
	t.Fatalf("running program: %v", err)
	return -1
}

func TestScenarios_E2E(t *testing.T) {
	for _, sc := range loadScenarios(t) {
		t.Run(sc.Name, func(t *testing.T) {
			if sc.Error != "" {
				out, err := Compile(sc.Source, Options{FrameSize: sc.FrameSize})
				if err == nil || !strings.Contains(err.Error(), sc.Error) {
					t.Fatalf("error = %v, want one containing %q", err, sc.Error)
				}
				if out != "" {
					t.Fatalf("listing emitted with an error:\n%s", out)
				}
				return
			}

			cc := requireToolchain(t)
			if got := runCode(t, cc, sc); got != sc.ExitCode {
				t.Errorf("exit status = %d, want %d", got, sc.ExitCode)
			}
		})
	}
}

func TestArithmetic_E2E(t *testing.T) {
	cc := requireToolchain(t)
	tests := []struct {
		expr     string
		expected int
	}{
		{"6 * 7", 42},
		{"100 / 10", 10},
		{"2 + 3 * 4 - 6 / 2", 11},
		{"(2 + 3) * (4 - 1)", 15},
		{"-(3 - 10)", 7},
		{"1 < 2", 1},
		{"2 <= 1", 0},
		{"5 > 3", 1},
		{"3 >= 5", 0},
		{"4 == 4", 1},
		{"4 != 4", 0},
	}
	for _, tt := range tests {
		src := "int main() { return " + tt.expr + "; }"
		if got := runCode(t, cc, Scenario{Source: src}); got != tt.expected {
			t.Errorf("%s: expected %d, got %d", tt.expr, tt.expected, got)
		}
	}
}
