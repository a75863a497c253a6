// ABOUTME: TestEnv provides isolated test environments for acceptance tests
// ABOUTME: Creates temp directories and runs the CLI binary with environment overrides
package helpers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// TestEnv represents an isolated test environment
type TestEnv struct {
	TempDir    string // Root temp directory
	HomeDir    string // Fake ~/.pluginsync
	ConfigFile string // Fake ~/.pluginsync/config.yaml
	EventsLog  string // Audit log under HomeDir
	Binary     string // Path to pluginsync binary
	TargetURL  string // Exported as GRAFANA_URL
}

// Result captures one CLI invocation
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// NewTestEnv creates a new isolated test environment pointed at targetURL
func NewTestEnv(binary, targetURL string) *TestEnv {
	tempDir := GinkgoT().TempDir()

	env := &TestEnv{
		TempDir:    tempDir,
		HomeDir:    filepath.Join(tempDir, ".pluginsync"),
		ConfigFile: filepath.Join(tempDir, ".pluginsync", "config.yaml"),
		EventsLog:  filepath.Join(tempDir, ".pluginsync", "events", "operations.log"),
		Binary:     binary,
		TargetURL:  targetURL,
	}

	Expect(os.MkdirAll(env.HomeDir, 0755)).To(Succeed())
	return env
}

// Run executes the CLI with the given arguments
func (e *TestEnv) Run(args ...string) *Result {
	return e.RunWithEnvAndInput(nil, "", args...)
}

// RunWithInput executes the CLI with stdin input
func (e *TestEnv) RunWithInput(input string, args ...string) *Result {
	return e.RunWithEnvAndInput(nil, input, args...)
}

// RunWithEnv executes the CLI with additional environment variables
func (e *TestEnv) RunWithEnv(extraEnv map[string]string, args ...string) *Result {
	return e.RunWithEnvAndInput(extraEnv, "", args...)
}

// RunWithEnvAndInput executes the CLI with additional env vars and stdin input
func (e *TestEnv) RunWithEnvAndInput(extraEnv map[string]string, input string, args ...string) *Result {
	cmd := exec.Command(e.Binary, args...)
	cmd.Dir = e.TempDir
	cmd.Env = append(os.Environ(),
		"PLUGINSYNC_HOME="+e.HomeDir,
		"GRAFANA_URL="+e.TargetURL,
		"GRAFANA_TOKEN=",
		"GRAFANA_USER=",
		"GRAFANA_PASSWORD=",
		"NO_COLOR=1",
	)

	for k, v := range extraEnv {
		cmd.Env = append(cmd.Env, k+"="+v)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if input != "" {
		cmd.Stdin = strings.NewReader(input)
	}

	err := cmd.Run()

	exitCode := 0
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			exitCode = 1
		}
	}

	return &Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: exitCode,
	}
}

// WriteConfig writes config.yaml under the fake home
func (e *TestEnv) WriteConfig(content string) {
	Expect(os.WriteFile(e.ConfigFile, []byte(content), 0600)).To(Succeed())
}

// WriteFile writes a file relative to TempDir and returns its path
func (e *TestEnv) WriteFile(name, content string) string {
	path := filepath.Join(e.TempDir, name)
	Expect(os.MkdirAll(filepath.Dir(path), 0755)).To(Succeed())
	Expect(os.WriteFile(path, []byte(content), 0644)).To(Succeed())
	return path
}

// AuditLines returns the decoded audit log entries, oldest first
func (e *TestEnv) AuditLines() []map[string]any {
	data, err := os.ReadFile(e.EventsLog)
	if os.IsNotExist(err) {
		return nil
	}
	Expect(err).NotTo(HaveOccurred())

	var lines []map[string]any
	for _, raw := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		if raw == "" {
			continue
		}
		var entry map[string]any
		Expect(json.Unmarshal([]byte(raw), &entry)).To(Succeed())
		lines = append(lines, entry)
	}
	return lines
}

// BuildBinary builds the pluginsync binary and returns its path
func BuildBinary() string {
	binPath := filepath.Join(GinkgoT().TempDir(), "pluginsync")

	projectRoot, err := findProjectRoot()
	Expect(err).NotTo(HaveOccurred())

	sourcePath := filepath.Join(projectRoot, "cmd", "pluginsync")

	cmd := exec.Command("go", "build", "-o", binPath, sourcePath)
	Expect(cmd.Run()).To(Succeed())
	return binPath
}

// findProjectRoot walks up the directory tree to find go.mod
func findProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("could not find go.mod in any parent directory")
		}
		dir = parent
	}
}

// LoadJSONArray reads a JSON array file
func LoadJSONArray(path string) []map[string]any {
	data, err := os.ReadFile(path)
	Expect(err).NotTo(HaveOccurred())

	var result []map[string]any
	Expect(json.Unmarshal(data, &result)).To(Succeed())
	return result
}
