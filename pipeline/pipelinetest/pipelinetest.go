// Package pipelinetest provides a scripted process runner, a recording sink
// and a project fixture for testing code built on the pipeline package.
package pipelinetest

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/perfgo/unirelease/cli/process"
	"github.com/perfgo/unirelease/pipeline"
	"github.com/perfgo/unirelease/settings"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

// MockResponse defines the result of a mocked invocation.
type MockResponse struct {
	Stdout []string
	Stderr []string
	Code   int
	// Do runs before the output is delivered, e.g. to write a build log
	Do func(inv process.Invocation)
}

// MockRunner implements pipeline.Runner without starting processes.
type MockRunner struct {
	mu sync.Mutex

	// Calls records all invocations
	Calls []process.Invocation

	// Responses maps a command line prefix ("git status") to its response.
	// The longest matching prefix wins; unmatched invocations exit 0.
	Responses map[string]MockResponse
}

// NewMockRunner creates a new mock runner.
func NewMockRunner() *MockRunner {
	return &MockRunner{Responses: make(map[string]MockResponse)}
}

// AddResponse sets the response for a command line prefix.
func (m *MockRunner) AddResponse(prefix string, resp MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Responses[prefix] = resp
}

func (m *MockRunner) Run(ctx context.Context, inv process.Invocation, onLine process.LineFunc, onExit process.ExitFunc) int {
	m.mu.Lock()
	m.Calls = append(m.Calls, inv)
	id := len(m.Calls)
	resp := m.lookup(commandLine(inv))
	m.mu.Unlock()

	if resp.Do != nil {
		resp.Do(inv)
	}
	for _, l := range resp.Stdout {
		onLine(id, process.Stdout, l)
	}
	for _, l := range resp.Stderr {
		onLine(id, process.Stderr, l)
	}
	onExit(id, inv.Prefix, resp.Code)
	return resp.Code
}

func (m *MockRunner) lookup(line string) MockResponse {
	var best string
	found := false
	for prefix := range m.Responses {
		if strings.HasPrefix(line, prefix) && (!found || len(prefix) > len(best)) {
			best, found = prefix, true
		}
	}
	if !found {
		return MockResponse{}
	}
	return m.Responses[best]
}

func commandLine(inv process.Invocation) string {
	return strings.Join(append([]string{inv.Executable}, inv.Args...), " ")
}

// CommandLines returns every recorded invocation as "executable args...".
func (m *MockRunner) CommandLines() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.Calls))
	for _, inv := range m.Calls {
		out = append(out, commandLine(inv))
	}
	return out
}

// Sink records emitted lines.
type Sink struct {
	mu    sync.Mutex
	Lines []pipeline.Line
}

func (s *Sink) Emit(l pipeline.Line) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Lines = append(s.Lines, l)
}

// Texts returns the text of every line with severity sev.
func (s *Sink) Texts(sev pipeline.Severity) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, l := range s.Lines {
		if l.Severity == sev {
			out = append(out, l.Text)
		}
	}
	return out
}

// Contains reports whether a line with severity sev contains substr.
func (s *Sink) Contains(sev pipeline.Severity, substr string) bool {
	for _, text := range s.Texts(sev) {
		if strings.Contains(text, substr) {
			return true
		}
	}
	return false
}

// Project file contents written by NewProject.
const (
	IdentityContent = "PlayerSettings:\n" +
		"  productName: Space Goats\n" +
		"  muteOtherAudioSources: 0\n" +
		"  bundleVersion: 1.4.2\n" +
		"  AndroidBundleVersionCode: 41\n"

	EngineVersionContent = "m_EditorVersion: 2022.3.10f1\n"

	ConfigContent = "buildTargets=WebGL,StandaloneWindows64\n" +
		"unityPath=/opt/unity/{unityVersion}/Editor/Unity\n" +
		"webgl.build.history.json=site/history.json\n" +
		"before.copy.1.source=secrets/keys.json\n" +
		"before.copy.1.target=Assets/Resources/keys.json\n" +
		"after.revert.1.file=Assets/Resources/keys.json\n" +
		"after.copy.1.sourceDir=Builds/{buildTarget}\n" +
		"after.copy.1.targetDir=publish/{buildTarget}\n" +
		"build.env.UNITY_NOPROXY=1\n"

	BuildInfoContent = "namespace SpaceGoats\n{\n}\n"
)

// NewProject writes a complete project into a temporary directory and
// returns the directory.
func NewProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		settings.IdentityFile:         IdentityContent,
		settings.ProjectVersionFile:   EngineVersionContent,
		settings.TargetConfigFile:     ConfigContent,
		settings.DefaultBuildInfoFile: BuildInfoContent,
		"secrets/keys.json":           `{"key":"secret"}`,
	}
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
	return dir
}

// NewSession loads the project in dir into a session backed by runner and
// sink.
func NewSession(t *testing.T, dir string, runner *MockRunner, sink *Sink) *pipeline.Session {
	t.Helper()
	s, err := settings.Load(zerolog.Nop(), dir)
	require.NoError(t, err)
	return &pipeline.Session{
		Settings:   s,
		Sink:       sink,
		Runner:     runner,
		Logger:     zerolog.Nop(),
		Git:        "git",
		MirrorTool: "robocopy",
	}
}
