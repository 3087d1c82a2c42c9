// Package settings holds the in-memory state of one project: its identity,
// build targets with their per-run success, and the copy/revert maps that
// surround a build.
package settings

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

// Project-relative locations.
const (
	IdentityFile         = "ProjectSettings/ProjectSettings.asset"
	ProjectVersionFile   = "ProjectSettings/ProjectVersion.txt"
	TargetConfigFile     = "unirelease.properties"
	DefaultBuildInfoFile = "Assets/Scripts/BuildInfo.cs"
)

// Placeholder tokens in configured paths.
const (
	UnityVersionToken = "{unityVersion}"
	BuildTargetToken  = "{buildTarget}"
)

const editorVersionLabel = "m_EditorVersion:"

// BuildSettings is the state of one project session. It is created once per
// selected project directory and replaced, never merged, when the directory
// changes.
type BuildSettings struct {
	// WorkDir is the absolute project directory
	WorkDir string

	ProductName    string
	ProductVersion string
	BundleVersion  string
	MuteAudio      bool

	// Targets are the build target identifiers in build order
	Targets []string
	// succeeded is index-aligned with Targets
	succeeded []bool

	BeforeCopy  []CopyEntry
	AfterRevert []RevertEntry
	AfterCopy   []DirCopyEntry

	// HistoryJSON is the WebGL build history file, empty when not configured
	HistoryJSON   string
	BuildInfoFile string
	BuildEnv      map[string]string

	// EngineVersion is the editor version the project was saved with
	EngineVersion string
	// EnginePath is the resolved engine executable
	EnginePath string
}

// Load reads the identity file, the engine version and the target
// configuration of the project in workDir.
func Load(logger zerolog.Logger, workDir string) (*BuildSettings, error) {
	abs, err := filepath.Abs(workDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve project directory: %w", err)
	}
	if info, err := os.Stat(abs); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("project directory %s does not exist", abs)
	}

	s := &BuildSettings{WorkDir: abs}

	identity, err := ReadIdentity(s.Path(IdentityFile))
	if err != nil {
		return nil, err
	}
	s.ProductName = identity.ProductName
	s.ProductVersion = identity.Version
	s.BundleVersion = identity.Bundle
	s.MuteAudio = identity.MuteAudio

	s.EngineVersion, err = ReadEngineVersion(s.Path(ProjectVersionFile))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	if s.EngineVersion == "" {
		logger.Warn().Str("file", ProjectVersionFile).Msg("Engine version not found")
	}

	cfg, err := LoadTargetConfig(s.Path(TargetConfigFile))
	if err != nil {
		return nil, err
	}
	for _, key := range cfg.Unknown {
		logger.Warn().Str("key", key).Str("file", TargetConfigFile).Msg("Ignoring unknown configuration key")
	}
	if err := s.apply(cfg); err != nil {
		return nil, err
	}

	logger.Debug().
		Str("dir", s.WorkDir).
		Str("product", s.ProductName).
		Str("version", s.ProductVersion).
		Str("bundle", s.BundleVersion).
		Strs("targets", s.Targets).
		Str("engine", s.EnginePath).
		Msg("Loaded project settings")

	return s, nil
}

func (s *BuildSettings) apply(cfg *TargetConfig) error {
	s.Targets = cfg.BuildTargets
	s.succeeded = make([]bool, len(s.Targets))
	s.BeforeCopy = cfg.BeforeCopy
	s.AfterRevert = cfg.AfterRevert
	s.AfterCopy = cfg.AfterCopy
	s.HistoryJSON = cfg.HistoryJSON
	s.BuildEnv = cfg.BuildEnv

	s.BuildInfoFile = cfg.BuildInfoFile
	if s.BuildInfoFile == "" {
		s.BuildInfoFile = DefaultBuildInfoFile
	}

	if strings.Contains(cfg.UnityPath, UnityVersionToken) && s.EngineVersion == "" {
		return &ConfigError{Path: s.Path(TargetConfigFile), Key: KeyUnityPath,
			Reason: fmt.Sprintf("uses %s but the engine version is unknown", UnityVersionToken)}
	}
	s.EnginePath = strings.ReplaceAll(cfg.UnityPath, UnityVersionToken, s.EngineVersion)
	return nil
}

// ReadEngineVersion returns the editor version recorded in the project
// version file.
func ReadEngineVersion(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, editorVersionLabel) {
			return strings.TrimSpace(strings.TrimPrefix(line, editorVersionLabel)), nil
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return "", fmt.Errorf("%w: %q in %s", ErrMarkerNotFound, editorVersionLabel, path)
}

// Path resolves a project-relative path; absolute paths are returned as is.
func (s *BuildSettings) Path(rel string) string {
	if filepath.IsAbs(rel) {
		return rel
	}
	return filepath.Join(s.WorkDir, filepath.FromSlash(rel))
}

// IdentityPath is the absolute path of the identity file.
func (s *BuildSettings) IdentityPath() string {
	return s.Path(IdentityFile)
}

// BuildInfoPath is the absolute path of the generated build metadata file.
func (s *BuildSettings) BuildInfoPath() string {
	return s.Path(s.BuildInfoFile)
}

// ResetResults marks every target as not succeeded.
func (s *BuildSettings) ResetResults() {
	s.succeeded = make([]bool, len(s.Targets))
}

// MarkSucceeded records a successful build of target.
func (s *BuildSettings) MarkSucceeded(target string) error {
	for i, t := range s.Targets {
		if t == target {
			s.succeeded[i] = true
			return nil
		}
	}
	return fmt.Errorf("unknown build target %q", target)
}

// Succeeded reports whether target was built successfully in this session.
func (s *BuildSettings) Succeeded(target string) bool {
	for i, t := range s.Targets {
		if t == target {
			return s.succeeded[i]
		}
	}
	return false
}

// SucceededTargets returns the successfully built targets in build order.
func (s *BuildSettings) SucceededTargets() []string {
	var out []string
	for i, t := range s.Targets {
		if s.succeeded[i] {
			out = append(out, t)
		}
	}
	return out
}

// DirCopies returns the post-build directory copies for target with the
// build target token substituted and paths resolved against the project.
func (s *BuildSettings) DirCopies(target string) []DirCopyEntry {
	out := make([]DirCopyEntry, 0, len(s.AfterCopy))
	for _, e := range s.AfterCopy {
		out = append(out, DirCopyEntry{
			Index:     e.Index,
			SourceDir: s.Path(strings.ReplaceAll(e.SourceDir, BuildTargetToken, target)),
			TargetDir: s.Path(strings.ReplaceAll(e.TargetDir, BuildTargetToken, target)),
		})
	}
	return out
}

// RevertFiles returns the configured after-build revert paths in order.
func (s *BuildSettings) RevertFiles() []string {
	out := make([]string, 0, len(s.AfterRevert))
	for _, e := range s.AfterRevert {
		out = append(out, e.File)
	}
	return out
}
