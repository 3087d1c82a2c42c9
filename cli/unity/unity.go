// Package unity provides the command-line template for headless engine builds
// and the file handling around them: build log rotation, persisted build
// reports and their asset sidecar (.meta) files.
package unity

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// EntryPoint is the editor method that performs the build.
const EntryPoint = "BuildScript.PerformBuild"

const (
	logDir    = "Logs"
	reportDir = "Assets/BuildReports"
)

// Options contains options for one headless build.
type Options struct {
	Target      string // Build target identifier, e.g. WebGL or StandaloneWindows64
	ProjectPath string // Project working directory
	LogFile     string // Path of the engine log for this build
}

// BuildArgs builds the engine command line for one target.
func BuildArgs(opts Options) []string {
	return []string{
		"-buildTarget", opts.Target,
		"-projectPath", opts.ProjectPath,
		"-logFile", opts.LogFile,
		"-executeMethod", EntryPoint,
		"-quit",
		"-batchmode",
	}
}

// LogPath returns where the engine writes the log for target.
func LogPath(workDir, target string) string {
	return filepath.Join(workDir, logDir, fmt.Sprintf("Build-%s.log", target))
}

// PreviousLogPath returns where a log is moved before a new build starts.
func PreviousLogPath(logPath string) string {
	return strings.TrimSuffix(logPath, ".log") + "-prev.log"
}

// ReportPath returns the persisted, source-controlled copy of the log.
func ReportPath(workDir, target string) string {
	return filepath.Join(workDir, filepath.FromSlash(reportDir), target+".log.txt")
}

// RotateLog prepares a fresh log location: the directory is created and an
// existing log replaces the previous one. It returns the path the old log was
// moved to, or "" if there was none.
func RotateLog(logPath string) (string, error) {
	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create log directory: %w", err)
	}
	if _, err := os.Stat(logPath); errors.Is(err, os.ErrNotExist) {
		return "", nil
	}

	prev := PreviousLogPath(logPath)
	if err := os.Remove(prev); err != nil && !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("failed to remove previous log: %w", err)
	}
	if err := os.Rename(logPath, prev); err != nil {
		return "", fmt.Errorf("failed to rotate log: %w", err)
	}
	return prev, nil
}

// CopyReport copies the build log into the report location and makes sure the
// report has a sidecar. It reports whether a new sidecar was written.
func CopyReport(logPath, reportPath string) (bool, error) {
	if err := os.MkdirAll(filepath.Dir(reportPath), 0755); err != nil {
		return false, fmt.Errorf("failed to create report directory: %w", err)
	}
	if err := copyFile(logPath, reportPath); err != nil {
		return false, fmt.Errorf("failed to copy build log: %w", err)
	}
	return EnsureMeta(reportPath)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// Meta is the asset sidecar document the editor keeps next to every asset.
type Meta struct {
	FileFormatVersion  int                `yaml:"fileFormatVersion"`
	GUID               string             `yaml:"guid"`
	TextScriptImporter TextScriptImporter `yaml:"TextScriptImporter"`
}

// TextScriptImporter holds the importer settings for text assets.
type TextScriptImporter struct {
	ExternalObjects    map[string]string `yaml:"externalObjects"`
	UserData           string            `yaml:"userData"`
	AssetBundleName    string            `yaml:"assetBundleName"`
	AssetBundleVariant string            `yaml:"assetBundleVariant"`
}

// MetaPath returns the sidecar path of an asset.
func MetaPath(assetPath string) string {
	return assetPath + ".meta"
}

// NewGUID returns a random asset id in the editor's 32 hex digit form.
func NewGUID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// EnsureMeta writes a sidecar with a fresh GUID unless one already exists.
// Existing sidecars are never touched, so the asset id stays stable.
func EnsureMeta(assetPath string) (bool, error) {
	path := MetaPath(assetPath)
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return false, err
	}

	meta := Meta{
		FileFormatVersion: 2,
		GUID:              NewGUID(),
		TextScriptImporter: TextScriptImporter{
			ExternalObjects: map[string]string{},
		},
	}

	f, err := os.Create(path)
	if err != nil {
		return false, fmt.Errorf("failed to create meta file: %w", err)
	}
	enc := yaml.NewEncoder(f)
	enc.SetIndent(2)
	if err := enc.Encode(&meta); err != nil {
		f.Close()
		return false, fmt.Errorf("failed to write meta file: %w", err)
	}
	if err := enc.Close(); err != nil {
		f.Close()
		return false, err
	}
	return true, f.Close()
}

// ReadMeta parses an asset sidecar.
func ReadMeta(path string) (Meta, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Meta{}, err
	}
	var meta Meta
	if err := yaml.Unmarshal(data, &meta); err != nil {
		return Meta{}, fmt.Errorf("failed to parse meta file %s: %w", path, err)
	}
	return meta, nil
}
