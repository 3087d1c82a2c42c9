package unity

import (
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildArgs(t *testing.T) {
	args := BuildArgs(Options{Target: "WebGL", ProjectPath: "/p", LogFile: "/p/Logs/Build-WebGL.log"})
	assert.Equal(t, []string{
		"-buildTarget", "WebGL",
		"-projectPath", "/p",
		"-logFile", "/p/Logs/Build-WebGL.log",
		"-executeMethod", "BuildScript.PerformBuild",
		"-quit",
		"-batchmode",
	}, args)
}

func TestRotateLog(t *testing.T) {
	dir := t.TempDir()
	logPath := LogPath(dir, "WebGL")

	// first build: nothing to rotate, directory gets created
	prev, err := RotateLog(logPath)
	require.NoError(t, err)
	assert.Empty(t, prev)
	assert.DirExists(t, filepath.Dir(logPath))

	require.NoError(t, os.WriteFile(logPath, []byte("first"), 0644))
	prev, err = RotateLog(logPath)
	require.NoError(t, err)
	assert.Equal(t, PreviousLogPath(logPath), prev)
	assert.NoFileExists(t, logPath)

	require.NoError(t, os.WriteFile(logPath, []byte("second"), 0644))
	_, err = RotateLog(logPath)
	require.NoError(t, err)

	data, err := os.ReadFile(PreviousLogPath(logPath))
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))
}

func TestCopyReportCreatesMetaOnce(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "build.log")
	require.NoError(t, os.WriteFile(logPath, []byte("Build succeeded\n"), 0644))
	report := ReportPath(dir, "WebGL")

	created, err := CopyReport(logPath, report)
	require.NoError(t, err)
	assert.True(t, created)

	data, err := os.ReadFile(report)
	require.NoError(t, err)
	assert.Equal(t, "Build succeeded\n", string(data))

	meta, err := ReadMeta(MetaPath(report))
	require.NoError(t, err)
	assert.Equal(t, 2, meta.FileFormatVersion)
	assert.Regexp(t, regexp.MustCompile(`^[0-9a-f]{32}$`), meta.GUID)

	created, err = CopyReport(logPath, report)
	require.NoError(t, err)
	assert.False(t, created)

	again, err := ReadMeta(MetaPath(report))
	require.NoError(t, err)
	assert.Equal(t, meta.GUID, again.GUID)
}
