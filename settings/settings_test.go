package settings

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const identityFixture = "%YAML 1.1\r\n" +
	"%TAG !u! tag:unity3d.com,2011:\r\n" +
	"--- !u!129 &1\r\n" +
	"PlayerSettings:\r\n" +
	"  companyName: Example\r\n" +
	"  productName: Space Goats\r\n" +
	"  muteOtherAudioSources: 1\r\n" +
	"  bundleVersion: 1.4.2\r\n" +
	"  AndroidBundleVersionCode: 41\r\n" +
	"  AndroidMinSdkVersion: 22\r\n"

const configFixture = `# build configuration
buildTargets = WebGL, StandaloneWindows64
unityPath=/opt/unity/{unityVersion}/Editor/Unity
webgl.build.history.json=site/history.json

before.copy.1.source=../secrets/keys.json
before.copy.1.target=Assets/Resources/keys.json
after.revert.1.file=Assets/Resources/keys.json
after.revert.0.file=Assets/Plugins/**/*.cfg
after.copy.1.sourceDir=Builds/{buildTarget}
after.copy.1.targetDir=../publish/{buildTarget}
build.env.UNITY_CACHE=/tmp/cache
`

func writeProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "ProjectSettings"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, IdentityFile), []byte(identityFixture), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ProjectVersionFile), []byte("m_EditorVersion: 2022.3.10f1\nm_EditorVersionWithRevision: 2022.3.10f1 (ff3792e53c62)\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, TargetConfigFile), []byte(configFixture), 0644))
	return dir
}

func TestReadIdentity(t *testing.T) {
	dir := writeProject(t)

	id, err := ReadIdentity(filepath.Join(dir, IdentityFile))
	require.NoError(t, err)
	assert.Equal(t, Identity{ProductName: "Space Goats", Version: "1.4.2", Bundle: "41", MuteAudio: true}, id)
}

func TestReadIdentityMissingMarker(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ProjectSettings.asset")
	require.NoError(t, os.WriteFile(path, []byte("PlayerSettings:\n  productName: X\n"), 0644))

	_, err := ReadIdentity(path)
	require.ErrorIs(t, err, ErrMarkerNotFound)
}

func TestWriteIdentityNoChange(t *testing.T) {
	dir := writeProject(t)
	path := filepath.Join(dir, IdentityFile)

	updated, err := WriteIdentity(path, "1.4.2", "41")
	require.NoError(t, err)
	assert.Equal(t, 0, updated)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, identityFixture, string(data))
}

func TestWriteIdentityOneChange(t *testing.T) {
	dir := writeProject(t)
	path := filepath.Join(dir, IdentityFile)

	updated, err := WriteIdentity(path, "1.4.3", "41")
	require.NoError(t, err)
	assert.Equal(t, 1, updated)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	want := strings.Replace(identityFixture, "bundleVersion: 1.4.2", "bundleVersion: 1.4.3", 1)
	assert.Equal(t, want, string(data))

	updated, err = WriteIdentity(path, "1.4.3", "42")
	require.NoError(t, err)
	assert.Equal(t, 1, updated)

	id, err := ReadIdentity(path)
	require.NoError(t, err)
	assert.Equal(t, "1.4.3", id.Version)
	assert.Equal(t, "42", id.Bundle)
}

func TestWriteIdentityRejectsBadBundle(t *testing.T) {
	dir := writeProject(t)
	_, err := WriteIdentity(filepath.Join(dir, IdentityFile), "1.4.3", "forty")
	require.Error(t, err)
}

func TestParseTargetConfig(t *testing.T) {
	cfg, err := ParseTargetConfig(strings.NewReader(configFixture))
	require.NoError(t, err)

	assert.Equal(t, []string{"WebGL", "StandaloneWindows64"}, cfg.BuildTargets)
	assert.Equal(t, "/opt/unity/{unityVersion}/Editor/Unity", cfg.UnityPath)
	assert.Equal(t, "site/history.json", cfg.HistoryJSON)
	assert.Equal(t, []CopyEntry{{Index: 1, Source: "../secrets/keys.json", Target: "Assets/Resources/keys.json"}}, cfg.BeforeCopy)
	assert.Equal(t, []RevertEntry{
		{Index: 0, File: "Assets/Plugins/**/*.cfg"},
		{Index: 1, File: "Assets/Resources/keys.json"},
	}, cfg.AfterRevert)
	assert.Equal(t, []DirCopyEntry{{Index: 1, SourceDir: "Builds/{buildTarget}", TargetDir: "../publish/{buildTarget}"}}, cfg.AfterCopy)
	assert.Equal(t, map[string]string{"UNITY_CACHE": "/tmp/cache"}, cfg.BuildEnv)
	assert.Empty(t, cfg.Unknown)
}

func TestParseTargetConfigPairingErrors(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		wantKey string
	}{
		{
			name:    "target without source",
			in:      "before.copy.1.source=a\nbefore.copy.1.target=b\nbefore.copy.2.target=c\n",
			wantKey: "before.copy.2.target",
		},
		{
			name:    "target for another index",
			in:      "before.copy.2.source=a\nbefore.copy.3.target=b\n",
			wantKey: "before.copy.3.target",
		},
		{
			name:    "source without target at end of file",
			in:      "after.copy.4.sourceDir=a\n",
			wantKey: "after.copy.4.sourceDir",
		},
		{
			name:    "two sources in a row",
			in:      "before.copy.1.source=a\nbefore.copy.2.source=b\nbefore.copy.2.target=c\n",
			wantKey: "before.copy.1.source",
		},
		{
			name:    "target before source",
			in:      "after.copy.1.targetDir=a\nafter.copy.1.sourceDir=b\n",
			wantKey: "after.copy.1.targetDir",
		},
		{
			name:    "duplicate revert",
			in:      "after.revert.1.file=a\nafter.revert.1.file=b\n",
			wantKey: "after.revert.1.file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseTargetConfig(strings.NewReader(tt.in))
			require.Error(t, err)

			var cfgErr *ConfigError
			require.True(t, errors.As(err, &cfgErr))
			assert.Equal(t, tt.wantKey, cfgErr.Key)
			assert.Contains(t, err.Error(), tt.wantKey)
		})
	}
}

func TestParseTargetConfigMalformedLine(t *testing.T) {
	_, err := ParseTargetConfig(strings.NewReader("# ok\nbuildTargets\n"))
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, 2, cfgErr.Line)
}

func TestLoad(t *testing.T) {
	dir := writeProject(t)

	s, err := Load(zerolog.Nop(), dir)
	require.NoError(t, err)

	assert.Equal(t, "Space Goats", s.ProductName)
	assert.Equal(t, "1.4.2", s.ProductVersion)
	assert.Equal(t, "41", s.BundleVersion)
	assert.True(t, s.MuteAudio)
	assert.Equal(t, "2022.3.10f1", s.EngineVersion)
	assert.Equal(t, "/opt/unity/2022.3.10f1/Editor/Unity", s.EnginePath)
	assert.Equal(t, filepath.Join(dir, "Assets", "Scripts", "BuildInfo.cs"), s.BuildInfoPath())
	assert.Equal(t, []string{"Assets/Plugins/**/*.cfg", "Assets/Resources/keys.json"}, s.RevertFiles())

	copies := s.DirCopies("WebGL")
	require.Len(t, copies, 1)
	assert.Equal(t, filepath.Join(dir, "Builds", "WebGL"), copies[0].SourceDir)
	assert.Equal(t, filepath.Join(filepath.Dir(dir), "publish", "WebGL"), copies[0].TargetDir)
}

func TestLoadConfigErrorNamesFile(t *testing.T) {
	dir := writeProject(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, TargetConfigFile), []byte("before.copy.2.target=x\n"), 0644))

	_, err := Load(zerolog.Nop(), dir)
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "before.copy.2.target", cfgErr.Key)
	assert.Equal(t, filepath.Join(dir, TargetConfigFile), cfgErr.Path)
}

func TestResults(t *testing.T) {
	s := &BuildSettings{Targets: []string{"WebGL", "StandaloneWindows64", "Android"}}
	s.ResetResults()

	assert.False(t, s.Succeeded("WebGL"))
	require.NoError(t, s.MarkSucceeded("Android"))
	require.Error(t, s.MarkSucceeded("PS5"))

	assert.True(t, s.Succeeded("Android"))
	assert.False(t, s.Succeeded("StandaloneWindows64"))
	assert.Equal(t, []string{"Android"}, s.SucceededTargets())

	s.ResetResults()
	assert.Empty(t, s.SucceededTargets())
}
