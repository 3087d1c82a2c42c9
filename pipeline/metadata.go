package pipeline

// This file contains the rewrites of version metadata: the identity file and
// the generated build info source.

import (
	"bytes"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/perfgo/unirelease/settings"
)

const (
	buildInfoTag = "buildinfo"
	identityTag  = "identity"

	compiledOnLayout = "2006-01-02 15:04"
)

const buildInfoFormat = `%s
{
    public static class BuildInfo
    {
        public const string CompiledOn = "%s";
        public const int BuildNumber = %d;
        public const int Patch = %d;
        public const bool MuteAudio = %t;
    }
}
`

// UpdateBuildInfo regenerates the build info source from the session. The
// namespace line is taken from the existing file. It reports whether the file
// was written; identical content is left alone.
func (s *Session) UpdateBuildInfo(patch int) (bool, error) {
	path := s.Settings.BuildInfoPath()

	current, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("failed to read build info: %w", err)
	}

	first, _, _ := strings.Cut(string(current), "\n")
	first = strings.TrimRight(first, "\r")
	if !strings.HasPrefix(strings.TrimSpace(first), "namespace ") {
		return false, fmt.Errorf("%w: namespace line in %s", settings.ErrMarkerNotFound, path)
	}

	bundle, err := strconv.Atoi(s.Settings.BundleVersion)
	if err != nil {
		return false, fmt.Errorf("bundle counter %q is not a number: %w", s.Settings.BundleVersion, err)
	}

	content := fmt.Sprintf(buildInfoFormat,
		first,
		s.Time().Format(compiledOnLayout),
		bundle,
		patch,
		s.Settings.MuteAudio,
	)
	if bytes.Contains(current, []byte("\r\n")) {
		content = strings.ReplaceAll(content, "\n", "\r\n")
	}

	if bytes.Equal(current, []byte(content)) {
		s.emit(Info, buildInfoTag, "no changes")
		return false, nil
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return false, fmt.Errorf("failed to write build info: %w", err)
	}
	s.emit(Success, buildInfoTag, "updated %s", s.relative(path))
	return true, nil
}

// UpdateIdentity writes version and bundle into the identity file and returns
// the number of changed lines.
func (s *Session) UpdateIdentity(version, bundle string) (int, error) {
	n, err := settings.WriteIdentity(s.Settings.IdentityPath(), version, bundle)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		s.emit(Info, identityTag, "no changes")
		return 0, nil
	}
	s.emit(Success, identityTag, "updated %d lines", n)
	return n, nil
}
