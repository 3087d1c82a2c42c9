package settings

// This file contains the parser for the build target configuration, a
// newline-delimited key=value file.

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
)

// Recognised configuration keys.
const (
	KeyBuildTargets  = "buildTargets"
	KeyUnityPath     = "unityPath"
	KeyHistoryJSON   = "webgl.build.history.json"
	KeyBuildInfoFile = "buildInfo.file"
	keyBuildEnv      = "build.env."
)

// CopyEntry is a pre-build file copy, e.g. injecting a secret key file.
type CopyEntry struct {
	Index  int
	Source string
	Target string
}

// RevertEntry is a file (or glob pattern) restored from version control
// after the build.
type RevertEntry struct {
	Index int
	File  string
}

// DirCopyEntry is a post-build directory copy. Both paths may contain the
// build target token.
type DirCopyEntry struct {
	Index     int
	SourceDir string
	TargetDir string
}

// TargetConfig is the parsed build target configuration.
type TargetConfig struct {
	BuildTargets  []string
	UnityPath     string
	HistoryJSON   string
	BuildInfoFile string
	// BuildEnv holds variables passed only to the engine build
	BuildEnv    map[string]string
	BeforeCopy  []CopyEntry
	AfterRevert []RevertEntry
	AfterCopy   []DirCopyEntry
	// Unknown lists keys that were not recognised, in file order
	Unknown []string
}

// ConfigError reports a malformed configuration line.
type ConfigError struct {
	Path   string
	Line   int
	Key    string
	Reason string
}

func (e *ConfigError) Error() string {
	where := fmt.Sprintf("line %d", e.Line)
	if e.Path != "" {
		where = fmt.Sprintf("%s:%d", e.Path, e.Line)
	}
	if e.Key == "" {
		return fmt.Sprintf("%s: %s", where, e.Reason)
	}
	return fmt.Sprintf("%s: %s: %s", where, e.Key, e.Reason)
}

// openPair is the first half of an indexed pair waiting for its partner.
type openPair struct {
	index int
	key   string
	line  int
	value string
}

type pairGroup struct {
	prefix string // e.g. "before.copy"
	first  string // e.g. "source"
	second string // e.g. "target"
	open   *openPair
	seen   map[int]bool
}

func newPairGroup(prefix, first, second string) *pairGroup {
	return &pairGroup{prefix: prefix, first: first, second: second, seen: map[int]bool{}}
}

// add consumes one half of a pair. A second half is returned together with
// its first half once both are known. The second half must directly follow
// the first half of the same index within the group.
func (g *pairGroup) add(index int, role, key, value string, line int) (first, second string, done bool, err error) {
	switch role {
	case g.first:
		if g.open != nil {
			return "", "", false, &ConfigError{Line: g.open.line, Key: g.open.key,
				Reason: fmt.Sprintf("no matching %s.%d.%s before %s", g.prefix, g.open.index, g.second, key)}
		}
		if g.seen[index] {
			return "", "", false, &ConfigError{Line: line, Key: key, Reason: "duplicate index"}
		}
		g.open = &openPair{index: index, key: key, line: line, value: value}
		return "", "", false, nil
	case g.second:
		if g.open == nil || g.open.index != index {
			return "", "", false, &ConfigError{Line: line, Key: key,
				Reason: fmt.Sprintf("without matching %s.%d.%s", g.prefix, index, g.first)}
		}
		first = g.open.value
		g.seen[index] = true
		g.open = nil
		return first, value, true, nil
	}
	return "", "", false, &ConfigError{Line: line, Key: key, Reason: fmt.Sprintf("unknown role %q", role)}
}

func (g *pairGroup) finish() error {
	if g.open != nil {
		return &ConfigError{Line: g.open.line, Key: g.open.key,
			Reason: fmt.Sprintf("no matching %s.%d.%s", g.prefix, g.open.index, g.second)}
	}
	return nil
}

// splitIndexed parses "<a>.<b>.<N>.<role>" keys.
func splitIndexed(key string) (prefix string, index int, role string, ok bool) {
	parts := strings.Split(key, ".")
	if len(parts) != 4 {
		return "", 0, "", false
	}
	n, err := strconv.Atoi(parts[2])
	if err != nil || n < 0 {
		return "", 0, "", false
	}
	return parts[0] + "." + parts[1], n, parts[3], true
}

// ParseTargetConfig parses a build target configuration. Blank lines and
// lines starting with '#' are ignored.
func ParseTargetConfig(r io.Reader) (*TargetConfig, error) {
	cfg := &TargetConfig{BuildEnv: map[string]string{}}
	beforeCopy := newPairGroup("before.copy", "source", "target")
	afterCopy := newPairGroup("after.copy", "sourceDir", "targetDir")
	reverts := map[int]bool{}

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, found := strings.Cut(line, "=")
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if !found || key == "" {
			return nil, &ConfigError{Line: lineNo, Reason: fmt.Sprintf("expected key=value, got %q", line)}
		}

		switch {
		case key == KeyBuildTargets:
			cfg.BuildTargets = nil
			for _, t := range strings.Split(value, ",") {
				if t = strings.TrimSpace(t); t != "" {
					cfg.BuildTargets = append(cfg.BuildTargets, t)
				}
			}
			continue
		case key == KeyUnityPath:
			cfg.UnityPath = value
			continue
		case key == KeyHistoryJSON:
			cfg.HistoryJSON = value
			continue
		case key == KeyBuildInfoFile:
			cfg.BuildInfoFile = value
			continue
		case strings.HasPrefix(key, keyBuildEnv):
			name := strings.TrimPrefix(key, keyBuildEnv)
			if name == "" {
				return nil, &ConfigError{Line: lineNo, Key: key, Reason: "missing variable name"}
			}
			cfg.BuildEnv[name] = value
			continue
		}

		prefix, index, role, ok := splitIndexed(key)
		if !ok {
			cfg.Unknown = append(cfg.Unknown, key)
			continue
		}

		switch prefix {
		case "before.copy":
			src, dst, done, err := beforeCopy.add(index, role, key, value, lineNo)
			if err != nil {
				return nil, err
			}
			if done {
				cfg.BeforeCopy = append(cfg.BeforeCopy, CopyEntry{Index: index, Source: src, Target: dst})
			}
		case "after.copy":
			src, dst, done, err := afterCopy.add(index, role, key, value, lineNo)
			if err != nil {
				return nil, err
			}
			if done {
				cfg.AfterCopy = append(cfg.AfterCopy, DirCopyEntry{Index: index, SourceDir: src, TargetDir: dst})
			}
		case "after.revert":
			if role != "file" {
				return nil, &ConfigError{Line: lineNo, Key: key, Reason: fmt.Sprintf("unknown role %q", role)}
			}
			if reverts[index] {
				return nil, &ConfigError{Line: lineNo, Key: key, Reason: "duplicate index"}
			}
			reverts[index] = true
			cfg.AfterRevert = append(cfg.AfterRevert, RevertEntry{Index: index, File: value})
		default:
			cfg.Unknown = append(cfg.Unknown, key)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading configuration: %w", err)
	}

	if err := beforeCopy.finish(); err != nil {
		return nil, err
	}
	if err := afterCopy.finish(); err != nil {
		return nil, err
	}

	sort.SliceStable(cfg.BeforeCopy, func(i, j int) bool { return cfg.BeforeCopy[i].Index < cfg.BeforeCopy[j].Index })
	sort.SliceStable(cfg.AfterRevert, func(i, j int) bool { return cfg.AfterRevert[i].Index < cfg.AfterRevert[j].Index })
	sort.SliceStable(cfg.AfterCopy, func(i, j int) bool { return cfg.AfterCopy[i].Index < cfg.AfterCopy[j].Index })

	return cfg, nil
}

// LoadTargetConfig parses the configuration file at path.
func LoadTargetConfig(path string) (*TargetConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open target configuration: %w", err)
	}
	defer f.Close()

	cfg, err := ParseTargetConfig(f)
	if err != nil {
		if cfgErr, ok := err.(*ConfigError); ok {
			cfgErr.Path = path
		}
		return nil, err
	}
	return cfg, nil
}
