package settings

// This file contains reading and rewriting of the project identity file, a
// space-indented "key: value" text file owned by the engine editor.

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// ErrMarkerNotFound is returned when a required labelled line is missing.
var ErrMarkerNotFound = errors.New("marker line not found")

// Labels of the identity lines, including their indentation.
const (
	LabelProductName = "  productName: "
	LabelVersion     = "  bundleVersion: "
	LabelBundle      = "  AndroidBundleVersionCode: "
	LabelMuteAudio   = "  muteOtherAudioSources: "
)

// Identity is the product identity stored in the identity file.
type Identity struct {
	ProductName string
	Version     string
	Bundle      string
	MuteAudio   bool
}

// ReadIdentity scans the identity file for the labelled lines.
func ReadIdentity(path string) (Identity, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Identity{}, fmt.Errorf("failed to read identity file: %w", err)
	}

	found := map[string]string{}
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimRight(line, "\r")
		for _, label := range []string{LabelProductName, LabelVersion, LabelBundle, LabelMuteAudio} {
			if _, seen := found[label]; !seen && strings.HasPrefix(line, label) {
				found[label] = strings.TrimSpace(strings.TrimPrefix(line, label))
			}
		}
	}

	for _, label := range []string{LabelProductName, LabelVersion, LabelBundle} {
		if _, ok := found[label]; !ok {
			return Identity{}, fmt.Errorf("%w: %q in %s", ErrMarkerNotFound, strings.TrimSpace(label), path)
		}
	}
	if _, err := strconv.Atoi(found[LabelBundle]); err != nil {
		return Identity{}, fmt.Errorf("bundle counter %q in %s is not a number", found[LabelBundle], path)
	}

	return Identity{
		ProductName: found[LabelProductName],
		Version:     found[LabelVersion],
		Bundle:      found[LabelBundle],
		MuteAudio:   found[LabelMuteAudio] == "1",
	}, nil
}

// WriteIdentity sets the version and bundle lines of the identity file. Only
// lines whose value differs are rewritten and every other byte is preserved.
// It returns how many lines changed; with 0 the file is not written at all.
func WriteIdentity(path, version, bundle string) (int, error) {
	if _, err := strconv.Atoi(bundle); err != nil {
		return 0, fmt.Errorf("bundle counter %q is not a number", bundle)
	}

	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("failed to stat identity file: %w", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read identity file: %w", err)
	}

	want := map[string]string{LabelVersion: version, LabelBundle: bundle}
	seen := map[string]bool{}
	updated := 0

	lines := strings.SplitAfter(string(data), "\n")
	for i, line := range lines {
		body := strings.TrimRight(line, "\r\n")
		ending := line[len(body):]
		for label, value := range want {
			if seen[label] || !strings.HasPrefix(body, label) {
				continue
			}
			seen[label] = true
			if strings.TrimSpace(strings.TrimPrefix(body, label)) != value {
				lines[i] = label + value + ending
				updated++
			}
		}
	}

	for _, label := range []string{LabelVersion, LabelBundle} {
		if !seen[label] {
			return 0, fmt.Errorf("%w: %q in %s", ErrMarkerNotFound, strings.TrimSpace(label), path)
		}
	}
	if updated == 0 {
		return 0, nil
	}

	if err := os.WriteFile(path, []byte(strings.Join(lines, "")), info.Mode().Perm()); err != nil {
		return 0, fmt.Errorf("failed to write identity file: %w", err)
	}
	return updated, nil
}
