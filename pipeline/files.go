package pipeline

// This file contains the file system commands: single file copies, recursive
// deletes and directory mirroring.

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/perfgo/unirelease/cli/mirror"
	"github.com/perfgo/unirelease/cli/process"
)

const (
	filesTag  = "files"
	mirrorTag = "mirror"
)

// CopyFile copies source to target, creating the target directory. Relative
// paths are resolved against the project directory.
func (s *Session) CopyFile(source, target string) error {
	src := s.Settings.Path(source)
	dst := s.Settings.Path(target)

	s.emit(Info, filesTag, "copy %s -> %s", src, dst)
	if err := copyFile(src, dst); err != nil {
		s.emit(Error, filesTag, "copy failed: %v", err)
		return err
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", src, err)
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", dst, err)
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("failed to copy to %s: %w", dst, err)
	}
	return out.Close()
}

// DeleteDirs removes dirs recursively in order. Missing directories are
// skipped; the first failure stops the loop and is returned. With simulate
// nothing is removed.
func (s *Session) DeleteDirs(dirs []string, simulate bool) error {
	for _, d := range dirs {
		path := s.Settings.Path(d)

		info, err := os.Stat(path)
		if errors.Is(err, os.ErrNotExist) {
			s.emit(Info, filesTag, "skip missing %s", path)
			continue
		}
		if err != nil {
			s.emit(Error, filesTag, "failed to delete %s: %v", path, err)
			return fmt.Errorf("failed to stat %s: %w", path, err)
		}
		if !info.IsDir() {
			s.emit(Error, filesTag, "failed to delete %s: not a directory", path)
			return fmt.Errorf("%s is not a directory", path)
		}

		if simulate {
			s.emit(Warning, filesTag, "would delete %s", path)
			continue
		}
		if err := os.RemoveAll(path); err != nil {
			s.emit(Error, filesTag, "failed to delete %s: %v", path, err)
			return fmt.Errorf("failed to delete %s: %w", path, err)
		}
		s.emit(Success, filesTag, "deleted %s", path)
	}
	return nil
}

// Mirror makes target identical to source with the mirror tool. Exit codes 0
// and 1 are successes; the code is returned unchanged.
func (s *Session) Mirror(ctx context.Context, source, target string, simulate bool) int {
	tool := s.MirrorTool
	if tool == "" {
		tool = mirror.DefaultTool
	}
	src := s.Settings.Path(source)
	dst := s.Settings.Path(target)

	if simulate {
		s.emit(Warning, mirrorTag, "simulation: listing changes only")
	}

	return s.exec(ctx, process.Invocation{
		Prefix:     mirrorTag,
		Executable: tool,
		Args:       mirror.BuildArgs(mirror.Options{
			Source:   src,
			Target:   dst,
			Simulate: simulate,
			Progress: s.MirrorProgress,
		}),
	}, nil, func(code int) {
		switch outcome := mirror.Interpret(code); outcome {
		case mirror.Unchanged:
			s.emit(Success, mirrorTag, "exit code %d: %s", code, outcome)
		case mirror.Copied:
			s.emit(Success, mirrorTag, "exit code %d: success with changes", code)
		default:
			s.emit(Error, mirrorTag, "exit code %d: %s", code, outcome)
		}
	})
}
