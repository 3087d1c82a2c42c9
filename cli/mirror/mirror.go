package mirror

// mirror.go contains utilities for building mirror tool (robocopy) commands
// and interpreting their exit codes.

// DefaultTool is the mirroring executable used when none is configured.
const DefaultTool = "robocopy"

// Options contains options for one mirror operation.
type Options struct {
	Source string // Directory to mirror from
	Target string // Directory made identical to Source
	// Simulate lists what would change without touching the file system (/L)
	Simulate bool
	// Progress keeps per-file percentage output; off by default (/NP)
	Progress bool
}

// BuildArgs builds the mirror tool arguments. Target-only files are purged.
func BuildArgs(opts Options) []string {
	args := []string{opts.Source, opts.Target, "*.*", "/S", "/E", "/V", "/PURGE"}
	if !opts.Progress {
		args = append(args, "/NP")
	}
	if opts.Simulate {
		args = append(args, "/L")
	}
	return args
}

// Outcome is the meaning of a mirror tool exit code.
type Outcome uint8

const (
	// Unchanged means source and target were already identical
	Unchanged Outcome = iota
	// Copied means files were copied or skipped, without errors
	Copied
	// Failed means at least one file could not be mirrored
	Failed
)

// Interpret maps an exit code to an outcome. Codes 0 and 1 are successes.
func Interpret(code int) Outcome {
	switch code {
	case 0:
		return Unchanged
	case 1:
		return Copied
	default:
		return Failed
	}
}

// OK reports whether the outcome counts as success.
func (o Outcome) OK() bool {
	return o != Failed
}

func (o Outcome) String() string {
	switch o {
	case Unchanged:
		return "no changes"
	case Copied:
		return "files copied"
	default:
		return "failed"
	}
}
