// Package deps reports on the external binaries habari shells out to.
package deps

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"habari/internal/config"
	"habari/internal/toolexec"
)

// Requirement names a binary the configured pipeline invokes.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	// Versioned binaries answer "-version" in the FFmpeg format.
	Versioned bool
}

// Status is a Requirement plus what PATH lookup found.
type Status struct {
	Requirement
	Path      string
	Available bool
	Version   string
	Detail    string
}

// Requirements lists the binaries cfg needs. edge-tts appears only when the
// synthesis chain names an edge voice.
func Requirements(cfg *config.Config) []Requirement {
	reqs := []Requirement{
		{Name: "ffmpeg", Command: cfg.FFmpegBinary(), Description: "renders segments and pushes the live stream", Versioned: true},
		{Name: "ffprobe", Command: cfg.FFprobeBinary(), Description: "measures narration and segment durations", Versioned: true},
	}
	if cfg.UsesEngine(config.EngineEdge) {
		reqs = append(reqs, Requirement{Name: "edge-tts", Command: cfg.EdgeTTSBinary(), Description: "neural voice synthesis"})
	}
	return reqs
}

// CheckBinaries resolves each requirement on PATH.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, len(requirements))
	for i, req := range requirements {
		req.Command = strings.TrimSpace(req.Command)
		req.Description = strings.TrimSpace(req.Description)
		results[i] = lookup(req)
	}
	return results
}

func lookup(req Requirement) Status {
	status := Status{Requirement: req}
	if req.Command == "" {
		status.Detail = "command not configured"
		return status
	}
	path, err := exec.LookPath(req.Command)
	if err != nil {
		status.Detail = fmt.Sprintf("binary %q not found", req.Command)
		return status
	}
	status.Path = path
	status.Available = true
	return status
}

// ProbeVersions fills Version for available versioned binaries. Probe
// failures land in Detail and leave Available untouched.
func ProbeVersions(ctx context.Context, runner toolexec.Runner, statuses []Status) {
	for i := range statuses {
		s := &statuses[i]
		if !s.Available || !s.Versioned {
			continue
		}
		version, err := ToolVersion(ctx, runner, s.Command)
		switch {
		case err != nil:
			s.Detail = "version probe failed: " + err.Error()
		case version == "":
			s.Detail = "unrecognised -version output"
		default:
			s.Version = version
		}
	}
}

// Missing returns the required entries of statuses that are unavailable.
func Missing(statuses []Status) []Status {
	var missing []Status
	for _, s := range statuses {
		if !s.Available && !s.Optional {
			missing = append(missing, s)
		}
	}
	return missing
}
