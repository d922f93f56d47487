package deps

import (
	"context"
	"regexp"
	"strings"

	"habari/internal/toolexec"
)

var versionPattern = regexp.MustCompile(`(?i)^ff(?:mpeg|probe) version (\S+)`)

// ToolVersion runs "<binary> -version" and returns the reported version
// string, or "" when the output is not recognised.
func ToolVersion(ctx context.Context, runner toolexec.Runner, binary string) (string, error) {
	res, err := runner.Run(ctx, binary, []string{"-hide_banner", "-version"})
	if err != nil {
		return "", err
	}
	return ParseVersion(string(res.Stdout)), nil
}

// ParseVersion extracts the version from the first line of ffmpeg or ffprobe
// -version output.
func ParseVersion(output string) string {
	first, _, _ := strings.Cut(strings.TrimSpace(output), "\n")
	m := versionPattern.FindStringSubmatch(strings.TrimSpace(first))
	if m == nil {
		return ""
	}
	return m[1]
}
