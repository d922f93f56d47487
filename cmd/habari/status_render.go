package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"

	"habari/internal/daemonctl"
	"habari/internal/history"
	"habari/internal/preflight"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

const (
	statusLabelWidth = 20
	statusIndent     = "  "
)

func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	statusText := fmt.Sprintf("[%s]", statusKindLabel(kind))
	if message != "" {
		statusText += " " + message
	}
	base := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, label+":", statusText)
	if colorize {
		if color := statusKindColor(kind); color != "" {
			return color + base + ansiReset
		}
	}
	return base
}

func statusKindLabel(kind statusKind) string {
	switch kind {
	case statusOK:
		return "OK"
	case statusWarn:
		return "WARN"
	case statusError:
		return "ERROR"
	default:
		return "INFO"
	}
}

func statusKindColor(kind statusKind) string {
	switch kind {
	case statusOK:
		return ansiGreen
	case statusWarn:
		return ansiYellow
	case statusError:
		return ansiRed
	case statusInfo:
		return ansiBlue
	default:
		return ""
	}
}

func renderSectionHeader(title string, colorize bool) []string {
	line := fmt.Sprintf("== %s ==", strings.TrimSpace(title))
	rule := strings.Repeat("-", len(line))
	if colorize {
		line = ansiBlue + line + ansiReset
		rule = ansiBlue + rule + ansiReset
	}
	return []string{line, rule}
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func checkKind(r preflight.Result) statusKind {
	switch {
	case r.Passed:
		return statusOK
	case r.Required:
		return statusError
	case strings.HasPrefix(r.Detail, "Skipped"):
		return statusInfo
	default:
		return statusWarn
	}
}

func processLine(snap *daemonctl.Snapshot, colorize bool) string {
	if !snap.Running {
		return renderStatusLine("Broadcaster", statusInfo, "Not running", colorize)
	}
	message := "Running"
	if snap.PID > 0 {
		message = fmt.Sprintf("Running (pid %d)", snap.PID)
	}
	return renderStatusLine("Broadcaster", statusOK, message, colorize)
}

func readinessLines(snap *daemonctl.Snapshot, colorize bool) []string {
	lines := make([]string, 0, len(snap.Checks)+2)
	for _, check := range snap.Checks {
		lines = append(lines, renderStatusLine(check.Name, checkKind(check), check.Detail, colorize))
	}
	lines = append(lines,
		renderStatusLine(snap.Ingest.Name, checkKind(snap.Ingest), snap.Ingest.Detail, colorize),
		renderStatusLine(snap.Notify.Name, checkKind(snap.Notify), snap.Notify.Detail, colorize),
	)
	return lines
}

func workDirLine(probe preflight.WorkDirProbe, running, colorize bool) string {
	switch {
	case probe.Err != nil:
		return renderStatusLine("Work directory", statusError, probe.Err.Error(), colorize)
	case probe.Files == 0:
		return renderStatusLine("Work directory", statusOK, "Clean", colorize)
	case running:
		return renderStatusLine("Work directory", statusInfo,
			fmt.Sprintf("%d files (%s) in use", probe.Files, humanize.IBytes(uint64(probe.Bytes))), colorize)
	default:
		return renderStatusLine("Work directory", statusWarn,
			fmt.Sprintf("%d leftover files (%s); removed on next start", probe.Files, humanize.IBytes(uint64(probe.Bytes))), colorize)
	}
}

func historyLines(snap *daemonctl.Snapshot, now time.Time, colorize bool) []string {
	if snap.HistoryErr != nil {
		return []string{renderStatusLine("History", statusError, snap.HistoryErr.Error(), colorize)}
	}
	s := snap.Summary
	summary := fmt.Sprintf("%s cycles: %d published, %d empty, %d failed, %d interrupted",
		humanize.Comma(int64(s.Total)), s.Published, s.Empty, s.Failed, s.Interrupted)
	lines := []string{renderStatusLine("History", statusInfo, summary, colorize)}
	if snap.Last == nil {
		return append(lines, renderStatusLine("Last cycle", statusInfo, "None recorded", colorize))
	}
	last := snap.Last
	message := fmt.Sprintf("%s %s, %d/%d segments", last.Status, humanize.RelTime(last.StartedAt, now, "ago", "from now"),
		last.Rendered, last.Items)
	return append(lines, renderStatusLine("Last cycle", cycleKind(last.Status), message, colorize))
}

func cycleKind(status history.Status) statusKind {
	switch status {
	case history.StatusPublished:
		return statusOK
	case history.StatusEmpty, history.StatusInterrupted:
		return statusWarn
	case history.StatusFailed:
		return statusError
	default:
		return statusInfo
	}
}
