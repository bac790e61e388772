package loghandler

import (
	"bytes"
	"log/slog"
	"regexp"
	"strings"
	"testing"
)

var stamp = regexp.MustCompile(`(?m)^\d{4}/\d{2}/\d{2} \d{2}:\d{2}:\d{2} `)

func TestCompactHandlerTagAndAttrs(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewCompactHandler(&buf, slog.LevelInfo))

	log.Info("player seated", "tag", "table", "seat", 1)

	line := buf.String()
	if !stamp.MatchString(line) {
		t.Fatalf("missing timestamp: %q", line)
	}
	if got := stamp.ReplaceAllString(line, ""); got != "[table] player seated seat=1\n" {
		t.Errorf("unexpected line %q", got)
	}
}

func TestCompactHandlerWithAttrs(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewCompactHandler(&buf, slog.LevelInfo)).With("tag", "session", "seat", 2)

	log.Info("player disconnected", "reason", "eof")

	if got := stamp.ReplaceAllString(buf.String(), ""); got != "[session] player disconnected seat=2 reason=eof\n" {
		t.Errorf("unexpected line %q", got)
	}
}

func TestCompactHandlerLevels(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewCompactHandler(&buf, slog.LevelInfo))

	log.Debug("hidden")
	log.Warn("careful", "tag", "tcp")
	log.Error("broken")

	lines := strings.Split(strings.TrimSpace(stamp.ReplaceAllString(buf.String(), "")), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %q", lines)
	}
	if !strings.HasSuffix(lines[0], "WARN [tcp] careful") {
		t.Errorf("unexpected warn line %q", lines[0])
	}
	if !strings.Contains(buf.String(), "ERROR broken") {
		t.Errorf("missing error line in %q", buf.String())
	}
}
