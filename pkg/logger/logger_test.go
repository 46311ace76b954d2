package logger

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestPrintfForwardsToSlog(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	base := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))

	New(base, "cron", slog.LevelInfo).Printf("job %s finished in %d ms\n", "ev", 12)
	New(base, "chromedp", slog.LevelDebug).Logf("hidden %d", 1)

	out := buf.String()
	if !strings.Contains(out, `msg="job ev finished in 12 ms"`) || !strings.Contains(out, "component=cron") {
		t.Fatalf("unexpected output: %s", out)
	}
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug record must be filtered: %s", out)
	}

	var nilAdapter *Printf
	nilAdapter.Printf("no panic")
}
