package logging

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
)

func TestTeeHandlerCollapsesNilAndSingle(t *testing.T) {
	if _, ok := TeeHandler(nil, nil).(NoopHandler); !ok {
		t.Fatal("expected NoopHandler when every handler is nil")
	}
	var buf bytes.Buffer
	inner := slog.NewJSONHandler(&buf, nil)
	if got := TeeHandler(nil, inner, nil); got != inner {
		t.Fatalf("expected single handler returned unwrapped, got %T", got)
	}
}

func TestTeeHandlerRoutesByLevel(t *testing.T) {
	var infoBuf, debugBuf bytes.Buffer
	infoHandler := slog.NewJSONHandler(&infoBuf, &slog.HandlerOptions{Level: slog.LevelInfo})
	debugHandler := slog.NewJSONHandler(&debugBuf, &slog.HandlerOptions{Level: slog.LevelDebug})

	h := TeeHandler(infoHandler, debugHandler)
	if !h.Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("expected fanout enabled for debug when any child accepts it")
	}

	logger := slog.New(h)
	logger.Debug("debug only")
	if infoBuf.Len() != 0 {
		t.Fatalf("info handler received debug record: %s", infoBuf.String())
	}
	if debugBuf.Len() == 0 {
		t.Fatal("debug handler should receive debug record")
	}

	logger.Info("both")
	if !bytes.Contains(infoBuf.Bytes(), []byte("both")) || !bytes.Contains(debugBuf.Bytes(), []byte("both")) {
		t.Fatal("expected info record in both handlers")
	}
}

func TestTeeHandlerPropagatesAttrsAndGroups(t *testing.T) {
	var buf1, buf2 bytes.Buffer
	h := TeeHandler(slog.NewJSONHandler(&buf1, nil), slog.NewJSONHandler(&buf2, nil))

	logger := slog.New(h.WithAttrs([]slog.Attr{slog.String("session_id", "abc")}).WithGroup("scan"))
	logger.Info("grouped", slog.Int("groups", 2))

	for name, buf := range map[string]*bytes.Buffer{"first": &buf1, "second": &buf2} {
		if !bytes.Contains(buf.Bytes(), []byte(`"session_id":"abc"`)) {
			t.Errorf("%s handler missing session attr: %s", name, buf.String())
		}
		if !bytes.Contains(buf.Bytes(), []byte(`"scan":{"groups":2}`)) {
			t.Errorf("%s handler missing grouped attr: %s", name, buf.String())
		}
	}
}
