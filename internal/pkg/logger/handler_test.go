package logger

import (
	"bytes"
	"context"
	log "log/slog"
	"strings"
	"testing"
)

func TestContextHandlerAddsTraceID(t *testing.T) {
	var buf bytes.Buffer
	l := log.New(&ContextHandler{log.NewJSONHandler(&buf, nil)})

	l.InfoContext(WithTraceID(context.Background(), "abc-123"), "hello")

	if !strings.Contains(buf.String(), `"trace_id":"abc-123"`) {
		t.Errorf("expected trace_id in output, got %s", buf.String())
	}
}

func TestRemoteFilterHandlerDropsUntraced(t *testing.T) {
	var local, remote bytes.Buffer
	tee := &TeeHandler{handlers: []log.Handler{
		log.NewJSONHandler(&local, nil),
		&RemoteFilterHandler{next: log.NewJSONHandler(&remote, nil)},
	}}
	l := log.New(&ContextHandler{tee})

	l.Info("no trace")
	if local.Len() == 0 {
		t.Fatal("local handler should always receive records")
	}
	if remote.Len() != 0 {
		t.Errorf("remote handler should skip records without trace_id, got %s", remote.String())
	}

	l.InfoContext(WithTraceID(context.Background(), "t-1"), "traced")
	if !strings.Contains(remote.String(), "t-1") {
		t.Errorf("remote handler should receive traced record, got %s", remote.String())
	}
}

func TestRedactPassword(t *testing.T) {
	in := `{"insert":"users","password":"$2a$10$abc","name":"x"}`
	out := redactPassword(in)
	if strings.Contains(out, "$2a$10$abc") {
		t.Errorf("password hash leaked: %s", out)
	}
	if !strings.Contains(out, `"name":"x"`) {
		t.Errorf("unrelated fields should survive: %s", out)
	}
}
