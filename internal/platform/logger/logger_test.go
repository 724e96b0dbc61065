package logger

import (
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestRedactsSecretsAndHashesViewerIDs(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := FromZap(zap.New(core))

	log.Info("pipeline call",
		"pipeline_token", "abc123",
		"client_session", "viewer-42",
		"course_id", "c-1",
		"headers", map[string]string{"Authorization": "Bearer x", "Accept": "json"},
	)

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("entries: want=1 got=%d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["pipeline_token"] != "[REDACTED]" {
		t.Fatalf("token: want=[REDACTED] got=%v", fields["pipeline_token"])
	}
	if s, _ := fields["client_session"].(string); !strings.HasPrefix(s, "hash:") || strings.Contains(s, "viewer-42") {
		t.Fatalf("client_session: want hashed got=%v", fields["client_session"])
	}
	if fields["course_id"] != "c-1" {
		t.Fatalf("course_id: want=c-1 got=%v", fields["course_id"])
	}
	headers, _ := fields["headers"].(map[string]interface{})
	if headers["Authorization"] != "[REDACTED]" || headers["Accept"] != "json" {
		t.Fatalf("headers: got=%v", fields["headers"])
	}
}

func TestHashIsStable(t *testing.T) {
	p := &redactPolicy{enabled: true, hashed: []string{"viewer_id"}}
	a := p.value("viewer_id", "v1")
	b := p.value("viewer_id", "v1")
	c := p.value("viewer_id", "v2")
	if a != b || a == c {
		t.Fatalf("hash: want stable and distinct, got a=%v b=%v c=%v", a, b, c)
	}
}

func TestOddKeyValuesPassThrough(t *testing.T) {
	p := &redactPolicy{enabled: true}
	out := p.apply([]interface{}{"a", 1, "dangling"})
	if len(out) != 3 || out[2] != "dangling" {
		t.Fatalf("apply: got=%v", out)
	}
}
