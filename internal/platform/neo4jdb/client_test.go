package neo4jdb

import (
	"context"
	"testing"
)

func TestNewFromEnvDisabledWithoutURI(t *testing.T) {
	t.Setenv("NEO4J_URI", "")
	c, err := NewFromEnv(nil)
	if err != nil || c != nil {
		t.Fatalf("NewFromEnv: want=(nil,nil) got=(%v,%v)", c, err)
	}
	if c.Enabled() {
		t.Fatalf("Enabled: nil client reported enabled")
	}
	if err := c.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestNewRequiresLogger(t *testing.T) {
	if _, err := New(nil, Config{URI: "neo4j://localhost:7687"}); err == nil {
		t.Fatalf("New: want error without logger")
	}
}
