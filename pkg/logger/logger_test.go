package logger

import (
	"fmt"
	"testing"
)

type recorder struct {
	lines []string
}

func (r *recorder) record(level, message string, keyvals []any) {
	r.lines = append(r.lines, fmt.Sprint(level, " ", message, " ", keyvals))
}

func (r *recorder) Log(m string, kv ...any)   { r.record("log", m, kv) }
func (r *recorder) Debug(m string, kv ...any) { r.record("debug", m, kv) }
func (r *recorder) Info(m string, kv ...any)  { r.record("info", m, kv) }
func (r *recorder) Warn(m string, kv ...any)  { r.record("warn", m, kv) }
func (r *recorder) Error(m string, kv ...any) { r.record("error", m, kv) }
func (r *recorder) Fatal(m string, kv ...any) { r.record("fatal", m, kv) }

func TestDispatch(t *testing.T) {
	a, b := &recorder{}, &recorder{}
	Init(a, b)
	t.Cleanup(func() { singleton.Store(nil) })

	Info("ingested", "graph", "G1")
	Log("plain", "k", 1)

	for _, r := range []*recorder{a, b} {
		if len(r.lines) != 2 {
			t.Fatalf("expected 2 lines per backend, got %v", r.lines)
		}
		if r.lines[0] != "info ingested [graph G1]" {
			t.Fatalf("unexpected line %q", r.lines[0])
		}
		if r.lines[1] != "log plain [k 1]" {
			t.Fatalf("expected keyvals on Log, got %q", r.lines[1])
		}
	}
}

func TestNoBackend(t *testing.T) {
	singleton.Store(nil)
	Warn("dropped")
	if each(func(LoggerInstance) {}) {
		t.Fatal("expected no backend")
	}
}
