package logger

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
)

func TestLoggerErrorIncludesContextFields(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Level: ParseLevel("debug"), Output: buf})

	ctx := context.Background()
	ctx = log.WithRequestID(ctx, "req-123")
	ctx = log.WithSubject(ctx, "auth0|abc")

	log.Error(ctx, "boom", errors.New("boom"))

	for _, field := range []string{"\"request_id\"", "\"subject\"", "\"stack\""} {
		if !bytes.Contains(buf.Bytes(), []byte(field)) {
			t.Fatalf("expected %s in entry=%s", field, buf.String())
		}
	}
}

func TestLoggerWarnStackToggle(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Output: buf})
	log.Warn(context.Background(), "quiet")
	if bytes.Contains(buf.Bytes(), []byte("\"stack\"")) {
		t.Fatalf("did not expect stack without warn stack; entry=%s", buf.String())
	}

	buf.Reset()
	log = New(Options{ServiceName: "test", Output: buf, WarnStack: true})
	log.Warn(context.Background(), "loud")
	if !bytes.Contains(buf.Bytes(), []byte("\"stack\"")) {
		t.Fatalf("expected stack when warn stack enabled; entry=%s", buf.String())
	}
}

func TestLoggerIncludesInstance(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "api", InstanceID: "api-7", Output: buf})
	log.Info(context.Background(), "hello")
	if !bytes.Contains(buf.Bytes(), []byte("\"instance\":\"api-7\"")) {
		t.Fatalf("expected instance field; entry=%s", buf.String())
	}
}

func TestParseLevelDefaults(t *testing.T) {
	if lvl := ParseLevel(""); lvl != zerolog.InfoLevel {
		t.Fatalf("expected default info level, got %v", lvl)
	}
	if lvl := ParseLevel("invalid"); lvl != zerolog.InfoLevel {
		t.Fatalf("invalid level should fallback to info, got %v", lvl)
	}
	if lvl := ParseLevel(" DEBUG "); lvl != zerolog.DebugLevel {
		t.Fatalf("expected debug, got %v", lvl)
	}
}

func TestLoggerFieldsAccumulateOnContext(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Output: buf})

	base := log.WithCustomerID(context.Background(), "cus-1")
	child := log.WithFields(base, map[string]any{"order_id": "ord-9"})
	log.Info(child, "scoped")
	if !bytes.Contains(buf.Bytes(), []byte(`"customer_id":"cus-1"`)) || !bytes.Contains(buf.Bytes(), []byte(`"order_id":"ord-9"`)) {
		t.Fatalf("expected both scoped fields; entry=%s", buf.String())
	}

	buf.Reset()
	log.Info(base, "parent")
	if bytes.Contains(buf.Bytes(), []byte("order_id")) {
		t.Fatalf("child fields leaked into the parent context; entry=%s", buf.String())
	}
}

func TestNopLoggerAcceptsNilContext(t *testing.T) {
	log := Nop()
	ctx := log.WithField(nil, "k", "v")
	if ctx == nil {
		t.Fatalf("expected a usable context")
	}
	log.Error(ctx, "ignored", errors.New("boom"))
}
