package logging

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestWithContextFields(t *testing.T) {
	var buf bytes.Buffer
	base := zerolog.New(&buf)

	ctx := WithTraceID(context.Background(), "t-1")
	ctx = WithUserID(ctx, "u-1")
	ctx = WithJobID(ctx, "j-1")

	With(ctx, &base).Info().Msg("hello")

	line := buf.String()
	for _, want := range []string{`"trace_id":"t-1"`, `"user_id":"u-1"`, `"job_id":"j-1"`} {
		if !strings.Contains(line, want) {
			t.Errorf("expected %s in %s", want, line)
		}
	}

	buf.Reset()
	With(context.Background(), &base).Info().Msg("bare")
	if strings.Contains(buf.String(), "trace_id") {
		t.Errorf("unexpected context field in %s", buf.String())
	}
}

func TestTraceDuration(t *testing.T) {
	var buf bytes.Buffer
	base := zerolog.New(&buf).Level(zerolog.TraceLevel)

	done := TraceDuration(&base, "pipeline.runOutline")
	done()

	out := buf.String()
	if !strings.Contains(out, `"method":"pipeline.runOutline"`) {
		t.Fatalf("method not logged: %s", out)
	}
	if !strings.Contains(out, `"message":"start"`) || !strings.Contains(out, `"message":"finish"`) {
		t.Errorf("expected start and finish events: %s", out)
	}
	if !strings.Contains(out, `"duration"`) {
		t.Errorf("expected a duration on finish: %s", out)
	}
}
