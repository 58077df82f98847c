package envutil

import (
	"testing"
	"time"
)

func TestDuration(t *testing.T) {
	t.Setenv("ENVUTIL_TEST_DURATION", "90m")
	if got := Duration("ENVUTIL_TEST_DURATION", time.Hour); got != 90*time.Minute {
		t.Fatalf("duration string: want=%s got=%s", 90*time.Minute, got)
	}
	t.Setenv("ENVUTIL_TEST_DURATION", "30")
	if got := Duration("ENVUTIL_TEST_DURATION", time.Hour); got != 30*time.Second {
		t.Fatalf("bare seconds: want=%s got=%s", 30*time.Second, got)
	}
	t.Setenv("ENVUTIL_TEST_DURATION", "soon")
	if got := Duration("ENVUTIL_TEST_DURATION", time.Hour); got != time.Hour {
		t.Fatalf("fallback: want=%s got=%s", time.Hour, got)
	}
}

func TestBoolAndInt(t *testing.T) {
	t.Setenv("ENVUTIL_TEST_BOOL", "off")
	if Bool("ENVUTIL_TEST_BOOL", true) {
		t.Fatalf("bool off: want=false got=true")
	}
	t.Setenv("ENVUTIL_TEST_BOOL", "maybe")
	if !Bool("ENVUTIL_TEST_BOOL", true) {
		t.Fatalf("bool fallback: want=true got=false")
	}
	t.Setenv("ENVUTIL_TEST_INT", "x")
	if got := Int("ENVUTIL_TEST_INT", 7); got != 7 {
		t.Fatalf("int fallback: want=7 got=%d", got)
	}
}
