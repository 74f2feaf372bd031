package pdf

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ncobase/docport/config"
)

func TestConvertWithoutEngine(t *testing.T) {
	c := New(&config.PDF{Binaries: []string{"no-such-engine-binary"}})

	_, err := c.Convert(context.Background(), "/tmp/report.docx", t.TempDir())
	if !errors.Is(err, ErrEngineNotFound) {
		t.Fatalf("expected ErrEngineNotFound, got %v", err)
	}
}

func TestNewDefaults(t *testing.T) {
	c := New(&config.PDF{})
	if c.timeout != defaultTimeout {
		t.Fatalf("expected default timeout, got %s", c.timeout)
	}
	if len(c.binaries) == 0 {
		t.Fatal("expected default engine binaries")
	}

	c = New(&config.PDF{Timeout: 30 * time.Second, Binaries: []string{"soffice"}})
	if c.timeout != 30*time.Second || len(c.binaries) != 1 {
		t.Fatalf("config not applied: %+v", c)
	}
}
