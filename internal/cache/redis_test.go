package cache

import (
	"context"
	"testing"
)

func TestNilIdempotencyIsDisabled(t *testing.T) {
	var c *Idempotency
	ctx := context.Background()

	stored, err := c.Begin(ctx, "agent-1", "key-1")
	if stored != nil || err != nil {
		t.Errorf("Begin on nil cache = %v, %v", stored, err)
	}
	if err := c.Complete(ctx, "agent-1", "key-1", []byte("{}")); err != nil {
		t.Errorf("Complete on nil cache: %v", err)
	}
	if err := c.Release(ctx, "agent-1", "key-1"); err != nil {
		t.Errorf("Release on nil cache: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close on nil cache: %v", err)
	}
}

func TestNewIdempotencyUnreachable(t *testing.T) {
	c, err := NewIdempotency("127.0.0.1:1", "", 0, 0)
	if err == nil || c != nil {
		t.Fatalf("NewIdempotency to closed port = %v, %v", c, err)
	}
}
