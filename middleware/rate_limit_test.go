package middleware

import (
	"errors"
	"testing"

	"github.com/go-redis/redis/v8"
)

func TestMissingKeyAsNil(t *testing.T) {
	// fiber.Storage treats a miss as (nil, nil), not as an error.
	val, err := missingKeyAsNil(nil, redis.Nil)
	if val != nil || err != nil {
		t.Fatalf("miss returned (%v, %v), want (nil, nil)", val, err)
	}

	boom := errors.New("connection refused")
	if _, err := missingKeyAsNil(nil, boom); err != boom {
		t.Fatalf("real error was swallowed: %v", err)
	}

	val, err = missingKeyAsNil([]byte("7"), nil)
	if err != nil || string(val) != "7" {
		t.Fatalf("hit returned (%q, %v)", val, err)
	}
}
