package ratelimit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenBucketExhausts(t *testing.T) {
	tb := NewTokenBucket(3, 1)

	assert.True(t, tb.Allow())
	assert.True(t, tb.Allow())
	assert.True(t, tb.Allow())
	assert.False(t, tb.Allow(), "an empty bucket rejects")
}

func TestTokenBucketAllowN(t *testing.T) {
	tb := NewTokenBucket(5, 1)

	assert.True(t, tb.AllowN(3))
	assert.False(t, tb.AllowN(3), "not enough tokens left")
	assert.True(t, tb.AllowN(2))
}

func TestLimiterKeysAreIndependent(t *testing.T) {
	l := NewLimiter(1, 1)

	assert.True(t, l.Allow("10.0.0.1"))
	assert.False(t, l.Allow("10.0.0.1"))
	assert.True(t, l.Allow("10.0.0.2"), "a different key has its own bucket")
}

func TestLimiterReset(t *testing.T) {
	l := NewLimiter(1, 1)

	assert.True(t, l.Allow("10.0.0.1"))
	assert.False(t, l.Allow("10.0.0.1"))

	l.Reset("10.0.0.1")
	assert.True(t, l.Allow("10.0.0.1"), "reset refills the bucket")
}
