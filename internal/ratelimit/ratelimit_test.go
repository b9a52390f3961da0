package ratelimit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAllow_BurstThenThrottle(t *testing.T) {
	kl := New(1, 2)

	assert.True(t, kl.Allow("mluukkai"))
	assert.True(t, kl.Allow("mluukkai"))
	assert.False(t, kl.Allow("mluukkai"), "burst exhausted")
}

func TestAllow_KeysAreIndependent(t *testing.T) {
	kl := New(1, 1)

	assert.True(t, kl.Allow("alice"))
	assert.False(t, kl.Allow("alice"))
	assert.True(t, kl.Allow("bob"), "other keys keep their own bucket")
}
