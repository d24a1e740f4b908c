package xid

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewIsUniqueAndOrdered(t *testing.T) {
	prev := New("")
	for i := 0; i < 200; i++ {
		next := New("")
		assert.NotEqual(t, prev, next)
		assert.Less(t, prev, next)
		prev = next
	}
}

func TestNewPrefix(t *testing.T) {
	assert.True(t, strings.HasPrefix(New("sale"), "sale-"))
}
