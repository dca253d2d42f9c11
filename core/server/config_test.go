package server_test

import (
	"testing"
	"time"

	"character-sync/core/server"

	"github.com/stretchr/testify/assert"
)

func TestConfig(t *testing.T) {
	c := server.Config{Port: "9090"}
	assert.Equal(t, ":9090", c.Addr())
	assert.Equal(t, 15*time.Second, c.ReadTimeout())
	assert.False(t, c.AuthEnabled())

	c = server.Config{Port: "80", ApiKey: "secret", ReadTimeoutSeconds: 3}
	assert.Equal(t, 3*time.Second, c.ReadTimeout())
	assert.True(t, c.AuthEnabled())
}
