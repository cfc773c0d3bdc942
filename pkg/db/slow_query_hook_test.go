package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCommandName(t *testing.T) {
	assert.Equal(t, "INSERT", commandName("INSERT 0 1"))
	assert.Equal(t, "SELECT", commandName("SELECT 20"))
	assert.Equal(t, "BEGIN", commandName("BEGIN"))
	assert.Equal(t, "unknown", commandName(""))
}
