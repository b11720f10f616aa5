package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBaseAgent_Identity(t *testing.T) {
	b := NewBaseAgent("Analyst")
	assert.Equal(t, "Analyst", b.Name())
	assert.Equal(t, "Agent Analyst", b.Description())

	b.SetDescription("Answers market questions")
	assert.Equal(t, "Answers market questions", b.Description())
}
