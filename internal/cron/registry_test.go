package cron

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type namedJob string

func (n namedJob) Name() string              { return string(n) }
func (n namedJob) Run(context.Context) error { return nil }

func TestRegistryKeepsRegistrationOrder(t *testing.T) {
	reg := NewRegistry(namedJob("stock-audit"), nil, namedJob("outbox-retention"))
	require.NoError(t, reg.Register(namedJob("late")))

	var names []string
	for _, j := range reg.Jobs() {
		names = append(names, j.Name())
	}
	assert.Equal(t, []string{"stock-audit", "outbox-retention", "late"}, names)
}

func TestRegistryJobsIsACopy(t *testing.T) {
	reg := NewRegistry(namedJob("a"))
	reg.Jobs()[0] = namedJob("mutated")
	assert.Equal(t, "a", reg.Jobs()[0].Name())
}

func TestRegistryRejectsDuplicateNames(t *testing.T) {
	reg := NewRegistry(namedJob("stock-audit"), namedJob("stock-audit"))
	assert.Len(t, reg.Jobs(), 1)
	assert.ErrorContains(t, reg.Register(namedJob("stock-audit")), "already registered")
}
