package backend

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raoulx24/autosnap/internal/snapshot"
)

type nopBackend struct{}

func (nopBackend) List(context.Context, int) ([]string, error)     { return nil, nil }
func (nopBackend) Create(context.Context, int, string, bool) error { return nil }
func (nopBackend) Delete(context.Context, int, string) error       { return nil }

func TestRegistryFor(t *testing.T) {
	r := Registry{snapshot.Container: nopBackend{}}

	b, err := r.For(snapshot.Container)
	require.NoError(t, err)
	assert.NotNil(t, b)

	_, err = r.For(snapshot.VirtualMachine)
	assert.ErrorIs(t, err, ErrBackendUnavailable)
}

func TestClassify(t *testing.T) {
	assert.NoError(t, Classify(ErrCreate, nil))

	err := Classify(ErrCreate, errors.New("boom"))
	assert.ErrorIs(t, err, ErrCreate)
	assert.NotErrorIs(t, err, ErrTimeout)

	err = Classify(ErrDelete, fmt.Errorf("qm: %w", context.DeadlineExceeded))
	assert.ErrorIs(t, err, ErrTimeout)
	assert.NotErrorIs(t, err, ErrDelete)

	already := fmt.Errorf("%w: exit 2", ErrBackendUnavailable)
	assert.Same(t, already, Classify(ErrBackendUnavailable, already))
}
