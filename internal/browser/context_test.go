package browser

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ctxKey string

func TestCombineContext_InheritsValuesFromPrimary(t *testing.T) {
	ctx1 := context.WithValue(context.Background(), ctxKey("target"), "cdp-target")
	ctx2 := context.WithValue(context.Background(), ctxKey("deadline-owner"), "op")

	combined, cancel := CombineContext(ctx1, ctx2)
	defer cancel()

	assert.Equal(t, "cdp-target", combined.Value(ctxKey("target")))
	assert.Nil(t, combined.Value(ctxKey("deadline-owner")), "values must come from the primary context only")
}

func TestCombineContext_CanceledBySecondary(t *testing.T) {
	ctx2, cancel2 := context.WithCancel(context.Background())

	combined, cancel := CombineContext(context.Background(), ctx2)
	defer cancel()

	cancel2()
	select {
	case <-combined.Done():
	case <-time.After(time.Second):
		t.Fatal("combined context not canceled after secondary cancellation")
	}
	assert.ErrorIs(t, combined.Err(), context.Canceled)
}

func TestCombineContext_CanceledByPrimary(t *testing.T) {
	ctx1, cancel1 := context.WithCancel(context.Background())

	combined, cancel := CombineContext(ctx1, context.Background())
	defer cancel()

	cancel1()
	select {
	case <-combined.Done():
	case <-time.After(time.Second):
		t.Fatal("combined context not canceled after primary cancellation")
	}
}

func TestDetach_IgnoresParentCancellation(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	parent = context.WithValue(parent, ctxKey("target"), "kept")

	detached := Detach(parent)
	cancel()

	require.Nil(t, detached.Done())
	assert.NoError(t, detached.Err())
	_, hasDeadline := detached.Deadline()
	assert.False(t, hasDeadline)
	assert.Equal(t, "kept", detached.Value(ctxKey("target")), "values must survive detachment")
}
