package errors

import (
	"testing"

	pkgerrors "github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorTracer_WrapCapturesStack(t *testing.T) {
	plain := assert.AnError

	tracer := NewTracer("failed to marshal order event").Wrap(plain)

	assert.Equal(t, "failed to marshal order event", tracer.Error())
	require.NotNil(t, tracer.Unwrap())
	assert.NotNil(t, tracer.StackTrace())
}

func TestErrorTracer_WrapKeepsExistingStack(t *testing.T) {
	withStack := pkgerrors.New("connection reset")

	tracer := NewTracer("publish failed").Wrap(withStack)

	assert.Same(t, withStack, tracer.Unwrap())
	assert.NotNil(t, tracer.StackTrace())
}

func TestErrorTracer_NoUnderlyingError(t *testing.T) {
	tracer := NewTracer("bare message")

	assert.Nil(t, tracer.Unwrap())
	assert.Nil(t, tracer.StackTrace())
}
