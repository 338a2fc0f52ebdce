package actor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContextRoundTrip(t *testing.T) {
	a := &Actor{ID: 42, Username: "alice", IsActive: true}
	ctx := WithActor(context.Background(), a)

	assert.Same(t, a, FromContext(ctx))
	assert.Same(t, a, MustFromContext(ctx))
	assert.Nil(t, FromContext(context.Background()))
	assert.Panics(t, func() { MustFromContext(context.Background()) })
}

func TestIsSystem(t *testing.T) {
	assert.True(t, SystemActor().IsSystem())
	assert.False(t, (&Actor{ID: SystemID}).IsSystem(), "id 0 alone must not grant system privileges")

	var nilActor *Actor
	assert.False(t, nilActor.IsSystem())
}

func TestString(t *testing.T) {
	assert.Equal(t, "system", SystemActor().String())
	assert.Equal(t, "alice (#42)", (&Actor{ID: 42, Username: "alice"}).String())
}
