package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ecovida/ecovida-backend/internal/auth"
)

type ownedBy string

func (o ownedBy) OwnerID() string { return string(o) }

func TestCanAdmin(t *testing.T) {
	admin := auth.Actor{ID: "a1", Role: "admin"}

	assert.True(t, Can(admin, ActionUpdate, ownedBy("someone-else")))
	assert.True(t, Can(admin, ActionDelete, ownedBy("someone-else")))
	assert.True(t, Can(admin, ActionModerate, System{}))
}

func TestCanOwner(t *testing.T) {
	owner := auth.Actor{ID: "u1", Role: "user"}

	assert.True(t, Can(owner, ActionUpdate, ownedBy("u1")))
	assert.True(t, Can(owner, ActionDelete, ownedBy("u1")))
	assert.False(t, Can(owner, ActionModerate, ownedBy("u1")), "owners do not moderate")
}

func TestCanNonOwner(t *testing.T) {
	user := auth.Actor{ID: "u2", Role: "user"}

	assert.False(t, Can(user, ActionUpdate, ownedBy("u1")))
	assert.False(t, Can(user, ActionDelete, ownedBy("u1")))
}

func TestCanSystemResource(t *testing.T) {
	user := auth.Actor{ID: "u1", Role: "user"}

	// System resources have no owner, so only admins pass.
	assert.False(t, Can(user, ActionUpdate, System{}))
	assert.False(t, Can(user, ActionDelete, System{}))
}

func TestCanEmptyActorID(t *testing.T) {
	anon := auth.Actor{}

	assert.False(t, Can(anon, ActionUpdate, ownedBy("")), "empty owner never matches empty actor")
}
