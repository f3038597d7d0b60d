// Package policy centralizes authorization so every handler applies the
// same ownership rule instead of re-implementing it inline.
package policy

import (
	"github.com/gin-gonic/gin"

	"github.com/ecovida/ecovida-backend/internal/auth"
	"github.com/ecovida/ecovida-backend/internal/httpx"
)

type Action string

const (
	ActionUpdate   Action = "update"
	ActionDelete   Action = "delete"
	ActionModerate Action = "moderate"
)

// Owned is any resource that knows the user id of its owner.
type Owned interface {
	OwnerID() string
}

// System marks resources without a per-user owner (taxonomy, reference
// data); only admins may mutate them.
type System struct{}

func (System) OwnerID() string { return "" }

// Can reports whether the actor may perform action on the resource.
// Admins may do anything; owners may update and delete their own rows;
// moderation is admin-only.
func Can(actor auth.Actor, action Action, res Owned) bool {
	if actor.IsAdmin() {
		return true
	}

	switch action {
	case ActionUpdate, ActionDelete:
		return res.OwnerID() != "" && res.OwnerID() == actor.ID
	default:
		return false
	}
}

// Authorize writes the 403 body and returns false when Can denies.
func Authorize(c *gin.Context, actor auth.Actor, action Action, res Owned) bool {
	if !Can(actor, action, res) {
		httpx.Forbidden(c)
		return false
	}
	return true
}
