package auth

import (
	"github.com/gin-gonic/gin"
)

const ctxActor = "auth_actor"

// Actor is the authenticated identity handlers act on behalf of. It is
// injected by WithUser; nothing below the middleware reads headers or
// tokens directly.
type Actor struct {
	ID   string
	Role string
}

func (a Actor) IsAdmin() bool {
	return a.Role == "admin"
}

// CurrentActor returns the request's actor, if authenticated.
func CurrentActor(c *gin.Context) (Actor, bool) {
	v, ok := c.Get(ctxActor)
	if !ok {
		return Actor{}, false
	}
	a, ok := v.(Actor)
	return a, ok && a.ID != ""
}

// SetActor stores the actor for downstream handlers. Exposed for tests
// that exercise handlers without the full middleware chain.
func SetActor(c *gin.Context, a Actor) {
	c.Set(ctxActor, a)
}
