package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/marwanhelal/track-management-system/internal/model"
	"github.com/marwanhelal/track-management-system/pkg/apperr"
)

// ActorKey is where the auth middleware stores the authenticated actor.
const ActorKey = "actor"

func respondOK(c *gin.Context, status int, data any) {
	c.JSON(status, gin.H{
		"success": true,
		"data":    data,
	})
}

func respondError(c *gin.Context, err error) {
	ae := apperr.From(err)
	body := gin.H{
		"code":    ae.Code(),
		"message": ae.Message,
	}
	if ae.Current != "" {
		body["current_status"] = ae.Current
	}
	if ae.Requested != "" {
		body["requested_transition"] = ae.Requested
	}
	c.JSON(ae.HTTPStatus(), gin.H{
		"success": false,
		"error":   body,
	})
}

func actorFrom(c *gin.Context) model.Actor {
	v, _ := c.Get(ActorKey)
	actor, _ := v.(model.Actor)
	return actor
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		respondError(c, apperr.Validation("invalid "+name))
		return 0, false
	}
	return id, true
}

// errorPayload mirrors the per-item error shape of batch responses.
func errorPayload(err error) gin.H {
	ae := apperr.From(err)
	return gin.H{
		"code":    ae.Code(),
		"message": ae.Message,
	}
}
