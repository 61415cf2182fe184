package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Spok95/maos-da-obra/internal/apperr"
	"github.com/Spok95/maos-da-obra/internal/domain/pushsubs"
	"github.com/Spok95/maos-da-obra/internal/infra/push"
)

func (a *API) pushPublicKey(c *gin.Context) {
	if a.d.VAPIDPublicKey == "" {
		fail(c, a.log, apperr.NotConfigured("VAPID_PUBLIC_KEY"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"publicKey": a.d.VAPIDPublicKey})
}

// userId в теле принимается для совместимости, но владелец всегда из токена.
type pushSubscribeRequest struct {
	UserID       string                `json:"userId"`
	Subscription pushsubs.Subscription `json:"subscription" binding:"required"`
}

func (a *API) subscribePush(c *gin.Context) {
	var req pushSubscribeRequest
	if err := bind(c, &req); err != nil {
		fail(c, a.log, err)
		return
	}
	u := currentUser(c)
	if !sameUser(req.UserID, u.ID) {
		abortWith(c, http.StatusForbidden, forbidden)
		return
	}
	req.Subscription.UserID = u.ID
	if err := a.d.PushSubs.Upsert(c.Request.Context(), req.Subscription); err != nil {
		fail(c, a.log, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ok": true})
}

type pushUnsubscribeRequest struct {
	Endpoint     string `json:"endpoint"`
	Subscription struct {
		Endpoint string `json:"endpoint"`
	} `json:"subscription"`
}

func (a *API) unsubscribePush(c *gin.Context) {
	var req pushUnsubscribeRequest
	if err := bind(c, &req); err != nil {
		fail(c, a.log, err)
		return
	}
	endpoint := req.Endpoint
	if endpoint == "" {
		endpoint = req.Subscription.Endpoint
	}
	if endpoint == "" {
		fail(c, a.log, apperr.Invalid("endpoint", "Campo obrigatório."))
		return
	}
	if err := a.d.PushSubs.Delete(c.Request.Context(), currentUser(c).ID, endpoint); err != nil {
		fail(c, a.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type eventNotification struct {
	UserID string `json:"userId"`
	Title  string `json:"title" binding:"required,max=200"`
	Body   string `json:"body" binding:"required,max=1000"`
	URL    string `json:"url"`
	Tag    string `json:"tag"`
}

func (a *API) sendEventNotification(c *gin.Context) {
	var req eventNotification
	if err := bind(c, &req); err != nil {
		fail(c, a.log, err)
		return
	}
	u := currentUser(c)
	if !sameUser(req.UserID, u.ID) {
		abortWith(c, http.StatusForbidden, forbidden)
		return
	}
	rep, err := a.d.Push.Notify(c.Request.Context(), u.ID, push.Message{Title: req.Title, Body: req.Body, URL: req.URL, Tag: req.Tag})
	if err != nil {
		fail(c, a.log, err)
		return
	}
	c.JSON(http.StatusOK, rep)
}

var forbidden = apperr.Result{Code: "proibido", Message: "Operação não permitida para este usuário."}

func sameUser(raw string, id uuid.UUID) bool {
	if raw == "" {
		return true
	}
	parsed, err := uuid.Parse(raw)
	return err == nil && parsed == id
}

func (a *API) listNotifications(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	list, err := a.d.Notifications.ListByUser(c.Request.Context(), currentUser(c).ID, c.Query("unread") == "true", limit)
	if err != nil {
		fail(c, a.log, err)
		return
	}
	if list == nil {
		c.JSON(http.StatusOK, []any{})
		return
	}
	c.JSON(http.StatusOK, list)
}

func (a *API) readNotification(c *gin.Context) {
	id, err := pathID(c, "id", "notificação")
	if err != nil {
		fail(c, a.log, err)
		return
	}
	if err := a.d.Notifications.MarkRead(c.Request.Context(), currentUser(c).ID, id); err != nil {
		fail(c, a.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (a *API) readAllNotifications(c *gin.Context) {
	n, err := a.d.Notifications.MarkAllRead(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		fail(c, a.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": n})
}
