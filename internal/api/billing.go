package api

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Spok95/maos-da-obra/internal/access"
	"github.com/Spok95/maos-da-obra/internal/apperr"
	"github.com/Spok95/maos-da-obra/internal/billing"
	"github.com/Spok95/maos-da-obra/internal/domain/subscriptions"
	"github.com/Spok95/maos-da-obra/internal/infra/payments"
)

type meResponse struct {
	ID             string `json:"id"`
	Email          string `json:"email"`
	Name           string `json:"name"`
	TelegramLinked bool   `json:"telegramLinked"`
	access.Status
}

// me - профиль и статус доступа. ?route= - страница, для которой клиент решает про redirect.
func (a *API) me(c *gin.Context) {
	u := currentUser(c)
	route := c.DefaultQuery("route", "/dashboard")
	c.JSON(http.StatusOK, meResponse{
		ID:             u.ID.String(),
		Email:          u.Email,
		Name:           u.Name,
		TelegramLinked: u.TelegramChatID != nil,
		Status:         access.Evaluate(u, a.now(), route),
	})
}

type telegramLink struct {
	ChatID *int64 `json:"chatId"`
}

func (a *API) linkTelegram(c *gin.Context) {
	var req telegramLink
	if err := bind(c, &req); err != nil {
		fail(c, a.log, err)
		return
	}
	if req.ChatID != nil && *req.ChatID == 0 {
		fail(c, a.log, apperr.Invalid("chatId", "Código do Telegram inválido."))
		return
	}
	u := currentUser(c)
	if err := a.d.Users.SetTelegramChat(c.Request.Context(), u.ID, req.ChatID); err != nil {
		fail(c, a.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"telegramLinked": req.ChatID != nil})
}

func (a *API) plans(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"plans": subscriptions.Ordered(), "publicKey": a.d.PaymentPublicKey})
}

type subscribeRequest struct {
	PlanID subscriptions.Plan `json:"planId" binding:"required"`
}

func (a *API) subscribe(c *gin.Context) {
	var req subscribeRequest
	if err := bind(c, &req); err != nil {
		fail(c, a.log, err)
		return
	}
	url, err := a.d.Billing.CheckoutURL(req.PlanID)
	if err != nil {
		fail(c, a.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"checkoutUrl": url})
}

func (a *API) checkout(c *gin.Context) {
	var req billing.CheckoutRequest
	if err := bind(c, &req); err != nil {
		fail(c, a.log, err)
		return
	}
	res, err := a.d.Billing.Checkout(c.Request.Context(), currentUser(c), req)
	if err != nil {
		fail(c, a.log, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (a *API) chargeStatus(c *gin.Context) {
	st, err := a.d.Billing.Poll(c.Request.Context(), currentUser(c), c.Param("txn"))
	if err != nil {
		fail(c, a.log, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

const maxProxyBody = 64 << 10

// proxy - create-card/create-pix: документ клиента проверяется до шлюза,
// дальше тело уходит как есть, статус шлюза возвращается клиенту.
func (a *API) proxy(path string) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxProxyBody))
		if err != nil {
			fail(c, a.log, apperr.Invalid("", "Dados inválidos."))
			return
		}
		var envelope struct {
			Client payments.Customer `json:"client"`
		}
		if err := json.Unmarshal(body, &envelope); err != nil {
			fail(c, a.log, apperr.Invalid("", "Dados inválidos."))
			return
		}
		if _, err := billing.ValidateCustomer(envelope.Client); err != nil {
			fail(c, a.log, err)
			return
		}

		status, resp, err := a.d.Proxy.Forward(c.Request.Context(), path, body)
		if err != nil {
			fail(c, a.log, err)
			return
		}
		if status >= http.StatusBadRequest {
			fail(c, a.log, payments.Rejection(status, resp))
			return
		}
		c.Data(status, "application/json", resp)
	}
}
