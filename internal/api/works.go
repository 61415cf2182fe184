package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Spok95/maos-da-obra/internal/assistant"
	"github.com/Spok95/maos-da-obra/internal/dashboard"
	"github.com/Spok95/maos-da-obra/internal/domain/civil"
	"github.com/Spok95/maos-da-obra/internal/domain/materials"
	"github.com/Spok95/maos-da-obra/internal/domain/notifications"
	"github.com/Spok95/maos-da-obra/internal/domain/works"
	"github.com/Spok95/maos-da-obra/internal/reports"
)

func (a *API) today() civil.Date { return civil.Today(a.now(), a.d.Location) }

func (a *API) listWorks(c *gin.Context) {
	list, err := a.d.Works.ListByUser(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		fail(c, a.log, err)
		return
	}
	if list == nil {
		list = []works.Work{}
	}
	c.JSON(http.StatusOK, list)
}

func (a *API) createWork(c *gin.Context) {
	var w works.Work
	if err := bind(c, &w); err != nil {
		fail(c, a.log, err)
		return
	}
	w.ID, w.UserID = uuid.Nil, currentUser(c).ID
	created, err := a.d.Works.Create(c.Request.Context(), &w)
	if err != nil {
		fail(c, a.log, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (a *API) getWork(c *gin.Context) {
	c.JSON(http.StatusOK, currentWork(c))
}

func (a *API) updateWork(c *gin.Context) {
	var w works.Work
	if err := bind(c, &w); err != nil {
		fail(c, a.log, err)
		return
	}
	w.ID, w.UserID = currentWork(c).ID, currentUser(c).ID
	updated, err := a.d.Works.Update(c.Request.Context(), &w)
	if err != nil {
		fail(c, a.log, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (a *API) deleteWork(c *gin.Context) {
	if err := a.d.Works.Delete(c.Request.Context(), currentUser(c).ID, currentWork(c).ID); err != nil {
		fail(c, a.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type summaryResponse struct {
	dashboard.Summary
	Created []notifications.Notification `json:"notificationsCreated"`
}

// summary - сводка для дашборда; заодно прогоняет правила уведомлений.
func (a *API) summary(c *gin.Context) {
	snap, ok := a.snapshot(c)
	if !ok {
		return
	}
	created := a.d.Alerts.Generate(c.Request.Context(), snap.AlertInput(currentUser(c).ID))
	if created == nil {
		created = []notifications.Notification{}
	}
	c.JSON(http.StatusOK, summaryResponse{Summary: dashboard.Summarize(*snap, a.today()), Created: created})
}

func (a *API) generateNotifications(c *gin.Context) {
	snap, ok := a.snapshot(c)
	if !ok {
		return
	}
	created := a.d.Alerts.Generate(c.Request.Context(), snap.AlertInput(currentUser(c).ID))
	if created == nil {
		created = []notifications.Notification{}
	}
	c.JSON(http.StatusOK, gin.H{"created": created})
}

func (a *API) snapshot(c *gin.Context) (*dashboard.Snapshot, bool) {
	snap, err := a.d.Snapshots.Load(c.Request.Context(), currentUser(c).ID, currentWork(c).ID)
	if err != nil {
		fail(c, a.log, err)
		return nil, false
	}
	return snap, true
}

func (a *API) purchase(c *gin.Context) {
	id, err := pathID(c, "id", "material")
	if err != nil {
		fail(c, a.log, err)
		return
	}
	var p materials.Purchase
	if err := bind(c, &p); err != nil {
		fail(c, a.log, err)
		return
	}
	mat, exp, err := a.d.Materials.RegisterPurchase(c.Request.Context(), currentWork(c).ID, id, p)
	if err != nil {
		fail(c, a.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"material": mat, "expense": exp})
}

func (a *API) report(c *gin.Context) {
	snap, ok := a.snapshot(c)
	if !ok {
		return
	}
	data, err := reports.Build(*snap, a.today())
	if err != nil {
		fail(c, a.log, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, reports.FileName(snap.Work.Name, a.now())))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

type chatRequest struct {
	Message string     `json:"message" binding:"required"`
	WorkID  *uuid.UUID `json:"workId"`
}

func (a *API) chat(c *gin.Context) {
	var req chatRequest
	if err := bind(c, &req); err != nil {
		fail(c, a.log, err)
		return
	}
	answer, err := a.d.Assistant.Chat(c.Request.Context(), currentUser(c).ID, req.Message, req.WorkID)
	if err != nil {
		fail(c, a.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reply": answer})
}

func (a *API) planWork(c *gin.Context) {
	var req assistant.PlanRequest
	if err := bind(c, &req); err != nil {
		fail(c, a.log, err)
		return
	}
	plan, err := a.d.Assistant.PlanWork(c.Request.Context(), currentUser(c).ID, req)
	if err != nil {
		fail(c, a.log, err)
		return
	}
	c.JSON(http.StatusOK, plan)
}
