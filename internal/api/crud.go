package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// scoped - модель, которой роутер проставляет объект и id из пути.
type scoped[T any] interface {
	*T
	Scope(workID, id uuid.UUID)
}

// mountResource вешает на группу объекта list/create/get/update/delete.
func mountResource[T any, PT scoped[T]](a *API, g *gin.RouterGroup, path, entity string, repo Repository[T]) {
	g.GET(path, func(c *gin.Context) {
		list, err := repo.List(c.Request.Context(), currentWork(c).ID)
		if err != nil {
			fail(c, a.log, err)
			return
		}
		if list == nil {
			list = []T{}
		}
		c.JSON(http.StatusOK, list)
	})

	g.POST(path, func(c *gin.Context) {
		var item T
		if err := bind(c, &item); err != nil {
			fail(c, a.log, err)
			return
		}
		PT(&item).Scope(currentWork(c).ID, uuid.Nil)
		created, err := repo.Create(c.Request.Context(), &item)
		if err != nil {
			fail(c, a.log, err)
			return
		}
		c.JSON(http.StatusCreated, created)
	})

	g.GET(path+"/:id", func(c *gin.Context) {
		id, err := pathID(c, "id", entity)
		if err != nil {
			fail(c, a.log, err)
			return
		}
		item, err := repo.Get(c.Request.Context(), currentWork(c).ID, id)
		if err != nil {
			fail(c, a.log, err)
			return
		}
		c.JSON(http.StatusOK, item)
	})

	g.PUT(path+"/:id", func(c *gin.Context) {
		id, err := pathID(c, "id", entity)
		if err != nil {
			fail(c, a.log, err)
			return
		}
		var item T
		if err := bind(c, &item); err != nil {
			fail(c, a.log, err)
			return
		}
		PT(&item).Scope(currentWork(c).ID, id)
		updated, err := repo.Update(c.Request.Context(), &item)
		if err != nil {
			fail(c, a.log, err)
			return
		}
		c.JSON(http.StatusOK, updated)
	})

	g.DELETE(path+"/:id", func(c *gin.Context) {
		id, err := pathID(c, "id", entity)
		if err != nil {
			fail(c, a.log, err)
			return
		}
		if err := repo.Delete(c.Request.Context(), currentWork(c).ID, id); err != nil {
			fail(c, a.log, err)
			return
		}
		c.Status(http.StatusNoContent)
	})
}
