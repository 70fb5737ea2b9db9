package api

import (
	"errors"
	"net/http"

	"github.com/celerix-dev/celerix-profiles/pkg/engine"
	"github.com/celerix-dev/celerix-profiles/pkg/schema"
	"github.com/celerix-dev/celerix-profiles/pkg/sdk"
	"github.com/gin-gonic/gin"
)

type Handler struct {
	Store sdk.ProfileStore
}

// Register mounts the profile routes on the given group.
func (h *Handler) Register(g gin.IRoutes) {
	g.GET("/profiles", h.ListProfiles)
	g.GET("/profiles/dump", h.DumpProfiles)
	g.GET("/profiles/:id", h.GetProfile)
	g.PUT("/profiles/:id", h.PutProfile)
	g.POST("/profiles", h.CreateProfile)
	g.DELETE("/profiles/:id", h.DeleteProfile)
	g.POST("/profiles/:id/restore", h.RestoreProfile)
	g.POST("/move", h.Move)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, engine.ErrProfileNotFound), errors.Is(err, engine.ErrBackupUnavailable):
		return http.StatusNotFound
	case errors.Is(err, engine.ErrNoProfileID), errors.Is(err, engine.ErrInvalidProfileID):
		return http.StatusBadRequest
	case errors.Is(err, engine.ErrProfileExists):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func fail(c *gin.Context, err error) {
	c.JSON(statusFor(err), gin.H{"error": err.Error()})
}

func (h *Handler) ListProfiles(c *gin.Context) {
	ids, err := h.Store.List()
	if err != nil {
		fail(c, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	c.JSON(http.StatusOK, ids)
}

func (h *Handler) DumpProfiles(c *gin.Context) {
	data, err := h.Store.Dump()
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, data)
}

func (h *Handler) GetProfile(c *gin.Context) {
	doc, err := h.Store.Get(c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

func (h *Handler) PutProfile(c *gin.Context) {
	var doc schema.Document
	if err := c.ShouldBindJSON(&doc); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.Store.Put(c.Param("id"), doc); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

func (h *Handler) CreateProfile(c *gin.Context) {
	var doc schema.Document
	if err := c.ShouldBindJSON(&doc); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id, err := h.Store.Create(doc)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, schema.ProfileEntry{ID: id, Data: doc})
}

func (h *Handler) DeleteProfile(c *gin.Context) {
	if err := h.Store.Delete(c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

func (h *Handler) RestoreProfile(c *gin.Context) {
	if err := h.Store.Restore(c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

func (h *Handler) Move(c *gin.Context) {
	var input struct {
		Src string `json:"src" binding:"required"`
		Dst string `json:"dst" binding:"required"`
	}

	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.Store.Move(input.Src, input.Dst); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}
