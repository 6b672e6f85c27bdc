package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/readmegen/backend/internal/service"
)

type HistoryHandler struct {
	service *service.HistoryService
}

func NewHistoryHandler(service *service.HistoryService) *HistoryHandler {
	return &HistoryHandler{service: service}
}

func (h *HistoryHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	items, err := h.service.List(c.Request.Context(), c.GetHeader(ClientIDHeader), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (h *HistoryHandler) Get(c *gin.Context) {
	item, err := h.service.Get(c.Request.Context(), c.GetHeader(ClientIDHeader), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (h *HistoryHandler) Create(c *gin.Context) {
	var req service.SaveHistoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	item, err := h.service.Save(c.Request.Context(), c.GetHeader(ClientIDHeader), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, item)
}

func (h *HistoryHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.GetHeader(ClientIDHeader), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}

type ShareHandler struct {
	service *service.ShareService
}

func NewShareHandler(service *service.ShareService) *ShareHandler {
	return &ShareHandler{service: service}
}

func (h *ShareHandler) Create(c *gin.Context) {
	var req service.CreateShareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	view, err := h.service.Create(c.Request.Context(), c.GetHeader(ClientIDHeader), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, view)
}

func (h *ShareHandler) Get(c *gin.Context) {
	view, err := h.service.Get(c.Request.Context(), c.Param("slug"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

type BrandingHandler struct {
	service *service.BrandingService
}

func NewBrandingHandler(service *service.BrandingService) *BrandingHandler {
	return &BrandingHandler{service: service}
}

func (h *BrandingHandler) Get(c *gin.Context) {
	b, err := h.service.Get(c.Request.Context(), c.GetHeader(ClientIDHeader))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

func (h *BrandingHandler) Update(c *gin.Context) {
	var req service.BrandingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	b, err := h.service.Update(c.Request.Context(), c.GetHeader(ClientIDHeader), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

type PresetHandler struct {
	service *service.PresetService
}

func NewPresetHandler(service *service.PresetService) *PresetHandler {
	return &PresetHandler{service: service}
}

func (h *PresetHandler) List(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.List())
}

func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
