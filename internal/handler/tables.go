package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"buildpos/internal/apierror"
	"buildpos/internal/dto"
	"buildpos/internal/model"
	"buildpos/internal/repository"

	"github.com/gin-gonic/gin"
)

// TablesHandler serves the versioned whole-collection API. Every write is a
// compare-and-swap replace; there are no partial updates.
type TablesHandler struct {
	snapshots repository.SnapshotRepository
}

func NewTablesHandler(snapshots repository.SnapshotRepository) *TablesHandler {
	return &TablesHandler{snapshots: snapshots}
}

// Get returns the full collection with its current version. Tables that were
// never written read as an empty collection at version 0, so a fresh store
// needs no initialization step.
func (h *TablesHandler) Get(c *gin.Context) {
	table, ok := h.tableParam(c)
	if !ok {
		return
	}

	snap, err := h.snapshots.Get(c.Request.Context(), table)
	if errors.Is(err, repository.ErrTableNotFound) {
		c.JSON(http.StatusOK, dto.CollectionEnvelope{
			Table:   string(table),
			Version: 0,
			Items:   json.RawMessage("[]"),
		})
		return
	}
	if err != nil {
		c.Error(err) //nolint:errcheck
		return
	}

	c.JSON(http.StatusOK, dto.CollectionEnvelope{
		Table:   string(table),
		Version: snap.Version,
		Items:   snap.Items,
	})
}

// Put replaces the collection when base_version matches, otherwise answers
// 409 so the terminal re-fetches and reapplies its transform.
func (h *TablesHandler) Put(c *gin.Context) {
	table, ok := h.tableParam(c)
	if !ok {
		return
	}

	var req dto.PutCollectionRequest
	if !bindAndValidate(c, &req) {
		return
	}
	if !json.Valid(req.Items) {
		c.JSON(http.StatusBadRequest, apierror.New("items is not valid JSON"))
		return
	}

	snap, err := h.snapshots.Replace(c.Request.Context(), table, req.BaseVersion, req.Items)
	if errors.Is(err, repository.ErrVersionConflict) {
		c.JSON(http.StatusConflict,
			apierror.WithCode(apierror.CodeVersionConflict, "collection changed since base_version"))
		return
	}
	if err != nil {
		c.Error(err) //nolint:errcheck
		return
	}

	c.JSON(http.StatusOK, dto.PutCollectionResponse{Table: string(table), Version: snap.Version})
}

func (h *TablesHandler) tableParam(c *gin.Context) (model.Table, bool) {
	name := c.Param("table")
	if !model.ValidTable(name) {
		c.JSON(http.StatusNotFound,
			apierror.WithCode(apierror.CodeUnknownTable, "unknown table: "+name))
		return "", false
	}
	return model.Table(name), true
}
