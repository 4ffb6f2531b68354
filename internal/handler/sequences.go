package handler

import (
	"net/http"

	"buildpos/internal/apierror"
	"buildpos/internal/dto"
	"buildpos/internal/repository"

	"github.com/gin-gonic/gin"
)

// SequencesHandler issues store-side atomic sequence values. Receipt numbers
// come from here — never from counting the sales collection on a terminal,
// which hands two concurrent checkouts the same number.
type SequencesHandler struct {
	sequences repository.SequenceRepository
}

func NewSequencesHandler(sequences repository.SequenceRepository) *SequencesHandler {
	return &SequencesHandler{sequences: sequences}
}

// Next reserves and returns the next value of the named sequence.
func (h *SequencesHandler) Next(c *gin.Context) {
	name := c.Param("name")
	if name != repository.SequenceReceipt {
		c.JSON(http.StatusNotFound, apierror.New("unknown sequence: "+name))
		return
	}

	value, err := h.sequences.Next(c.Request.Context(), name)
	if err != nil {
		c.Error(err) //nolint:errcheck
		return
	}
	c.JSON(http.StatusOK, dto.SequenceResponse{Name: name, Value: value})
}
