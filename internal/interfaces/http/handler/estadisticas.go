package handler

import (
	"github.com/gin-gonic/gin"
	fiadoapp "github.com/kiosco/fiados/internal/application/fiado"
)

// EstadisticasHandler serves the global ledger statistics
type EstadisticasHandler struct {
	BaseHandler
	queries *fiadoapp.QueryService
}

// NewEstadisticasHandler creates a new EstadisticasHandler
func NewEstadisticasHandler(queries *fiadoapp.QueryService) *EstadisticasHandler {
	return &EstadisticasHandler{queries: queries}
}

// Get godoc
// @Summary      Global statistics
// @Description  Counts per estado and the outstanding, total and recovered sums across all fiados
// @Tags         estadisticas
// @Accept       json
// @Produce      json
// @Success      200 {object} dto.Response{data=fiadoapp.EstadisticasResponse}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /estadisticas [get]
func (h *EstadisticasHandler) Get(c *gin.Context) {
	stats, err := h.queries.ObtenerEstadisticasGlobales(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, stats)
}
