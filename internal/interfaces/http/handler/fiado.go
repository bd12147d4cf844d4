package handler

import (
	"github.com/gin-gonic/gin"
	fiadoapp "github.com/kiosco/fiados/internal/application/fiado"
	"github.com/kiosco/fiados/internal/interfaces/http/middleware"
)

// FiadoHandler handles single-fiado ledger endpoints
type FiadoHandler struct {
	BaseHandler
	ledger  *fiadoapp.LedgerService
	queries *fiadoapp.QueryService
}

// NewFiadoHandler creates a new FiadoHandler
func NewFiadoHandler(ledger *fiadoapp.LedgerService, queries *fiadoapp.QueryService) *FiadoHandler {
	return &FiadoHandler{ledger: ledger, queries: queries}
}

// Create godoc
// @Summary      Create fiado
// @Description  Extend credit to a client
// @Tags         fiados
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key header string false "Client-chosen key; a second request with the same key is rejected while the first is in flight"
// @Param        request body fiadoapp.CrearFiadoRequest true "Fiado data"
// @Success      201 {object} dto.Response{data=fiadoapp.FiadoResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      503 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /fiados [post]
func (h *FiadoHandler) Create(c *gin.Context) {
	var req fiadoapp.CrearFiadoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	f, err := h.ledger.CrearFiado(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, f)
}

// List godoc
// @Summary      List fiados
// @Description  List fiados newest first
// @Tags         fiados
// @Accept       json
// @Produce      json
// @Param        estado query string false "Estado" Enums(Pendiente, Parcial, Pagado)
// @Param        cliente_id query string false "Cliente ID" format(uuid)
// @Success      200 {object} dto.Response{data=[]fiadoapp.FiadoResponse,meta=dto.Meta}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /fiados [get]
func (h *FiadoHandler) List(c *gin.Context) {
	var filter fiadoapp.FiadoListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	fiados, err := h.queries.ObtenerFiados(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessList(c, fiados, len(fiados))
}

// Get godoc
// @Summary      Get fiado by ID
// @Description  Retrieve a fiado by its ID
// @Tags         fiados
// @Accept       json
// @Produce      json
// @Param        id path string true "Fiado ID" format(uuid)
// @Success      200 {object} dto.Response{data=fiadoapp.FiadoResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /fiados/{id} [get]
func (h *FiadoHandler) Get(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	f, err := h.queries.ObtenerFiado(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, f)
}

// Update godoc
// @Summary      Edit fiado
// @Description  Correct principal, interest or note of an unpaid fiado; the collected amount is kept
// @Tags         fiados
// @Accept       json
// @Produce      json
// @Param        id path string true "Fiado ID" format(uuid)
// @Param        request body fiadoapp.ModificarFiadoRequest true "Fields to change"
// @Success      200 {object} dto.Response{data=fiadoapp.FiadoResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      503 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /fiados/{id} [put]
func (h *FiadoHandler) Update(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	var req fiadoapp.ModificarFiadoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	f, err := h.ledger.ModificarFiado(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, f)
}

// Delete godoc
// @Summary      Delete fiado
// @Description  Delete an unpaid fiado and its payments
// @Tags         fiados
// @Accept       json
// @Produce      json
// @Param        id path string true "Fiado ID" format(uuid)
// @Success      204
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      503 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /fiados/{id} [delete]
func (h *FiadoHandler) Delete(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	if err := h.ledger.EliminarFiado(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// RegistrarPago godoc
// @Summary      Register payment
// @Description  Record a payment against a fiado; overpayment is rejected
// @Tags         fiados
// @Accept       json
// @Produce      json
// @Param        id path string true "Fiado ID" format(uuid)
// @Param        Idempotency-Key header string false "Client-chosen key; a second request with the same key is rejected while the first is in flight"
// @Param        request body fiadoapp.RegistrarPagoRequest true "Payment"
// @Success      201 {object} dto.Response{data=fiadoapp.PagoResult}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      503 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /fiados/{id}/pagos [post]
func (h *FiadoHandler) RegistrarPago(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	var req fiadoapp.RegistrarPagoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	result, err := h.ledger.RegistrarPago(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, result)
}

// Historial godoc
// @Summary      Fiado payment history
// @Description  Payments of a fiado, newest first
// @Tags         fiados
// @Accept       json
// @Produce      json
// @Param        id path string true "Fiado ID" format(uuid)
// @Success      200 {object} dto.Response{data=[]fiadoapp.PagoResponse,meta=dto.Meta}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /fiados/{id}/pagos [get]
func (h *FiadoHandler) Historial(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	pagos, err := h.queries.ObtenerHistorialFiado(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessList(c, pagos, len(pagos))
}
