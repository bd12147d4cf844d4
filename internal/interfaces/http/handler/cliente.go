package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	fiadoapp "github.com/kiosco/fiados/internal/application/fiado"
	"github.com/kiosco/fiados/internal/interfaces/http/middleware"
)

// ClienteHandler handles the client registry and the client-wide ledger operations
type ClienteHandler struct {
	BaseHandler
	clientes *fiadoapp.ClienteService
	ledger   *fiadoapp.LedgerService
	queries  *fiadoapp.QueryService
}

// NewClienteHandler creates a new ClienteHandler
func NewClienteHandler(clientes *fiadoapp.ClienteService, ledger *fiadoapp.LedgerService, queries *fiadoapp.QueryService) *ClienteHandler {
	return &ClienteHandler{clientes: clientes, ledger: ledger, queries: queries}
}

// Create godoc
// @Summary      Register a client
// @Description  Register a client with a unique trimmed name
// @Tags         clientes
// @Accept       json
// @Produce      json
// @Param        request body fiadoapp.AgregarClienteRequest true "Client data"
// @Success      201 {object} dto.Response{data=fiadoapp.ClienteResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /clientes [post]
func (h *ClienteHandler) Create(c *gin.Context) {
	var req fiadoapp.AgregarClienteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	cliente, err := h.clientes.AgregarCliente(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, cliente)
}

// List godoc
// @Summary      List clients
// @Description  List every client, only active ones, or the exact match for a name
// @Tags         clientes
// @Accept       json
// @Produce      json
// @Param        activos query boolean false "Only active clients"
// @Param        nombre query string false "Exact client name"
// @Success      200 {object} dto.Response{data=[]fiadoapp.ClienteResponse,meta=dto.Meta}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /clientes [get]
func (h *ClienteHandler) List(c *gin.Context) {
	ctx := c.Request.Context()

	if nombre := c.Query("nombre"); nombre != "" {
		cliente, err := h.clientes.BuscarClientePorNombre(ctx, nombre)
		if err != nil {
			h.HandleError(c, err)
			return
		}
		h.SuccessList(c, []fiadoapp.ClienteResponse{*cliente}, 1)
		return
	}

	soloActivos := false
	if raw := c.Query("activos"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			h.BadRequest(c, "activos must be true or false")
			return
		}
		soloActivos = v
	}

	clientes, err := h.clientes.ListarClientes(ctx, soloActivos)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessList(c, clientes, len(clientes))
}

// Get godoc
// @Summary      Get client by ID
// @Description  Retrieve a client by its ID
// @Tags         clientes
// @Accept       json
// @Produce      json
// @Param        id path string true "Cliente ID" format(uuid)
// @Success      200 {object} dto.Response{data=fiadoapp.ClienteResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /clientes/{id} [get]
func (h *ClienteHandler) Get(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	cliente, err := h.clientes.ObtenerCliente(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, cliente)
}

// Resumen godoc
// @Summary      Client balance summary
// @Description  Counts per estado and sums of total, paid and pending across the client's fiados
// @Tags         clientes
// @Accept       json
// @Produce      json
// @Param        id path string true "Cliente ID" format(uuid)
// @Success      200 {object} dto.Response{data=fiadoapp.ResumenClienteResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /clientes/{id}/resumen [get]
func (h *ClienteHandler) Resumen(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	resumen, err := h.queries.ObtenerResumenCliente(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resumen)
}

// HistorialPagos godoc
// @Summary      Client payment history
// @Description  Payments of every fiado of the client, grouped per fiado
// @Tags         clientes
// @Accept       json
// @Produce      json
// @Param        id path string true "Cliente ID" format(uuid)
// @Success      200 {object} dto.Response{data=fiadoapp.HistorialPagosClienteResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /clientes/{id}/pagos [get]
func (h *ClienteHandler) HistorialPagos(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	historial, err := h.queries.ObtenerHistorialPagosCliente(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, historial)
}

// AplicarInteres godoc
// @Summary      Apply interest to a client
// @Description  Add a percentage to the interest of every open fiado of the client, all or nothing
// @Tags         clientes
// @Accept       json
// @Produce      json
// @Param        id path string true "Cliente ID" format(uuid)
// @Param        Idempotency-Key header string false "Client-chosen key; a second request with the same key is rejected while the first is in flight"
// @Param        request body fiadoapp.AplicarInteresRequest true "Percentage to add"
// @Success      200 {object} dto.Response{data=fiadoapp.InteresResult}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      503 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /clientes/{id}/interes [post]
func (h *ClienteHandler) AplicarInteres(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	var req fiadoapp.AplicarInteresRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	result, err := h.ledger.AplicarInteresCliente(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// PagarTodo godoc
// @Summary      Pay off a client
// @Description  Settle every open fiado of the client when the declared total matches the outstanding balance
// @Tags         clientes
// @Accept       json
// @Produce      json
// @Param        id path string true "Cliente ID" format(uuid)
// @Param        Idempotency-Key header string false "Client-chosen key; a second request with the same key is rejected while the first is in flight"
// @Param        request body fiadoapp.PagarTodoRequest true "Declared total and note"
// @Success      200 {object} dto.Response{data=fiadoapp.PagarTodoResult}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      503 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /clientes/{id}/pagar-todo [post]
func (h *ClienteHandler) PagarTodo(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	var req fiadoapp.PagarTodoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	result, err := h.ledger.PagarTodoCliente(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}
