package handler_test

import (
	"net/http"
	"testing"

	fiadoapp "github.com/kiosco/fiados/internal/application/fiado"
	"github.com/kiosco/fiados/internal/interfaces/http/dto"
	"github.com/kiosco/fiados/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClienteHandler_Create(t *testing.T) {
	engine, _ := newLedgerEngine(t)

	w := testutil.Do(t, engine, http.MethodPost, "/api/v1/clientes", map[string]string{
		"nombre":   "  María López ",
		"telefono": "555-0199",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	env := testutil.Decode[fiadoapp.ClienteResponse](t, w)
	assert.True(t, env.Success)
	assert.Equal(t, "María López", env.Data.Nombre)
	assert.True(t, env.Data.Activo)

	t.Run("duplicate name", func(t *testing.T) {
		w := testutil.Do(t, engine, http.MethodPost, "/api/v1/clientes", map[string]string{"nombre": "María López"})
		testutil.AssertError(t, w, http.StatusConflict, dto.ErrCodeAlreadyExists)
	})

	t.Run("name too short", func(t *testing.T) {
		w := testutil.Do(t, engine, http.MethodPost, "/api/v1/clientes", map[string]string{"nombre": " J "})
		testutil.AssertError(t, w, http.StatusBadRequest, dto.ErrCodeInvalidName)
	})

	t.Run("missing name", func(t *testing.T) {
		w := testutil.Do(t, engine, http.MethodPost, "/api/v1/clientes", map[string]string{"telefono": "1"})
		testutil.AssertError(t, w, http.StatusBadRequest, dto.ErrCodeValidation)
	})
}

func TestClienteHandler_ListAndGet(t *testing.T) {
	engine, l := newLedgerEngine(t)
	anaID := l.Cliente(t, "Ana")
	l.Cliente(t, "Beto")

	t.Run("list", func(t *testing.T) {
		w := testutil.Do(t, engine, http.MethodGet, "/api/v1/clientes?activos=true", nil)
		require.Equal(t, http.StatusOK, w.Code)
		env := testutil.Decode[[]fiadoapp.ClienteResponse](t, w)
		require.Len(t, env.Data, 2)
		assert.Equal(t, int64(2), env.Meta.Total)
		assert.Equal(t, "Ana", env.Data[0].Nombre)
	})

	t.Run("invalid activos flag", func(t *testing.T) {
		w := testutil.Do(t, engine, http.MethodGet, "/api/v1/clientes?activos=maybe", nil)
		testutil.AssertError(t, w, http.StatusBadRequest, dto.ErrCodeBadRequest)
	})

	t.Run("lookup by name", func(t *testing.T) {
		w := testutil.Do(t, engine, http.MethodGet, "/api/v1/clientes?nombre=Beto", nil)
		require.Equal(t, http.StatusOK, w.Code)
		env := testutil.Decode[[]fiadoapp.ClienteResponse](t, w)
		require.Len(t, env.Data, 1)
		assert.Equal(t, "Beto", env.Data[0].Nombre)

		w = testutil.Do(t, engine, http.MethodGet, "/api/v1/clientes?nombre=Nadie", nil)
		testutil.AssertError(t, w, http.StatusNotFound, dto.ErrCodeNotFound)
	})

	t.Run("get by id", func(t *testing.T) {
		w := testutil.Do(t, engine, http.MethodGet, "/api/v1/clientes/"+anaID.String(), nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, anaID, testutil.Decode[fiadoapp.ClienteResponse](t, w).Data.ID)

		w = testutil.Do(t, engine, http.MethodGet, "/api/v1/clientes/not-a-uuid", nil)
		testutil.AssertError(t, w, http.StatusBadRequest, dto.ErrCodeInvalidInput)
	})
}

func TestClienteHandler_InteresAndPagarTodo(t *testing.T) {
	engine, l := newLedgerEngine(t)
	clienteID := l.Cliente(t, "Carla")
	base := "/api/v1/clientes/" + clienteID.String()

	t.Run("no open fiados", func(t *testing.T) {
		w := testutil.Do(t, engine, http.MethodPost, base+"/interes", `{"porcentaje_interes": 5}`)
		testutil.AssertError(t, w, http.StatusUnprocessableEntity, dto.ErrCodeNoEligibleFiados)
	})

	l.Fiado(t, clienteID, "100", "")
	l.Fiado(t, clienteID, "200.50", "")

	t.Run("interest", func(t *testing.T) {
		w := testutil.Do(t, engine, http.MethodPost, base+"/interes", `{"porcentaje_interes": "10"}`)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		env := testutil.Decode[map[string]any](t, w)
		assert.EqualValues(t, 2, env.Data["fiados_actualizados"])
		assert.Equal(t, "30.05", env.Data["total_interes_monto"])
	})

	t.Run("payoff mismatch leaves everything open", func(t *testing.T) {
		w := testutil.Do(t, engine, http.MethodPost, base+"/pagar-todo", `{"monto_total": "300.50"}`)
		testutil.AssertError(t, w, http.StatusUnprocessableEntity, dto.ErrCodeAmountMismatch)
	})

	t.Run("payoff", func(t *testing.T) {
		w := testutil.Do(t, engine, http.MethodPost, base+"/pagar-todo", `{"monto_total": "330.55"}`)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		env := testutil.Decode[map[string]any](t, w)
		assert.EqualValues(t, 2, env.Data["cantidad_fiados"])
		assert.Equal(t, "330.55", env.Data["total_pagado"])
	})

	t.Run("resumen and grouped history", func(t *testing.T) {
		w := testutil.Do(t, engine, http.MethodGet, base+"/resumen", nil)
		require.Equal(t, http.StatusOK, w.Code)
		resumen := testutil.Decode[fiadoapp.ResumenClienteResponse](t, w).Data
		assert.Equal(t, int64(2), resumen.ResumenFiados.Pagados)
		assert.Equal(t, int64(2), resumen.CantidadPagos)
		assert.Len(t, resumen.HistorialPagos, 2)

		w = testutil.Do(t, engine, http.MethodGet, base+"/pagos", nil)
		require.Equal(t, http.StatusOK, w.Code)
		env := testutil.Decode[map[string]any](t, w)
		assert.EqualValues(t, 2, env.Data["total_pagos_realizados"])
		assert.Equal(t, "330.55", env.Data["total_pagado_general"])
	})
}
