package api

import (
	"net/http"
	"strings"

	models "BarPulse/internal/domain/models"
	"BarPulse/internal/usecase"
	xhttp "BarPulse/pkg/http"
	xlogger "BarPulse/pkg/logger"

	"github.com/labstack/echo/v4"
)

// SignalsEchoHandler exposes the signal engine and data readiness endpoints.
type SignalsEchoHandler struct {
	logger *xlogger.Logger
	engine *usecase.SignalEngine
	meta   *usecase.InstrumentsCatalog
	orch   *usecase.Orchestrator
}

func NewSignalsEchoHandler(
	logger *xlogger.Logger,
	engine *usecase.SignalEngine,
	meta *usecase.InstrumentsCatalog,
	orch *usecase.Orchestrator,
) *SignalsEchoHandler {
	return &SignalsEchoHandler{logger: logger, engine: engine, meta: meta, orch: orch}
}

func (h *SignalsEchoHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)

	g := e.Group("/api/v1")
	g.POST("/signal", h.Signal)
	g.GET("/meta/instruments", h.Instruments)
}

func (h *SignalsEchoHandler) Signal(c echo.Context) error {
	req := &models.SignalRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	symbol := strings.ToUpper(strings.TrimSpace(req.Symbol))
	res, err := h.engine.GenerateSignal(c.Request().Context(), symbol, req.Horizons, req.BarLimit, req.Explain)
	if err != nil {
		h.logger.Error("signal usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *SignalsEchoHandler) Instruments(c echo.Context) error {
	req := &models.InstrumentsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.meta.List(c.Request().Context(), req.MinBars1m)
	if err != nil {
		h.logger.Error("instruments usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *SignalsEchoHandler) Health(c echo.Context) error {
	body := map[string]interface{}{
		"status": "ok",
	}
	if h.orch != nil {
		body["binance_transport"] = h.orch.ActiveBinanceTransport()
	}
	return c.JSON(http.StatusOK, body)
}
