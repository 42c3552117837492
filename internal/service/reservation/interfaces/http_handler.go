// internal/service/reservation/interfaces/http_handler.go
package interfaces

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"stockgate/internal/pkg/logger"
	"stockgate/internal/service/reservation/application"
	"stockgate/internal/service/reservation/domain"
)

const serviceName = "intake-service"

// IntakeHandler 封装了预约服务的 HTTP 处理器
// 这一层只做解析和状态码映射，业务语义全部在应用服务里
type IntakeHandler struct {
	service *application.IntakeService
}

func NewIntakeHandler(service *application.IntakeService) *IntakeHandler {
	return &IntakeHandler{service: service}
}

// RegisterRoutes 在 ServeMux 上注册所有路由
func (h *IntakeHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("POST /orders", h.reserveHandler)
	mux.HandleFunc("POST /orders/cancel", h.cancelHandler)
	mux.HandleFunc("GET /products/{id}", h.getProductHandler)
	mux.HandleFunc("POST /admin/products", h.createProductHandler)
}

func (h *IntakeHandler) reserveHandler(w http.ResponseWriter, r *http.Request) {
	ctx := extractTraceContext(r)
	ctx, span := otel.Tracer(serviceName).Start(ctx, "http.Reserve")
	defer span.End()

	var req application.ReserveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		reservationsTotal.WithLabelValues("invalid_params").Inc()
		writeError(w, http.StatusBadRequest, "invalid_params", "malformed request body")
		return
	}

	resp, err := h.service.Reserve(ctx, &req)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidQuantity), errors.Is(err, domain.ErrUnknownResource):
			reservationsTotal.WithLabelValues("invalid_params").Inc()
			writeError(w, http.StatusBadRequest, "invalid_params", err.Error())
		case errors.Is(err, domain.ErrInsufficientStock):
			reservationsTotal.WithLabelValues("insufficient_stock").Inc()
			writeError(w, http.StatusBadRequest, "insufficient_stock", "product is sold out")
		default:
			reservationsTotal.WithLabelValues("error").Inc()
			logger.Ctx(ctx).Error().Err(err).Msg("reserve failed")
			writeError(w, http.StatusInternalServerError, "internal", "reservation failed")
		}
		return
	}

	reservationsTotal.WithLabelValues("accepted").Inc()
	writeJSON(w, http.StatusAccepted, resp) // 202: 接受的是履约意图，不是履约完成
}

func (h *IntakeHandler) cancelHandler(w http.ResponseWriter, r *http.Request) {
	ctx := extractTraceContext(r)
	ctx, span := otel.Tracer(serviceName).Start(ctx, "http.Cancel")
	defer span.End()

	var req application.CancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.OrderID == 0 {
		writeError(w, http.StatusBadRequest, "invalid_params", "orderId is required")
		return
	}

	if err := h.service.Cancel(ctx, req.OrderID); err != nil {
		if errors.Is(err, domain.ErrOrderNotFound) {
			cancellationsTotal.WithLabelValues("not_found").Inc()
			writeError(w, http.StatusNotFound, "not_found", "order not found")
			return
		}
		cancellationsTotal.WithLabelValues("error").Inc()
		logger.Ctx(ctx).Error().Err(err).Uint64("order_id", req.OrderID).Msg("cancel failed")
		writeError(w, http.StatusInternalServerError, "internal", "cancellation failed")
		return
	}

	cancellationsTotal.WithLabelValues("success").Inc()
	writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

func (h *IntakeHandler) getProductHandler(w http.ResponseWriter, r *http.Request) {
	ctx := extractTraceContext(r)
	ctx, span := otel.Tracer(serviceName).Start(ctx, "http.GetProduct")
	defer span.End()

	id, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil || id == 0 {
		writeError(w, http.StatusBadRequest, "invalid_params", "invalid product id")
		return
	}

	view, err := h.service.GetProduct(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrUnknownResource) {
			writeError(w, http.StatusNotFound, "not_found", "product not found")
			return
		}
		logger.Ctx(ctx).Error().Err(err).Uint64("product_id", id).Msg("product read failed")
		writeError(w, http.StatusInternalServerError, "internal", "product read failed")
		return
	}

	productReadsTotal.WithLabelValues(view.Source).Inc()
	writeJSON(w, http.StatusOK, view)
}

func (h *IntakeHandler) createProductHandler(w http.ResponseWriter, r *http.Request) {
	ctx := extractTraceContext(r)
	ctx, span := otel.Tracer(serviceName).Start(ctx, "http.CreateProduct")
	defer span.End()

	var req application.CreateProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_params", "malformed request body")
		return
	}

	data, err := h.service.CreateProduct(ctx, &req)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidQuantity) {
			writeError(w, http.StatusBadRequest, "invalid_params", "name and non-negative stock are required")
			return
		}
		logger.Ctx(ctx).Error().Err(err).Msg("product creation failed")
		writeError(w, http.StatusInternalServerError, "internal", "product creation failed")
		return
	}
	writeJSON(w, http.StatusCreated, data)
}

func extractTraceContext(r *http.Request) context.Context {
	propagator := otel.GetTextMapPropagator()
	return propagator.Extract(r.Context(), propagation.HeaderCarrier(r.Header))
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{"error": code, "message": message})
}
