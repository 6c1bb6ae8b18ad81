package app

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/omeyang/xseckill/internal/repository"
	"github.com/omeyang/xseckill/pkg/business/xseckill"
	"github.com/omeyang/xseckill/pkg/context/xctx"
	"github.com/omeyang/xseckill/pkg/observability/xlog"
	"github.com/omeyang/xseckill/pkg/resilience/xlimit"
	"github.com/omeyang/xseckill/pkg/storage/xcache"
)

// 请求头。
const (
	HeaderTraceID = "X-Trace-ID"
	HeaderUserID  = "X-User-ID"
)

// result 统一响应体。
type result struct {
	Success  bool   `json:"success"`
	ErrorMsg string `json:"errorMsg,omitempty"`
	Data     any    `json:"data,omitempty"`
}

// Handler HTTP 处理器。
type Handler struct {
	shops    *ShopService
	vouchers *VoucherService
	seckill  Seckill
	logger   *slog.Logger
}

// NewHandler 创建 Handler。
func NewHandler(shops *ShopService, vouchers *VoucherService, seckill Seckill, logger *slog.Logger) *Handler {
	return &Handler{shops: shops, vouchers: vouchers, seckill: seckill, logger: xlog.OrDefault(logger)}
}

// NewRouter 注册路由。limiter 非 nil 时对秒杀下单按用户与秒杀券限流。
func NewRouter(h *Handler, limiter *xlimit.Limiter) *mux.Router {
	r := mux.NewRouter()
	r.Use(h.traceMiddleware, h.accessLog, identify)

	r.HandleFunc("/healthz", h.healthz).Methods(http.MethodGet)
	r.HandleFunc("/shop/{id:[0-9]+}", h.getShop).Methods(http.MethodGet)
	r.HandleFunc("/shop", h.updateShop).Methods(http.MethodPut)
	r.HandleFunc("/shop-type/list", h.listShopTypes).Methods(http.MethodGet)
	r.HandleFunc("/voucher/seckill", h.createSeckillVoucher).Methods(http.MethodPost)

	order := r.PathPrefix("/voucher-order").Subrouter()
	if limiter != nil {
		order.Use(xlimit.HTTPMiddleware(limiter, userLimitKey))
	}
	order.HandleFunc("/seckill/{id:[0-9]+}", h.seckillVoucher).Methods(http.MethodPost)
	return r
}

// =============================================================================
// 处理器
// =============================================================================

func (h *Handler) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, result{Success: true})
}

func (h *Handler) getShop(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	shop, err := h.shops.GetShop(r.Context(), id)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, result{Success: true, Data: shop})
	case errors.Is(err, ErrShopNotFound):
		writeError(w, http.StatusNotFound, "店铺不存在")
	default:
		h.internalError(w, r, "get shop", err)
	}
}

func (h *Handler) updateShop(w http.ResponseWriter, r *http.Request) {
	var shop repository.Shop
	if err := json.NewDecoder(r.Body).Decode(&shop); err != nil {
		writeError(w, http.StatusBadRequest, "请求体格式错误")
		return
	}
	err := h.shops.UpdateShop(r.Context(), &shop)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, result{Success: true})
	case errors.Is(err, repository.ErrInvalidShop):
		writeError(w, http.StatusBadRequest, "店铺id不能为空")
	case errors.Is(err, ErrShopNotFound):
		writeError(w, http.StatusNotFound, "店铺不存在")
	default:
		h.internalError(w, r, "update shop", err)
	}
}

func (h *Handler) listShopTypes(w http.ResponseWriter, r *http.Request) {
	types, err := h.shops.ListShopTypes(r.Context())
	if err != nil {
		h.internalError(w, r, "list shop types", err)
		return
	}
	writeJSON(w, http.StatusOK, result{Success: true, Data: types})
}

func (h *Handler) createSeckillVoucher(w http.ResponseWriter, r *http.Request) {
	var v repository.SeckillVoucher
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		writeError(w, http.StatusBadRequest, "请求体格式错误")
		return
	}
	err := h.vouchers.Create(r.Context(), &v)
	switch {
	case err == nil:
		writeJSON(w, http.StatusCreated, result{Success: true, Data: v.VoucherID})
	case errors.Is(err, repository.ErrInvalidVoucher), errors.Is(err, xseckill.ErrInvalidStock):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, xseckill.ErrUnavailable):
		writeError(w, http.StatusServiceUnavailable, "服务繁忙，请稍后重试")
	default:
		h.internalError(w, r, "create seckill voucher", err)
	}
}

func (h *Handler) seckillVoucher(w http.ResponseWriter, r *http.Request) {
	voucherID, ok := pathID(w, r)
	if !ok {
		return
	}
	userID, err := xctx.RequireUserID(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "未登录")
		return
	}

	orderID, outcome, err := h.seckill.Admit(r.Context(), voucherID, userID)
	switch {
	case errors.Is(err, xseckill.ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, xseckill.ErrUnavailable):
		writeError(w, http.StatusServiceUnavailable, "服务繁忙，请稍后重试")
	case err != nil:
		h.internalError(w, r, "admit", err)
	case outcome == xseckill.OutcomeOutOfStock:
		writeError(w, http.StatusConflict, "库存不足")
	case outcome == xseckill.OutcomeDuplicate:
		writeError(w, http.StatusConflict, "不能重复下单")
	default:
		// 订单号超过 JS 安全整数范围，以字符串返回
		writeJSON(w, http.StatusOK, result{Success: true, Data: strconv.FormatInt(orderID, 10)})
	}
}

func (h *Handler) internalError(w http.ResponseWriter, r *http.Request, op string, err error) {
	h.logger.ErrorContext(r.Context(), "request failed", xlog.Operation(op), xlog.Err(err))
	if errors.Is(err, xcache.ErrCorrupted) {
		writeError(w, http.StatusInternalServerError, "缓存数据异常")
		return
	}
	writeError(w, http.StatusInternalServerError, "服务器内部错误")
}

// =============================================================================
// 中间件
// =============================================================================

// traceMiddleware 透传或生成 trace id，并写回响应头。
func (h *Handler) traceMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if id := r.Header.Get(HeaderTraceID); id != "" {
			ctx = xctx.WithTraceID(ctx, id)
		} else {
			ctx = xctx.EnsureTraceID(ctx)
		}
		w.Header().Set(HeaderTraceID, xctx.TraceID(ctx))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// identify 从请求头读取用户 ID。登录态由网关校验，这里只做透传。
func identify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if raw := r.Header.Get(HeaderUserID); raw != "" {
			if id, err := strconv.ParseInt(raw, 10, 64); err == nil && id > 0 {
				r = r.WithContext(xctx.WithUserID(r.Context(), id))
			}
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (h *Handler) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		h.logger.InfoContext(r.Context(), "http request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", rec.status),
			xlog.Duration(time.Since(start)))
	})
}

// userLimitKey 按用户与秒杀券限流，未识别用户不限流（下单接口会返回 401）。
func userLimitKey(r *http.Request) string {
	id, ok := xctx.UserID(r.Context())
	if !ok {
		return ""
	}
	return "seckill:" + mux.Vars(r)["id"] + ":user:" + strconv.FormatInt(id, 10)
}

// =============================================================================
// 辅助函数
// =============================================================================

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "无效的 id")
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, body result) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, result{Success: false, ErrorMsg: msg})
}
