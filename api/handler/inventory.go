package handler

import (
	"encoding/json"
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/cooper538/eshop-demo-sub000/api/transport"
	"github.com/cooper538/eshop-demo-sub000/domain"
	"github.com/cooper538/eshop-demo-sub000/pkg/httpcontext"
	inventoryUC "github.com/cooper538/eshop-demo-sub000/usecase/inventory"
)

type InventoryHandler struct {
	baseHandler
	inventory *inventoryUC.UseCase
}

func NewInventoryHandler(inventory *inventoryUC.UseCase, adapter *httpcontext.Adapter, logger *zap.Logger) *InventoryHandler {
	return &InventoryHandler{
		baseHandler: newBaseHandler(adapter, logger),
		inventory:   inventory,
	}
}

// Reserve handles POST /api/v1/inventory/reserve.
func (h *InventoryHandler) Reserve(ctx *fasthttp.RequestCtx) {
	var req transport.ReserveStockRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		h.respondError(ctx, domain.ErrInvalidPayload)
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	lines := make([]inventoryUC.ReserveLine, 0, len(req.Lines))
	for _, line := range req.Lines {
		lines = append(lines, inventoryUC.ReserveLine{ProductID: line.ProductID, Quantity: line.Quantity})
	}

	result, err := h.inventory.ReserveStock(stdCtx, req.OrderID, lines)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	if !result.Success {
		// Business refusals travel as structured results, not errors.
		h.respondJSON(ctx, http.StatusConflict, transport.NewError(string(result.ErrorCode), result.Message, nil))
		return
	}
	h.respondSuccess(ctx, http.StatusOK, result)
}

// Release handles POST /api/v1/inventory/release.
func (h *InventoryHandler) Release(ctx *fasthttp.RequestCtx) {
	var req transport.ReleaseStockRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		h.respondError(ctx, domain.ErrInvalidPayload)
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	result, err := h.inventory.ReleaseStock(stdCtx, req.OrderID)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, result)
}

// CreateProduct handles POST /api/v1/products.
func (h *InventoryHandler) CreateProduct(ctx *fasthttp.RequestCtx) {
	var req transport.CreateProductRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		h.respondError(ctx, domain.ErrInvalidPayload)
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	productID, err := h.inventory.CreateProduct(stdCtx, req.Name, req.InitialQuantity, req.LowStockThreshold)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusCreated, map[string]string{"product_id": productID})
}

// GetProduct handles GET /api/v1/products/{productID}.
func (h *InventoryHandler) GetProduct(ctx *fasthttp.RequestCtx) {
	productID, _ := ctx.UserValue("productID").(string)
	if productID == "" {
		h.respondError(ctx, domain.ErrInvalidPayload)
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	info, err := h.inventory.GetProduct(stdCtx, productID)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, info)
}

// GetAvailability handles GET /api/v1/inventory/{productID}.
func (h *InventoryHandler) GetAvailability(ctx *fasthttp.RequestCtx) {
	productID, _ := ctx.UserValue("productID").(string)
	if productID == "" {
		h.respondError(ctx, domain.ErrInvalidPayload)
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	available, err := h.inventory.GetAvailability(stdCtx, productID)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, map[string]interface{}{
		"product_id": productID,
		"available":  available,
	})
}
