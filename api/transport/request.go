package transport

type ReserveLineRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type ReserveStockRequest struct {
	OrderID string               `json:"order_id"`
	Lines   []ReserveLineRequest `json:"lines"`
}

type ReleaseStockRequest struct {
	OrderID string `json:"order_id"`
}

type CreateProductRequest struct {
	Name              string `json:"name"`
	InitialQuantity   int    `json:"initial_quantity"`
	LowStockThreshold int    `json:"low_stock_threshold"`
}
