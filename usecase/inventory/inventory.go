package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cooper538/eshop-demo-sub000/domain"
	"github.com/cooper538/eshop-demo-sub000/pkg/clock"
	"github.com/cooper538/eshop-demo-sub000/repository"
	"github.com/cooper538/eshop-demo-sub000/usecase"
)

// ReserveErrorCode classifies a reserve outcome. Insufficient stock is a
// business result, not an error; infrastructure failures come back as
// regular errors instead.
type ReserveErrorCode string

const (
	ReserveNone              ReserveErrorCode = "NONE"
	ReserveInsufficientStock ReserveErrorCode = "INSUFFICIENT_STOCK"
	ReserveProductNotFound   ReserveErrorCode = "PRODUCT_NOT_FOUND"
)

// ReserveLine is one product line of a reservation request.
type ReserveLine struct {
	ProductID string
	Quantity  int
}

// ReserveStockResult is the structured outcome of a reserve command.
type ReserveStockResult struct {
	Success   bool
	ErrorCode ReserveErrorCode
	Message   string
}

// ReleaseStockResult is the structured outcome of a release command.
type ReleaseStockResult struct {
	Success          bool
	QuantityReleased int
	FailureReason    string
}

// UseCase carries the inventory commands exposed to transports and message
// consumers.
type UseCase struct {
	stocks   repository.StockRepository
	products repository.ProductRepository
	cache    repository.AvailabilityCache
	executor *usecase.Executor
	clock    clock.Clock
	ttl      time.Duration
	logger   *zap.Logger
}

func New(
	stocks repository.StockRepository,
	products repository.ProductRepository,
	cache repository.AvailabilityCache,
	executor *usecase.Executor,
	clk clock.Clock,
	reservationTTL time.Duration,
	logger *zap.Logger,
) *UseCase {
	if clk == nil {
		clk = clock.System()
	}
	if reservationTTL <= 0 {
		reservationTTL = 10 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		stocks:   stocks,
		products: products,
		cache:    cache,
		executor: executor,
		clock:    clk,
		ttl:      reservationTTL,
		logger:   logger,
	}
}

// ReserveStock reserves each line for the order and commits once. Lines are
// reserved per product: when a later line fails, earlier lines stay
// reserved and the failure is reported in the result. Callers wanting
// all-or-nothing across lines compensate with ReleaseStock.
func (uc *UseCase) ReserveStock(ctx context.Context, orderID string, lines []ReserveLine) (ReserveStockResult, error) {
	var result ReserveStockResult
	err := uc.executor.Execute(ctx, func(ctx context.Context, uow repository.UnitOfWork) error {
		var innerErr error
		result, innerErr = uc.Reserve(ctx, uow, orderID, lines)
		return innerErr
	})
	if err != nil {
		return ReserveStockResult{}, err
	}
	return result, nil
}

// Reserve is the unit-of-work-scoped body of ReserveStock, shared with the
// idempotent message consumers so their side effects join the consumer's
// transaction.
func (uc *UseCase) Reserve(ctx context.Context, uow repository.UnitOfWork, orderID string, lines []ReserveLine) (ReserveStockResult, error) {
	if orderID == "" || len(lines) == 0 {
		return ReserveStockResult{}, domain.ErrInvalidPayload
	}

	now := uc.clock.Now()
	for _, line := range lines {
		stock, err := uc.stocks.GetByProductID(ctx, line.ProductID)
		if err != nil {
			if errors.Is(err, domain.ErrStockNotFound) || errors.Is(err, domain.ErrProductNotFound) {
				return ReserveStockResult{
					ErrorCode: ReserveProductNotFound,
					Message:   fmt.Sprintf("product %s not found", line.ProductID),
				}, nil
			}
			return ReserveStockResult{}, err
		}
		uow.Track(stock)

		if _, err := stock.Reserve(orderID, line.Quantity, now, uc.ttl); err != nil {
			if errors.Is(err, domain.ErrInsufficientStock) {
				return ReserveStockResult{
					ErrorCode: ReserveInsufficientStock,
					Message:   fmt.Sprintf("product %s: %d requested, %d available", line.ProductID, line.Quantity, stock.AvailableQuantity()),
				}, nil
			}
			return ReserveStockResult{}, err
		}
	}

	return ReserveStockResult{Success: true, ErrorCode: ReserveNone}, nil
}

// ReleaseStock releases every active reservation the order holds. It is
// idempotent: a second call is a successful no-op.
func (uc *UseCase) ReleaseStock(ctx context.Context, orderID string) (ReleaseStockResult, error) {
	var result ReleaseStockResult
	err := uc.executor.Execute(ctx, func(ctx context.Context, uow repository.UnitOfWork) error {
		var innerErr error
		result, innerErr = uc.Release(ctx, uow, orderID)
		return innerErr
	})
	if err != nil {
		return ReleaseStockResult{FailureReason: err.Error()}, err
	}
	return result, nil
}

// Release is the unit-of-work-scoped body of ReleaseStock.
func (uc *UseCase) Release(ctx context.Context, uow repository.UnitOfWork, orderID string) (ReleaseStockResult, error) {
	if orderID == "" {
		return ReleaseStockResult{}, domain.ErrInvalidPayload
	}

	stocks, err := uc.stocks.FindByActiveOrder(ctx, orderID)
	if err != nil {
		return ReleaseStockResult{}, err
	}

	now := uc.clock.Now()
	released := 0
	for _, stock := range stocks {
		uow.Track(stock)
		released += stock.Release(orderID, now)
	}

	return ReleaseStockResult{Success: true, QuantityReleased: released}, nil
}

// CreateProduct registers a catalog product; the ProductCreated handler
// provisions its stock inside the same unit of work.
func (uc *UseCase) CreateProduct(ctx context.Context, name string, initialQuantity, lowStockThreshold int) (string, error) {
	var productID string
	err := uc.executor.Execute(ctx, func(ctx context.Context, uow repository.UnitOfWork) error {
		product, err := domain.NewProduct(name, initialQuantity, lowStockThreshold, uc.clock.Now())
		if err != nil {
			return err
		}
		uow.Track(product)
		productID = product.EntityID()
		return nil
	})
	if err != nil {
		return "", err
	}
	return productID, nil
}

// ExpireStaleReservations is the sweeper entry point: one bounded scan, one
// bulk load, one commit. A concurrency conflict abandons the whole batch;
// the next tick picks the survivors up again.
func (uc *UseCase) ExpireStaleReservations(ctx context.Context, batchSize int) (int, error) {
	if batchSize <= 0 {
		batchSize = 50
	}

	now := uc.clock.Now()
	stale, err := uc.stocks.FindExpiredActive(ctx, repository.ExpiredReservationFilter{Now: now, Limit: batchSize})
	if err != nil {
		return 0, err
	}
	if len(stale) == 0 {
		return 0, nil
	}

	productIDs := make([]string, 0, len(stale))
	seen := make(map[string]struct{}, len(stale))
	for _, row := range stale {
		if _, ok := seen[row.ProductID]; ok {
			continue
		}
		seen[row.ProductID] = struct{}{}
		productIDs = append(productIDs, row.ProductID)
	}

	expired := 0
	err = uc.executor.Execute(ctx, func(ctx context.Context, uow repository.UnitOfWork) error {
		stocks, err := uc.stocks.GetByProductIDs(ctx, productIDs)
		if err != nil {
			return err
		}
		byProduct := make(map[string]*domain.Stock, len(stocks))
		for _, stock := range stocks {
			uow.Track(stock)
			byProduct[stock.ProductID()] = stock
		}

		for _, row := range stale {
			stock, ok := byProduct[row.ProductID]
			if !ok {
				uc.logger.Warn("stale reservation references missing stock",
					zap.String("reservation_id", row.ReservationID),
					zap.String("product_id", row.ProductID))
				continue
			}
			changed, err := stock.Expire(row.ReservationID, now)
			if err != nil {
				return err
			}
			if !changed {
				uc.logger.Debug("reservation already settled",
					zap.String("reservation_id", row.ReservationID))
				continue
			}
			expired++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return expired, nil
}

// ProductInfo is the catalog view of a product with its current availability.
type ProductInfo struct {
	ProductID string    `json:"product_id"`
	Name      string    `json:"name"`
	Available int       `json:"available"`
	CreatedAt time.Time `json:"created_at"`
}

// GetProduct returns the catalog entry together with its availability.
func (uc *UseCase) GetProduct(ctx context.Context, productID string) (ProductInfo, error) {
	if productID == "" {
		return ProductInfo{}, domain.ErrInvalidPayload
	}

	product, err := uc.products.GetByID(ctx, productID)
	if err != nil {
		return ProductInfo{}, err
	}
	available, err := uc.GetAvailability(ctx, productID)
	if err != nil {
		return ProductInfo{}, err
	}
	return ProductInfo{
		ProductID: product.EntityID(),
		Name:      product.Name(),
		Available: available,
		CreatedAt: product.CreatedAt(),
	}, nil
}

// GetAvailability serves the available quantity for a product, preferring
// the cache and falling back to storage.
func (uc *UseCase) GetAvailability(ctx context.Context, productID string) (int, error) {
	if uc.cache != nil {
		if available, ok, err := uc.cache.Get(ctx, productID); err == nil && ok {
			return available, nil
		} else if err != nil {
			uc.logger.Warn("availability cache read failed", zap.Error(err))
		}
	}

	stock, err := uc.stocks.GetByProductID(ctx, productID)
	if err != nil {
		return 0, err
	}
	available := stock.AvailableQuantity()

	if uc.cache != nil {
		if err := uc.cache.Set(ctx, productID, available); err != nil {
			uc.logger.Warn("availability cache refresh failed", zap.Error(err))
		}
	}
	return available, nil
}
