package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

const testTTL = 10 * time.Minute

func newTestStock(t *testing.T, quantity, threshold int) *Stock {
	t.Helper()
	stock, err := NewStock("product-1", quantity, threshold, testNow)
	require.NoError(t, err)
	stock.DrainEvents() // discard the creation event
	return stock
}

func eventNames(events []DomainEvent) []string {
	names := make([]string, 0, len(events))
	for _, event := range events {
		names = append(names, event.EventName())
	}
	return names
}

func TestNewStock(t *testing.T) {
	stock, err := NewStock("product-1", 10, 2, testNow)
	require.NoError(t, err)

	assert.Equal(t, "product-1", stock.ProductID())
	assert.Equal(t, 10, stock.AvailableQuantity())
	assert.Equal(t, 1, stock.Version())
	assert.Equal(t, 0, stock.PersistedVersion())
	assert.Equal(t, []string{EventStockCreated}, eventNames(stock.DrainEvents()))
}

func TestNewStock_Invalid(t *testing.T) {
	_, err := NewStock("", 10, 2, testNow)
	assert.ErrorIs(t, err, ErrInvalidPayload)

	_, err = NewStock("product-1", -1, 2, testNow)
	assert.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestReserve_Success(t *testing.T) {
	stock := newTestStock(t, 10, 2)

	reservation, err := stock.Reserve("order-a", 3, testNow, testTTL)
	require.NoError(t, err)

	assert.Equal(t, "order-a", reservation.OrderID)
	assert.Equal(t, ReservationActive, reservation.Status)
	assert.Equal(t, testNow.Add(testTTL), reservation.ExpiresAt)
	assert.Equal(t, 7, stock.AvailableQuantity())
	assert.Equal(t, 2, stock.Version())
	assert.Equal(t, []string{EventStockReserved}, eventNames(stock.DrainEvents()))
}

func TestReserve_InsufficientStock(t *testing.T) {
	stock := newTestStock(t, 5, 0)

	_, err := stock.Reserve("order-a", 6, testNow, testTTL)
	assert.ErrorIs(t, err, ErrInsufficientStock)
	assert.Equal(t, 5, stock.AvailableQuantity())
	assert.Empty(t, stock.Reservations())
	assert.False(t, stock.HasPendingEvents())
}

func TestReserve_Idempotent(t *testing.T) {
	stock := newTestStock(t, 10, 0)

	first, err := stock.Reserve("order-a", 4, testNow, testTTL)
	require.NoError(t, err)

	second, err := stock.Reserve("order-a", 4, testNow, testTTL)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, stock.Reservations(), 1)
	assert.Equal(t, 6, stock.AvailableQuantity())
	// A no-op repeat neither bumps the version nor raises events.
	assert.Equal(t, 2, stock.Version())
	assert.Equal(t, []string{EventStockReserved}, eventNames(stock.DrainEvents()))
}

func TestReserve_LowStockWarningOncePerCall(t *testing.T) {
	stock := newTestStock(t, 10, 2)

	// Dropping far below the threshold raises exactly one warning.
	_, err := stock.Reserve("order-a", 9, testNow, testTTL)
	require.NoError(t, err)

	names := eventNames(stock.DrainEvents())
	assert.Equal(t, []string{EventStockReserved, EventLowStockWarning}, names)
}

func TestReserve_NoWarningAboveThreshold(t *testing.T) {
	stock := newTestStock(t, 10, 2)

	_, err := stock.Reserve("order-a", 3, testNow, testTTL)
	require.NoError(t, err)

	assert.Equal(t, []string{EventStockReserved}, eventNames(stock.DrainEvents()))
}

func TestRelease_Idempotent(t *testing.T) {
	stock := newTestStock(t, 10, 0)
	_, err := stock.Reserve("order-a", 4, testNow, testTTL)
	require.NoError(t, err)
	stock.DrainEvents()

	assert.Equal(t, 4, stock.Release("order-a", testNow))
	assert.Equal(t, 10, stock.AvailableQuantity())
	assert.Equal(t, []string{EventStockReleased}, eventNames(stock.DrainEvents()))

	// Second release is a successful no-op: same end state, no new events.
	assert.Equal(t, 0, stock.Release("order-a", testNow))
	assert.Equal(t, 10, stock.AvailableQuantity())
	assert.False(t, stock.HasPendingEvents())
}

func TestRelease_UnknownOrder(t *testing.T) {
	stock := newTestStock(t, 10, 0)
	assert.Equal(t, 0, stock.Release("order-x", testNow))
	assert.False(t, stock.HasPendingEvents())
}

func TestExpire(t *testing.T) {
	stock := newTestStock(t, 10, 0)
	reservation, err := stock.Reserve("order-a", 4, testNow, testTTL)
	require.NoError(t, err)
	stock.DrainEvents()

	changed, err := stock.Expire(reservation.ID, testNow.Add(testTTL+time.Minute))
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, 10, stock.AvailableQuantity())
	assert.Equal(t, []string{EventStockReservationExpired}, eventNames(stock.DrainEvents()))
}

func TestExpire_AlreadySettled(t *testing.T) {
	stock := newTestStock(t, 10, 0)
	reservation, err := stock.Reserve("order-a", 4, testNow, testTTL)
	require.NoError(t, err)
	stock.Release("order-a", testNow)
	stock.DrainEvents()
	versionBefore := stock.Version()

	// Concurrent expiry attempts are expected; a settled reservation is a
	// silent no-op, not an error.
	changed, err := stock.Expire(reservation.ID, testNow)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, versionBefore, stock.Version())
	assert.False(t, stock.HasPendingEvents())
}

func TestExpire_Unknown(t *testing.T) {
	stock := newTestStock(t, 10, 0)
	changed, err := stock.Expire("missing", testNow)
	assert.False(t, changed)
	assert.ErrorIs(t, err, ErrReservationNotFound)
}

func TestAvailableQuantity_NeverNegative(t *testing.T) {
	stock := newTestStock(t, 5, 0)

	for i, quantity := range []int{2, 2, 2, 2} {
		orderID := string(rune('a' + i))
		if _, err := stock.Reserve(orderID, quantity, testNow, testTTL); err != nil {
			assert.ErrorIs(t, err, ErrInsufficientStock)
		}
		assert.GreaterOrEqual(t, stock.AvailableQuantity(), 0)
	}
}

func TestReservation_TerminalTransitions(t *testing.T) {
	res := Reservation{Status: ReservationReleased}
	assert.ErrorIs(t, res.markExpired(), ErrReservationSettled)
	assert.ErrorIs(t, res.markReleased(), ErrReservationSettled)

	res.Status = ReservationExpired
	assert.ErrorIs(t, res.markReleased(), ErrReservationSettled)
	assert.ErrorIs(t, res.markExpired(), ErrReservationSettled)
}

func TestReservation_IsStale(t *testing.T) {
	res := Reservation{Status: ReservationActive, ExpiresAt: testNow}
	assert.False(t, res.IsStale(testNow))
	assert.True(t, res.IsStale(testNow.Add(time.Second)))

	res.Status = ReservationExpired
	assert.False(t, res.IsStale(testNow.Add(time.Second)))
}

// The walkthrough scenario: quantity=10, threshold=2.
func TestStock_Scenario(t *testing.T) {
	stock := newTestStock(t, 10, 2)

	_, err := stock.Reserve("order-a", 9, testNow, testTTL)
	require.NoError(t, err)
	assert.Equal(t, 1, stock.AvailableQuantity())
	assert.Contains(t, eventNames(stock.DrainEvents()), EventLowStockWarning)

	_, err = stock.Reserve("order-b", 5, testNow, testTTL)
	assert.ErrorIs(t, err, ErrInsufficientStock)

	stock.Release("order-a", testNow)
	assert.Equal(t, 10, stock.AvailableQuantity())

	reservation, err := stock.Reserve("order-c", 3, testNow, testTTL)
	require.NoError(t, err)
	stock.DrainEvents()

	later := testNow.Add(testTTL + time.Minute)
	require.True(t, reservation.ExpiresAt.Before(later))

	changed, err := stock.Expire(reservation.ID, later)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, 10, stock.AvailableQuantity())
}
