package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"barorder/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "orders.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&entity.User{}, &entity.Vendor{}, &entity.MenuItem{},
		&entity.Order{}, &entity.OrderItem{}, &entity.StatusHistory{},
	))
	return db
}

func seedOrder(t *testing.T, repo *OrderRepository) *entity.Order {
	t.Helper()
	now := time.Now().UTC()
	o := &entity.Order{
		VendorID: 1, UserID: 2,
		Subtotal: 1300, Total: 1300, Currency: "EUR",
		FulfillmentStatus: entity.StatusPending,
		PaymentStatus:     entity.PaymentUnpaid,
		PayOnPickup:       true,
		LastTransitionAt:  now,
	}
	items := []entity.OrderItem{
		{MenuItemID: 10, Name: "Espresso", Qty: 2, UnitPrice: 250, Total: 500},
		{MenuItemID: 11, Name: "Aperol Spritz", Qty: 1, UnitPrice: 800, Total: 800},
	}
	first := entity.StatusHistory{Status: entity.StatusPending, Actor: entity.ActorCustomer, CreatedAt: now}
	require.NoError(t, repo.CreateOrder(context.Background(), o, items, first))
	return o
}

func TestCreateOrder_Atomic(t *testing.T) {
	repo := NewOrderRepository(testDB(t))
	o := seedOrder(t, repo)

	got, err := repo.GetOrder(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1300), got.Total)
	assert.Len(t, got.Items, 2)

	hist, err := repo.GetHistory(context.Background(), o.ID)
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.Equal(t, entity.StatusPending, hist[0].Status)
	assert.Equal(t, entity.ActorCustomer, hist[0].Actor)
}

func TestCommitTransition_BumpsVersionAndAppendsHistory(t *testing.T) {
	repo := NewOrderRepository(testDB(t))
	o := seedOrder(t, repo)

	_, version, err := repo.LoadOrderForUpdate(context.Background(), o.ID)
	require.NoError(t, err)

	entry := entity.StatusHistory{Status: entity.StatusConfirmed, Actor: entity.ActorVendor, CreatedAt: time.Now().UTC()}
	ok, err := repo.CommitTransition(context.Background(), o.ID, version, entity.StatusConfirmed, entry)
	require.NoError(t, err)
	assert.True(t, ok)

	got, newVersion, err := repo.LoadOrderForUpdate(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusConfirmed, got.FulfillmentStatus)
	assert.Equal(t, version+1, newVersion)

	hist, err := repo.GetHistory(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Len(t, hist, 2)
}

func TestCommitTransition_StaleVersionLoses(t *testing.T) {
	repo := NewOrderRepository(testDB(t))
	o := seedOrder(t, repo)

	_, version, err := repo.LoadOrderForUpdate(context.Background(), o.ID)
	require.NoError(t, err)

	entry := entity.StatusHistory{Status: entity.StatusConfirmed, Actor: entity.ActorVendor, CreatedAt: time.Now().UTC()}
	ok, err := repo.CommitTransition(context.Background(), o.ID, version, entity.StatusConfirmed, entry)
	require.NoError(t, err)
	require.True(t, ok)

	// second writer presents the same version it read before the commit
	entry2 := entity.StatusHistory{Status: entity.StatusCancelled, Actor: entity.ActorSystem, CreatedAt: time.Now().UTC()}
	ok, err = repo.CommitTransition(context.Background(), o.ID, version, entity.StatusCancelled, entry2)
	require.NoError(t, err)
	assert.False(t, ok, "stale version must lose the race")

	// the loser left no trace
	got, err := repo.GetOrder(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusConfirmed, got.FulfillmentStatus)
	hist, err := repo.GetHistory(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Len(t, hist, 2)
}

func TestSetPaymentStatus_CAS(t *testing.T) {
	repo := NewOrderRepository(testDB(t))
	o := seedOrder(t, repo)

	_, version, err := repo.LoadOrderForUpdate(context.Background(), o.ID)
	require.NoError(t, err)

	ok, err := repo.SetPaymentStatus(context.Background(), o.ID, version, entity.PaymentPaid)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.SetPaymentStatus(context.Background(), o.ID, version, entity.PaymentFailed)
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := repo.GetOrder(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.PaymentPaid, got.PaymentStatus)
}

func TestListStalePending(t *testing.T) {
	db := testDB(t)
	repo := NewOrderRepository(db)
	o := seedOrder(t, repo)

	// fresh order is not stale
	stale, err := repo.ListStalePending(context.Background(), time.Now().UTC().Add(-time.Hour))
	require.NoError(t, err)
	assert.Empty(t, stale)

	// age it past the cutoff
	require.NoError(t, db.Model(&entity.Order{}).Where("id = ?", o.ID).
		Update("created_at", time.Now().UTC().Add(-2*time.Hour)).Error)

	stale, err = repo.ListStalePending(context.Background(), time.Now().UTC().Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, o.ID, stale[0].ID)
}
