package repository_test

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yashrajoria/storefront-service/models"
	"github.com/yashrajoria/storefront-service/repository"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{})
	require.NoError(t, err)
	return gormDB, mock
}

var itemColumns = []string{"id", "name", "description", "price", "discount_price", "is_discount", "quantity", "image_key", "created_at"}

func TestGetItem_NotFound(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	store := repository.NewGormStore(gormDB)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "items"`)).
		WillReturnRows(sqlmock.NewRows(itemColumns))

	item, err := store.GetItem(context.Background(), uuid.New())
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.Nil(t, item)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListItems_DiscountFilter(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	store := repository.NewGormStore(gormDB)

	id := uuid.New()
	rows := sqlmock.NewRows(itemColumns).
		AddRow(id, "Mug", "", "12.50", "9.99", true, 4, nil, time.Now())

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "items" WHERE is_discount = $1 ORDER BY created_at DESC`)).
		WithArgs(true).
		WillReturnRows(rows)

	items, err := store.ListItems(context.Background(), repository.ItemFilter{DiscountOnly: true})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, id, items[0].ID)
	assert.Equal(t, "9.99", items[0].EffectivePrice().StringFixed(2))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDecrementStock_GuardFails(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	store := repository.NewGormStore(gormDB)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "items" SET "quantity"=`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	err := store.DecrementStock(context.Background(), uuid.New(), 3)
	assert.ErrorIs(t, err, repository.ErrInsufficientStock)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDecrementStock_Success(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	store := repository.NewGormStore(gormDB)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "items" SET "quantity"=`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	assert.NoError(t, store.DecrementStock(context.Background(), uuid.New(), 1))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteLineItem_Missing(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	store := repository.NewGormStore(gormDB)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "cart_line_items"`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	err := store.DeleteLineItem(context.Background(), uuid.New())
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithinTransaction_RollsBackOnError(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	store := repository.NewGormStore(gormDB)

	mock.ExpectBegin()
	mock.ExpectRollback()

	boom := errors.New("boom")
	err := store.WithinTransaction(context.Background(), func(tx repository.Store) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

var cartColumns = []string{"id", "user_id", "created_at", "updated_at"}

func TestEnsureCart_InsertIgnoresConflictThenLocks(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	store := repository.NewGormStore(gormDB)
	userID, cartID := uuid.New(), uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "carts" .* ON CONFLICT \("user_id"\) DO NOTHING`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectCommit()
	mock.ExpectQuery(`SELECT \* FROM "carts" WHERE user_id = \$1 ORDER BY created_at, id.* FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows(cartColumns).AddRow(cartID, userID, time.Now(), time.Now()))

	cart, err := store.EnsureCart(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, cartID, cart.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLockCart_OldestFirstForUpdate(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	store := repository.NewGormStore(gormDB)
	userID, oldest := uuid.New(), uuid.New()

	mock.ExpectQuery(`SELECT \* FROM "carts" WHERE user_id = \$1 ORDER BY created_at, id.* LIMIT .* FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows(cartColumns).AddRow(oldest, userID, time.Now().Add(-time.Hour), time.Now()))

	cart, err := store.LockCart(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, oldest, cart.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindCart_NotFound(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	store := repository.NewGormStore(gormDB)

	mock.ExpectQuery(`SELECT \* FROM "carts" WHERE user_id = \$1 ORDER BY created_at, id`).
		WillReturnRows(sqlmock.NewRows(cartColumns))

	cart, err := store.FindCart(context.Background(), uuid.New())
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.Nil(t, cart)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLockItems_IDOrderForUpdate(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	store := repository.NewGormStore(gormDB)
	a, b := uuid.New(), uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "items" WHERE id IN ($1,$2) ORDER BY id FOR UPDATE`)).
		WithArgs(a, b).
		WillReturnRows(sqlmock.NewRows(itemColumns).
			AddRow(a, "Mug", "", "8.00", nil, false, 2, nil, time.Now()).
			AddRow(b, "Bowl", "", "9.00", nil, false, 0, nil, time.Now()))

	items, err := store.LockItems(context.Background(), []uuid.UUID{a, b})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, 2, items[a].Quantity)
	assert.Equal(t, 0, items[b].Quantity)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLockItems_EmptySkipsQuery(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	store := repository.NewGormStore(gormDB)

	items, err := store.LockItems(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateOrder_InsertsLineItems(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	store := repository.NewGormStore(gormDB)
	order := &models.Order{
		UserID:      uuid.New(),
		CompletedAt: time.Now(),
		LineItems: []models.OrderLineItem{
			{ItemID: uuid.New(), Quantity: 2},
			{ItemID: uuid.New(), Quantity: 1},
		},
	}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "orders"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(uuid.New()))
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "order_line_items"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(uuid.New()).AddRow(uuid.New()))
	mock.ExpectCommit()

	require.NoError(t, store.CreateOrder(context.Background(), order))
	for _, line := range order.LineItems {
		assert.Equal(t, order.ID, line.OrderID)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteCart_RemovesLinesThenCart(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	store := repository.NewGormStore(gormDB)
	cartID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "cart_line_items" WHERE cart_id = $1`)).
		WithArgs(cartID).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "carts" WHERE id = $1`)).
		WithArgs(cartID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	assert.NoError(t, store.DeleteCart(context.Background(), cartID))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListOrders_SkipsEmptyOrders(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	store := repository.NewGormStore(gormDB)
	userID, orderID, lineID, itemID := uuid.New(), uuid.New(), uuid.New(), uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "orders" WHERE user_id = $1 AND EXISTS (SELECT 1 FROM order_line_items WHERE order_line_items.order_id = orders.id) ORDER BY completed_at DESC`)).
		WithArgs(userID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "completed_at"}).AddRow(orderID, userID, time.Now()))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "order_line_items" WHERE "order_line_items"."order_id" = $1`)).
		WithArgs(orderID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "order_id", "item_id", "quantity"}).AddRow(lineID, orderID, itemID, 3))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "items" WHERE "items"."id" = $1`)).
		WithArgs(itemID).
		WillReturnRows(sqlmock.NewRows(itemColumns).AddRow(itemID, "Mug", "", "8.00", nil, false, 5, nil, time.Now()))

	orders, err := store.ListOrders(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	require.Len(t, orders[0].LineItems, 1)
	assert.Equal(t, "Mug", orders[0].LineItems[0].Item.Name)
	assert.Equal(t, 3, orders[0].LineItems[0].Quantity)
	assert.NoError(t, mock.ExpectationsWereMet())
}
