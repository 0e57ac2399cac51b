package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/haripatel07/ecommerce-backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

func setupTestDB(t *testing.T) (*mongo.Database, func()) {
	ctx := context.Background()

	mongoContainer, err := mongodb.Run(ctx, "mongo:7")
	require.NoError(t, err)

	uri, err := mongoContainer.ConnectionString(ctx)
	require.NoError(t, err)

	db, err := ConnectMongoDB(ctx, uri, "testdb")
	require.NoError(t, err)

	err = EnsureIndexes(ctx, NewMongoOrderRepository(db))
	require.NoError(t, err)

	cleanup := func() {
		_ = db.Client().Disconnect(ctx)
		if err := mongoContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	}

	return db, cleanup
}

func insertProduct(t *testing.T, db *mongo.Database, price float64) string {
	t.Helper()
	now := time.Now().UTC()
	res, err := db.Collection("products").InsertOne(context.Background(), productDocument{
		Name:        gofakeit.ProductName(),
		Description: gofakeit.ProductDescription(),
		Category:    gofakeit.ProductCategory(),
		Price:       price,
		Stock:       gofakeit.Number(1, 100),
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	require.NoError(t, err)
	return res.InsertedID.(primitive.ObjectID).Hex()
}

const (
	testAmount   int64 = 10000
	testCurrency       = "inr"
)

func insertOrder(t *testing.T, db *mongo.Database, userID, intentID string, paid bool) string {
	t.Helper()
	now := time.Now().UTC()
	doc := orderDocument{
		UserID:          userID,
		Items:           []orderItemDocument{{ProductID: primitive.NewObjectID().Hex(), Quantity: 2}},
		PaymentIntentID: intentID,
		IsPaid:          paid,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if intentID != "" {
		doc.PaymentIntents = []paymentIntentDocument{{
			ID:        intentID,
			Amount:    testAmount,
			Currency:  testCurrency,
			CreatedAt: now,
		}}
	}
	if paid {
		doc.PaidAt = &now
	}
	res, err := db.Collection("orders").InsertOne(context.Background(), doc)
	require.NoError(t, err)
	return res.InsertedID.(primitive.ObjectID).Hex()
}

func TestFindByIDs(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	repo := NewMongoProductRepository(db)

	id1 := insertProduct(t, db, 50)
	id2 := insertProduct(t, db, 12.5)
	insertProduct(t, db, 99)

	products, err := repo.FindByIDs(ctx, []string{id1, id2, primitive.NewObjectID().Hex(), "not-an-object-id"})
	require.NoError(t, err)
	require.Len(t, products, 2)

	prices := map[string]float64{}
	for _, p := range products {
		prices[p.ID] = p.Price
	}
	assert.Equal(t, map[string]float64{id1: 50, id2: 12.5}, prices)
}

func TestFindByIDs_NoValidIDs(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	products, err := NewMongoProductRepository(db).FindByIDs(context.Background(), []string{"P1", ""})
	require.NoError(t, err)
	assert.Empty(t, products)
}

func TestGetOrderByID(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	repo := NewMongoOrderRepository(db)
	id := insertOrder(t, db, "user-1", "pi_get", false)

	order, err := repo.GetOrderByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, order.ID)
	assert.Equal(t, "user-1", order.UserID)
	assert.Equal(t, "pi_get", order.PaymentIntentID)
	require.Len(t, order.PaymentIntents, 1)
	assert.Equal(t, "pi_get", order.PaymentIntents[0].ID)
	assert.Equal(t, testAmount, order.PaymentIntents[0].Amount)
	assert.False(t, order.IsPaid)
	assert.Nil(t, order.PaidAt)

	_, err = repo.GetOrderByID(ctx, primitive.NewObjectID().Hex())
	assert.ErrorIs(t, err, ErrOrderNotFound)

	_, err = repo.GetOrderByID(ctx, "garbage")
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestListOrdersByUserID(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	repo := NewMongoOrderRepository(db)
	first := insertOrder(t, db, "user-list", "", false)
	time.Sleep(10 * time.Millisecond)
	second := insertOrder(t, db, "user-list", "", false)
	insertOrder(t, db, "someone-else", "", false)

	orders, err := repo.ListOrdersByUserID(ctx, "user-list")
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, second, orders[0].ID)
	assert.Equal(t, first, orders[1].ID)
}

func intentFor(id string, amount int64) domain.OrderPaymentIntent {
	return domain.OrderPaymentIntent{
		ID:        id,
		Amount:    amount,
		Currency:  testCurrency,
		CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
	}
}

func paidResult(intentID string, amount int64, currency string) domain.PaymentResult {
	return domain.PaymentResult{
		ID:         intentID,
		Status:     "succeeded",
		Amount:     amount,
		Currency:   currency,
		EventID:    "evt_" + intentID,
		UpdateTime: time.Now().UTC().Truncate(time.Millisecond),
	}
}

func TestAttachPaymentIntent(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	repo := NewMongoOrderRepository(db)
	unpaid := insertOrder(t, db, "user-1", "", false)
	paid := insertOrder(t, db, "user-1", "pi_old", true)

	require.NoError(t, repo.AttachPaymentIntent(ctx, unpaid, intentFor("pi_new", 7450)))
	order, err := repo.GetOrderByID(ctx, unpaid)
	require.NoError(t, err)
	assert.Equal(t, "pi_new", order.PaymentIntentID)
	require.Len(t, order.PaymentIntents, 1)
	assert.Equal(t, int64(7450), order.PaymentIntents[0].Amount)
	assert.Equal(t, testCurrency, order.PaymentIntents[0].Currency)

	err = repo.AttachPaymentIntent(ctx, paid, intentFor("pi_other", 7450))
	assert.ErrorIs(t, err, ErrOrderAlreadyPaid)

	err = repo.AttachPaymentIntent(ctx, primitive.NewObjectID().Hex(), intentFor("pi_x", 7450))
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestAttachPaymentIntent_EarlierIntentStillPays(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	repo := NewMongoOrderRepository(db)
	id := insertOrder(t, db, "user-1", "", false)

	require.NoError(t, repo.AttachPaymentIntent(ctx, id, intentFor("pi_A", 7450)))
	require.NoError(t, repo.AttachPaymentIntent(ctx, id, intentFor("pi_B", 7450)))

	order, err := repo.GetOrderByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "pi_B", order.PaymentIntentID)
	require.Len(t, order.PaymentIntents, 2)

	order, err = repo.MarkPaid(ctx, "pi_A", paidResult("pi_A", 7450, testCurrency), time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, id, order.ID)
	assert.True(t, order.IsPaid)

	_, err = repo.MarkPaid(ctx, "pi_B", paidResult("pi_B", 7450, testCurrency), time.Now().UTC())
	assert.ErrorIs(t, err, ErrOrderAlreadyPaid)
}

func TestAttachPaymentIntent_IntentBelongsToOneOrder(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	repo := NewMongoOrderRepository(db)
	first := insertOrder(t, db, "user-1", "", false)
	second := insertOrder(t, db, "user-1", "", false)

	require.NoError(t, repo.AttachPaymentIntent(ctx, first, intentFor("pi_shared", 100)))
	err := repo.AttachPaymentIntent(ctx, second, intentFor("pi_shared", 100))
	assert.Error(t, err)
}

func TestMarkPaid(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	repo := NewMongoOrderRepository(db)
	id := insertOrder(t, db, "user-1", "pi_paid", false)

	paidAt := time.Now().UTC().Truncate(time.Millisecond)
	result := paidResult("pi_paid", testAmount, testCurrency)

	order, err := repo.MarkPaid(ctx, "pi_paid", result, paidAt)
	require.NoError(t, err)
	assert.Equal(t, id, order.ID)
	assert.True(t, order.IsPaid)
	require.NotNil(t, order.PaidAt)
	assert.True(t, paidAt.Equal(*order.PaidAt))

	diff := cmp.Diff(&result, order.PaymentResult, cmpopts.EquateApproxTime(time.Millisecond))
	assert.Empty(t, diff)

	_, err = repo.MarkPaid(ctx, "pi_paid", result, time.Now())
	assert.ErrorIs(t, err, ErrOrderAlreadyPaid)

	stored, err := repo.GetOrderByID(ctx, id)
	require.NoError(t, err)
	assert.True(t, paidAt.Equal(*stored.PaidAt), "second delivery must not move paidAt")
}

func TestMarkPaid_NotFound(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := NewMongoOrderRepository(db).MarkPaid(context.Background(), "pi_missing", domain.PaymentResult{}, time.Now())
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestMarkPaid_AmountOrCurrencyMismatch(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	repo := NewMongoOrderRepository(db)
	id := insertOrder(t, db, "user-1", "pi_priced", false)

	tests := []struct {
		name     string
		amount   int64
		currency string
	}{
		{name: "underpaid", amount: 1225, currency: testCurrency},
		{name: "overpaid", amount: testAmount + 1, currency: testCurrency},
		{name: "other currency", amount: testAmount, currency: "usd"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := repo.MarkPaid(ctx, "pi_priced", paidResult("pi_priced", tt.amount, tt.currency), time.Now().UTC())
			assert.ErrorIs(t, err, ErrPaymentMismatch)

			stored, err := repo.GetOrderByID(ctx, id)
			require.NoError(t, err)
			assert.False(t, stored.IsPaid)
			assert.Nil(t, stored.PaymentResult)
		})
	}
}

func TestMarkPaid_ConcurrentDeliveries(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	repo := NewMongoOrderRepository(db)
	insertOrder(t, db, "user-1", "pi_race", false)

	const workers = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		applied int
		paid    int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.MarkPaid(ctx, "pi_race", paidResult("pi_race", testAmount, testCurrency), time.Now())
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				applied++
			case assert.ErrorIs(t, err, ErrOrderAlreadyPaid):
				paid++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, applied)
	assert.Equal(t, workers-1, paid)
}

func TestContextCancellation(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Nanosecond)
	defer cancel()

	time.Sleep(10 * time.Millisecond)

	_, err := NewMongoOrderRepository(db).MarkPaid(ctx, "pi_123", paidResult("pi_123", testAmount, testCurrency), time.Now())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "context")
}
