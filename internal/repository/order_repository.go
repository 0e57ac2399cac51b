package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/haripatel07/ecommerce-backend/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type orderItemDocument struct {
	ProductID string `bson:"productId"`
	Quantity  int64  `bson:"quantity"`
}

type paymentResultDocument struct {
	ID           string    `bson:"id"`
	Status       string    `bson:"status"`
	Amount       int64     `bson:"amount"`
	Currency     string    `bson:"currency"`
	EventID      string    `bson:"eventId"`
	ReceiptEmail string    `bson:"receiptEmail,omitempty"`
	UpdateTime   time.Time `bson:"updateTime"`
}

type paymentIntentDocument struct {
	ID        string    `bson:"id"`
	Amount    int64     `bson:"amount"`
	Currency  string    `bson:"currency"`
	CreatedAt time.Time `bson:"createdAt"`
}

type orderDocument struct {
	ID              primitive.ObjectID      `bson:"_id,omitempty"`
	UserID          string                  `bson:"userId"`
	Items           []orderItemDocument     `bson:"items"`
	PaymentIntentID string                  `bson:"paymentIntentId,omitempty"`
	PaymentIntents  []paymentIntentDocument `bson:"paymentIntents,omitempty"`
	IsPaid          bool                    `bson:"isPaid"`
	PaidAt          *time.Time              `bson:"paidAt,omitempty"`
	PaymentResult   *paymentResultDocument  `bson:"paymentResult,omitempty"`
	CreatedAt       time.Time               `bson:"createdAt"`
	UpdatedAt       time.Time               `bson:"updatedAt"`
}

func (d orderDocument) toDomain() *domain.Order {
	items := make([]domain.OrderItem, len(d.Items))
	for i, item := range d.Items {
		items[i] = domain.OrderItem{ProductID: item.ProductID, Quantity: item.Quantity}
	}

	var intents []domain.OrderPaymentIntent
	for _, pi := range d.PaymentIntents {
		intents = append(intents, domain.OrderPaymentIntent{
			ID:        pi.ID,
			Amount:    pi.Amount,
			Currency:  pi.Currency,
			CreatedAt: pi.CreatedAt,
		})
	}

	order := &domain.Order{
		ID:              d.ID.Hex(),
		UserID:          d.UserID,
		Items:           items,
		PaymentIntentID: d.PaymentIntentID,
		PaymentIntents:  intents,
		IsPaid:          d.IsPaid,
		PaidAt:          d.PaidAt,
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
	}
	if d.PaymentResult != nil {
		order.PaymentResult = &domain.PaymentResult{
			ID:           d.PaymentResult.ID,
			Status:       d.PaymentResult.Status,
			Amount:       d.PaymentResult.Amount,
			Currency:     d.PaymentResult.Currency,
			EventID:      d.PaymentResult.EventID,
			ReceiptEmail: d.PaymentResult.ReceiptEmail,
			UpdateTime:   d.PaymentResult.UpdateTime,
		}
	}
	return order
}

type mongoOrderRepository struct {
	collection *mongo.Collection
}

func NewMongoOrderRepository(db *mongo.Database) OrderRepository {
	return &mongoOrderRepository{
		collection: db.Collection("orders"),
	}
}

func (m *mongoOrderRepository) GetOrderByID(ctx context.Context, id string) (*domain.Order, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrOrderNotFound
	}

	var doc orderDocument
	err = m.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	return doc.toDomain(), nil
}

func (m *mongoOrderRepository) ListOrdersByUserID(ctx context.Context, userID string) ([]*domain.Order, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := m.collection.Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders by user id: %w", err)
	}

	var docs []orderDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode orders: %w", err)
	}

	orders := make([]*domain.Order, 0, len(docs))
	for _, d := range docs {
		orders = append(orders, d.toDomain())
	}
	return orders, nil
}

func (m *mongoOrderRepository) findByPaymentIntentID(ctx context.Context, intentID string) (*domain.Order, error) {
	var doc orderDocument
	err := m.collection.FindOne(ctx, bson.M{"paymentIntents.id": intentID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to find order by payment intent: %w", err)
	}

	return doc.toDomain(), nil
}

// AttachPaymentIntent adds the intent to an unpaid order. A paid order
// keeps the intents it had.
func (m *mongoOrderRepository) AttachPaymentIntent(ctx context.Context, orderID string, intent domain.OrderPaymentIntent) error {
	oid, err := primitive.ObjectIDFromHex(orderID)
	if err != nil {
		return ErrOrderNotFound
	}

	filter := bson.M{"_id": oid, "isPaid": false}
	update := bson.M{
		"$set": bson.M{
			"paymentIntentId": intent.ID,
			"updatedAt":       time.Now().UTC(),
		},
		"$addToSet": bson.M{
			"paymentIntents": paymentIntentDocument{
				ID:        intent.ID,
				Amount:    intent.Amount,
				Currency:  intent.Currency,
				CreatedAt: intent.CreatedAt,
			},
		},
	}

	result, err := m.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to attach payment intent: %w", err)
	}
	if result.MatchedCount == 0 {
		return m.missOrPaid(ctx, bson.M{"_id": oid})
	}
	return nil
}

func (m *mongoOrderRepository) MarkPaid(
	ctx context.Context,
	intentID string,
	result domain.PaymentResult,
	paidAt time.Time) (*domain.Order, error) {

	filter := bson.M{
		"isPaid": false,
		"paymentIntents": bson.M{"$elemMatch": bson.M{
			"id":       intentID,
			"amount":   result.Amount,
			"currency": result.Currency,
		}},
	}
	update := bson.M{
		"$set": bson.M{
			"isPaid": true,
			"paidAt": paidAt,
			"paymentResult": paymentResultDocument{
				ID:           result.ID,
				Status:       result.Status,
				Amount:       result.Amount,
				Currency:     result.Currency,
				EventID:      result.EventID,
				ReceiptEmail: result.ReceiptEmail,
				UpdateTime:   result.UpdateTime,
			},
			"updatedAt": paidAt,
		},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc orderDocument
	err := m.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, m.whyNotPaid(ctx, intentID)
		}
		return nil, fmt.Errorf("failed to mark order paid: %w", err)
	}

	return doc.toDomain(), nil
}

// whyNotPaid explains a MarkPaid that matched nothing.
func (m *mongoOrderRepository) whyNotPaid(ctx context.Context, intentID string) error {
	order, err := m.findByPaymentIntentID(ctx, intentID)
	if err != nil {
		return err
	}
	if order.IsPaid {
		return ErrOrderAlreadyPaid
	}
	return ErrPaymentMismatch
}

// missOrPaid tells apart the two reasons a conditional update matched nothing.
func (m *mongoOrderRepository) missOrPaid(ctx context.Context, filter bson.M) error {
	n, err := m.collection.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return fmt.Errorf("failed to count orders: %w", err)
	}
	if n == 0 {
		return ErrOrderNotFound
	}
	return ErrOrderAlreadyPaid
}

func (m *mongoOrderRepository) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "paymentIntents.id", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"paymentIntents.id": bson.M{"$exists": true}}),
		},
		{
			Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}},
		},
	}

	_, err := m.collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	return nil
}

// EnsureIndexes creates the order indexes when repo is backed by Mongo.
func EnsureIndexes(ctx context.Context, repo OrderRepository) error {
	if m, ok := repo.(*mongoOrderRepository); ok {
		return m.CreateIndexes(ctx)
	}
	return nil
}
