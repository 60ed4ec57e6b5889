// Package mongostore keeps records, groups and archives in MongoDB.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"pfm/internal/core"
)

const (
	transactionsColl = "transactions"
	groupsColl       = "groups"
	membersColl      = "group_members"
	invitationsColl  = "group_invitations"
	archivesColl     = "analytics_archives"
)

// Store wraps the MongoDB collections.
type Store struct {
	client      *mongo.Client
	txs         *mongo.Collection
	groups      *mongo.Collection
	members     *mongo.Collection
	invitations *mongo.Collection
	archives    *mongo.Collection
}

// New connects and pings the server.
func New(ctx context.Context, uri, dbName string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("ping MongoDB: %w", err)
	}

	db := client.Database(dbName)
	s := &Store{
		client:      client,
		txs:         db.Collection(transactionsColl),
		groups:      db.Collection(groupsColl),
		members:     db.Collection(membersColl),
		invitations: db.Collection(invitationsColl),
		archives:    db.Collection(archivesColl),
	}
	if err := s.ensureIndexes(ctx); err != nil {
		client.Disconnect(ctx)
		return nil, err
	}

	slog.InfoContext(ctx, "Connected to MongoDB", "database", dbName)
	return s, nil
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	_, err := s.txs.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "group_id", Value: 1}, {Key: "date", Value: -1}}},
		{Keys: bson.D{{Key: "group_id", Value: 1}, {Key: "date", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("create transaction indexes: %w", err)
	}
	_, err = s.invitations.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "invited_email", Value: 1}, {Key: "status", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("create invitation indexes: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func (s *Store) Append(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	if _, err := s.txs.InsertOne(ctx, toDoc(t)); err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}
	slog.InfoContext(ctx, "Transaction saved to MongoDB", "id", t.ID, "scope", t.Scope().Key())
	return t, nil
}

// scopeFilter selects the records of scope.
func scopeFilter(scope core.Scope) (bson.M, error) {
	switch {
	case scope.IsGroup():
		return bson.M{"group_id": scope.GroupID}, nil
	case scope.OwnerID != "":
		return bson.M{"user_id": scope.OwnerID, "group_id": bson.M{"$in": bson.A{nil, ""}}}, nil
	default:
		return nil, core.ErrInvalidScope
	}
}

func (s *Store) FetchTransactions(ctx context.Context, scope core.Scope, start, end core.Date) ([]core.Transaction, error) {
	filter, err := scopeFilter(scope)
	if err != nil {
		return nil, err
	}
	filter["$or"] = bson.A{
		bson.M{"date": nil},
		bson.M{"date": bson.M{"$gte": start.String(), "$lte": end.String()}},
	}
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: -1}, {Key: "created_at", Value: -1}})
	return s.findTransactions(ctx, filter, opts, start)
}

func (s *Store) ListRecent(ctx context.Context, scope core.Scope, limit int) ([]core.Transaction, error) {
	filter, err := scopeFilter(scope)
	if err != nil {
		return nil, err
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if limit > 0 {
		opts = opts.SetLimit(int64(limit))
	}
	return s.findTransactions(ctx, filter, opts, core.Today())
}

func (s *Store) findTransactions(ctx context.Context, filter bson.M, opts *options.FindOptions, windowStart core.Date) ([]core.Transaction, error) {
	cursor, err := s.txs.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find transactions: %w", err)
	}
	defer cursor.Close(ctx)

	var out []core.Transaction
	for cursor.Next(ctx) {
		var doc transactionDoc
		if err := cursor.Decode(&doc); err != nil {
			slog.WarnContext(ctx, "Skipping undecodable transaction", "error", err)
			continue
		}
		out = append(out, doc.raw(ctx).Normalize(windowStart))
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}

func (s *Store) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	var doc transactionDoc
	err := s.txs.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return core.Transaction{}, fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("find transaction: %w", err)
	}
	return doc.raw(ctx).Normalize(core.Today()), nil
}

func (s *Store) UpdateTransaction(ctx context.Context, t core.Transaction) error {
	doc := toDoc(t)
	res, err := s.txs.UpdateOne(ctx, bson.M{"_id": t.ID}, bson.M{"$set": bson.M{
		"amount":   doc.Amount,
		"item":     doc.Item,
		"category": doc.Category,
		"remarks":  doc.Remarks,
		"paid_by":  doc.PaidBy,
		"date":     doc.Date,
	}})
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("transaction %s: %w", t.ID, core.ErrNotFound)
	}
	return nil
}

func (s *Store) DeleteTransaction(ctx context.Context, id string) error {
	res, err := s.txs.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
	}
	return nil
}

func (s *Store) ListOwners(ctx context.Context) ([]string, error) {
	values, err := s.txs.Distinct(ctx, "user_id", bson.M{"group_id": bson.M{"$in": bson.A{nil, ""}}})
	if err != nil {
		return nil, fmt.Errorf("distinct owners: %w", err)
	}
	owners := make([]string, 0, len(values))
	for _, v := range values {
		if id, ok := v.(string); ok && id != "" {
			owners = append(owners, id)
		}
	}
	sort.Strings(owners)
	return owners, nil
}

func (s *Store) SaveArchive(ctx context.Context, a core.Archive) error {
	doc := archiveDoc{
		ID:         a.ScopeKey + "|" + a.Period,
		ScopeKey:   a.ScopeKey,
		Period:     a.Period,
		Snapshot:   string(a.Snapshot),
		ArchivedAt: a.ArchivedAt,
	}
	_, err := s.archives.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("save archive: %w", err)
	}
	return nil
}

func (s *Store) ListArchives(ctx context.Context, scopeKey string) ([]core.Archive, error) {
	cursor, err := s.archives.Find(ctx, bson.M{"scope_key": scopeKey},
		options.Find().SetSort(bson.D{{Key: "period", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("find archives: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []archiveDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode archives: %w", err)
	}
	out := make([]core.Archive, 0, len(docs))
	for _, d := range docs {
		out = append(out, core.Archive{ScopeKey: d.ScopeKey, Period: d.Period, Snapshot: []byte(d.Snapshot), ArchivedAt: d.ArchivedAt})
	}
	return out, nil
}
