package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/fourseasons/crowdfunding-api/internal/core/domain"
	"github.com/fourseasons/crowdfunding-api/internal/core/ports"
)

const (
	collectionAccounts = "accounts"

	indexAccountUsername = "uniq_username"
	indexAccountEmail    = "uniq_email"
)

// AccountRepository implements ports.AccountRepository using MongoDB.
type AccountRepository struct {
	col *mongo.Collection
}

var _ ports.AccountRepository = (*AccountRepository)(nil)

func NewAccountRepository(db *mongo.Database) *AccountRepository {
	return &AccountRepository{col: db.Collection(collectionAccounts)}
}

type accountDocument struct {
	ID                string     `bson:"_id"`
	Username          string     `bson:"username"`
	Email             string     `bson:"email"`
	PasswordHash      string     `bson:"password_hash"`
	Role              string     `bson:"role"`
	Enabled           bool       `bson:"enabled"`
	ManuallyLocked    bool       `bson:"manually_locked"`
	FailedLogins      int        `bson:"failed_logins"`
	LastFailedLoginAt *time.Time `bson:"last_failed_login_at"`
	Version           int64      `bson:"version"`
	CreatedAt         time.Time  `bson:"created_at"`
	UpdatedAt         time.Time  `bson:"updated_at"`
}

func toAccountDocument(a *domain.Account) accountDocument {
	doc := accountDocument{
		ID:             a.ID,
		Username:       a.Username,
		Email:          a.Email,
		PasswordHash:   a.PasswordHash,
		Role:           a.Role.String(),
		Enabled:        a.Enabled,
		ManuallyLocked: a.ManuallyLocked,
		FailedLogins:   a.FailedLogins,
		Version:        a.Version,
		CreatedAt:      a.CreatedAt.UTC(),
		UpdatedAt:      a.UpdatedAt.UTC(),
	}
	if a.LastFailedLoginAt != nil {
		ts := a.LastFailedLoginAt.UTC()
		doc.LastFailedLoginAt = &ts
	}
	return doc
}

func (d accountDocument) toDomain() *domain.Account {
	a := &domain.Account{
		ID:             d.ID,
		Username:       d.Username,
		Email:          d.Email,
		PasswordHash:   d.PasswordHash,
		Role:           domain.Role(d.Role),
		Enabled:        d.Enabled,
		ManuallyLocked: d.ManuallyLocked,
		FailedLogins:   d.FailedLogins,
		Version:        d.Version,
		CreatedAt:      d.CreatedAt.UTC(),
		UpdatedAt:      d.UpdatedAt.UTC(),
	}
	if d.LastFailedLoginAt != nil {
		ts := d.LastFailedLoginAt.UTC()
		a.LastFailedLoginAt = &ts
	}
	return a
}

// Create inserts a new account with version 1.
func (r *AccountRepository) Create(ctx context.Context, a *domain.Account) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	a.Version = 1
	if _, err := r.col.InsertOne(ctx, toAccountDocument(a)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return duplicateAccountError(err)
		}
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

func duplicateAccountError(err error) error {
	if strings.Contains(err.Error(), indexAccountEmail) {
		return domain.ErrDuplicateEmail
	}
	return domain.ErrDuplicateUsername
}

func (r *AccountRepository) FindByUsername(ctx context.Context, username string) (*domain.Account, error) {
	return r.findOne(ctx, bson.M{"username": username})
}

func (r *AccountRepository) FindByEmail(ctx context.Context, email string) (*domain.Account, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *AccountRepository) FindByID(ctx context.Context, id string) (*domain.Account, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *AccountRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	return r.exists(ctx, bson.M{"username": username})
}

func (r *AccountRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, bson.M{"email": email})
}

// Update writes the mutable account fields when the stored version matches
// a.Version and increments the version. Username and email are never rewritten.
func (r *AccountRepository) Update(ctx context.Context, a *domain.Account) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := toAccountDocument(a)
	filter := bson.M{"_id": a.ID, "version": a.Version}
	update := bson.M{
		"$set": bson.M{
			"password_hash":        doc.PasswordHash,
			"role":                 doc.Role,
			"enabled":              doc.Enabled,
			"manually_locked":      doc.ManuallyLocked,
			"failed_logins":        doc.FailedLogins,
			"last_failed_login_at": doc.LastFailedLoginAt,
			"updated_at":           doc.UpdatedAt,
		},
		"$inc": bson.M{"version": 1},
	}

	res, err := r.col.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	if res.MatchedCount == 0 {
		found, err := r.exists(ctx, bson.M{"_id": a.ID})
		if err != nil {
			return err
		}
		if !found {
			return domain.ErrAccountNotFound
		}
		return domain.ErrConcurrentUpdate
	}
	a.Version++
	return nil
}

// EnsureIndexes creates the unique username and email indexes.
func (r *AccountRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true).SetName(indexAccountUsername)},
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true).SetName(indexAccountEmail)},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}

func (r *AccountRepository) findOne(ctx context.Context, filter bson.M) (*domain.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc accountDocument
	if err := r.col.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, fmt.Errorf("find account: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *AccountRepository) exists(ctx context.Context, filter bson.M) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	n, err := r.col.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("count accounts: %w", err)
	}
	return n > 0, nil
}
