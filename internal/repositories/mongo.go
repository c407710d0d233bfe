package repositories

import (
	"context"
	"errors"
	"regexp"
	"time"

	"github.com/eduguide/backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const AccountsCollection = "accounts"

// MongoAccountRepository stores one document per account, keyed by the account id.
type MongoAccountRepository struct {
	col *mongo.Collection
}

func NewMongoAccountRepository(db *mongo.Database) *MongoAccountRepository {
	return &MongoAccountRepository{col: db.Collection(AccountsCollection)}
}

// EnsureIndexes creates the unique email index and the token lookup indexes.
func (r *MongoAccountRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "password_reset_token", Value: 1}}, Options: options.Index().SetSparse(true)},
		{Keys: bson.D{{Key: "email_verification_token", Value: 1}}, Options: options.Index().SetSparse(true)},
		{Keys: bson.D{{Key: "linked_users", Value: 1}}},
	})
	if err != nil {
		return storageErr("ensure indexes", err)
	}
	return nil
}

func (r *MongoAccountRepository) Create(ctx context.Context, acc *models.Account) error {
	acc.Email = normalizeEmail(acc.Email)
	if acc.LinkedUsers == nil {
		acc.LinkedUsers = []string{}
	}
	if _, err := r.col.InsertOne(ctx, acc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateEmail
		}
		return storageErr("create account", err)
	}
	return nil
}

func (r *MongoAccountRepository) findOne(ctx context.Context, op string, filter bson.M) (*models.Account, error) {
	var acc models.Account
	if err := r.col.FindOne(ctx, filter).Decode(&acc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, storageErr(op, err)
	}
	if acc.LinkedUsers == nil {
		acc.LinkedUsers = []string{}
	}
	return &acc, nil
}

func (r *MongoAccountRepository) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	return r.findOne(ctx, "find by email", bson.M{"email": normalizeEmail(email)})
}

func (r *MongoAccountRepository) FindByID(ctx context.Context, id string) (*models.Account, error) {
	return r.findOne(ctx, "find by id", bson.M{"_id": id})
}

func (r *MongoAccountRepository) FindByResetToken(ctx context.Context, tokenHash string, now time.Time) (*models.Account, error) {
	if tokenHash == "" {
		return nil, nil
	}
	return r.findOne(ctx, "find by reset token", bson.M{
		"password_reset_token":   tokenHash,
		"password_reset_expires": bson.M{"$gt": now},
	})
}

func (r *MongoAccountRepository) FindByEmailVerificationToken(ctx context.Context, tokenHash string, now time.Time) (*models.Account, error) {
	if tokenHash == "" {
		return nil, nil
	}
	return r.findOne(ctx, "find by verification token", bson.M{
		"email_verification_token":   tokenHash,
		"email_verification_expires": bson.M{"$gt": now},
	})
}

func (r *MongoAccountRepository) findMany(ctx context.Context, op string, filter bson.M, opts ...*options.FindOptions) ([]*models.Account, error) {
	cur, err := r.col.Find(ctx, filter, opts...)
	if err != nil {
		return nil, storageErr(op, err)
	}
	defer cur.Close(ctx)

	var out []*models.Account
	if err := cur.All(ctx, &out); err != nil {
		return nil, storageErr(op, err)
	}
	return out, nil
}

func (r *MongoAccountRepository) FindByIDs(ctx context.Context, ids []string) ([]*models.Account, error) {
	if len(ids) == 0 {
		return []*models.Account{}, nil
	}
	return r.findMany(ctx, "find by ids", bson.M{"_id": bson.M{"$in": ids}})
}

// saveUpdate sets every field a whole-record save may change. Counters, links
// and last login are only written when the upsert inserts a new document.
func saveUpdate(acc *models.Account) bson.M {
	linked := acc.LinkedUsers
	if linked == nil {
		linked = []string{}
	}
	return bson.M{
		"$set": bson.M{
			"name":                       acc.Name,
			"surname":                    acc.Surname,
			"email":                      acc.Email,
			"phone":                      acc.Phone,
			"role":                       acc.Role,
			"password_hash":              acc.Password,
			"is_email_verified":          acc.IsEmailVerified,
			"is_phone_verified":          acc.IsPhoneVerified,
			"email_verification_token":   acc.EmailVerificationToken,
			"email_verification_expires": acc.EmailVerificationExpires,
			"phone_verification_code":    acc.PhoneVerificationCode,
			"phone_verification_expires": acc.PhoneVerificationExpires,
			"password_reset_token":       acc.PasswordResetToken,
			"password_reset_expires":     acc.PasswordResetExpires,
			"two_factor_secret":          acc.TwoFactorSecret,
			"is_two_factor_enabled":      acc.IsTwoFactorEnabled,
			"profile":                    acc.Profile,
			"preferences":                acc.Preferences,
			"updated_at":                 acc.UpdatedAt,
		},
		"$setOnInsert": bson.M{
			"login_attempts": acc.LoginAttempts,
			"lock_until":     acc.LockUntil,
			"linked_users":   linked,
			"last_login":     acc.LastLogin,
			"created_at":     acc.CreatedAt,
		},
	}
}

func (r *MongoAccountRepository) Save(ctx context.Context, acc *models.Account) error {
	acc.Email = normalizeEmail(acc.Email)
	acc.UpdatedAt = time.Now().UTC()

	opts := options.Update().SetUpsert(true)
	if _, err := r.col.UpdateOne(ctx, bson.M{"_id": acc.ID}, saveUpdate(acc), opts); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateEmail
		}
		return storageErr("save account", err)
	}
	return nil
}

func (r *MongoAccountRepository) Delete(ctx context.Context, id string) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return storageErr("delete account", err)
	}
	if res.DeletedCount == 0 {
		return ErrAccountNotFound
	}
	return nil
}

func (r *MongoAccountRepository) SearchByName(ctx context.Context, q SearchQuery) ([]*models.Account, error) {
	filter := bson.M{
		"name":    primitive.Regex{Pattern: regexp.QuoteMeta(q.Name), Options: "i"},
		"surname": primitive.Regex{Pattern: regexp.QuoteMeta(q.Surname), Options: "i"},
		"_id":     bson.M{"$ne": q.ExcludeID},
	}
	if q.Role != "" {
		filter["role"] = q.Role
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}}).
		SetLimit(int64(q.limit()))
	return r.findMany(ctx, "search accounts", filter, opts)
}

// RecordFailedLogin runs the lockout rule as an update pipeline. The first
// stage clears an expired lock, the second sets a new one once the count
// reaches threshold.
func (r *MongoAccountRepository) RecordFailedLogin(ctx context.Context, id string, threshold int, lockFor time.Duration, now time.Time) (LockoutState, error) {
	hasLock := bson.M{"$ne": bson.A{bson.M{"$ifNull": bson.A{"$lock_until", nil}}, nil}}
	lockExpired := bson.M{"$and": bson.A{hasLock, bson.M{"$lte": bson.A{"$lock_until", now}}}}

	pipeline := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"login_attempts": bson.M{"$cond": bson.A{
				lockExpired,
				1,
				bson.M{"$add": bson.A{bson.M{"$ifNull": bson.A{"$login_attempts", 0}}, 1}},
			}},
			"lock_until": bson.M{"$cond": bson.A{lockExpired, "$$REMOVE", "$lock_until"}},
		}}},
		{{Key: "$set", Value: bson.M{
			"lock_until": bson.M{"$cond": bson.A{
				bson.M{"$and": bson.A{
					bson.M{"$not": bson.A{hasLock}},
					bson.M{"$gte": bson.A{"$login_attempts", threshold}},
				}},
				now.Add(lockFor),
				"$lock_until",
			}},
			"updated_at": now,
		}}},
	}

	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(bson.M{"login_attempts": 1, "lock_until": 1})

	var out struct {
		LoginAttempts int        `bson:"login_attempts"`
		LockUntil     *time.Time `bson:"lock_until"`
	}
	if err := r.col.FindOneAndUpdate(ctx, bson.M{"_id": id}, pipeline, opts).Decode(&out); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return LockoutState{}, ErrAccountNotFound
		}
		return LockoutState{}, storageErr("record failed login", err)
	}
	return LockoutState{LoginAttempts: out.LoginAttempts, LockUntil: out.LockUntil}, nil
}

func (r *MongoAccountRepository) ResetLoginAttempts(ctx context.Context, id string, now time.Time) error {
	res, err := r.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set":   bson.M{"login_attempts": 0, "last_login": now, "updated_at": now},
		"$unset": bson.M{"lock_until": ""},
	})
	if err != nil {
		return storageErr("reset login attempts", err)
	}
	if res.MatchedCount == 0 {
		return ErrAccountNotFound
	}
	return nil
}

func (r *MongoAccountRepository) ClearLockout(ctx context.Context, id string, now time.Time) error {
	res, err := r.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set":   bson.M{"login_attempts": 0, "updated_at": now},
		"$unset": bson.M{"lock_until": ""},
	})
	if err != nil {
		return storageErr("clear lockout", err)
	}
	if res.MatchedCount == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// AddLink issues one $addToSet per side. Each side is atomic on its own; a
// repeated call converges to the same state.
func (r *MongoAccountRepository) AddLink(ctx context.Context, a, b string) error {
	now := time.Now().UTC()
	for _, pair := range [][2]string{{a, b}, {b, a}} {
		res, err := r.col.UpdateOne(ctx, bson.M{"_id": pair[0]}, bson.M{
			"$addToSet": bson.M{"linked_users": pair[1]},
			"$set":      bson.M{"updated_at": now},
		})
		if err != nil {
			return storageErr("add link", err)
		}
		if res.MatchedCount == 0 {
			return ErrAccountNotFound
		}
	}
	return nil
}

func (r *MongoAccountRepository) RemoveLinksTo(ctx context.Context, id string) error {
	_, err := r.col.UpdateMany(ctx, bson.M{"linked_users": id}, bson.M{
		"$pull": bson.M{"linked_users": id},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	})
	if err != nil {
		return storageErr("remove links", err)
	}
	return nil
}
