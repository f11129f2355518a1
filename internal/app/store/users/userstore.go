package userstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/meraki/internal/app/system/normalize"
	"github.com/dalemusser/meraki/internal/app/system/timeouts"
	"github.com/dalemusser/meraki/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	// ErrNotFound is returned when no user matches.
	ErrNotFound = errors.New("user not found")
	// ErrDuplicateEmail is returned when attempting to create a user with an email that already exists.
	ErrDuplicateEmail = errors.New("a user with this email already exists")
	// ErrInvalidResetToken is returned when a reset token is unknown or expired.
	ErrInvalidResetToken = errors.New("invalid or expired reset token")
	// ErrInvalidProvider is returned when a user is written with an unknown auth provider.
	ErrInvalidProvider = errors.New("unsupported auth provider")
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("users")}
}

// IndexModels returns the indexes the users collection depends on.
func IndexModels() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_users_email"),
		},
		{
			Keys: bson.D{{Key: "google_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_users_google_id").
				SetPartialFilterExpression(bson.M{"google_id": bson.M{"$type": "string"}}),
		},
		{
			Keys:    bson.D{{Key: "name_ci", Value: 1}, {Key: "_id", Value: 1}},
			Options: options.Index().SetName("idx_users_name_ci__id"),
		},
		{
			Keys: bson.D{{Key: "reset_token_hash", Value: 1}},
			Options: options.Index().SetName("idx_users_reset_token").
				SetPartialFilterExpression(bson.M{"reset_token_hash": bson.M{"$type": "string"}}),
		},
	}
}

// EnsureIndexes creates the collection's indexes.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.c.Indexes().CreateMany(ctx, IndexModels())
	return err
}

func (s *Store) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, timeouts.Short())
	defer cancel()

	var u models.User
	err := s.c.FindOne(ctx, filter).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByID loads a user by ObjectID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

// GetByHexID loads a user by the hex form of its ObjectID.
func (s *Store) GetByHexID(ctx context.Context, hex string) (*models.User, error) {
	oid, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return nil, ErrNotFound
	}
	return s.GetByID(ctx, oid)
}

// GetByEmail looks up a user by case-insensitive email.
func (s *Store) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findOne(ctx, bson.M{"email": normalize.Email(email)})
}

// CreateCredentials inserts a user who signs in with email and password.
func (s *Store) CreateCredentials(ctx context.Context, name, email, passwordHash string) (models.User, error) {
	now := time.Now().UTC()
	u := models.User{
		ID:           primitive.NewObjectID(),
		Name:         normalize.Name(name),
		Email:        normalize.Email(email),
		AuthProvider: models.ProviderCredentials,
		PasswordHash: &passwordHash,
		Department:   models.DefaultDepartment,
		ColorKey:     models.DefaultColor,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	u.NameCI = text.Fold(u.Name)
	return s.insert(ctx, u)
}

func (s *Store) insert(ctx context.Context, u models.User) (models.User, error) {
	if !models.IsValidAuthProvider(u.AuthProvider) {
		return models.User{}, fmt.Errorf("%w: %q", ErrInvalidProvider, u.AuthProvider)
	}

	ctx, cancel := context.WithTimeout(ctx, timeouts.Short())
	defer cancel()

	if _, err := s.c.InsertOne(ctx, u); err != nil {
		if wafflemongo.IsDup(err) {
			return models.User{}, ErrDuplicateEmail
		}
		return models.User{}, err
	}
	return u, nil
}

// GoogleProfile is the subset of the Google userinfo response we store.
type GoogleProfile struct {
	ID      string
	Email   string
	Name    string
	Picture string
}

// UpsertGoogle returns the user for a Google sign-in, creating it on first
// sign-in. An existing user with the same email is linked to the Google
// account. created reports whether a new user was inserted.
func (s *Store) UpsertGoogle(ctx context.Context, p GoogleProfile) (u models.User, created bool, err error) {
	email := normalize.Email(p.Email)
	if email == "" {
		return models.User{}, false, fmt.Errorf("google profile has no email")
	}

	existing, err := s.GetByEmail(ctx, email)
	switch {
	case err == nil:
		return s.linkGoogle(ctx, *existing, p)
	case !errors.Is(err, ErrNotFound):
		return models.User{}, false, err
	}

	now := time.Now().UTC()
	name := normalize.Name(p.Name)
	if name == "" {
		name = email
	}
	nu := models.User{
		ID:           primitive.NewObjectID(),
		Name:         name,
		NameCI:       text.Fold(name),
		Email:        email,
		Image:        p.Picture,
		AuthProvider: models.ProviderGoogle,
		GoogleID:     p.ID,
		Department:   models.DefaultDepartment,
		ColorKey:     models.DefaultColor,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	nu, err = s.insert(ctx, nu)
	if errors.Is(err, ErrDuplicateEmail) {
		// Lost a race with a concurrent first sign-in; use the winner.
		existing, err := s.GetByEmail(ctx, email)
		if err != nil {
			return models.User{}, false, err
		}
		return *existing, false, nil
	}
	if err != nil {
		return models.User{}, false, err
	}
	return nu, true, nil
}

func (s *Store) linkGoogle(ctx context.Context, u models.User, p GoogleProfile) (models.User, bool, error) {
	set := bson.M{}
	if u.GoogleID == "" && p.ID != "" {
		set["google_id"] = p.ID
	}
	if p.Picture != "" && u.Image != p.Picture {
		set["image"] = p.Picture
	}
	if len(set) == 0 {
		return u, false, nil
	}
	set["updated_at"] = time.Now().UTC()

	ctx, cancel := context.WithTimeout(ctx, timeouts.Short())
	defer cancel()

	var out models.User
	err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": u.ID}, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&out)
	if err != nil {
		return models.User{}, false, err
	}
	return out, false, nil
}

// ProfileUpdate holds the user-editable profile fields.
type ProfileUpdate struct {
	Name       string
	Department string
	ColorKey   string
}

// UpdateProfile sets name, department and color key, returning the updated user.
func (s *Store) UpdateProfile(ctx context.Context, id primitive.ObjectID, up ProfileUpdate) (models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, timeouts.Short())
	defer cancel()

	set := bson.M{
		"name":       up.Name,
		"name_ci":    text.Fold(up.Name),
		"department": up.Department,
		"color_key":  up.ColorKey,
		"updated_at": time.Now().UTC(),
	}
	var out models.User
	err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.User{}, ErrNotFound
	}
	if err != nil {
		return models.User{}, err
	}
	return out, nil
}

// SetPosition assigns a position to the user with the given email and
// recomputes the color key from it.
func (s *Store) SetPosition(ctx context.Context, email, position string) (models.User, error) {
	u, err := s.GetByEmail(ctx, email)
	if err != nil {
		return models.User{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, timeouts.Short())
	defer cancel()

	set := bson.M{
		"position":   position,
		"color_key":  models.ColorFor(position, u.Department),
		"updated_at": time.Now().UTC(),
	}
	var out models.User
	err = s.c.FindOneAndUpdate(ctx, bson.M{"_id": u.ID}, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&out)
	if err != nil {
		return models.User{}, err
	}
	return out, nil
}

// SetResetToken stores the digest of a reset token and its expiry.
func (s *Store) SetResetToken(ctx context.Context, id primitive.ObjectID, digest string, expiresAt time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, timeouts.Short())
	defer cancel()

	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"reset_token_hash":   digest,
		"reset_token_expiry": expiresAt.UTC(),
		"updated_at":         time.Now().UTC(),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// ResetPassword replaces the password of the user holding an unexpired
// token digest and clears the token, so each token works once.
func (s *Store) ResetPassword(ctx context.Context, digest, passwordHash string, now time.Time) (models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, timeouts.Short())
	defer cancel()

	filter := bson.M{
		"reset_token_hash":   digest,
		"reset_token_expiry": bson.M{"$gt": now.UTC()},
	}
	update := bson.M{
		"$set":   bson.M{"password_hash": passwordHash, "updated_at": now.UTC()},
		"$unset": bson.M{"reset_token_hash": "", "reset_token_expiry": ""},
	}
	var out models.User
	err := s.c.FindOneAndUpdate(ctx, filter, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.User{}, ErrInvalidResetToken
	}
	if err != nil {
		return models.User{}, err
	}
	return out, nil
}

// PurgeExpiredResetTokens clears reset tokens that expired before now.
func (s *Store) PurgeExpiredResetTokens(ctx context.Context, now time.Time) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, timeouts.Medium())
	defer cancel()

	res, err := s.c.UpdateMany(ctx,
		bson.M{"reset_token_expiry": bson.M{"$lte": now.UTC()}},
		bson.M{"$unset": bson.M{"reset_token_hash": "", "reset_token_expiry": ""}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// ListAll returns every user sorted by folded name.
func (s *Store) ListAll(ctx context.Context) ([]models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, timeouts.Medium())
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "name_ci", Value: 1}, {Key: "_id", Value: 1}}).
		SetProjection(bson.M{"password_hash": 0, "reset_token_hash": 0, "reset_token_expiry": 0})
	cur, err := s.c.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := make([]models.User, 0)
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
