package services

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/crypto/bcrypt"

	"pinpoint-server/models"
	"pinpoint-server/utils/errors"
	"pinpoint-server/utils/logger"
)

// Credentials carries what a sign-in attempt presents. Which fields matter
// depends on Provider.
type Credentials struct {
	Provider models.ProviderKind `json:"provider"`
	Username string              `json:"username,omitempty"`
	Password string              `json:"password,omitempty"`
	Token    string              `json:"token,omitempty"`
}

// IdentityProvider authenticates one kind of credentials.
type IdentityProvider interface {
	Kind() models.ProviderKind
	Authenticate(ctx context.Context, creds Credentials) (*models.Identity, error)
}

// UserRepository stores password accounts.
type UserRepository interface {
	Insert(ctx context.Context, user models.User) (string, error)
	FindByUsername(ctx context.Context, username string) (models.User, error)
}

type MongoUserRepository struct {
	collection *mongo.Collection
}

func NewMongoUserRepository(ctx context.Context, db *mongo.Database) *MongoUserRepository {
	collection := db.Collection("users")

	// Ensure unique index on username and email
	for _, key := range []string{"username", "email"} {
		indexModel := mongo.IndexModel{
			Keys:    bson.D{{Key: key, Value: 1}},
			Options: options.Index().SetUnique(true),
		}
		if _, err := collection.Indexes().CreateOne(ctx, indexModel); err != nil {
			logger.L().Warn("user_index_failed", "key", key, "err", err)
		}
	}
	return &MongoUserRepository{collection: collection}
}

func (r *MongoUserRepository) Insert(ctx context.Context, user models.User) (string, error) {
	result, err := r.collection.InsertOne(ctx, user)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return "", errors.ErrConflict.WithDetails("username or email already registered")
		}
		return "", errors.ErrUnavailable.WithCause(err)
	}
	oid, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", errors.ErrInternal.WithDetails("unexpected inserted id type")
	}
	return oid.Hex(), nil
}

func (r *MongoUserRepository) FindByUsername(ctx context.Context, username string) (models.User, error) {
	var user models.User
	err := r.collection.FindOne(ctx, bson.M{"username": username}).Decode(&user)
	if err == mongo.ErrNoDocuments {
		return models.User{}, errors.ErrNotFound.WithDetails("user " + username)
	}
	if err != nil {
		return models.User{}, errors.ErrUnavailable.WithCause(err)
	}
	return user, nil
}

var errInvalidCredentials = errors.NewAPIError("INVALID_CREDENTIALS", "Invalid username or password", http.StatusUnauthorized)

// PasswordProvider signs users in against accounts held in a UserRepository.
type PasswordProvider struct {
	users UserRepository
	cost  int
}

func NewPasswordProvider(users UserRepository) *PasswordProvider {
	return &PasswordProvider{users: users, cost: bcrypt.DefaultCost}
}

func (p *PasswordProvider) Kind() models.ProviderKind { return models.ProviderPassword }

// Register creates an account and returns its public id.
func (p *PasswordProvider) Register(ctx context.Context, username, email, password string) (string, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if username == "" || email == "" || password == "" {
		return "", errors.ErrInvalidInput.WithDetails("username, email and password are required")
	}
	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), p.cost)
	if err != nil {
		return "", errors.Wrap(err, "HASH_ERROR", "failed to hash password", http.StatusInternalServerError)
	}

	user := models.User{
		PublicID:     uuid.New().String(),
		Username:     username,
		Email:        email,
		PasswordHash: string(passwordHash),
	}
	if _, err := p.users.Insert(ctx, user); err != nil {
		return "", err
	}
	return user.PublicID, nil
}

func (p *PasswordProvider) Authenticate(ctx context.Context, creds Credentials) (*models.Identity, error) {
	if creds.Username == "" || creds.Password == "" {
		return nil, errInvalidCredentials
	}
	user, err := p.users.FindByUsername(ctx, creds.Username)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return nil, errInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(creds.Password)); err != nil {
		return nil, errInvalidCredentials
	}
	return &models.Identity{UserID: user.PublicID, Username: user.Username, Provider: models.ProviderPassword}, nil
}

// TokenProvider accepts tokens minted by the federated identity provider,
// which shares the session signing key.
type TokenProvider struct {
	tokens *TokenService
}

func NewTokenProvider(tokens *TokenService) *TokenProvider {
	return &TokenProvider{tokens: tokens}
}

func (p *TokenProvider) Kind() models.ProviderKind { return models.ProviderToken }

func (p *TokenProvider) Authenticate(ctx context.Context, creds Credentials) (*models.Identity, error) {
	if creds.Token == "" {
		return nil, errors.ErrUnauthorized.WithDetails("token required")
	}
	return p.tokens.Verify(ctx, creds.Token)
}
