package identity

import (
	"context"
	"errors"
	"sync"

	"garment-portal-backend/internal/database"
	"garment-portal-backend/internal/model"
)

// UserRepository stores login credentials keyed by lower-cased email.
type UserRepository interface {
	CreateUser(ctx context.Context, user model.UserItem) error
	GetUserByEmail(ctx context.Context, email string) (model.UserItem, error)
}

type DynamoUserRepository struct {
	db *database.Database
}

func NewDynamoUserRepository(db *database.Database) UserRepository {
	return &DynamoUserRepository{db: db}
}

func (r *DynamoUserRepository) CreateUser(ctx context.Context, user model.UserItem) error {
	err := r.db.Client.PutItemIfAbsent(ctx, model.UsersTable, "email", user)
	if errors.Is(err, database.ErrItemExists) {
		return ErrUserExists
	}
	return err
}

func (r *DynamoUserRepository) GetUserByEmail(ctx context.Context, email string) (model.UserItem, error) {
	var user model.UserItem
	err := r.db.Client.GetItem(ctx, model.UsersTable, database.StringKey("email", email), &user)
	if err != nil {
		if database.IsNotFound(err) {
			return model.UserItem{}, ErrNotFound
		}
		return model.UserItem{}, err
	}
	return user, nil
}

// MemoryUserRepository keeps credentials in process memory.
type MemoryUserRepository struct {
	mu    sync.Mutex
	users map[string]model.UserItem
}

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{users: make(map[string]model.UserItem)}
}

func (m *MemoryUserRepository) CreateUser(ctx context.Context, user model.UserItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[user.Email]; ok {
		return ErrUserExists
	}
	m.users[user.Email] = user
	return nil
}

func (m *MemoryUserRepository) GetUserByEmail(ctx context.Context, email string) (model.UserItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[email]
	if !ok {
		return model.UserItem{}, ErrNotFound
	}
	return user, nil
}
