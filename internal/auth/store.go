package auth

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// AccountStore is the persistence collaborator of the auth service. Email
// arguments are already normalized. Lookups return ErrAccountNotFound when no
// row matches; Insert returns ErrDuplicateEmail when the email is taken.
type AccountStore interface {
	FindByEmail(ctx context.Context, email string) (*Account, error)
	FindByID(ctx context.Context, id string) (*Account, error)
	Insert(ctx context.Context, a *Account) (*Account, error)
	Update(ctx context.Context, a *Account) error
}

// GormStore keeps accounts in Postgres through gorm.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) FindByEmail(ctx context.Context, email string) (*Account, error) {
	var a Account
	err := s.db.WithContext(ctx).First(&a, "LOWER(email) = LOWER(?)", email).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &a, nil
}

func (s *GormStore) FindByID(ctx context.Context, id string) (*Account, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrAccountNotFound
	}
	var a Account
	if err := s.db.WithContext(ctx).First(&a, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &a, nil
}

// Insert assigns an id when the account has none.
func (s *GormStore) Insert(ctx context.Context, a *Account) (*Account, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if err := s.db.WithContext(ctx).Create(a).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, err
	}
	return a, nil
}

func (s *GormStore) Update(ctx context.Context, a *Account) error {
	res := s.db.WithContext(ctx).Model(&Account{}).Where("id = ?", a.ID).Updates(map[string]interface{}{
		"first_name":    a.FirstName,
		"last_name":     a.LastName,
		"password_hash": a.PasswordHash,
		"role":          a.Role,
		"is_active":     a.IsActive,
		"last_login_at": a.LastLoginAt,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrAccountNotFound
	}
	return nil
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrAccountNotFound
	}
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}
