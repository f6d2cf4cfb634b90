package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/kiteboard/kiteboard-backend/internal/models"
	"gorm.io/gorm"
)

// GormStore keeps sessions in the sessions table.
type GormStore struct {
	db  *gorm.DB
	now func() time.Time
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db, now: time.Now}
}

func (s *GormStore) Put(ctx context.Context, tokenHash string, userID uuid.UUID, ttl time.Duration) error {
	record := models.Session{
		ID:        uuid.New(),
		TokenHash: tokenHash,
		UserID:    userID,
		ExpiresAt: s.now().UTC().Add(ttl),
	}
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	return nil
}

func (s *GormStore) Get(ctx context.Context, tokenHash string) (uuid.UUID, error) {
	var record models.Session
	err := s.db.WithContext(ctx).
		Where("token_hash = ? AND expires_at > ?", tokenHash, s.now().UTC()).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return uuid.Nil, ErrNoSession
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to load session: %w", err)
	}
	return record.UserID, nil
}

func (s *GormStore) Delete(ctx context.Context, tokenHash string) error {
	return s.db.WithContext(ctx).Where("token_hash = ?", tokenHash).Delete(&models.Session{}).Error
}

func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// PurgeExpired removes sessions past their expiry and reports how many.
func (s *GormStore) PurgeExpired(ctx context.Context) (int64, error) {
	result := s.db.WithContext(ctx).Where("expires_at <= ?", s.now().UTC()).Delete(&models.Session{})
	return result.RowsAffected, result.Error
}

// StartPurge runs PurgeExpired on every tick until done is closed.
func (s *GormStore) StartPurge(interval time.Duration, done chan struct{}) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				n, err := s.PurgeExpired(context.Background())
				if err != nil {
					slog.Error("session purge failed", "error", err)
				} else if n > 0 {
					slog.Info("expired sessions purged", "deleted", n)
				}
			case <-done:
				return
			}
		}
	}()
}
