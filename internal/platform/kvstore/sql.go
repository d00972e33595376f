package kvstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/eduplanner-backend/internal/platform/logger"
)

type KVEntry struct {
	Key       string     `gorm:"column:kv_key;primaryKey;type:varchar(255)"`
	Value     string     `gorm:"type:text;not null"`
	ExpiresAt *time.Time `gorm:"index"`
	UpdatedAt time.Time
}

func (KVEntry) TableName() string { return "kv_entry" }

type KVListItem struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	ListKey   string `gorm:"type:varchar(255);not null;uniqueIndex:idx_kv_list_item"`
	ItemID    string `gorm:"type:varchar(255);not null;uniqueIndex:idx_kv_list_item"`
	Value     string `gorm:"type:text;not null"`
	CreatedAt time.Time
}

func (KVListItem) TableName() string { return "kv_list_item" }

// Models are migrated alongside the domain tables.
func Models() []any { return []any{&KVEntry{}, &KVListItem{}} }

type sqlStore struct {
	log *logger.Logger
	db  *gorm.DB
	now func() time.Time
}

func NewSQL(db *gorm.DB, log *logger.Logger) Store {
	return &sqlStore{db: db, log: log.With("service", "SQLKVStore"), now: time.Now}
}

func (s *sqlStore) live(tx *gorm.DB) *gorm.DB {
	return tx.Where("expires_at IS NULL OR expires_at > ?", s.now())
}

func (s *sqlStore) Get(ctx context.Context, key string) (string, bool, error) {
	if key == "" {
		return "", false, ErrEmptyKey
	}
	var e KVEntry
	err := s.live(s.db.WithContext(ctx)).Where("kv_key = ?", key).Take(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("kv get %s: %w", key, err)
	}
	return e.Value, true, nil
}

func (s *sqlStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if key == "" {
		return ErrEmptyKey
	}
	e := KVEntry{Key: key, Value: value, UpdatedAt: s.now()}
	if ttl > 0 {
		exp := s.now().Add(ttl)
		e.ExpiresAt = &exp
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "kv_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "expires_at", "updated_at"}),
	}).Create(&e).Error
	if err != nil {
		return fmt.Errorf("kv set %s: %w", key, err)
	}
	return nil
}

func (s *sqlStore) Delete(ctx context.Context, key string) error {
	return s.db.WithContext(ctx).Where("kv_key = ?", key).Delete(&KVEntry{}).Error
}

func (s *sqlStore) Take(ctx context.Context, key string) (string, bool, error) {
	if key == "" {
		return "", false, ErrEmptyKey
	}
	var (
		val   string
		found bool
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var e KVEntry
		err := s.live(tx).Where("kv_key = ?", key).Take(&e).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		res := tx.Where("kv_key = ?", key).Delete(&KVEntry{})
		if res.Error != nil {
			return res.Error
		}
		// A concurrent taker deleted it first.
		if res.RowsAffected == 0 {
			return nil
		}
		val, found = e.Value, true
		return nil
	})
	if err != nil {
		return "", false, fmt.Errorf("kv take %s: %w", key, err)
	}
	return val, found, nil
}

func (s *sqlStore) AppendUnique(ctx context.Context, listKey, itemID, value string) (bool, error) {
	if listKey == "" || itemID == "" {
		return false, ErrEmptyKey
	}
	item := KVListItem{ListKey: listKey, ItemID: itemID, Value: value, CreatedAt: s.now()}
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "list_key"}, {Name: "item_id"}},
		DoNothing: true,
	}).Create(&item)
	if res.Error != nil {
		return false, fmt.Errorf("kv append %s: %w", listKey, res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (s *sqlStore) List(ctx context.Context, listKey string) ([]string, error) {
	var items []KVListItem
	if err := s.db.WithContext(ctx).Where("list_key = ?", listKey).Order("id ASC").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("kv list %s: %w", listKey, err)
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.Value)
	}
	return out, nil
}

func (s *sqlStore) Close() error { return nil }
