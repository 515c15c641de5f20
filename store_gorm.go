package sqlpager

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultCursorTable is the table used by GORMStore unless told otherwise.
const DefaultCursorTable = "pager_cursors"

// cursorRecord is one row of the cursor table:
//
//	CREATE TABLE pager_cursors (
//		scope      VARCHAR(255) PRIMARY KEY,
//		token      TEXT NOT NULL,
//		expires_at TIMESTAMP NULL,
//		updated_at TIMESTAMP NOT NULL
//	);
type cursorRecord struct {
	Scope     string     `gorm:"column:scope;primaryKey;size:255"`
	Token     string     `gorm:"column:token;type:text;not null"`
	ExpiresAt *time.Time `gorm:"column:expires_at"`
	UpdatedAt time.Time  `gorm:"column:updated_at;not null"`
}

// GORMStore keeps cursor tokens in a database table through gorm.
type GORMStore struct {
	db    *gorm.DB
	table string
	clock func() time.Time
}

var _ CursorStore = (*GORMStore)(nil)

func NewGORMStore(db *gorm.DB) *GORMStore {
	return &GORMStore{
		db:    db,
		table: DefaultCursorTable,
		clock: time.Now,
	}
}

// WithTable returns a copy of the store using another table.
func (s *GORMStore) WithTable(table string) *GORMStore {
	ret := *s
	ret.table = table
	return &ret
}

// WithClock returns a copy of the store using clock to check expiry.
func (s *GORMStore) WithClock(clock func() time.Time) *GORMStore {
	ret := *s
	if clock != nil {
		ret.clock = clock
	}
	return &ret
}

// AutoMigrate creates the cursor table when it does not exist.
func (s *GORMStore) AutoMigrate(ctx context.Context) error {
	return s.db.WithContext(ctx).Table(s.table).AutoMigrate(&cursorRecord{})
}

func (s *GORMStore) Save(ctx context.Context, scope string, cursor *Cursor) error {
	if cursor == nil {
		return s.Clear(ctx, scope)
	}

	token, err := cursor.Encode()
	if err != nil {
		return fmt.Errorf("cannot save cursor: %w", err)
	}

	record := cursorRecord{
		Scope:     scope,
		Token:     token,
		UpdatedAt: s.clock().UTC(),
	}
	if expiresAt := cursor.ExpiresAt(); !expiresAt.IsZero() {
		expiresAt = expiresAt.UTC()
		record.ExpiresAt = &expiresAt
	}

	err = s.db.WithContext(ctx).
		Table(s.table).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "scope"}},
			DoUpdates: clause.AssignmentColumns([]string{"token", "expires_at", "updated_at"}),
		}).
		Create(&record).Error
	if err != nil {
		return fmt.Errorf("cannot save cursor: %w", err)
	}

	return nil
}

// Load returns the cursor of scope. A missing or expired cursor yields nil.
func (s *GORMStore) Load(ctx context.Context, scope string) (*Cursor, error) {
	var record cursorRecord
	err := s.db.WithContext(ctx).
		Table(s.table).
		Where("scope = ?", scope).
		Take(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cannot load cursor: %w", err)
	}

	cursor, err := DecodeCursor(record.Token)
	if err != nil {
		return nil, fmt.Errorf("cannot load cursor: %w", err)
	}

	if cursor.Expired(s.clock()) {
		return nil, nil
	}

	return cursor, nil
}

func (s *GORMStore) Clear(ctx context.Context, scope string) error {
	err := s.db.WithContext(ctx).
		Table(s.table).
		Where("scope = ?", scope).
		Delete(&cursorRecord{}).Error
	if err != nil {
		return fmt.Errorf("cannot clear cursor: %w", err)
	}

	return nil
}
