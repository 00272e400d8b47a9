// Package repo holds the pieces every domain repository shares.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base is embedded by the domain repositories so every query carries the
// caller's context.
type Base struct {
	conn *gorm.DB
}

func NewBase(conn *gorm.DB) Base {
	return Base{conn: conn}
}

// DB is Conn without a transaction.
func (b Base) DB(ctx context.Context) *gorm.DB {
	return b.Conn(ctx, nil)
}

// Conn runs on tx when one is given and on the pool otherwise. A nil ctx
// leaves the session unbound.
func (b Base) Conn(ctx context.Context, tx *gorm.DB) *gorm.DB {
	session := tx
	if session == nil {
		session = b.conn
	}
	if ctx == nil {
		return session
	}
	return session.WithContext(ctx)
}

// UpdateByID writes columns to the M row with id and stamps updated_at. It
// returns gorm.ErrRecordNotFound when no row matched.
func UpdateByID[M any](db *gorm.DB, id uuid.UUID, columns map[string]any) error {
	columns["updated_at"] = time.Now().UTC()
	res := db.Model(new(M)).Where("id = ?", id).Updates(columns)
	switch {
	case res.Error != nil:
		return res.Error
	case res.RowsAffected == 0:
		return gorm.ErrRecordNotFound
	}
	return nil
}
