package leaderboarddb

import (
	"context"

	"github.com/ixugo/goddd/pkg/orm"
	"github.com/iztrace/leaderboard/internal/core/leaderboard"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var _ leaderboard.Storer = DB{}

// DB Related business namespaces
type DB struct {
	db *gorm.DB
}

// NewDB instance object
func NewDB(db *gorm.DB) DB {
	return DB{db: db}
}

// Setting Get business instance
func (d DB) Setting() leaderboard.SettingStorer {
	return NewTable[leaderboard.Setting](d.db)
}

// CategoryStartTime Get business instance
func (d DB) CategoryStartTime() leaderboard.CategoryStartTimeStorer {
	return NewTable[leaderboard.CategoryStartTime](d.db)
}

// Disqualification Get business instance
func (d DB) Disqualification() leaderboard.DisqualificationStorer {
	return NewTable[leaderboard.Disqualification](d.db)
}

// AutoMigrate sync database
func (d DB) AutoMigrate(ok bool) DB {
	if !ok {
		return d
	}
	if err := d.db.AutoMigrate(
		new(leaderboard.Setting),
		new(leaderboard.CategoryStartTime),
		new(leaderboard.Disqualification),
	); err != nil {
		panic(err)
	}
	return d
}

// Table 单表通用存取
type Table[T any] struct {
	db *gorm.DB
}

var _ leaderboard.TableStorer[leaderboard.Setting] = Table[leaderboard.Setting]{}

// NewTable instance object
func NewTable[T any](db *gorm.DB) Table[T] {
	return Table[T]{db: db}
}

func (t Table[T]) query(ctx context.Context, opts ...orm.QueryOption) *gorm.DB {
	db := t.db.WithContext(ctx)
	for _, fn := range opts {
		db = fn(db)
	}
	return db
}

// Find implements leaderboard.TableStorer.
func (t Table[T]) Find(ctx context.Context, bean *[]*T, opts ...orm.QueryOption) error {
	return t.query(ctx, opts...).Find(bean).Error
}

// Get implements leaderboard.TableStorer.
func (t Table[T]) Get(ctx context.Context, model *T, opts ...orm.QueryOption) error {
	return t.query(ctx, opts...).First(model).Error
}

// Upsert implements leaderboard.TableStorer.
func (t Table[T]) Upsert(ctx context.Context, model *T) error {
	return t.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(model).Error
}

// Del implements leaderboard.TableStorer.
func (t Table[T]) Del(ctx context.Context, model *T, opts ...orm.QueryOption) error {
	return t.query(ctx, opts...).Delete(model).Error
}
