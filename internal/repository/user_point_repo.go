package repository

import (
	"context"

	"realestate/internal/model"
	"realestate/pkg/idgen"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UserPointRepository struct {
	db *gorm.DB
}

func NewUserPointRepository(db *gorm.DB) *UserPointRepository {
	return &UserPointRepository{db: db}
}

// Add applies delta to the (user, pointType) balance, creating the row on
// first use. Balances may go negative.
func (r *UserPointRepository) Add(ctx context.Context, tx *gorm.DB, userID int64, pointType string, delta decimal.Decimal) error {
	if tx == nil {
		tx = r.db
	}

	row := &model.UserPoint{
		ID:        idgen.NextID(),
		UserID:    userID,
		PointType: pointType,
		Point:     delta,
	}

	return tx.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "point_type"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"point":      gorm.Expr("point + ?", delta),
				"updated_at": gorm.Expr("CURRENT_TIMESTAMP(3)"),
			}),
		}).
		Create(row).Error
}

func (r *UserPointRepository) ListByUser(ctx context.Context, userID int64) ([]*model.UserPoint, error) {
	var points []*model.UserPoint
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Find(&points).Error
	return points, err
}

// Leaderboard ranks users by their balance of one point type.
func (r *UserPointRepository) Leaderboard(ctx context.Context, pointType string, limit int) ([]*model.LeaderboardEntry, error) {
	var entries []*model.LeaderboardEntry
	err := r.db.WithContext(ctx).
		Table("user_points AS p").
		Select("p.user_id, u.first_name, u.last_name, u.avatar_url, p.point").
		Joins("JOIN users u ON u.id = p.user_id").
		Where("p.point_type = ?", pointType).
		Order("p.point DESC").
		Limit(limit).
		Scan(&entries).Error
	return entries, err
}
