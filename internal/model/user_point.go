package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	PointTypeClient   = "client"
	PointTypeAgent    = "agent"
	PointTypeReferral = "referral"
)

// UserPoint is a running balance per (user, point type). No floor.
type UserPoint struct {
	ID        int64           `gorm:"primaryKey;autoIncrement:false" json:"id"`
	UserID    int64           `gorm:"uniqueIndex:uk_user_type;not null" json:"userId"`
	PointType string          `gorm:"type:varchar(20);uniqueIndex:uk_user_type;not null" json:"pointType"`
	Point     decimal.Decimal `gorm:"type:decimal(36,8);not null;default:0" json:"point"`
	CreatedAt time.Time       `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time       `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (UserPoint) TableName() string {
	return "user_points"
}

// LeaderboardEntry is one ranked row of the point leaderboard.
type LeaderboardEntry struct {
	UserID    int64           `json:"userId"`
	FirstName string          `json:"firstName"`
	LastName  string          `json:"lastName"`
	AvatarURL string          `json:"avatarUrl"`
	Point     decimal.Decimal `json:"point"`
}
