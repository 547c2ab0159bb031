package service

import (
	"context"

	"realestate/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	defaultLeaderboardLimit = 10
	maxLeaderboardLimit     = 100
)

type PointService struct {
	points PointStore
}

func NewPointService(points PointStore) *PointService {
	return &PointService{points: points}
}

// UpdateUserPoint adds delta to the bucket fed by nftType. Runs inside the
// caller's transaction when tx is set.
func (s *PointService) UpdateUserPoint(ctx context.Context, tx *gorm.DB, userID int64, delta decimal.Decimal, nftType string) error {
	if delta.IsZero() {
		return nil
	}
	return s.points.Add(ctx, tx, userID, model.PointTypeForNFT(nftType), delta)
}

// moveNFTPoints credits the NFT's point to the receiver and debits the sender.
func (s *PointService) moveNFTPoints(ctx context.Context, tx *gorm.DB, nft *model.NFT, fromUserID, toUserID int64) error {
	if err := s.UpdateUserPoint(ctx, tx, toUserID, nft.Point, nft.NFTType); err != nil {
		return err
	}
	return s.UpdateUserPoint(ctx, tx, fromUserID, nft.Point.Neg(), nft.NFTType)
}

func (s *PointService) Leaderboard(ctx context.Context, pointType string, limit int) ([]*model.LeaderboardEntry, error) {
	switch pointType {
	case model.PointTypeClient, model.PointTypeAgent, model.PointTypeReferral:
	case "":
		pointType = model.PointTypeAgent
	default:
		return nil, badRequest(MsgInvalidPointType)
	}
	if limit <= 0 {
		limit = defaultLeaderboardLimit
	}
	if limit > maxLeaderboardLimit {
		limit = maxLeaderboardLimit
	}
	return s.points.Leaderboard(ctx, pointType, limit)
}

func (s *PointService) ListByUser(ctx context.Context, userID int64) ([]*model.UserPoint, error) {
	return s.points.ListByUser(ctx, userID)
}
