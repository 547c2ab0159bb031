package service

import (
	"context"
	"errors"
	"fmt"

	"realestate/internal/model"
	"realestate/internal/repository"
)

type UserService struct {
	users  UserStore
	points *PointService
}

func NewUserService(users UserStore, points *PointService) *UserService {
	return &UserService{users: users, points: points}
}

// Profile is the caller's account with its point balances.
type Profile struct {
	*model.User
	Points []*model.UserPoint `json:"points"`
}

func (s *UserService) GetProfile(ctx context.Context, userID int64) (*Profile, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, notFound(MsgUserNotFound)
		}
		return nil, fmt.Errorf("get user %d: %w", userID, err)
	}
	points, err := s.points.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list points of user %d: %w", userID, err)
	}
	return &Profile{User: user, Points: points}, nil
}
