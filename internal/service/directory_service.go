package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/cwsupport/crf-provisioner/internal/model"
)

// DirectoryService resolves people: the local user store first, the
// warehouse directory as a fallback, Canvas account creation on demand.
type DirectoryService struct {
	warehouse Warehouse
	canvas    Canvas
	users     UserStore
	logger    *zap.Logger
}

func NewDirectoryService(wh Warehouse, cv Canvas, users UserStore, logger *zap.Logger) *DirectoryService {
	return &DirectoryService{warehouse: wh, canvas: cv, users: users, logger: logger}
}

// GetUser returns a user by pennkey, backfilling from the warehouse
// directory when the store has no record.
func (s *DirectoryService) GetUser(ctx context.Context, pennkey string) (*model.User, error) {
	user, err := s.users.GetByPennkey(ctx, pennkey)
	if err != nil || user != nil {
		return user, err
	}
	person, err := s.warehouse.FindUserByPennkey(ctx, pennkey)
	if err != nil {
		return nil, fmt.Errorf("look up %s in directory: %w", pennkey, err)
	}
	if person == nil {
		return nil, nil
	}
	user = &model.User{
		Pennkey:   person.Pennkey,
		PennID:    person.PennID,
		FirstName: person.FirstName,
		LastName:  person.LastName,
		Email:     person.Email,
	}
	if err := s.users.Upsert(ctx, user); err != nil {
		return nil, fmt.Errorf("store user %s: %w", pennkey, err)
	}
	s.logger.Info("Backfilled user from directory", zap.String("pennkey", pennkey))
	return user, nil
}

// GetUserByPennID resolves a penn id to a user. The warehouse directory is
// the only penn-id-keyed index, so the lookup always starts there and then
// backfills the store through GetUser.
func (s *DirectoryService) GetUserByPennID(ctx context.Context, pennID int64) (*model.User, error) {
	person, err := s.warehouse.FindUserByPennID(ctx, pennID)
	if err != nil {
		return nil, fmt.Errorf("look up penn id %d in directory: %w", pennID, err)
	}
	if person == nil {
		return nil, nil
	}
	return s.GetUser(ctx, person.Pennkey)
}

// GetCanvasID returns the Canvas user id for a pennkey, creating the Canvas
// account when the login does not exist yet.
func (s *DirectoryService) GetCanvasID(ctx context.Context, pennkey string) (int64, error) {
	canvasUser, err := s.canvas.GetUserBySISLogin(ctx, pennkey)
	if err != nil {
		return 0, fmt.Errorf("look up Canvas user %s: %w", pennkey, err)
	}
	if canvasUser != nil {
		return canvasUser.ID, nil
	}

	user, err := s.GetUser(ctx, pennkey)
	if err != nil {
		return 0, err
	}
	if user == nil {
		return 0, &DataInvariantError{Reason: fmt.Sprintf("pennkey %s unknown to the directory", pennkey)}
	}
	created, err := s.canvas.CreateUser(ctx, user.Pennkey, user.PennID, user.FullName(), user.Email)
	if err != nil {
		return 0, fmt.Errorf("create Canvas user %s: %w", pennkey, err)
	}
	s.logger.Info("Created Canvas user", zap.String("pennkey", pennkey), zap.Int64("canvas_id", created.ID))
	return created.ID, nil
}
