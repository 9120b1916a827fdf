package ratings

import (
	"context"
	"errors"
	"fmt"

	"github.com/platemate/server/db"
	"github.com/platemate/server/friends"
	"github.com/platemate/server/model"
	"github.com/platemate/server/places"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	MinScore = 1
	MaxScore = 5

	maxMessageLen = 512
)

// CreateInput carries a new rating. The place is referenced by its external
// identifier and resolved (or created) during the write.
type CreateInput struct {
	GoogleID string  `json:"google_id" binding:"required"`
	Food     int     `json:"food" binding:"required"`
	Price    int     `json:"price" binding:"required"`
	Vibe     int     `json:"vibe" binding:"required"`
	Message  *string `json:"message"`
}

// UpdateInput carries a partial edit of an existing rating. Nil fields are
// left unchanged.
type UpdateInput struct {
	ID      int64   `json:"id" binding:"required"`
	Food    *int    `json:"food"`
	Price   *int    `json:"price"`
	Vibe    *int    `json:"vibe"`
	Message *string `json:"message"`
}

// PlaceRating is a rating joined with its place, the shape the listing
// endpoints return.
type PlaceRating struct {
	Food      int     `json:"food"`
	Price     int     `json:"price"`
	Vibe      int     `json:"vibe"`
	Message   *string `json:"message"`
	PlaceName string  `json:"place_name"`
	Address   string  `json:"address"`
	GoogleID  string  `json:"google_id"`
	UserID    int64   `json:"user_id"`
}

// Service owns rating rows and their place rows.
type Service struct {
	db      *gorm.DB
	friends *friends.Service
	places  places.Client
	logger  *zap.Logger
}

func NewService(gdb *gorm.DB, fr *friends.Service, pl places.Client, logger *zap.Logger) *Service {
	return &Service{db: gdb, friends: fr, places: pl, logger: logger}
}

func validScore(name string, v int) error {
	if v < MinScore || v > MaxScore {
		return fmt.Errorf("%w: %s must be between %d and %d", ErrInvalidArgument, name, MinScore, MaxScore)
	}
	return nil
}

func validMessage(msg *string) error {
	if msg != nil && len(*msg) > maxMessageLen {
		return fmt.Errorf("%w: message exceeds %d characters", ErrInvalidArgument, maxMessageLen)
	}
	return nil
}

func (s *Service) validateCreate(in CreateInput) error {
	if in.GoogleID == "" {
		return fmt.Errorf("%w: google_id is required", ErrInvalidArgument)
	}
	for _, sc := range []struct {
		name string
		v    int
	}{{"food", in.Food}, {"price", in.Price}, {"vibe", in.Vibe}} {
		if err := validScore(sc.name, sc.v); err != nil {
			return err
		}
	}
	return validMessage(in.Message)
}

// resolvePlace returns the local place row for the external id, creating it
// from the places API on first sight.
func (s *Service) resolvePlace(ctx context.Context, tx *gorm.DB, googleID string) (*model.Place, error) {
	var place model.Place
	err := tx.Where("google_id = ?", googleID).First(&place).Error
	if err == nil {
		return &place, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	details, err := s.places.Details(ctx, googleID)
	if err != nil {
		return nil, fmt.Errorf("resolve place %s: %w", googleID, err)
	}
	place = model.Place{
		GoogleID:    details.GoogleID,
		DisplayName: details.DisplayName,
		Address:     details.Address,
		Latitude:    details.Latitude,
		Longitude:   details.Longitude,
	}
	if err := tx.Create(&place).Error; err != nil {
		return nil, err
	}
	return &place, nil
}

// Create stores a new rating by user, resolving the place first.
func (s *Service) Create(ctx context.Context, user model.User, in CreateInput) (*model.Rating, error) {
	if user.ID <= 0 {
		return nil, fmt.Errorf("%w: user id %d", ErrInvalidArgument, user.ID)
	}
	if err := s.validateCreate(in); err != nil {
		return nil, err
	}

	var rating model.Rating
	err := db.WithRetry(s.db, func(tx *gorm.DB) error {
		place, err := s.resolvePlace(ctx, tx, in.GoogleID)
		if err != nil {
			return err
		}
		rating = model.Rating{
			UserID:  user.ID,
			PlaceID: place.ID,
			Food:    in.Food,
			Price:   in.Price,
			Vibe:    in.Vibe,
			Message: in.Message,
		}
		return tx.Create(&rating).Error
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("rating created",
		zap.Int64("user_id", user.ID),
		zap.Int64("rating_id", rating.ID),
		zap.String("google_id", in.GoogleID))
	return &rating, nil
}

// Update edits the user's own rating. Fails with ErrNotOwner when the rating
// belongs to someone else.
func (s *Service) Update(user model.User, in UpdateInput) (*model.Rating, error) {
	for _, sc := range []struct {
		name string
		v    *int
	}{{"food", in.Food}, {"price", in.Price}, {"vibe", in.Vibe}} {
		if sc.v == nil {
			continue
		}
		if err := validScore(sc.name, *sc.v); err != nil {
			return nil, err
		}
	}
	if err := validMessage(in.Message); err != nil {
		return nil, err
	}

	var rating model.Rating
	err := db.WithRetry(s.db, func(tx *gorm.DB) error {
		if err := tx.First(&rating, in.ID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: id %d", ErrRatingNotFound, in.ID)
			}
			return err
		}
		if rating.UserID != user.ID {
			return fmt.Errorf("%w: rating %d", ErrNotOwner, in.ID)
		}
		if in.Food != nil {
			rating.Food = *in.Food
		}
		if in.Price != nil {
			rating.Price = *in.Price
		}
		if in.Vibe != nil {
			rating.Vibe = *in.Vibe
		}
		if in.Message != nil {
			rating.Message = in.Message
		}
		return tx.Save(&rating).Error
	})
	if err != nil {
		return nil, err
	}
	return &rating, nil
}

// DeleteByID removes a rating regardless of owner. Admin surface only.
func (s *Service) DeleteByID(ratingID int64) error {
	return db.WithRetry(s.db, func(tx *gorm.DB) error {
		res := tx.Delete(&model.Rating{}, ratingID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: id %d", ErrRatingNotFound, ratingID)
		}
		return nil
	})
}

// DeleteAllForUser removes every rating the user authored. Called by the
// account-deletion pipeline.
func (s *Service) DeleteAllForUser(userID int64) error {
	if userID <= 0 {
		return fmt.Errorf("%w: user id %d", ErrInvalidArgument, userID)
	}
	return db.WithRetry(s.db, func(tx *gorm.DB) error {
		return tx.Where("user_id = ?", userID).Delete(&model.Rating{}).Error
	})
}

// UserRatings returns the user's own ratings joined with their places.
func (s *Service) UserRatings(user model.User) ([]PlaceRating, error) {
	if user.ID <= 0 {
		return nil, fmt.Errorf("%w: user id %d", ErrInvalidArgument, user.ID)
	}
	return s.joinedRatings(s.db.Where("ratings.user_id = ?", user.ID))
}

// ByUserIDs returns the ratings authored by any of the given user ids,
// optionally restricted to one place.
func (s *Service) ByUserIDs(ids []int64, placeID *int64) ([]PlaceRating, error) {
	if len(ids) == 0 {
		return []PlaceRating{}, nil
	}
	q := s.db.Where("ratings.user_id IN ?", ids)
	if placeID != nil {
		q = q.Where("ratings.place_id = ?", *placeID)
	}
	return s.joinedRatings(q)
}

// ForPlaceAndFriends returns ratings of the place authored by the user or any
// of their established friends.
func (s *Service) ForPlaceAndFriends(placeID int64, user model.User) ([]PlaceRating, error) {
	if placeID <= 0 {
		return nil, fmt.Errorf("%w: place id %d", ErrInvalidArgument, placeID)
	}
	ids, err := s.friends.FriendIDs(user, true)
	if err != nil {
		return nil, err
	}
	return s.ByUserIDs(ids, &placeID)
}

func (s *Service) joinedRatings(q *gorm.DB) ([]PlaceRating, error) {
	rows := []PlaceRating{}
	err := q.Table("ratings").
		Select("ratings.food, ratings.price, ratings.vibe, ratings.message, ratings.user_id, " +
			"places.display_name AS place_name, places.address, places.google_id").
		Joins("JOIN places ON places.id = ratings.place_id").
		Order("ratings.id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
