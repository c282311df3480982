package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/lalith-99/lingomatch/internal/apperr"
	"github.com/lalith-99/lingomatch/internal/models"
	"github.com/lalith-99/lingomatch/internal/realtime"
	"github.com/lalith-99/lingomatch/internal/repository"
)

type ProfileService struct {
	profiles repository.ProfileRepository
	notifier realtime.Notifier
	logger   *zap.Logger
}

func NewProfileService(profiles repository.ProfileRepository, notifier realtime.Notifier, logger *zap.Logger) *ProfileService {
	return &ProfileService{profiles: profiles, notifier: notifier, logger: logger}
}

// EnsureProfile creates the caller's profile on first sight and otherwise
// returns the stored one untouched. created is true only for the call that
// inserted the row.
func (s *ProfileService) EnsureProfile(ctx context.Context, id models.Identity) (*models.Profile, bool, error) {
	if id.UID == "" {
		return nil, false, apperr.Unauthenticated("missing caller identity")
	}
	if !models.ValidUserID(id.UID) {
		return nil, false, apperr.InvalidArg("user id must not contain " + models.ConversationKeySeparator)
	}

	created, err := s.profiles.Create(ctx, &models.Profile{
		ID:          id.UID,
		Email:       id.Email,
		DisplayName: id.DisplayName,
		PhotoURL:    id.PhotoURL,
	})
	if err != nil {
		return nil, false, storeFailure(s.logger, "failed to create profile", err)
	}

	p, err := s.profiles.GetByID(ctx, id.UID)
	if err != nil {
		return nil, false, storeFailure(s.logger, "failed to load profile", err)
	}
	if p == nil {
		return nil, false, apperr.Internal("profile missing after create", nil)
	}

	if created {
		s.logger.Info("profile created", zap.String("user_id", id.UID))
		publish(ctx, s.notifier, s.logger, realtime.TopicProfiles)
	}
	return p, created, nil
}

func (s *ProfileService) GetProfile(ctx context.Context, id string) (*models.Profile, error) {
	if id == "" {
		return nil, apperr.InvalidArg("profile id is required")
	}
	p, err := s.profiles.GetByID(ctx, id)
	if err != nil {
		return nil, storeFailure(s.logger, "failed to get profile", err)
	}
	if p == nil {
		return nil, apperr.NotFound("profile not found")
	}
	return p, nil
}

// ValidateLanguagePair checks a setup request before anything is written.
func ValidateLanguagePair(native, target models.Language) error {
	if native == "" || target == "" {
		return apperr.InvalidArg("native and target language are both required")
	}
	if !native.Valid() {
		return apperr.InvalidArg("unsupported native language: " + string(native))
	}
	if !target.Valid() {
		return apperr.InvalidArg("unsupported target language: " + string(target))
	}
	if native == target {
		return apperr.InvalidArg("native and target language must differ")
	}
	return nil
}

// CompleteSetup sets the language pair and marks the profile complete.
// Calling it again replaces the pair.
func (s *ProfileService) CompleteSetup(ctx context.Context, uid string, native, target models.Language) (*models.Profile, error) {
	if err := ValidateLanguagePair(native, target); err != nil {
		return nil, err
	}

	err := s.profiles.UpdateLanguages(ctx, uid, native, target)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.NotFound("profile not found")
	}
	if err != nil {
		return nil, storeFailure(s.logger, "failed to update languages", err)
	}

	publish(ctx, s.notifier, s.logger, realtime.TopicProfiles)
	return s.GetProfile(ctx, uid)
}

func (s *ProfileService) Block(ctx context.Context, uid, target string) error {
	if target == "" {
		return apperr.InvalidArg("user to block is required")
	}
	if target == uid {
		return apperr.InvalidArg("cannot block yourself")
	}

	err := s.profiles.AddBlock(ctx, uid, target)
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound("profile not found")
	}
	if err != nil {
		return storeFailure(s.logger, "failed to block user", err)
	}

	publish(ctx, s.notifier, s.logger, realtime.TopicProfiles)
	return nil
}

func (s *ProfileService) Unblock(ctx context.Context, uid, target string) error {
	if target == "" {
		return apperr.InvalidArg("user to unblock is required")
	}

	if err := s.profiles.RemoveBlock(ctx, uid, target); err != nil {
		return storeFailure(s.logger, "failed to unblock user", err)
	}

	publish(ctx, s.notifier, s.logger, realtime.TopicProfiles)
	return nil
}

// ListComplete returns every profile visible in discovery.
func (s *ProfileService) ListComplete(ctx context.Context) ([]models.Profile, error) {
	profiles, err := s.profiles.ListComplete(ctx)
	if err != nil {
		return nil, storeFailure(s.logger, "failed to list profiles", err)
	}
	return profiles, nil
}

// ListPartners returns the profiles eligible to chat with uid. The store
// prefilters on the complementary pair; IsEligible has the final say.
func (s *ProfileService) ListPartners(ctx context.Context, uid string) ([]models.Profile, error) {
	me, err := s.GetProfile(ctx, uid)
	if err != nil {
		return nil, err
	}
	if !me.ProfileSetupComplete {
		return []models.Profile{}, nil
	}

	candidates, err := s.profiles.ListByLanguages(ctx, me.TargetLanguage, me.NativeLanguage)
	if err != nil {
		return nil, storeFailure(s.logger, "failed to list partner candidates", err)
	}
	return FilterPartners(me, candidates), nil
}
