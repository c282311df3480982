package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/lalith-99/lingomatch/internal/apperr"
	"github.com/lalith-99/lingomatch/internal/models"
	"github.com/lalith-99/lingomatch/internal/realtime"
	"github.com/lalith-99/lingomatch/internal/repository"
)

type ConversationService struct {
	profiles      repository.ProfileRepository
	conversations repository.ConversationRepository
	notifier      realtime.Notifier
	logger        *zap.Logger
}

func NewConversationService(
	profiles repository.ProfileRepository,
	conversations repository.ConversationRepository,
	notifier realtime.Notifier,
	logger *zap.Logger,
) *ConversationService {
	return &ConversationService{
		profiles:      profiles,
		conversations: conversations,
		notifier:      notifier,
		logger:        logger,
	}
}

// GetOrCreate resolves the single conversation between userA and userB.
//
// The id is derived from the sorted pair, so the existence check is a
// direct lookup and creation is a conditional write on that id: racing
// callers converge on one record and exactly one of them gets created.
// A block in either direction refuses the call; a brand-new conversation
// also needs the pair to be language partners.
func (s *ConversationService) GetOrCreate(ctx context.Context, userA, userB string) (*models.Conversation, bool, error) {
	if userA == "" || userB == "" {
		return nil, false, apperr.InvalidArg("both participants are required")
	}
	if userA == userB {
		return nil, false, apperr.InvalidArg("cannot start a conversation with yourself")
	}
	if !models.ValidUserID(userA) || !models.ValidUserID(userB) {
		return nil, false, apperr.InvalidArg("user id must not contain " + models.ConversationKeySeparator)
	}

	a, err := s.loadProfile(ctx, userA)
	if err != nil {
		return nil, false, err
	}
	b, err := s.loadProfile(ctx, userB)
	if err != nil {
		return nil, false, err
	}
	if a.HasBlocked(b.ID) || b.HasBlocked(a.ID) {
		return nil, false, apperr.Forbidden("one of the users has blocked the other")
	}

	key := models.ConversationKey(userA, userB)
	existing, err := s.conversations.GetByID(ctx, key)
	if err != nil {
		return nil, false, storeFailure(s.logger, "failed to look up conversation", err)
	}
	if existing != nil {
		if !existing.IsBetween(userA, userB) {
			return nil, false, s.keyMismatch(existing, userA, userB)
		}
		return existing, false, nil
	}

	if !IsEligible(a, b) {
		return nil, false, apperr.Forbidden("users are not language partners")
	}

	conv, created, err := s.conversations.CreateIfAbsent(ctx, &models.Conversation{
		ID:           key,
		Participants: []string{userA, userB},
	})
	if err != nil {
		return nil, false, storeFailure(s.logger, "failed to create conversation", err)
	}
	if !conv.IsBetween(userA, userB) {
		return nil, false, s.keyMismatch(conv, userA, userB)
	}

	if created {
		s.logger.Info("conversation created", zap.String("conversation_id", conv.ID))
		publish(ctx, s.notifier, s.logger,
			realtime.ConversationsTopic(conv.Participants[0]),
			realtime.ConversationsTopic(conv.Participants[1]),
		)
	}
	return conv, created, nil
}

// Get returns the conversation if caller takes part in it.
func (s *ConversationService) Get(ctx context.Context, caller, id string) (*models.Conversation, error) {
	conv, err := getConversation(ctx, s.conversations, s.logger, id)
	if err != nil {
		return nil, err
	}
	if !conv.HasParticipant(caller) {
		return nil, apperr.Forbidden("not a participant of this conversation")
	}
	return conv, nil
}

// ListForUser returns the user's conversations, most recent message first.
func (s *ConversationService) ListForUser(ctx context.Context, uid string) ([]models.Conversation, error) {
	convs, err := s.conversations.ListByParticipant(ctx, uid)
	if err != nil {
		return nil, storeFailure(s.logger, "failed to list conversations", err)
	}
	return convs, nil
}

// keyMismatch reports a stored conversation whose participants are not the
// pair its key was derived from.
func (s *ConversationService) keyMismatch(conv *models.Conversation, userA, userB string) error {
	s.logger.Error("conversation participants do not match key",
		zap.String("conversation_id", conv.ID),
		zap.Strings("participants", conv.Participants),
		zap.String("user_a", userA),
		zap.String("user_b", userB),
	)
	return apperr.Internal("conversation key collision", nil)
}

func (s *ConversationService) loadProfile(ctx context.Context, id string) (*models.Profile, error) {
	p, err := s.profiles.GetByID(ctx, id)
	if err != nil {
		return nil, storeFailure(s.logger, "failed to load profile", err)
	}
	if p == nil {
		return nil, apperr.NotFound("profile not found: " + id)
	}
	return p, nil
}

func getConversation(ctx context.Context, repo repository.ConversationRepository, logger *zap.Logger, id string) (*models.Conversation, error) {
	conv, err := repo.GetByID(ctx, id)
	if err != nil {
		return nil, storeFailure(logger, "failed to get conversation", err)
	}
	if conv == nil {
		return nil, apperr.NotFound("conversation not found")
	}
	return conv, nil
}
