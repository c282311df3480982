package service

import (
	"context"

	"github.com/lalith-99/lingomatch/internal/apperr"
	"github.com/lalith-99/lingomatch/internal/models"
	"github.com/lalith-99/lingomatch/internal/realtime"
)

// WatchPartners streams ListPartners. Any profile change can alter the
// result, so it follows the profiles topic.
func (s *ProfileService) WatchPartners(ctx context.Context, uid string) (*realtime.Feed[models.Profile], error) {
	if _, err := s.GetProfile(ctx, uid); err != nil {
		return nil, err
	}
	feed, err := realtime.Watch(ctx, s.notifier, realtime.TopicProfiles, func(ctx context.Context) ([]models.Profile, error) {
		return s.ListPartners(ctx, uid)
	})
	if err != nil {
		return nil, apperr.Internal("failed to open partner feed", err)
	}
	return feed, nil
}

// WatchComplete streams ListComplete, the discovery listing.
func (s *ProfileService) WatchComplete(ctx context.Context) (*realtime.Feed[models.Profile], error) {
	feed, err := realtime.Watch(ctx, s.notifier, realtime.TopicProfiles, s.ListComplete)
	if err != nil {
		return nil, apperr.Internal("failed to open profile feed", err)
	}
	return feed, nil
}

// WatchForUser streams the user's conversation list.
func (s *ConversationService) WatchForUser(ctx context.Context, uid string) (*realtime.Feed[models.Conversation], error) {
	feed, err := realtime.Watch(ctx, s.notifier, realtime.ConversationsTopic(uid), func(ctx context.Context) ([]models.Conversation, error) {
		return s.ListForUser(ctx, uid)
	})
	if err != nil {
		return nil, apperr.Internal("failed to open conversation feed", err)
	}
	return feed, nil
}

// Watch streams a conversation's messages. Access is checked once, up
// front: participants never change.
func (s *MessageService) Watch(ctx context.Context, caller, conversationID string) (*realtime.Feed[models.Message], error) {
	conv, err := getConversation(ctx, s.conversations, s.logger, conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.HasParticipant(caller) {
		return nil, apperr.Forbidden("not a participant of this conversation")
	}
	feed, err := realtime.Watch(ctx, s.notifier, realtime.MessagesTopic(conv.ID), func(ctx context.Context) ([]models.Message, error) {
		return s.List(ctx, caller, conversationID)
	})
	if err != nil {
		return nil, apperr.Internal("failed to open message feed", err)
	}
	return feed, nil
}
