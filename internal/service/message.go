package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/lalith-99/lingomatch/internal/apperr"
	"github.com/lalith-99/lingomatch/internal/models"
	"github.com/lalith-99/lingomatch/internal/realtime"
	"github.com/lalith-99/lingomatch/internal/repository"
)

type MessageService struct {
	profiles      repository.ProfileRepository
	conversations repository.ConversationRepository
	messages      repository.MessageRepository
	notifier      realtime.Notifier
	logger        *zap.Logger
}

func NewMessageService(
	profiles repository.ProfileRepository,
	conversations repository.ConversationRepository,
	messages repository.MessageRepository,
	notifier realtime.Notifier,
	logger *zap.Logger,
) *MessageService {
	return &MessageService{
		profiles:      profiles,
		conversations: conversations,
		messages:      messages,
		notifier:      notifier,
		logger:        logger,
	}
}

// Append adds one message from sender and moves the conversation summary to
// it. Checks run in a fixed order before anything is written: conversation
// exists, text is valid, sender takes part, recipient has not blocked sender.
func (s *MessageService) Append(ctx context.Context, senderID, conversationID, text string) (*models.Message, error) {
	conv, err := getConversation(ctx, s.conversations, s.logger, conversationID)
	if err != nil {
		return nil, err
	}

	body := strings.TrimSpace(text)
	if body == "" {
		return nil, apperr.InvalidArg("message text must not be empty")
	}
	if utf8.RuneCountInString(body) > models.MaxMessageLength {
		return nil, apperr.InvalidArg(fmt.Sprintf("message text must be at most %d characters", models.MaxMessageLength))
	}

	recipientID, ok := conv.OtherParticipant(senderID)
	if !ok {
		return nil, apperr.Forbidden("not a participant of this conversation")
	}
	recipient, err := s.profiles.GetByID(ctx, recipientID)
	if err != nil {
		return nil, storeFailure(s.logger, "failed to load recipient profile", err)
	}
	if recipient != nil && recipient.HasBlocked(senderID) {
		return nil, apperr.Forbidden("recipient has blocked sender")
	}

	msg, err := s.messages.Append(ctx, conv.ID, senderID, body)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.NotFound("conversation not found")
	}
	if err != nil {
		return nil, storeFailure(s.logger, "failed to send message", err)
	}

	publish(ctx, s.notifier, s.logger,
		realtime.MessagesTopic(conv.ID),
		realtime.ConversationsTopic(conv.Participants[0]),
		realtime.ConversationsTopic(conv.Participants[1]),
	)
	return msg, nil
}

// List returns the conversation's messages oldest first.
func (s *MessageService) List(ctx context.Context, caller, conversationID string) ([]models.Message, error) {
	conv, err := getConversation(ctx, s.conversations, s.logger, conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.HasParticipant(caller) {
		return nil, apperr.Forbidden("not a participant of this conversation")
	}
	msgs, err := s.messages.ListByConversation(ctx, conversationID)
	if err != nil {
		return nil, storeFailure(s.logger, "failed to list messages", err)
	}
	return msgs, nil
}
