// Package service holds the application rules: who may match, how a
// conversation is resolved and what a message append must satisfy. It
// talks to storage only through the repository interfaces and reports
// failures as *apperr.Error.
package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/lalith-99/lingomatch/internal/apperr"
	"github.com/lalith-99/lingomatch/internal/realtime"
	"github.com/lalith-99/lingomatch/internal/repository"
)

type TokenConfig struct {
	Secret string
	TTL    time.Duration
}

type Services struct {
	Profiles      *ProfileService
	Conversations *ConversationService
	Messages      *MessageService
	Accounts      *AccountService
}

func New(store repository.Store, notifier realtime.Notifier, tokens TokenConfig, logger *zap.Logger) *Services {
	profiles := NewProfileService(store.Profiles, notifier, logger)
	conversations := NewConversationService(store.Profiles, store.Conversations, notifier, logger)
	return &Services{
		Profiles:      profiles,
		Conversations: conversations,
		Messages:      NewMessageService(store.Profiles, store.Conversations, store.Messages, notifier, logger),
		Accounts:      NewAccountService(store.Accounts, profiles, tokens, logger),
	}
}

// storeFailure logs a store error and hides it behind an Internal error.
func storeFailure(logger *zap.Logger, msg string, err error) error {
	logger.Error(msg, zap.Error(err))
	return apperr.Internal(msg, err)
}

// publish signals topics after a committed write. A failed publish only
// delays live feeds, so it is logged and not returned.
func publish(ctx context.Context, n realtime.Notifier, logger *zap.Logger, topics ...string) {
	for _, topic := range topics {
		if err := n.Publish(ctx, topic); err != nil {
			logger.Warn("publish change notification",
				zap.String("topic", topic),
				zap.Error(err),
			)
		}
	}
}
