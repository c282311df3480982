package mongodb

import (
	"time"

	"github.com/lalith-99/lingomatch/internal/models"
)

type profileDoc struct {
	ID                   string    `bson:"_id"`
	Email                string    `bson:"email"`
	DisplayName          string    `bson:"displayName"`
	PhotoURL             string    `bson:"photoURL"`
	NativeLanguage       string    `bson:"nativeLanguage,omitempty"`
	TargetLanguage       string    `bson:"targetLanguage,omitempty"`
	ProfileSetupComplete bool      `bson:"profileSetupComplete"`
	BlockedUsers         []string  `bson:"blockedUsers"`
	CreatedAt            time.Time `bson:"createdAt"`
	UpdatedAt            time.Time `bson:"updatedAt"`
}

func (d *profileDoc) model() *models.Profile {
	blocked := d.BlockedUsers
	if blocked == nil {
		blocked = []string{}
	}
	return &models.Profile{
		ID:                   d.ID,
		Email:                d.Email,
		DisplayName:          d.DisplayName,
		PhotoURL:             d.PhotoURL,
		NativeLanguage:       models.Language(d.NativeLanguage),
		TargetLanguage:       models.Language(d.TargetLanguage),
		ProfileSetupComplete: d.ProfileSetupComplete,
		BlockedUsers:         blocked,
		CreatedAt:            d.CreatedAt,
		UpdatedAt:            d.UpdatedAt,
	}
}

// conversationDoc keeps the summary fields as explicit nulls so a descending
// sort on lastMessageTimestamp puts empty conversations last.
type conversationDoc struct {
	ID                   string     `bson:"_id"`
	Participants         []string   `bson:"participants"`
	LastMessageText      *string    `bson:"lastMessageText"`
	LastMessageTimestamp *time.Time `bson:"lastMessageTimestamp"`
	LastMessageSenderID  *string    `bson:"lastMessageSenderId"`
	MessageCount         int64      `bson:"messageCount"`
	CreatedAt            time.Time  `bson:"createdAt"`
}

func (d *conversationDoc) model() *models.Conversation {
	return &models.Conversation{
		ID:                   d.ID,
		Participants:         d.Participants,
		LastMessageText:      d.LastMessageText,
		LastMessageTimestamp: d.LastMessageTimestamp,
		LastMessageSenderID:  d.LastMessageSenderID,
		CreatedAt:            d.CreatedAt,
	}
}

type messageDoc struct {
	ID             string    `bson:"_id"`
	ConversationID string    `bson:"conversationId"`
	SenderID       string    `bson:"senderId"`
	Text           string    `bson:"text"`
	Timestamp      time.Time `bson:"timestamp"`
	Seq            int64     `bson:"seq"`
}

func (d *messageDoc) model() models.Message {
	return models.Message{
		ID:             d.ID,
		ConversationID: d.ConversationID,
		SenderID:       d.SenderID,
		Text:           d.Text,
		Timestamp:      d.Timestamp,
		Seq:            d.Seq,
	}
}

type accountDoc struct {
	ID           string    `bson:"_id"`
	Email        string    `bson:"email"`
	PasswordHash string    `bson:"passwordHash"`
	CreatedAt    time.Time `bson:"createdAt"`
}
