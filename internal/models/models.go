package models

import (
	"sort"
	"strings"
	"time"
)

// MaxMessageLength is the upper bound on a message body, counted in runes
// after trimming surrounding whitespace.
const MaxMessageLength = 500

// ConversationKeySeparator joins the two sorted participant ids into a
// conversation id. User ids may not contain it, otherwise two different
// pairs could share a key.
const ConversationKeySeparator = ":"

// Language is a code from the closed set of languages the app supports.
type Language string

const (
	LanguagePortuguese Language = "pt"
	LanguageEnglish    Language = "en"
	LanguageSpanish    Language = "es"
	LanguageFrench     Language = "fr"
	LanguageGerman     Language = "de"
	LanguageItalian    Language = "it"
	LanguageJapanese   Language = "ja"
	LanguageKorean     Language = "ko"
	LanguageChinese    Language = "zh"
	LanguageArabic     Language = "ar"
)

var supportedLanguages = map[Language]struct{}{
	LanguagePortuguese: {},
	LanguageEnglish:    {},
	LanguageSpanish:    {},
	LanguageFrench:     {},
	LanguageGerman:     {},
	LanguageItalian:    {},
	LanguageJapanese:   {},
	LanguageKorean:     {},
	LanguageChinese:    {},
	LanguageArabic:     {},
}

func (l Language) Valid() bool {
	_, ok := supportedLanguages[l]
	return ok
}

// Identity is the verified caller handed to us by the authentication
// provider. We trust it without re-checking credentials.
type Identity struct {
	UID         string
	Email       string
	DisplayName string
	PhotoURL    string
}

// Profile is the per-user record of identity, language pair and block list.
//
// NativeLanguage and TargetLanguage are empty until setup is complete.
// BlockedUsers is populated by the store on reads; it is never written
// through the profile itself, only through the block/unblock operations.
type Profile struct {
	ID                   string    `json:"id"`
	Email                string    `json:"email,omitempty"`
	DisplayName          string    `json:"display_name,omitempty"`
	PhotoURL             string    `json:"photo_url,omitempty"`
	NativeLanguage       Language  `json:"native_language,omitempty"`
	TargetLanguage       Language  `json:"target_language,omitempty"`
	ProfileSetupComplete bool      `json:"profile_setup_complete"`
	BlockedUsers         []string  `json:"blocked_users"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// HasBlocked reports whether p's owner has blocked userID.
func (p *Profile) HasBlocked(userID string) bool {
	for _, id := range p.BlockedUsers {
		if id == userID {
			return true
		}
	}
	return false
}

// Conversation is the single pairwise channel between two users.
//
// Participants is always stored sorted, so Participants[0] < Participants[1]
// and ID == ConversationKey(Participants[0], Participants[1]).
// The LastMessage* fields are a denormalised copy of the newest message and
// stay nil until the first message is sent.
type Conversation struct {
	ID                   string     `json:"id"`
	Participants         []string   `json:"participants"`
	LastMessageText      *string    `json:"last_message_text"`
	LastMessageTimestamp *time.Time `json:"last_message_timestamp"`
	LastMessageSenderID  *string    `json:"last_message_sender_id"`
	CreatedAt            time.Time  `json:"created_at"`
}

func (c *Conversation) HasParticipant(userID string) bool {
	for _, id := range c.Participants {
		if id == userID {
			return true
		}
	}
	return false
}

// IsBetween reports whether c belongs to exactly the unordered pair a, b.
func (c *Conversation) IsBetween(a, b string) bool {
	if len(c.Participants) != 2 {
		return false
	}
	lo, hi := SortedPair(a, b)
	return c.Participants[0] == lo && c.Participants[1] == hi
}

// OtherParticipant returns the participant that is not userID.
func (c *Conversation) OtherParticipant(userID string) (string, bool) {
	if len(c.Participants) != 2 {
		return "", false
	}
	switch userID {
	case c.Participants[0]:
		return c.Participants[1], true
	case c.Participants[1]:
		return c.Participants[0], true
	}
	return "", false
}

// Message is one immutable entry in a conversation's log.
//
// Seq is assigned by the store in insertion order and only breaks ties
// between messages that share a Timestamp.
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	SenderID       string    `json:"sender_id"`
	Text           string    `json:"text"`
	Timestamp      time.Time `json:"timestamp"`
	Seq            int64     `json:"-"`
}

// Account is an email/password credential. Its ID doubles as the user id
// of the matching profile.
type Account struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// SortedPair returns a and b in ascending order.
func SortedPair(a, b string) (string, string) {
	if a > b {
		return b, a
	}
	return a, b
}

// ValidUserID reports whether id can be part of a conversation key.
func ValidUserID(id string) bool {
	return id != "" && !strings.Contains(id, ConversationKeySeparator)
}

// ConversationKey derives the canonical conversation id for an unordered
// pair. ConversationKey(a, b) == ConversationKey(b, a).
func ConversationKey(a, b string) string {
	lo, hi := SortedPair(a, b)
	return lo + ConversationKeySeparator + hi
}

// NormalizeEmail lowercases and trims an email for lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SortMessages orders messages by timestamp, then by store sequence.
func SortMessages(msgs []Message) {
	sort.SliceStable(msgs, func(i, j int) bool {
		if !msgs[i].Timestamp.Equal(msgs[j].Timestamp) {
			return msgs[i].Timestamp.Before(msgs[j].Timestamp)
		}
		return msgs[i].Seq < msgs[j].Seq
	})
}

// SortConversations orders conversations by newest message first.
// Conversations without messages go last, newest created first.
func SortConversations(convs []Conversation) {
	sort.SliceStable(convs, func(i, j int) bool {
		a, b := convs[i].LastMessageTimestamp, convs[j].LastMessageTimestamp
		switch {
		case a != nil && b != nil:
			if !a.Equal(*b) {
				return a.After(*b)
			}
		case a != nil:
			return true
		case b != nil:
			return false
		}
		return convs[i].CreatedAt.After(convs[j].CreatedAt)
	})
}
