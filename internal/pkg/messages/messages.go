package messages

import (
	"time"

	amessages "github.com/airenas/async-api/pkg/messages"
)

const (
	st = "DocBuddy/"
	// Inform queue name
	Inform = st + "Inform"
)

// DocumentMessage informs about a new or re-rendered session document
type DocumentMessage struct {
	amessages.InformMessage
	UserID string `json:"userID"`
}

// NewDocumentMessage creates inform message of the session
func NewDocumentMessage(sessionID, userID, informType string, at time.Time) *DocumentMessage {
	return &DocumentMessage{InformMessage: amessages.InformMessage{QueueMessage: amessages.QueueMessage{ID: sessionID},
		Type: informType, At: at}, UserID: userID}
}
