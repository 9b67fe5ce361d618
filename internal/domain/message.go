package domain

type MessageKind string

const (
	KindMessage MessageKind = "message"
	KindStatus  MessageKind = "status"
)

// DeletedText is what the backend rewrites a message to once its timer fires.
const DeletedText = "DELETED"

type Message struct {
	ID       string      `json:"id"`
	SenderID UserID      `json:"senderId,omitempty"`
	Text     string      `json:"text"`
	Kind     MessageKind `json:"kind"`
}

func NewStatusMessage(id, text string) Message {
	return Message{ID: id, Text: text, Kind: KindStatus}
}

func (m Message) Status() bool  { return m.Kind == KindStatus }
func (m Message) Deleted() bool { return m.Text == DeletedText }
