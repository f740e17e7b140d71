package threadchat

import (
	"github.com/google/uuid"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// FallbackMessage is shown in place of a reply whenever a submission fails.
const FallbackMessage = "Something went wrong. Starting a new conversation."

// Message is one entry of a conversation. It is never modified after creation.
type Message struct {
	ID      string `json:"id"`
	Role    Role   `json:"role" jsonschema:"enum=user,enum=assistant"`
	Content string `json:"content"`
}

func NewUserMessage(content string) Message {
	return Message{ID: uuid.NewString(), Role: RoleUser, Content: content}
}

func NewAssistantMessage(content string) Message {
	return Message{ID: uuid.NewString(), Role: RoleAssistant, Content: content}
}

// MessageList holds an ordered collection of Message to preserve the history.
type MessageList struct {
	Messages []Message
}

func NewMessageList(msgs ...Message) *MessageList {
	return &MessageList{
		Messages: append([]Message{}, msgs...),
	}
}

func (ml *MessageList) Len() int {
	return len(ml.Messages)
}

// Add appends one or more new messages to the MessageList in a FIFO order.
func (ml *MessageList) Add(msgs ...Message) {
	ml.Messages = append(ml.Messages, msgs...)
}

func (ml *MessageList) All() []Message {
	return ml.Messages
}

// Clone copies the backing slice so later appends do not alias.
func (ml *MessageList) Clone() *MessageList {
	return &MessageList{
		Messages: append([]Message{}, ml.Messages...),
	}
}

func (ml *MessageList) Clear() {
	ml.Messages = []Message{}
}

// LastUserMessage returns the user message with the highest position in the
// list, which need not be the last entry overall.
func (ml *MessageList) LastUserMessage() (Message, bool) {
	for i := len(ml.Messages) - 1; i >= 0; i-- {
		if ml.Messages[i].Role == RoleUser {
			return ml.Messages[i], true
		}
	}
	return Message{}, false
}
