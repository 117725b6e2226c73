package chat

import "fmt"

// Message is one chat message in provider-neutral form.
type Message struct {
	Role    string
	Content string
}

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// BuildMessages assembles the full prompt for one query. Order matters and
// is fixed: the system prompt, the retrieved document context as a user
// message, every prior turn as a user/assistant pair, then the current query.
func BuildMessages(systemPrompt, documentContext string, history []Turn, query string) []Message {
	messages := make([]Message, 0, 2*len(history)+3)
	messages = append(messages,
		Message{Role: RoleSystem, Content: systemPrompt},
		Message{Role: RoleUser, Content: fmt.Sprintf("Document Context: %s", documentContext)},
	)
	for _, turn := range history {
		messages = append(messages,
			Message{Role: RoleUser, Content: turn.Query},
			Message{Role: RoleAssistant, Content: turn.Answer},
		)
	}
	return append(messages, Message{Role: RoleUser, Content: query})
}
