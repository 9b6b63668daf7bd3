package email

import "context"

// MemorySender is a Sender that keeps sent emails in memory, for tests.
type MemorySender struct {
	Emails []Message
}

// Message is an email as recorded by the MemorySender.
type Message struct {
	From      Address
	Recipient Address
	Subject   string
	Body      string
	HTMLBody  string
}

func NewMemorySender() *MemorySender {
	return &MemorySender{}
}

func (s *MemorySender) Send(_ context.Context, from, recipient Address, subject, textBody, htmlBody string) error {
	s.Emails = append(s.Emails, Message{
		From:      from,
		Recipient: recipient,
		Subject:   subject,
		Body:      textBody,
		HTMLBody:  htmlBody,
	})
	return nil
}
