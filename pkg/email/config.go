package email

import "time"

// Sender identifies who outgoing mail comes from.
type Sender struct {
	Email   string
	Name    string
	ReplyTo string
}

// SMTPConfig configures the go-mail backed SMTP client.
type SMTPConfig struct {
	Host     string
	Port     int
	Secure   bool // implicit TLS; otherwise STARTTLS when offered
	Username string
	Password string
	Timeout  time.Duration
	Sender   Sender
}

// PostmarkConfig configures the Postmark API client.
type PostmarkConfig struct {
	ServerToken  string
	AccountToken string
	Sender       Sender
}
