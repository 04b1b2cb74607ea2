package resend

// Config holds Resend credentials. The sender address is chosen per message
// by the delivery router; FromEmail is used only when a message has none.
type Config struct {
	APIKey    string `env:"RESEND_API_KEY"`
	FromEmail string `env:"RESEND_FROM_EMAIL"`
	FromName  string `env:"RESEND_FROM_NAME"`
}
