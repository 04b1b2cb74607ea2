package mailer

// Brand is the sender identity shown in every layout header and footer.
type Brand struct {
	Name    string `env:"NAME" envDefault:"Mailroom"`
	Email   string `env:"EMAIL"`
	Phone   string `env:"PHONE"`
	Website string `env:"WEBSITE"`
	Address string `env:"ADDRESS"`
}

// Config holds renderer settings. Embed it in the app config for caarlos0/env.
type Config struct {
	FallbackSubject string `env:"MAIL_FALLBACK_SUBJECT" envDefault:"Notification"`
	PortalBaseURL   string `env:"PORTAL_BASE_URL" envDefault:"http://localhost:8080"`
	Brand           Brand  `envPrefix:"BRAND_"`
}
