package ses

// Config holds the AWS settings for the SES sender. Empty credentials fall
// back to the default AWS credential chain.
type Config struct {
	Region          string `env:"SES_REGION" envDefault:"us-east-1"`
	AccessKeyID     string `env:"SES_ACCESS_KEY_ID"`
	SecretAccessKey string `env:"SES_SECRET_ACCESS_KEY"`
	ConfigSet       string `env:"SES_CONFIGURATION_SET"`
}
