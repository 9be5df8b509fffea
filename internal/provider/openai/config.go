package openai

import "github.com/davidbz/medimentor/internal/domain"

// Config contains OpenAI provider configuration.
// All fields map to OpenAI SDK options:
//   - APIKey: Maps to option.WithAPIKey()
//   - OrgID: Maps to option.WithOrganization()
//   - ProjectID: Maps to option.WithProject()
//   - BaseURL: Maps to option.WithBaseURL()
//   - Timeout: Maps to option.WithRequestTimeout() (in seconds)
//   - MaxRetries: Maps to option.WithMaxRetries(); zero means a single attempt
type Config struct {
	APIKey     string `env:"OPENAI_API_KEY"`
	OrgID      string `env:"OPENAI_ORG_ID"`
	ProjectID  string `env:"OPENAI_PROJECT_ID"`
	BaseURL    string `env:"OPENAI_BASE_URL"    envDefault:"https://api.openai.com/v1"`
	Timeout    int    `env:"OPENAI_TIMEOUT"     envDefault:"60"`
	MaxRetries int    `env:"OPENAI_MAX_RETRIES" envDefault:"0"`
}

// EnvCheck reports which credentials are set without exposing them.
func (c Config) EnvCheck() domain.EnvCheck {
	return domain.EnvCheck{
		APIKeySet:       c.APIKey != "",
		OrganizationSet: c.OrgID != "",
		ProjectSet:      c.ProjectID != "",
	}
}
