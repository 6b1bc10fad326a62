package config

const DefaultAPIURL = "http://127.0.0.1:9090"

// Settings is the persisted application configuration.
type Settings struct {
	APIURL          string `yaml:"api_url" json:"api_url"`
	Secret          string `yaml:"secret,omitempty" json:"secret,omitempty"`
	ClashConfigPath string `yaml:"clash_config_path,omitempty" json:"clash_config_path,omitempty"`
	SubscriptionURL string `yaml:"subscription_url,omitempty" json:"subscription_url,omitempty"`
	LogLevel        string `yaml:"log_level,omitempty" json:"log_level,omitempty"`
}

func Default() *Settings {
	return &Settings{APIURL: DefaultAPIURL}
}

// MergeCLI applies non-empty command line overrides.
func (s *Settings) MergeCLI(apiURL, secret string) {
	if apiURL != "" {
		s.APIURL = apiURL
	}
	if secret != "" {
		s.Secret = secret
	}
}
