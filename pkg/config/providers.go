package config

import (
	"strings"
)

// Provider settings are read on every call rather than cached at startup,
// so keys and test/live mode can be rotated without a restart.

// StripeSettings configures the payment gateway.
type StripeSettings struct {
	SecretKey     string
	WebhookSecret string
	LiveMode      bool
}

// Configured reports whether webhooks can be verified.
func (s StripeSettings) Configured() bool { return s.WebhookSecret != "" }

// EmailSettings configures the transactional email API.
type EmailSettings struct {
	APIKey  string
	BaseURL string
	From    string
}

func (s EmailSettings) Configured() bool { return s.APIKey != "" && s.From != "" }

// StorageSettings configures S3-compatible object storage.
type StorageSettings struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
}

func (s StorageSettings) Configured() bool {
	return s.Endpoint != "" && s.AccessKey != "" && s.SecretKey != "" && s.Bucket != ""
}

// LLMSettings configures narrative generation providers in fallback order.
type LLMSettings struct {
	Order          []string
	AnthropicKey   string
	AnthropicModel string
	GeminiKey      string
	GeminiModel    string
}

func (s LLMSettings) Configured() bool { return s.AnthropicKey != "" || s.GeminiKey != "" }

// OAuthProvider configures an integration's OAuth2 endpoints.
type OAuthProvider struct {
	Name         string
	ClientID     string
	ClientSecret string
	AuthURL      string
	TokenURL     string
	Scopes       []string
}

func (p OAuthProvider) Configured() bool { return p.ClientID != "" && p.ClientSecret != "" }

// Stripe returns the current payment gateway settings.
func Stripe() StripeSettings {
	key := v.GetString("stripe_secret_key")
	return StripeSettings{
		SecretKey:     key,
		WebhookSecret: v.GetString("stripe_webhook_secret"),
		LiveMode:      strings.HasPrefix(key, "sk_live_"),
	}
}

// Email returns the current email API settings.
func Email() EmailSettings {
	base := v.GetString("email_api_base_url")
	if base == "" {
		base = "https://api.resend.com"
	}
	return EmailSettings{
		APIKey:  v.GetString("email_api_key"),
		BaseURL: strings.TrimRight(base, "/"),
		From:    v.GetString("email_from"),
	}
}

// Storage returns the current object storage settings.
func Storage() StorageSettings {
	return StorageSettings{
		Endpoint:  v.GetString("storage_endpoint"),
		AccessKey: v.GetString("storage_access_key"),
		SecretKey: v.GetString("storage_secret_key"),
		Bucket:    v.GetString("storage_bucket"),
		Region:    v.GetString("storage_region"),
		UseSSL:    !strings.EqualFold(v.GetString("storage_use_ssl"), "false"),
	}
}

// LLM returns the current narrative generation settings.
func LLM() LLMSettings {
	order := parseCSV(strings.ToLower(v.GetString("llm_providers")))
	if len(order) == 0 {
		order = []string{"anthropic", "gemini"}
	}
	anthropicModel := v.GetString("anthropic_model")
	if anthropicModel == "" {
		anthropicModel = "claude-sonnet-4-5"
	}
	geminiModel := v.GetString("gemini_model")
	if geminiModel == "" {
		geminiModel = "gemini-2.5-flash"
	}
	return LLMSettings{
		Order:          order,
		AnthropicKey:   v.GetString("anthropic_api_key"),
		AnthropicModel: anthropicModel,
		GeminiKey:      v.GetString("gemini_api_key"),
		GeminiModel:    geminiModel,
	}
}

var oauthEndpoints = map[string]struct {
	authURL  string
	tokenURL string
	scopes   []string
}{
	"xero": {
		authURL:  "https://login.xero.com/identity/connect/authorize",
		tokenURL: "https://identity.xero.com/connect/token",
		scopes:   []string{"openid", "offline_access", "accounting.transactions", "accounting.contacts"},
	},
	"quickbooks": {
		authURL:  "https://appcenter.intuit.com/connect/oauth2",
		tokenURL: "https://oauth.platform.intuit.com/oauth2/v1/tokens/bearer",
		scopes:   []string{"com.intuit.quickbooks.accounting"},
	},
	"google": {
		authURL:  "https://accounts.google.com/o/oauth2/v2/auth",
		tokenURL: "https://oauth2.googleapis.com/token",
		scopes:   []string{"https://www.googleapis.com/auth/gmail.send"},
	},
	"outlook": {
		authURL:  "https://login.microsoftonline.com/common/oauth2/v2.0/authorize",
		tokenURL: "https://login.microsoftonline.com/common/oauth2/v2.0/token",
		scopes:   []string{"offline_access", "Mail.Send"},
	},
}

// OAuth returns settings for a named integration provider. ok is false for
// providers the product does not know about.
func OAuth(provider string) (OAuthProvider, bool) {
	provider = strings.ToLower(provider)
	ep, ok := oauthEndpoints[provider]
	if !ok {
		return OAuthProvider{}, false
	}
	prefix := strings.ToUpper(provider)
	return OAuthProvider{
		Name:         provider,
		ClientID:     v.GetString(prefix + "_CLIENT_ID"),
		ClientSecret: v.GetString(prefix + "_CLIENT_SECRET"),
		AuthURL:      ep.authURL,
		TokenURL:     ep.tokenURL,
		Scopes:       ep.scopes,
	}, true
}

// OAuthProviders lists known integration provider names.
func OAuthProviders() []string {
	return []string{"google", "outlook", "quickbooks", "xero"}
}
