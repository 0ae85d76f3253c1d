package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	Port            = "PORT"
	LogLevel        = "LOG_LEVEL"
	Production      = "PRODUCTION"
	TrustProxy      = "TRUST_PROXY"
	AppURL          = "NEXT_PUBLIC_APP_URL"
	AppURLFallback  = "APP_URL"
	PostLoginPath   = "POST_LOGIN_PATH"
	SessionSecret   = "SESSION_SECRET"
	OAuthClientID   = "GITHUB_OAUTH_CLIENT_ID"
	OAuthSecret     = "GITHUB_OAUTH_CLIENT_SECRET"
	GithubToken     = "GITHUB_TOKEN"
	GithubOwner     = "GITHUB_OWNER"
	GithubRepo      = "GITHUB_REPO"
	GithubBranch    = "GITHUB_BRANCH"
	GithubAPIURL    = "GITHUB_API_URL"
	GithubOAuthURL  = "GITHUB_OAUTH_URL"
	TemplateOwner   = "TEMPLATE_OWNER"
	TemplateRepo    = "TEMPLATE_REPO"
	VersionStore    = "VERSION_STORE"
	VersionsDir     = "VERSIONS_DIR"
	RateLimitMax    = "RATE_LIMIT_MAX"
	RateLimitWindow = "RATE_LIMIT_WINDOW"
	DBHost          = "DB_HOST"
	DBPort          = "DB_PORT"
	DBUser          = "DB_USER"
	DBPass          = "DB_PASS"
	DBName          = "DB_NAME"
	MioHost         = "MIO_HOST"
	MioAccessID     = "MIO_ACCESS_ID"
	MioSecret       = "MIO_SECRET"
	MioSSL          = "MIO_SSL"
	MioBucket       = "MIO_BUCKET"
	MQHost          = "MQ_HOST"
	MQPort          = "MQ_PORT"
	MQUser          = "MQ_USER"
	MQPass          = "MQ_PASS"
	MQQueue         = "MQ_QUEUE"
)

const (
	StoreFS       = "fs"
	StorePostgres = "postgres"
	StoreMinio    = "minio"
)

type GithubSettings struct {
	Token         string
	Owner         string
	Repo          string
	Branch        string
	APIURL        string
	OAuthURL      string
	ClientID      string
	ClientSecret  string
	TemplateOwner string
	TemplateRepo  string
}

type DBSettings struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
}

type MinioSettings struct {
	Host     string
	AccessID string
	Secret   string
	SSL      bool
	Bucket   string
}

type RabbitSettings struct {
	Host  string
	Port  string
	User  string
	Pass  string
	Queue string
}

type Settings struct {
	Port            string
	LogLevel        string
	Production      bool
	TrustProxy      bool
	AppURL          string
	PostLoginPath   string
	SessionSecret   string
	VersionStore    string
	VersionsDir     string
	RateLimitMax    int
	RateLimitWindow time.Duration

	Github GithubSettings
	DB     DBSettings
	Minio  MinioSettings
	Rabbit RabbitSettings
}

// Configured reports whether every connection parameter is present.
func (d DBSettings) Configured() bool {
	return d.Host != "" && d.Port != "" && d.User != "" && d.Name != ""
}

func (m MinioSettings) Configured() bool {
	return m.Host != "" && m.AccessID != "" && m.Secret != "" && m.Bucket != ""
}

func (q RabbitSettings) Configured() bool {
	return q.Host != "" && q.Port != "" && q.User != "" && q.Pass != ""
}

// SecureCookies reports whether cookies must carry the Secure attribute,
// which browsers only send back over https.
func (s *Settings) SecureCookies() bool {
	return strings.HasPrefix(strings.ToLower(s.AppURL), "https://")
}

func (g GithubSettings) TemplateConfigured() bool {
	return g.TemplateOwner != "" && g.TemplateRepo != ""
}

var keys = []string{
	Port, LogLevel, Production, TrustProxy, AppURL, AppURLFallback, PostLoginPath, SessionSecret,
	OAuthClientID, OAuthSecret, GithubToken, GithubOwner, GithubRepo, GithubBranch,
	GithubAPIURL, GithubOAuthURL, TemplateOwner, TemplateRepo,
	VersionStore, VersionsDir, RateLimitMax, RateLimitWindow,
	DBHost, DBPort, DBUser, DBPass, DBName,
	MioHost, MioAccessID, MioSecret, MioSSL, MioBucket,
	MQHost, MQPort, MQUser, MQPass, MQQueue,
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(Port, "8080")
	v.SetDefault(LogLevel, "info")
	v.SetDefault(Production, false)
	v.SetDefault(TrustProxy, false)
	v.SetDefault(PostLoginPath, "/admin")
	v.SetDefault(GithubBranch, "main")
	v.SetDefault(GithubAPIURL, "https://api.github.com")
	v.SetDefault(GithubOAuthURL, "https://github.com")
	v.SetDefault(VersionStore, StoreFS)
	v.SetDefault(VersionsDir, "public/data/versions")
	v.SetDefault(RateLimitMax, 20)
	v.SetDefault(RateLimitWindow, "60s")
	v.SetDefault(MioSSL, false)
	v.SetDefault(MQQueue, "page_events")
}

// Load reads the settings from the process environment. A .env file, when
// present, is expected to have been loaded into the environment beforehand.
func Load() (*Settings, error) {
	return load(viper.New())
}

func load(v *viper.Viper) (*Settings, error) {
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, key := range keys {
		if err := v.BindEnv(key); err != nil {
			return nil, err
		}
	}
	setDefaults(v)

	appURL := v.GetString(AppURL)
	if appURL == "" {
		appURL = v.GetString(AppURLFallback)
	}
	if appURL == "" {
		appURL = "http://localhost:3000"
	}

	store := strings.ToLower(strings.TrimSpace(v.GetString(VersionStore)))
	switch store {
	case StoreFS, StorePostgres, StoreMinio:
	default:
		return nil, &InvalidSettingError{Key: VersionStore, Value: store}
	}

	window := v.GetDuration(RateLimitWindow)
	if window <= 0 {
		return nil, &InvalidSettingError{Key: RateLimitWindow, Value: v.GetString(RateLimitWindow)}
	}

	maxRequests := v.GetInt(RateLimitMax)
	if maxRequests <= 0 {
		return nil, &InvalidSettingError{Key: RateLimitMax, Value: v.GetString(RateLimitMax)}
	}

	return &Settings{
		Port:            v.GetString(Port),
		LogLevel:        v.GetString(LogLevel),
		Production:      v.GetBool(Production),
		TrustProxy:      v.GetBool(TrustProxy),
		AppURL:          strings.TrimRight(appURL, "/"),
		PostLoginPath:   v.GetString(PostLoginPath),
		SessionSecret:   v.GetString(SessionSecret),
		VersionStore:    store,
		VersionsDir:     v.GetString(VersionsDir),
		RateLimitMax:    maxRequests,
		RateLimitWindow: window,
		Github: GithubSettings{
			Token:         v.GetString(GithubToken),
			Owner:         v.GetString(GithubOwner),
			Repo:          v.GetString(GithubRepo),
			Branch:        v.GetString(GithubBranch),
			APIURL:        strings.TrimRight(v.GetString(GithubAPIURL), "/"),
			OAuthURL:      strings.TrimRight(v.GetString(GithubOAuthURL), "/"),
			ClientID:      v.GetString(OAuthClientID),
			ClientSecret:  v.GetString(OAuthSecret),
			TemplateOwner: v.GetString(TemplateOwner),
			TemplateRepo:  v.GetString(TemplateRepo),
		},
		DB: DBSettings{
			Host:     v.GetString(DBHost),
			Port:     v.GetString(DBPort),
			User:     v.GetString(DBUser),
			Password: v.GetString(DBPass),
			Name:     v.GetString(DBName),
		},
		Minio: MinioSettings{
			Host:     v.GetString(MioHost),
			AccessID: v.GetString(MioAccessID),
			Secret:   v.GetString(MioSecret),
			SSL:      v.GetBool(MioSSL),
			Bucket:   v.GetString(MioBucket),
		},
		Rabbit: RabbitSettings{
			Host:  v.GetString(MQHost),
			Port:  v.GetString(MQPort),
			User:  v.GetString(MQUser),
			Pass:  v.GetString(MQPass),
			Queue: v.GetString(MQQueue),
		},
	}, nil
}

type InvalidSettingError struct {
	Key   string
	Value string
}

func (e *InvalidSettingError) Error() string {
	return "[CONFIG] invalid value " + `"` + e.Value + `"` + " for " + e.Key
}
