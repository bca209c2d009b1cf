package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"     validate:"required"`
	Database   DatabaseConfig   `mapstructure:"database"   validate:"required"`
	Auth       AuthConfig       `mapstructure:"auth"       validate:"required"`
	Generation GenerationConfig `mapstructure:"generation" validate:"required"`
	Task       TaskConfig       `mapstructure:"task"`
	Quota      QuotaConfig      `mapstructure:"quota"`
	Publish    PublishConfig    `mapstructure:"publish"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required,url"`
}

// AuthConfig contains all authentication and authorization settings.
type AuthConfig struct {
	JWTSecret                   string `mapstructure:"jwt_secret"                     validate:"required,min=32"`
	TokenLifetimeMinutes        int    `mapstructure:"token_lifetime_minutes"         validate:"gte=0"`
	RefreshTokenLifetimeMinutes int    `mapstructure:"refresh_token_lifetime_minutes" validate:"gte=0"`
	BcryptCost                  int    `mapstructure:"bcrypt_cost"                    validate:"gte=0,lte=31"`
}

// GenerationConfig contains settings for the external generative-media providers.
type GenerationConfig struct {
	// GeminiAPIKey authenticates text generation calls (slogans, lyrics).
	GeminiAPIKey string `mapstructure:"gemini_api_key" validate:"required"`
	// ModelName selects the Gemini model used for text generation.
	ModelName string `mapstructure:"model_name" validate:"required"`

	// MediaBaseURL is the base URL of the image/video/music provider gateway.
	MediaBaseURL string `mapstructure:"media_base_url" validate:"required,url"`
	// MediaAPIKey authenticates media provider calls.
	MediaAPIKey string `mapstructure:"media_api_key" validate:"required"`
	// ProfileBaseURL is the base URL of the profile lookup service.
	ProfileBaseURL string `mapstructure:"profile_base_url" validate:"required,url"`

	// DancePoseURL and SingPoseURL are the pose template images composited
	// with the subject portrait for the dance/sing cover variants.
	DancePoseURL string `mapstructure:"dance_pose_url"`
	SingPoseURL  string `mapstructure:"sing_pose_url"`

	// TimeoutSeconds bounds a single provider call.
	TimeoutSeconds int `mapstructure:"timeout_seconds" validate:"gte=0"`
}

// TaskConfig contains settings for the background task runner.
type TaskConfig struct {
	WorkerCount               int `mapstructure:"worker_count"                 validate:"gte=0"`
	QueueSize                 int `mapstructure:"queue_size"                   validate:"gte=0"`
	StuckTaskAgeMinutes       int `mapstructure:"stuck_task_age_minutes"       validate:"gte=0"`
	StuckTaskSweepMinutes     int `mapstructure:"stuck_task_sweep_minutes"     validate:"gte=0"`
}

// QuotaConfig contains settings for the resource usage limiter.
type QuotaConfig struct {
	// DefaultLimit applies when neither a resource default nor a per-client
	// override is configured.
	DefaultLimit int64 `mapstructure:"default_limit" validate:"gte=0"`
}

// PublishConfig contains settings for the publish pipeline.
type PublishConfig struct {
	// RequireSongs makes lyrics and music mandatory stages for publishing.
	RequireSongs bool `mapstructure:"require_songs"`
	// FallbackRegion is used when the profile lookup cannot resolve a region.
	FallbackRegion string `mapstructure:"fallback_region"`
	// DefaultVoice is the synthesis voice for derivative speech tasks when the
	// publish request does not choose one.
	DefaultVoice string `mapstructure:"default_voice"`
}
