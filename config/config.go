package config

import (
	"log"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration values.
type Config struct {
	AppPort   string `mapstructure:"APP_PORT"`
	Env       string `mapstructure:"ENV"`
	LogLevel  string `mapstructure:"LOG_LEVEL"`
	APIPrefix string `mapstructure:"API_PREFIX"`

	// Record store. DatabaseDriver is "mongo" or "memory".
	DatabaseDriver string `mapstructure:"DATABASE_DRIVER"`
	DatabaseURL    string `mapstructure:"DATABASE_URL"`
	DatabaseName   string `mapstructure:"DATABASE_NAME"`

	// Redis configuration.
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisAuthDB   int    `mapstructure:"REDIS_AUTH_DB"`
	RedisQueueDB  int    `mapstructure:"REDIS_QUEUE_DB"`

	// Identity. AuthProvider is "local" or "firebase".
	AuthProvider            string        `mapstructure:"AUTH_PROVIDER"`
	JWTSecret               string        `mapstructure:"JWT_SECRET"`
	TokenTTL                time.Duration `mapstructure:"TOKEN_TTL"`
	FirebaseCredentialsFile string        `mapstructure:"FIREBASE_CREDENTIALS_FILE"`

	// Object storage. StorageProvider is "cloudinary" or "s3".
	StorageProvider     string        `mapstructure:"STORAGE_PROVIDER"`
	CloudinaryCloudName string        `mapstructure:"CLOUDINARY_CLOUD_NAME"`
	CloudinaryAPIKey    string        `mapstructure:"CLOUDINARY_API_KEY"`
	CloudinaryAPISecret string        `mapstructure:"CLOUDINARY_API_SECRET"`
	S3Bucket            string        `mapstructure:"S3_BUCKET"`
	S3Region            string        `mapstructure:"S3_REGION"`
	S3PublicBaseURL     string        `mapstructure:"S3_PUBLIC_BASE_URL"`
	UploadURLTTL        time.Duration `mapstructure:"UPLOAD_URL_TTL"`

	// Media provider.
	AgoraAppID          string        `mapstructure:"AGORA_APP_ID"`
	AgoraAppCertificate string        `mapstructure:"AGORA_APP_CERTIFICATE"`
	MediaTokenTTL       time.Duration `mapstructure:"MEDIA_TOKEN_TTL"`

	// Session timing.
	WaitingTimeout time.Duration `mapstructure:"WAITING_TIMEOUT"`
	LiveGrace      time.Duration `mapstructure:"LIVE_GRACE"`
	MaxLiveSeconds int           `mapstructure:"MAX_LIVE_SECONDS"`
	ExpiryWorker   bool          `mapstructure:"EXPIRY_WORKER"`
}

var AppConfig Config

// LoadConfig reads config.yaml (or configFile when set), overlays the
// environment and unmarshals into AppConfig.
func LoadConfig(configFile string) {
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		// Look for a config file named "config.yaml" in the current and "config" directory.
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("./config")
	}
	viper.AutomaticEnv()
	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		log.Println("No config file found, using environment variables only")
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
}

func setDefaults() {
	viper.SetDefault("APP_PORT", "8080")
	viper.SetDefault("ENV", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("API_PREFIX", "/api")
	viper.SetDefault("DATABASE_DRIVER", "mongo")
	viper.SetDefault("DATABASE_URL", "mongodb://localhost:27017")
	viper.SetDefault("DATABASE_NAME", "consultline")
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_AUTH_DB", 1)
	viper.SetDefault("REDIS_QUEUE_DB", 2)
	viper.SetDefault("AUTH_PROVIDER", "local")
	viper.SetDefault("JWT_SECRET", "")
	viper.SetDefault("TOKEN_TTL", "72h")
	viper.SetDefault("FIREBASE_CREDENTIALS_FILE", "")
	viper.SetDefault("STORAGE_PROVIDER", "cloudinary")
	viper.SetDefault("CLOUDINARY_CLOUD_NAME", "")
	viper.SetDefault("CLOUDINARY_API_KEY", "")
	viper.SetDefault("CLOUDINARY_API_SECRET", "")
	viper.SetDefault("S3_BUCKET", "")
	viper.SetDefault("S3_REGION", "us-east-1")
	viper.SetDefault("S3_PUBLIC_BASE_URL", "")
	viper.SetDefault("UPLOAD_URL_TTL", "15m")
	viper.SetDefault("AGORA_APP_ID", "")
	viper.SetDefault("AGORA_APP_CERTIFICATE", "")
	viper.SetDefault("MEDIA_TOKEN_TTL", "1h")
	viper.SetDefault("WAITING_TIMEOUT", "2m")
	viper.SetDefault("LIVE_GRACE", "30s")
	viper.SetDefault("MAX_LIVE_SECONDS", 7200)
	viper.SetDefault("EXPIRY_WORKER", true)
}

func GetEnv() string {
	return AppConfig.Env
}

func IsProduction() bool {
	return GetEnv() == "production"
}
