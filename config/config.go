package config

import (
	"log"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/rapidaai/voice-capture/pkg/configs"
	"github.com/spf13/viper"
)

// Application config structure
type AppConfig struct {
	Name     string `mapstructure:"service_name" validate:"required"`
	Version  string `mapstructure:"version" validate:"required"`
	Host     string `mapstructure:"host" validate:"required"`
	Port     int    `mapstructure:"port" validate:"required"`
	LogLevel string `mapstructure:"log_level" validate:"required"`
	LogPath  string `mapstructure:"log_path"`

	RedisConfig    configs.RedisConfig    `mapstructure:"redis"`
	DatabaseConfig configs.DatabaseConfig `mapstructure:"database" validate:"required"`
	UploadConfig   configs.UploadConfig   `mapstructure:"upload" validate:"required"`
	CaptureConfig  configs.CaptureConfig  `mapstructure:"capture" validate:"required"`
}

// reading config and intializing configs for application
func InitConfig() (*viper.Viper, error) {
	vConfig := viper.NewWithOptions(viper.KeyDelimiter("__"))

	vConfig.AddConfigPath(".")
	vConfig.SetConfigName(".env")
	path := os.Getenv("ENV_PATH")
	if path != "" {
		log.Printf("env path %v", path)
		vConfig.SetConfigFile(path)
	}
	vConfig.SetConfigType("env")
	vConfig.AutomaticEnv()

	setDefault(vConfig)
	if err := vConfig.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
			return nil, err
		}
		log.Printf("Reading from env variables.")
	}
	return vConfig, nil
}

func setDefault(v *viper.Viper) {
	// setting all default values
	// keeping watch on https://github.com/spf13/viper/issues/188

	v.SetDefault("SERVICE_NAME", "voice-capture")
	v.SetDefault("VERSION", "0.0.1")
	v.SetDefault("HOST", "0.0.0.0")
	v.SetDefault("PORT", 9090)
	v.SetDefault("LOG_LEVEL", "debug")
	v.SetDefault("LOG_PATH", "")

	v.SetDefault("REDIS__HOST", "")
	v.SetDefault("REDIS__PORT", 6379)
	v.SetDefault("REDIS__PASSWORD", "")
	v.SetDefault("REDIS__DB", 0)
	v.SetDefault("REDIS__MAX_ACTIVE", 10)

	v.SetDefault("DATABASE__DRIVER", "sqlite")
	v.SetDefault("DATABASE__HOST", "localhost")
	v.SetDefault("DATABASE__PORT", 5432)
	v.SetDefault("DATABASE__DB_NAME", "voice-capture.db")
	v.SetDefault("DATABASE__AUTH__USER", "")
	v.SetDefault("DATABASE__AUTH__PASSWORD", "")
	v.SetDefault("DATABASE__MAX_OPEN_CONNECTION", 10)
	v.SetDefault("DATABASE__MAX_IDEAL_CONNECTION", 10)
	v.SetDefault("DATABASE__SSL_MODE", "disable")

	v.SetDefault("UPLOAD__URL", "http://localhost:8000/v1/voice/analyze")
	v.SetDefault("UPLOAD__FIELD_NAME", "file")
	v.SetDefault("UPLOAD__AUTH_TOKEN", "")
	v.SetDefault("UPLOAD__TIMEOUT", "30s")
	v.SetDefault("UPLOAD__RESULT_PATHS", []string{"text", "transcript", "result.text", "analysis_id", "id"})

	v.SetDefault("CAPTURE__DEVICES", []string{"default"})
	v.SetDefault("CAPTURE__MODE", "single")
	v.SetDefault("CAPTURE__INDEX_FIELD", "question_index")
	v.SetDefault("CAPTURE__MAX_DURATION", "10m")
	v.SetDefault("CAPTURE__MAX_PAYLOAD_BYTES", 50<<20)
	v.SetDefault("CAPTURE__CHUNK_INTERVAL", "250ms")
	v.SetDefault("CAPTURE__EVENT_BUFFER", 64)
	v.SetDefault("CAPTURE__DOWNLOAD_DIR", "recordings")
	v.SetDefault("CAPTURE__BASE_NAME", "recording")
	v.SetDefault("CAPTURE__LEASE_TTL", "15m")
	v.SetDefault("CAPTURE__RESULT_TTL", "24h")
}

// Getting application config from viper
func GetApplicationConfig(v *viper.Viper) (*AppConfig, error) {
	var config AppConfig
	err := v.Unmarshal(&config)
	if err != nil {
		log.Printf("%+v\n", err)
		return nil, err
	}

	// valdating the app config
	validate := validator.New()
	err = validate.Struct(&config)
	if err != nil {
		log.Printf("%+v\n", err)
		return nil, err
	}
	return &config, nil
}
