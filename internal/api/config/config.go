package config

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Cfg 全局可访问的配置实例
var Cfg *Config

// LoadConfig 从文件加载配置并填充到 Cfg
func LoadConfig() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			return fmt.Errorf("config file not found: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	Cfg = &cfg

	return nil
}

func setDefaults() {
	viper.SetDefault("server.mode", "release")
	viper.SetDefault("server.log_level", "info")

	viper.SetDefault("cache.max_attempts", 3)
	viper.SetDefault("cache.base_backoff_ms", 50)

	viper.SetDefault("feed.ranked_window_days", 90)
	viper.SetDefault("feed.recency_weight", 0.5)
	viper.SetDefault("feed.popularity_weight", 0.3)
	viper.SetDefault("feed.tag_match_weight", 0.2)
	viper.SetDefault("feed.trending_window_days", 14)
	viper.SetDefault("feed.trending_min_likes", 0)
	viper.SetDefault("feed.trending_recency_weight", 0.4)
	viper.SetDefault("feed.trending_popularity_weight", 0.5)
	viper.SetDefault("feed.trending_comments_weight", 0.1)
	viper.SetDefault("feed.cache_ttl_sec", 120)
	viper.SetDefault("feed.favorite_tag_limit", 10)

	viper.SetDefault("notification.cache_cap", 50)
	viper.SetDefault("notification.cache_ttl_min", 720)

	viper.SetDefault("worker.profile_sync_interval_sec", 2)
}
