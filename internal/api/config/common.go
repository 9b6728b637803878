package config

// Config 配置主体
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Logstash     LogstashConfig     `mapstructure:"logstash"`
	Redis        RedisConfig        `mapstructure:"redis"`
	Mongo        MongoConfig        `mapstructure:"mongo"`
	Kafka        KafkaConfig        `mapstructure:"kafka"`
	JWT          JWTConfig          `mapstructure:"jwt"`
	Cache        CacheConfig        `mapstructure:"cache"`
	Feed         FeedConfig         `mapstructure:"feed"`
	Notification NotificationConfig `mapstructure:"notification"`
	Worker       WorkerConfig       `mapstructure:"worker"`
}

// ServerConfig Server配置
type ServerConfig struct {
	Port     int    `mapstructure:"port" validate:"required,gt=0"`
	Mode     string `mapstructure:"mode"`
	LogLevel string `mapstructure:"log_level"`
}

// LogstashConfig 远端日志配置,Address 为空时只写 stdout
type LogstashConfig struct {
	Address string `mapstructure:"address"`
	Index   string `mapstructure:"index"`
	Token   string `mapstructure:"token"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr" validate:"required"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

// MongoConfig 文档库配置
type MongoConfig struct {
	URI      string `mapstructure:"uri" validate:"required"`
	Database string `mapstructure:"database" validate:"required"`
}

type KafkaConfig struct {
	Brokers    []string           `mapstructure:"brokers"`
	Sasl       SaslConfig         `mapstructure:"sasl"`
	Consumer   ConsumerConfig     `mapstructure:"consumer"`
	Engagement EngagementConsumer `mapstructure:"engagement_consumer"`
}

type SaslConfig struct {
	Enable   bool   `mapstructure:"enable"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

type ConsumerConfig struct {
	SessionTimeout    int `mapstructure:"session_timeout"`
	HeartbeatInterval int `mapstructure:"heartbeat_interval"`
	RebalanceTimeout  int `mapstructure:"rebalance_timeout"`
}

type EngagementConsumer struct {
	Topic   string `mapstructure:"topic"`
	GroupID string `mapstructure:"group_id"`
}

type JWTConfig struct {
	Secret string `mapstructure:"secret" validate:"required"`
}

// CacheConfig 缓存重试策略配置
type CacheConfig struct {
	MaxAttempts   int `mapstructure:"max_attempts" validate:"gte=1"`
	BaseBackoffMs int `mapstructure:"base_backoff_ms" validate:"gte=1"`
}

// FeedConfig Feed 排序参数,默认值见 setDefaults
type FeedConfig struct {
	RankedWindowDays   int     `mapstructure:"ranked_window_days"`
	RecencyWeight      float64 `mapstructure:"recency_weight"`
	PopularityWeight   float64 `mapstructure:"popularity_weight"`
	TagMatchWeight     float64 `mapstructure:"tag_match_weight"`
	TrendingWindowDays int     `mapstructure:"trending_window_days"`
	TrendingMinLikes   int64   `mapstructure:"trending_min_likes"`
	TrendingRecency    float64 `mapstructure:"trending_recency_weight"`
	TrendingPopularity float64 `mapstructure:"trending_popularity_weight"`
	TrendingComments   float64 `mapstructure:"trending_comments_weight"`
	CacheTTLSec        int     `mapstructure:"cache_ttl_sec"`
	FavoriteTagLimit   int     `mapstructure:"favorite_tag_limit"`
}

// NotificationConfig 通知缓存配置
type NotificationConfig struct {
	CacheCap    int `mapstructure:"cache_cap" validate:"gte=1"`
	CacheTTLMin int `mapstructure:"cache_ttl_min"`
}

// WorkerConfig 后台任务配置
type WorkerConfig struct {
	ProfileSyncIntervalSec int `mapstructure:"profile_sync_interval_sec" validate:"gte=1"`
}
