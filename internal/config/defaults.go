package config

import "time"

// Default values applied by ApplyDefaults when the corresponding setting is
// absent from the configuration file and environment.
const (
	DefaultServerPort            = 8080
	DefaultServerMode            = "release"
	DefaultServerReadTimeout     = 15 * time.Second
	DefaultServerWriteTimeout    = 30 * time.Second
	DefaultServerShutdownTimeout = 10 * time.Second

	DefaultDatabaseHost            = "localhost"
	DefaultDatabasePort            = 5432
	DefaultDatabaseSSLMode         = "disable"
	DefaultDatabaseMaxOpenConns    = 25
	DefaultDatabaseMaxIdleConns    = 5
	DefaultDatabaseConnMaxLifetime = 30 * time.Minute
	DefaultDatabaseConnMaxIdleTime = 5 * time.Minute
	DefaultDatabaseMigrationsPath  = "migrations"

	DefaultRedisAddr         = "localhost:6379"
	DefaultRedisPoolSize     = 10
	DefaultRedisMinIdleConns = 2
	DefaultRedisDialTimeout  = 5 * time.Second
	DefaultRedisReadTimeout  = 3 * time.Second
	DefaultRedisWriteTimeout = 3 * time.Second
	DefaultRedisKeyPrefix    = "appeal"
	DefaultRedisTTL          = 6 * time.Hour

	DefaultKafkaGroupID         = "appealengine-workers"
	DefaultKafkaProducerRetries = 3
	DefaultKafkaBatchTimeout    = 100 * time.Millisecond
	DefaultKafkaWriteTimeout    = 10 * time.Second
	DefaultKafkaDeadLetterTopic = "appeal.analysis.deadletter"

	DefaultMinIOBucket = "appeal-reports"

	DefaultOpenDataBaseURL            = "https://datacatalog.cookcountyil.gov"
	DefaultOpenDataTimeout            = 30 * time.Second
	DefaultOpenDataAssessmentsDataset = "uzyt-m557"
	DefaultOpenDataSalesDataset       = "wvhk-k5uv"
	DefaultOpenDataMaxRows            = 1000

	DefaultEngineLimit    = 10
	DefaultEngineMaxLimit = 50
	DefaultEngineCacheTTL = 6 * time.Hour

	DefaultWorkerConcurrency = 4
	DefaultWorkerMaxRetries  = 3
	DefaultWorkerPollTimeout = 10 * time.Second

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// ApplyDefaults fills every zero-valued setting with its default.  Explicitly
// configured values are never overwritten.
func (c *Config) ApplyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = DefaultServerPort
	}
	if c.Server.Mode == "" {
		c.Server.Mode = DefaultServerMode
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = DefaultServerReadTimeout
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = DefaultServerWriteTimeout
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = DefaultServerShutdownTimeout
	}

	if c.Database.Host == "" {
		c.Database.Host = DefaultDatabaseHost
	}
	if c.Database.Port == 0 {
		c.Database.Port = DefaultDatabasePort
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = DefaultDatabaseSSLMode
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = DefaultDatabaseMaxOpenConns
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = DefaultDatabaseMaxIdleConns
	}
	if c.Database.ConnMaxLifetime == 0 {
		c.Database.ConnMaxLifetime = DefaultDatabaseConnMaxLifetime
	}
	if c.Database.ConnMaxIdleTime == 0 {
		c.Database.ConnMaxIdleTime = DefaultDatabaseConnMaxIdleTime
	}
	if c.Database.MigrationsPath == "" {
		c.Database.MigrationsPath = DefaultDatabaseMigrationsPath
	}

	if c.Redis.Addr == "" {
		c.Redis.Addr = DefaultRedisAddr
	}
	if c.Redis.PoolSize == 0 {
		c.Redis.PoolSize = DefaultRedisPoolSize
	}
	if c.Redis.MinIdleConns == 0 {
		c.Redis.MinIdleConns = DefaultRedisMinIdleConns
	}
	if c.Redis.DialTimeout == 0 {
		c.Redis.DialTimeout = DefaultRedisDialTimeout
	}
	if c.Redis.ReadTimeout == 0 {
		c.Redis.ReadTimeout = DefaultRedisReadTimeout
	}
	if c.Redis.WriteTimeout == 0 {
		c.Redis.WriteTimeout = DefaultRedisWriteTimeout
	}
	if c.Redis.KeyPrefix == "" {
		c.Redis.KeyPrefix = DefaultRedisKeyPrefix
	}
	if c.Redis.DefaultTTL == 0 {
		c.Redis.DefaultTTL = DefaultRedisTTL
	}

	if len(c.Kafka.Brokers) == 0 {
		c.Kafka.Brokers = []string{"localhost:9092"}
	}
	if c.Kafka.GroupID == "" {
		c.Kafka.GroupID = DefaultKafkaGroupID
	}
	if c.Kafka.ProducerRetries == 0 {
		c.Kafka.ProducerRetries = DefaultKafkaProducerRetries
	}
	if c.Kafka.BatchTimeout == 0 {
		c.Kafka.BatchTimeout = DefaultKafkaBatchTimeout
	}
	if c.Kafka.WriteTimeout == 0 {
		c.Kafka.WriteTimeout = DefaultKafkaWriteTimeout
	}
	if c.Kafka.DeadLetterTopic == "" {
		c.Kafka.DeadLetterTopic = DefaultKafkaDeadLetterTopic
	}

	if c.MinIO.Bucket == "" {
		c.MinIO.Bucket = DefaultMinIOBucket
	}

	if c.OpenData.BaseURL == "" {
		c.OpenData.BaseURL = DefaultOpenDataBaseURL
	}
	if c.OpenData.Timeout == 0 {
		c.OpenData.Timeout = DefaultOpenDataTimeout
	}
	if c.OpenData.AssessmentsDataset == "" {
		c.OpenData.AssessmentsDataset = DefaultOpenDataAssessmentsDataset
	}
	if c.OpenData.SalesDataset == "" {
		c.OpenData.SalesDataset = DefaultOpenDataSalesDataset
	}
	if c.OpenData.MaxRows == 0 {
		c.OpenData.MaxRows = DefaultOpenDataMaxRows
	}

	if c.Engine.DefaultLimit == 0 {
		c.Engine.DefaultLimit = DefaultEngineLimit
	}
	if c.Engine.MaxLimit == 0 {
		c.Engine.MaxLimit = DefaultEngineMaxLimit
	}
	if c.Engine.CacheTTL == 0 {
		c.Engine.CacheTTL = DefaultEngineCacheTTL
	}

	if c.Worker.Concurrency == 0 {
		c.Worker.Concurrency = DefaultWorkerConcurrency
	}
	if c.Worker.MaxRetries == 0 {
		c.Worker.MaxRetries = DefaultWorkerMaxRetries
	}
	if c.Worker.PollTimeout == 0 {
		c.Worker.PollTimeout = DefaultWorkerPollTimeout
	}

	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = DefaultLogFormat
	}
}
