package config

import "time"

type Config struct {
	AppName                       string   `env:"APP_NAME" env-default:"reunite-api"`
	Port                          int      `env:"PORT" env-default:"3004"`
	LogLevel                      string   `env:"LOG_LEVEL" env-default:"info"`
	PrettyLogs                    bool     `env:"PRETTY_LOGS" env-default:"false"`
	HttpServerWriteTimeoutSeconds int      `env:"HTTP_SERVER_WRITE_TIMEOUT_SECONDS" env-default:"10"`
	HttpServerReadTimeoutSeconds  int      `env:"HTTP_SERVER_READ_TIMEOUT_SECONDS" env-default:"10"`
	HttpServerIdleTimeoutSeconds  int      `env:"HTTP_SERVER_IDLE_TIMEOUT_SECONDS" env-default:"10"`
	MaxHeaderBytes                int      `env:"HTTP_SERVER_MAX_HEADER_BYTES" env-default:"64000"` // 64KB
	ReadHeaderTimeoutSeconds      int      `env:"HTTP_SERVER_READ_HEADER_TIMEOUT_SECONDS" env-default:"10"`
	AllowOrigins                  []string `env:"HTTP_SERVER_ALLOW_ORIGINS" env-default:"*"`
	AllowMethods                  []string `env:"HTTP_SERVER_ALLOW_METHODS" env-default:"GET,POST,PUT,DELETE"`
	StartupMaxAttempts            int      `env:"STARTUP_MAX_ATTEMPTS" env-default:"5"`

	// Tracing
	TracingEnabled bool   `env:"TRACING_ENABLED" env-default:"false"`
	OTLPEndpoint   string `env:"OTLP_ENDPOINT" env-default:"localhost:4317"`
	OTLPProtocol   string `env:"OTLP_PROTOCOL" env-default:"grpc"`
	OTLPInsecure   bool   `env:"OTLP_INSECURE" env-default:"true"`

	// PostgreSQL (read model + match store)
	DatabaseDriver                string        `env:"DB_DRIVER" env-default:"postgres"`
	DatabaseHost                  string        `env:"DB_HOST" env-default:""`
	DatabasePort                  string        `env:"DB_PORT" env-default:"5432"`
	DatabaseUserName              string        `env:"DB_USER_NAME" env-default:""`
	DatabasePassword              string        `env:"DB_PASSWORD" env-default:""`
	DatabaseName                  string        `env:"DB_NAME" env-default:"reunite"`
	DatabaseSSLMode               string        `env:"DB_SQL_MODE" env-default:"disable"`
	DatabaseReconnectRetryCount   int           `env:"DB_RECONNECT_RETRY_COUNT" env-default:"3"`
	DatabaseMaxOpenConns          int           `env:"DB_MAX_OPEN_CONNS" env-default:"25"`
	DatabaseMaxIdleConns          int           `env:"DB_MAX_IDLE_CONNS" env-default:"10"`
	DatabaseConnMaxLifetime       time.Duration `env:"DB_CONN_MAX_LIFETIME" env-default:"10s"`
	DatabaseMigrationFolderPath   string        `env:"DB_MIGRATION_FOLDER_PATH" env-default:"db/pg"`
	DatabaseMigrationVersion      int           `env:"DB_MIGRATION_VERSION" env-default:"0"`
	DatabaseMigrationForce        int           `env:"DB_MIGRATION_FORCE" env-default:"0"`
	DatabaseMigrationAutoRollback bool          `env:"DB_MIGRATION_AUTO_ROLLBACK" env-default:"true"`

	// Graph Database (match exploration projection, Memgraph-compatible)
	GraphEnabled    bool   `env:"GRAPH_ENABLED" env-default:"false"`
	GraphDBHost     string `env:"GRAPH_DB_HOST" env-default:"localhost"`
	GraphDBPort     int    `env:"GRAPH_DB_PORT" env-default:"7687"`
	GraphDBUser     string `env:"GRAPH_DB_USER" env-default:""`
	GraphDBPassword string `env:"GRAPH_DB_PASSWORD" env-default:""`

	// Kafka Consumer (item snapshot ingestion)
	KafkaBrokers         []string `env:"KAFKA_BROKERS" env-default:"localhost:9092"`
	KafkaInputTopic      string   `env:"KAFKA_INPUT_TOPIC" env-default:"item-events"`
	KafkaConsumerGroup   string   `env:"KAFKA_CONSUMER_GROUP" env-default:"reunite-consumer"`
	KafkaConsumerEnabled bool     `env:"KAFKA_CONSUMER_ENABLED" env-default:"true"`

	// Kafka Producer (match event emission)
	KafkaOutputTopic  string `env:"KAFKA_OUTPUT_TOPIC" env-default:"match-events"`
	KafkaBatchSize    int    `env:"KAFKA_BATCH_SIZE" env-default:"100"`
	KafkaBatchTimeout int    `env:"KAFKA_BATCH_TIMEOUT_MS" env-default:"100"`
	KafkaRequiredAcks int    `env:"KAFKA_REQUIRED_ACKS" env-default:"1"`
	KafkaCompression  string `env:"KAFKA_COMPRESSION" env-default:"snappy"`

	// Matching pipeline
	MaxRadiusKm              float64 `env:"MATCH_MAX_RADIUS_KM" env-default:"50"`
	TimeWindowDays           int     `env:"MATCH_TIME_WINDOW_DAYS" env-default:"14"`
	MinMatchScore            float64 `env:"MATCH_MIN_SCORE" env-default:"0.4"`
	TopK                     int     `env:"MATCH_TOP_K" env-default:"20"`
	GeoCellPrecision         int     `env:"MATCH_GEO_CELL_PRECISION" env-default:"5"`
	ScoreWorkerCount         int     `env:"MATCH_SCORE_WORKER_COUNT" env-default:"4"`
	RecencyFallbackLimit     int     `env:"MATCH_RECENCY_FALLBACK_LIMIT" env-default:"100"`
	TextSignalEnabled        bool    `env:"MATCH_TEXT_SIGNAL_ENABLED" env-default:"true"`
	ImageSignalEnabled       bool    `env:"MATCH_IMAGE_SIGNAL_ENABLED" env-default:"true"`
	FuzzyTextEnabled         bool    `env:"MATCH_FUZZY_TEXT_ENABLED" env-default:"true"`
	PeakDecayEnabled         bool    `env:"MATCH_PEAK_DECAY_ENABLED" env-default:"true"`
	SubcategoryMismatchScore float64 `env:"MATCH_SUBCATEGORY_MISMATCH_SCORE" env-default:"0.6"`
	PeakHours                float64 `env:"MATCH_PEAK_HOURS" env-default:"24"`
	HalfLifeHours            float64 `env:"MATCH_HALF_LIFE_HOURS" env-default:"168"`
	DecayFloor               float64 `env:"MATCH_DECAY_FLOOR" env-default:"0.1"`

	// Fusion weights
	WeightCategory   float64 `env:"WEIGHT_CATEGORY" env-default:"0.25"`
	WeightDistance   float64 `env:"WEIGHT_DISTANCE" env-default:"0.20"`
	WeightTime       float64 `env:"WEIGHT_TIME" env-default:"0.15"`
	WeightAttributes float64 `env:"WEIGHT_ATTRIBUTES" env-default:"0.15"`
	WeightText       float64 `env:"WEIGHT_TEXT" env-default:"0.15"`
	WeightImage      float64 `env:"WEIGHT_IMAGE" env-default:"0.10"`

	// Feedback-driven weight tuning
	TunerEnabled      bool    `env:"TUNER_ENABLED" env-default:"true"`
	TunerWindowSize   int     `env:"TUNER_WINDOW_SIZE" env-default:"50"`
	TunerMinSamples   int     `env:"TUNER_MIN_SAMPLES" env-default:"20"`
	TunerAcceptTarget float64 `env:"TUNER_ACCEPT_TARGET" env-default:"0.3"`
	TunerStep         float64 `env:"TUNER_STEP" env-default:"0.02"`
	TunerMinWeight    float64 `env:"TUNER_MIN_WEIGHT" env-default:"0.05"`
	TunerMaxWeight    float64 `env:"TUNER_MAX_WEIGHT" env-default:"0.5"`
}
