package vault

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/carebridge/phi-sentinel/internal/logger"
	"github.com/carebridge/phi-sentinel/internal/redact"
)

// Vault stores rehydration maps in Redis under a TTL so an authorized viewer
// can restore a redacted document later. The redaction engine itself never
// touches the vault; persistence is strictly a caller concern.
type Vault struct {
	client *redis.Client
	config *Config
	logger *logger.Logger
}

// Config contains vault configuration
type Config struct {
	RedisURL       string        `yaml:"redis_url" mapstructure:"redis_url"`
	KeyPrefix      string        `yaml:"key_prefix" mapstructure:"key_prefix"`
	DefaultTTL     time.Duration `yaml:"default_ttl" mapstructure:"default_ttl"`
	MaxConnections int           `yaml:"max_connections" mapstructure:"max_connections"`
	MinIdleConns   int           `yaml:"min_idle_conns" mapstructure:"min_idle_conns"`
}

// entry is the stored envelope around a rehydration map
type entry struct {
	DocumentID string                `json:"documentId"`
	Mapping    redact.RehydrationMap `json:"mapping"`
	StoredAt   time.Time             `json:"storedAt"`
}

// New connects to Redis and verifies the connection
func New(config *Config, log *logger.Logger) (*Vault, error) {
	opts, err := redis.ParseURL(config.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	opts.PoolSize = config.MaxConnections
	opts.MinIdleConns = config.MinIdleConns

	v := &Vault{
		client: redis.NewClient(opts),
		config: config,
		logger: log,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := v.client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	log.Info("Rehydration vault initialized successfully",
		zap.String("redis_url", maskRedisURL(config.RedisURL)),
		zap.Duration("default_ttl", config.DefaultTTL))

	return v, nil
}

// Put stores a rehydration map and returns the generated document id
func (v *Vault) Put(ctx context.Context, mapping redact.RehydrationMap) (string, error) {
	docID := uuid.New().String()

	data, err := json.Marshal(entry{
		DocumentID: docID,
		Mapping:    mapping,
		StoredAt:   time.Now().UTC(),
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal rehydration map: %w", err)
	}

	if err := v.client.Set(ctx, v.key(docID), data, v.config.DefaultTTL).Err(); err != nil {
		v.logger.Error("Failed to store rehydration map", zap.Error(err))
		return "", fmt.Errorf("failed to store rehydration map: %w", err)
	}

	v.logger.Debug("Rehydration map stored",
		zap.String("document_id", docID),
		zap.Int("tokens", len(mapping)))

	return docID, nil
}

// Get retrieves a rehydration map by document id. A missing or expired
// document returns ErrNotFound.
func (v *Vault) Get(ctx context.Context, documentID string) (redact.RehydrationMap, error) {
	data, err := v.client.Get(ctx, v.key(documentID)).Result()
	if err == redis.Nil {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, fmt.Errorf("failed to fetch rehydration map: %w", err)
	}

	var e entry
	if err := json.Unmarshal([]byte(data), &e); err != nil {
		// Drop the corrupted entry rather than serve it
		v.client.Del(ctx, v.key(documentID))
		return nil, fmt.Errorf("corrupted rehydration map for %s: %w", documentID, err)
	}

	return e.Mapping, nil
}

// Delete removes a rehydration map, destroying the ability to rehydrate
func (v *Vault) Delete(ctx context.Context, documentID string) error {
	if err := v.client.Del(ctx, v.key(documentID)).Err(); err != nil {
		return fmt.Errorf("failed to delete rehydration map: %w", err)
	}
	v.logger.Debug("Rehydration map deleted", zap.String("document_id", documentID))
	return nil
}

// Close closes the Redis connection
func (v *Vault) Close() error {
	if v.client != nil {
		return v.client.Close()
	}
	return nil
}

// ErrNotFound is returned when a document id has no stored map
var ErrNotFound = fmt.Errorf("rehydration map not found")

func (v *Vault) key(documentID string) string {
	return fmt.Sprintf("%s:doc:%s", v.config.KeyPrefix, documentID)
}

// maskRedisURL masks the password in a Redis URL for logging
func maskRedisURL(url string) string {
	if strings.Contains(url, "@") {
		parts := strings.Split(url, "@")
		if len(parts) >= 2 {
			userPart := parts[0]
			if strings.Contains(userPart, ":") {
				userParts := strings.Split(userPart, ":")
				if len(userParts) >= 3 {
					userParts[len(userParts)-1] = "***"
					parts[0] = strings.Join(userParts, ":")
				}
			}
			return strings.Join(parts, "@")
		}
	}
	return url
}
