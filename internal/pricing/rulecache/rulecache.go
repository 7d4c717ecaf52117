package rulecache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fekuna/omnipos-pricing-service/internal/model"
	"github.com/fekuna/omnipos-pricing-service/internal/pricing/dto"
	"github.com/fekuna/omnipos-pricing-service/pkg/cache"
	"github.com/fekuna/omnipos-pricing-service/pkg/logger"
	"go.uber.org/zap"
)

const keyPrefix = "pricing:rules:"

// Snapshot keeps the last-known-good rule set per scope in redis so a rule
// store outage degrades to slightly stale rules instead of failed
// calculations. Nil-safe: a nil *Snapshot disables snapshotting.
type Snapshot struct {
	redis  *cache.RedisClient
	ttl    time.Duration
	logger logger.ZapLogger
}

func NewSnapshot(redis *cache.RedisClient, ttl time.Duration, log logger.ZapLogger) *Snapshot {
	if redis == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Snapshot{redis: redis, ttl: ttl, logger: log}
}

// Get returns the cached rule set for the scope, or nil on miss.
func (s *Snapshot) Get(ctx context.Context, scope dto.RuleScope) []model.PricingRule {
	if s == nil {
		return nil
	}

	val, err := s.redis.Client.Get(ctx, scopeKey(scope)).Result()
	if err != nil {
		return nil
	}

	var rules []model.PricingRule
	if err := json.Unmarshal([]byte(val), &rules); err != nil {
		s.logger.Warn("corrupt rule snapshot, dropping", zap.Error(err))
		s.redis.Client.Del(ctx, scopeKey(scope))
		return nil
	}
	return rules
}

// Set stores the rule set. Failures are logged and swallowed; the snapshot
// is an optimization, never a dependency.
func (s *Snapshot) Set(ctx context.Context, scope dto.RuleScope, rules []model.PricingRule) {
	if s == nil {
		return
	}

	data, err := json.Marshal(rules)
	if err != nil {
		s.logger.Error("failed to marshal rule snapshot", zap.Error(err))
		return
	}
	if err := s.redis.Client.Set(ctx, scopeKey(scope), data, s.ttl).Err(); err != nil {
		s.logger.Warn("failed to write rule snapshot", zap.Error(err))
	}
}

// Clear drops every snapshot. Returns the number of keys removed.
func (s *Snapshot) Clear(ctx context.Context) int {
	if s == nil {
		return 0
	}

	keys, err := s.redis.Client.Keys(ctx, keyPrefix+"*").Result()
	if err != nil || len(keys) == 0 {
		return 0
	}
	if err := s.redis.Client.Del(ctx, keys...).Err(); err != nil {
		s.logger.Warn("failed to clear rule snapshots", zap.Error(err))
		return 0
	}
	return len(keys)
}

func scopeKey(scope dto.RuleScope) string {
	return fmt.Sprintf("%s%s|%s|%s|%s|%s",
		keyPrefix,
		orAll(scope.ItemCode),
		orAll(scope.ItemGroup),
		orAll(scope.Brand),
		orAll(scope.Customer),
		orAll(scope.BranchID),
	)
}

func orAll(s string) string {
	if s == "" {
		return "all"
	}
	return s
}
