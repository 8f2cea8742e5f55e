package coupon

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/SultanAlQalifa/nextmove-cargo-sub005/internal/logging"
	"github.com/SultanAlQalifa/nextmove-cargo-sub005/internal/resilience"
	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const cacheTTL = time.Minute

// PostgresValidator reads the coupons table behind a short Redis cache.
// Only valid coupons are cached, so a new coupon is usable at once.
type PostgresValidator struct {
	db     *sql.DB
	redis  *redis.Client
	exec   *resilience.Executor
	logger *logging.Logger
}

func NewPostgresValidator(db *sql.DB, client *redis.Client, exec *resilience.Executor, logger *logging.Logger) *PostgresValidator {
	return &PostgresValidator{
		db:     db,
		redis:  client,
		exec:   exec,
		logger: logging.OrGlobal(logger).Named("coupon"),
	}
}

func cacheKey(scope, code string) string {
	return fmt.Sprintf("coupon:%s:%s", scope, code)
}

func (v *PostgresValidator) Validate(ctx context.Context, code, scope string) (*Coupon, error) {
	code = normalize(code)
	if code == "" {
		return nil, ErrInvalidCoupon
	}

	if c := v.cached(ctx, scope, code); c != nil {
		return c, nil
	}

	c, err := resilience.Execute(ctx, v.exec, "validate_coupon", func(ctx context.Context) (*Coupon, error) {
		var (
			c        Coupon
			maxDisc  decimal.NullDecimal
			discType string
		)
		err := v.db.QueryRowContext(ctx, `
			SELECT id, code, discount_type, discount_value, max_discount_amount, scope
			FROM coupons
			WHERE upper(code) = $1
			  AND is_active
			  AND (valid_from IS NULL OR valid_from <= now())
			  AND (valid_until IS NULL OR valid_until > now())
			  AND (scope = $2 OR scope = 'all')
			  AND (usage_limit IS NULL OR usage_count < usage_limit)`, code, scope).
			Scan(&c.ID, &c.Code, &discType, &c.DiscountValue, &maxDisc, &c.Scope)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvalidCoupon
		}
		if err != nil {
			return nil, err
		}
		c.DiscountType = DiscountType(discType)
		if maxDisc.Valid {
			c.MaxDiscountAmount = &maxDisc.Decimal
		}
		return &c, nil
	})
	if err != nil {
		return nil, err
	}

	v.store(ctx, scope, code, c)
	return c, nil
}

func (v *PostgresValidator) cached(ctx context.Context, scope, code string) *Coupon {
	if v.redis == nil {
		return nil
	}
	data, err := v.redis.Get(ctx, cacheKey(scope, code)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			v.logger.Warn("coupon cache read failed", zap.Error(err))
		}
		return nil
	}
	var c Coupon
	if err := json.Unmarshal(data, &c); err != nil {
		return nil
	}
	return &c
}

func (v *PostgresValidator) store(ctx context.Context, scope, code string, c *Coupon) {
	if v.redis == nil {
		return
	}
	data, err := json.Marshal(c)
	if err != nil {
		return
	}
	if err := v.redis.Set(ctx, cacheKey(scope, code), data, cacheTTL).Err(); err != nil {
		v.logger.Warn("coupon cache write failed", zap.Error(err))
	}
}
