package services

import (
	"context"
	"fmt"
	"time"
)

// OrderNumberGenerator hands out ORD-<year>-<6 digit sequence> identifiers.
type OrderNumberGenerator interface {
	Next(ctx context.Context) (string, error)
}

// OrderCounter counts orders created at or after a moment, soft-deleted
// ones included.
type OrderCounter interface {
	CountCreatedSince(ctx context.Context, since time.Time) (int64, error)
}

func formatOrderNumber(year int, seq int64) string {
	return fmt.Sprintf("ORD-%d-%06d", year, seq)
}

func startOfYear(t time.Time) time.Time {
	return time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
}

// CountingOrderNumbers derives the sequence from the number of orders created
// this year. Two concurrent creates can receive the same number; the unique
// index on order_number rejects the second insert.
type CountingOrderNumbers struct {
	orders OrderCounter
	now    func() time.Time
}

func NewCountingOrderNumbers(orders OrderCounter) *CountingOrderNumbers {
	return &CountingOrderNumbers{orders: orders, now: time.Now}
}

func (g *CountingOrderNumbers) Next(ctx context.Context) (string, error) {
	now := g.now().UTC()
	count, err := g.orders.CountCreatedSince(ctx, startOfYear(now))
	if err != nil {
		return "", storeErr("error generating order number", err)
	}
	return formatOrderNumber(now.Year(), count+1), nil
}

// Sequence is an atomic per-key counter.
type Sequence interface {
	Exists(ctx context.Context, key string) (bool, error)
	// Seed sets key to value only if it is not already set.
	Seed(ctx context.Context, key string, value int64) error
	Incr(ctx context.Context, key string) (int64, error)
}

// RedisOrderNumbers increments a per-year counter. The counter is seeded once
// from the order count so numbering continues from existing rows.
type RedisOrderNumbers struct {
	seq    Sequence
	orders OrderCounter
	now    func() time.Time
}

func NewRedisOrderNumbers(seq Sequence, orders OrderCounter) *RedisOrderNumbers {
	return &RedisOrderNumbers{seq: seq, orders: orders, now: time.Now}
}

func orderSequenceKey(year int) string {
	return fmt.Sprintf("order_seq:%d", year)
}

func (g *RedisOrderNumbers) Next(ctx context.Context) (string, error) {
	now := g.now().UTC()
	key := orderSequenceKey(now.Year())

	seeded, err := g.seq.Exists(ctx, key)
	if err != nil {
		return "", storeErr("error generating order number", err)
	}
	if !seeded {
		count, err := g.orders.CountCreatedSince(ctx, startOfYear(now))
		if err != nil {
			return "", storeErr("error generating order number", err)
		}
		if err := g.seq.Seed(ctx, key, count); err != nil {
			return "", storeErr("error generating order number", err)
		}
	}

	n, err := g.seq.Incr(ctx, key)
	if err != nil {
		return "", storeErr("error generating order number", err)
	}
	return formatOrderNumber(now.Year(), n), nil
}
