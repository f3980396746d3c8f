package services

import (
	"context"
	"fmt"

	"github.com/prostay/apiserver/types"
)

// Counter counts all rows of a table.
type Counter interface {
	Count(ctx context.Context) (int, error)
}

// LandlordCounter counts the rows belonging to one landlord.
type LandlordCounter interface {
	CountByLandlord(ctx context.Context, landlordID int) (int, error)
}

// StatsSource is a table that can be counted in full and per landlord.
type StatsSource interface {
	Counter
	LandlordCounter
}

// StatsService computes dashboard counters.
type StatsService struct {
	users      Counter
	properties StatsSource
	bookings   StatsSource
	payments   StatsSource
}

func NewStatsService(users Counter, properties, bookings, payments StatsSource) *StatsService {
	return &StatsService{
		users:      users,
		properties: properties,
		bookings:   bookings,
		payments:   payments,
	}
}

func (s *StatsService) Landlord(ctx context.Context, landlordID int) (types.LandlordStats, error) {
	var stats types.LandlordStats
	var err error
	if stats.Properties, err = s.properties.CountByLandlord(ctx, landlordID); err != nil {
		return types.LandlordStats{}, fmt.Errorf("count properties: %w", err)
	}
	if stats.Booked, err = s.bookings.CountByLandlord(ctx, landlordID); err != nil {
		return types.LandlordStats{}, fmt.Errorf("count bookings: %w", err)
	}
	if stats.Payments, err = s.payments.CountByLandlord(ctx, landlordID); err != nil {
		return types.LandlordStats{}, fmt.Errorf("count payments: %w", err)
	}
	return stats, nil
}

func (s *StatsService) Admin(ctx context.Context) (types.AdminStats, error) {
	var stats types.AdminStats
	var err error
	if stats.Users, err = s.users.Count(ctx); err != nil {
		return types.AdminStats{}, fmt.Errorf("count users: %w", err)
	}
	if stats.Properties, err = s.properties.Count(ctx); err != nil {
		return types.AdminStats{}, fmt.Errorf("count properties: %w", err)
	}
	if stats.Bookings, err = s.bookings.Count(ctx); err != nil {
		return types.AdminStats{}, fmt.Errorf("count bookings: %w", err)
	}
	if stats.Payments, err = s.payments.Count(ctx); err != nil {
		return types.AdminStats{}, fmt.Errorf("count payments: %w", err)
	}
	return stats, nil
}
