package service

import (
	postgres "github.com/astralune/dome-go/internal/repository/postgres"
	redis "github.com/astralune/dome-go/internal/repository/redis"
	"github.com/astralune/dome-go/internal/service/booking"
	"github.com/astralune/dome-go/internal/service/catalog"
	"github.com/astralune/dome-go/internal/service/query"
	"github.com/astralune/dome-go/internal/service/schedule"
)

type Services struct {
	Catalog  *catalog.Service
	Schedule *schedule.Service
	Booking  *booking.Service
	Query    *query.Service
}

type Config struct {
	Catalog catalog.Config
	Booking booking.Config
	Query   query.Config
}

func NewServices(
	store *postgres.Store,
	cache *redis.Cache,
	pubsub *redis.SeasonsPubSub,
	limiter *redis.SlidingWindowLimiter,
	cfg Config,
) *Services {
	return &Services{
		Catalog:  catalog.New(store, cache, cfg.Catalog),
		Schedule: schedule.New(store),
		Booking:  booking.New(store.Schedule(), store.Bookings(), cache, pubsub, limiter, cfg.Booking),
		Query:    query.New(store, cache, cfg.Query),
	}
}
