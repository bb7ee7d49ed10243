package main

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/magokoro/onigiri-reservation/internal/booking"
	"github.com/magokoro/onigiri-reservation/internal/config"
	"github.com/magokoro/onigiri-reservation/internal/conversation"
	"github.com/magokoro/onigiri-reservation/internal/database"
	"github.com/magokoro/onigiri-reservation/internal/handler"
	"github.com/magokoro/onigiri-reservation/internal/model"
	"github.com/magokoro/onigiri-reservation/internal/queue"
	"github.com/magokoro/onigiri-reservation/internal/repository"
	"github.com/magokoro/onigiri-reservation/internal/router"
	queue_publisher "github.com/magokoro/onigiri-reservation/internal/service"
	"github.com/magokoro/onigiri-reservation/internal/utils"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()
	policyCfg := config.LoadPolicyConfig()
	rlCfg := config.LoadRateLimitConfig()
	cacheCfg := config.LoadCacheConfig()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := database.EnsureSchema(ctx, db); err != nil {
		log.Fatalf("schema: %v", err)
	}
	if cfg.AdminEmail != "" && cfg.AdminPass != "" {
		hash, err := utils.HashPassword(cfg.AdminPass, cfg.BcryptCost)
		if err != nil {
			log.Fatalf("admin seed: %v", err)
		}
		if err := database.EnsureAdmin(ctx, db, cfg.AdminEmail, hash); err != nil {
			log.Fatalf("admin seed: %v", err)
		}
	}

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis unavailable; rate limiting and response caching disabled")
	}

	policy := booking.Policy{
		SlotCapacity:     uint32(policyCfg.SlotCapacity),
		MaxQuantity:      uint32(policyCfg.MaxQuantity),
		MaxActivePerUser: policyCfg.MaxActivePerUser,
		LeadTime:         policyCfg.LeadTime,
		DaysAhead:        policyCfg.DaysAhead,
	}

	ledger := repository.NewCapacityRepo(db, policy.SlotCapacity)
	menuRepo := repository.NewMenuRepo(db)
	userRepo := repository.NewUserRepo(db)
	resRepo := repository.NewReservationRepo(db)
	calRepo := repository.NewCalendarRepo(db)
	adminRepo := repository.NewAdminRepo(db)

	engine := booking.NewEngine(ledger, menuRepo, userRepo, resRepo, calRepo, policy)
	engine.OnConfirmed = func(ctx context.Context, r model.Reservation) {
		ev := queue.ReservationConfirmedEvent{
			ReservationID: r.ID,
			UserID:        r.UserID,
			Date:          r.Slot.Date,
			TimeSlot:      r.Slot.Time,
			ItemName:      r.ItemName,
			Quantity:      r.Quantity,
			TotalPrice:    r.TotalPrice(),
			ConfirmedAt:   time.Now().UTC().Format(time.RFC3339),
		}
		// Publishing must never delay or fail the booking reply.
		go func() {
			pubCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = queue_publisher.PublishReservationConfirmed(pubCtx, ev)
		}()
	}

	machine := conversation.NewMachine(engine, conversation.StoreInfo{
		Name:    cfg.StoreName,
		Address: cfg.StoreAddress,
		Phone:   cfg.StorePhone,
	})

	go func() {
		if err := queue.StartReservationConsumer(); err != nil {
			log.Printf("reservation consumer stopped: %v", err)
		}
	}()

	e := echo.New()
	router.RegisterRoutes(e)
	router.RegisterWebhook(e, handler.NewWebhookHandler(machine, nil), rlCfg, rdb)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, adminRepo), cfg.JWTSecret)
	router.RegisterAdmin(e, handler.NewAdminHandler(engine, resRepo, menuRepo, calRepo, ledger), cfg.JWTSecret, cacheCfg, rdb)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
