package main // Entry point package

import (
    "log"
    "net/http"
    "time"

    "github.com/joho/godotenv"
    "github.com/labstack/echo/v4"
    echomw "github.com/labstack/echo/v4/middleware"

    "github.com/koshhq/kosh-backend/internal/config"
    "github.com/koshhq/kosh-backend/internal/database"
    "github.com/koshhq/kosh-backend/internal/handler"
    "github.com/koshhq/kosh-backend/internal/mailer"
    "github.com/koshhq/kosh-backend/internal/middleware"
    "github.com/koshhq/kosh-backend/internal/notify"
    "github.com/koshhq/kosh-backend/internal/presence"
    "github.com/koshhq/kosh-backend/internal/queue"
    "github.com/koshhq/kosh-backend/internal/repository"
    "github.com/koshhq/kosh-backend/internal/router"
    "github.com/koshhq/kosh-backend/internal/ws"
)

func main() {
    // .env is a development convenience; in production config comes from
    // the real environment and the file is simply absent.
    _ = godotenv.Load()

    cfg := config.Load()

    db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
    if err != nil {
        log.Fatalf("database: %v", err)
    }
    defer db.Close()

    // Redis is optional: rate limiting and the response cache fail open,
    // presence falls back to instance-local tracking.
    rdb := config.NewRedisClient()

    users := repository.NewUserRepo(db)
    otps := repository.NewOTPRepo(db)
    tokens := repository.NewTokenRepo(db)
    conns := repository.NewConnectionRepo(db)
    messages := repository.NewMessageRepo(db)
    notifications := repository.NewNotificationRepo(db)
    items := repository.NewItemRepo(db)
    reviews := repository.NewReviewRepo(db)
    tasks := repository.NewTaskRepo(db)

    pres := presence.NewStore(rdb, 60*time.Second)
    hub := ws.NewHub(messages, users, pres)
    notifier := notify.New(notifications, hub)
    mail := mailer.New(cfg)

    // Broker consumers run for the life of the process and reconnect on
    // their own; a broker outage degrades fan-out, not the API.
    go queue.StartConsumers(mail)

    authH := handler.NewAuthHandler(cfg, users, otps, tokens, mail)
    mentorH := handler.NewMentorshipHandler(conns, users, reviews, notifier)
    marketH := handler.NewMarketplaceHandler(items, reviews, conns, users, notifier)
    chatH := handler.NewChatHandler(messages, users, hub, pres)
    notifH := handler.NewNotificationHandler(notifications)
    taskH := handler.NewTaskHandler(tasks)

    e := echo.New()
    e.HideBanner = true
    e.Use(echomw.Recover())
    e.Use(echomw.Logger())
    e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
        AllowOrigins:     []string{cfg.FrontendOrigin},
        AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
        AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAuthorization},
        AllowCredentials: true,
    }))
    e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))

    loginLimit := middleware.NewTokenBucket(config.FixedLimit("rl:login", 5, 15*time.Minute), rdb)
    otpLimit := middleware.NewTokenBucket(config.FixedLimit("rl:otp", 3, 5*time.Minute), rdb)
    cache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)

    router.RegisterRoutes(e)
    router.RegisterAuth(e, authH, cfg.JWTSecret, users, loginLimit, otpLimit)
    router.RegisterMentorship(e, mentorH, cfg.JWTSecret, users)
    router.RegisterMarketplace(e, marketH, cfg.JWTSecret, users, cache)
    router.RegisterChat(e, chatH, cfg.JWTSecret, users)
    router.RegisterNotifications(e, notifH, cfg.JWTSecret, users)
    router.RegisterTasks(e, taskH, cfg.JWTSecret, users)
    router.RegisterWS(e, hub, cfg.JWTSecret)

    addr := ":" + cfg.Port
    log.Printf("listening on %s (env=%s)", addr, cfg.Env)
    if err := e.Start(addr); err != nil {
        log.Fatal(err)
    }
}
