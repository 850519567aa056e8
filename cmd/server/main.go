package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"errand_market/internal/auth"
	"errand_market/internal/config"
	"errand_market/internal/directory"
	"errand_market/internal/lifecycle"
	"errand_market/internal/model"
	"errand_market/internal/queue"
	"errand_market/internal/router"

	"github.com/gin-gonic/gin"
	rd "github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// 1. 连接 Postgres，自动建表
	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
	if err != nil {
		log.Fatalf("db open: %v", err)
	}
	if err := db.AutoMigrate(&model.User{}, &model.Mess{}, &model.Request{}, &model.RequestEvent{}); err != nil {
		log.Fatalf("db migrate: %v", err)
	}
	if err := seedMesses(db); err != nil {
		log.Fatalf("seed messes: %v", err)
	}

	rdb := rd.NewClient(&rd.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
	defer rdb.Close()

	producer := queue.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
	defer producer.Close()

	// 依赖全部显式注入：存储、档案、验证器都可以在测试里替换。
	outbox := queue.NewStreamOutbox(rdb, cfg.EventStream)
	store := lifecycle.NewStore(db, outbox)
	dir := directory.New(db)
	verifier := auth.NewFirebaseVerifier(cfg.FirebaseProjectID)

	stopCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 事件管道：outbox(Redis Stream) → relay → Kafka → consumer → 审计表
	relay := queue.NewRelay(rdb, producer, cfg.EventStream, cfg.EventGroup, cfg.EventConsumer)
	go relay.Run(stopCtx)

	consumer := queue.NewConsumer(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.KafkaGroupID, db, rdb)
	defer consumer.Close()
	go consumer.Run(stopCtx)

	if !cfg.DevMode {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()
	router.Setup(r, store, dir, verifier, rdb, cfg)

	server := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	log.Printf("errand market listening on %s", cfg.HTTPAddr)

	srvErr := make(chan error, 1)
	go func() {
		srvErr <- server.ListenAndServe()
	}()

	select {
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("server error: %v", err)
		}
	case <-stopCtx.Done():
		log.Printf("shutdown signal received, stopping server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Printf("server shutdown error: %v", err)
	}
	log.Printf("server stopped")
}

// seedMesses 在参照表为空时填入默认片区（本地开发便利；线上由运维灌数据）。
func seedMesses(db *gorm.DB) error {
	var count int64
	if err := db.Model(&model.Mess{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	blocks := []model.Mess{
		{MessBlock: "A Block"},
		{MessBlock: "B Block"},
		{MessBlock: "C Block"},
		{MessBlock: "D Block"},
	}
	return db.Create(&blocks).Error
}
