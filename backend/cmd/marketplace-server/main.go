package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/IBM/sarama"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"marketplace-service/backend/config"
	"marketplace-service/backend/internal/cache"
	"marketplace-service/backend/internal/events"
	"marketplace-service/backend/internal/httpapi/handlers"
	"marketplace-service/backend/internal/httpapi/middleware"
	"marketplace-service/backend/internal/mysqldb"
	"marketplace-service/backend/internal/notify"
	"marketplace-service/backend/internal/ws"
)

func initConfig() (*config.Config, error) {
	cfg := &config.Config{}
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	// 兼容从项目根目录或 backend 目录启动
	v.AddConfigPath("./backend/config")
	v.AddConfigPath("./config")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func main() {
	cfg, err := initConfig()
	if err != nil {
		log.Fatalf("init config failed: %v", err)
	}
	log.Printf("config: %+v", cfg)

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatalf("ping redis failed: %v", err)
	}
	defer rdb.Close()

	db, err := gorm.Open(mysql.Open(cfg.Mysql.DSN), &gorm.Config{})
	if err != nil {
		log.Fatalf("open mysql failed: %v", err)
	}

	// === 初始化 Kafka Producer ===
	kafkaCfg := sarama.NewConfig()
	// SyncProducer 必须开启 Return.Successes
	kafkaCfg.Producer.Return.Successes = true
	kafkaCfg.Producer.RequiredAcks = sarama.WaitForLocal
	producer, err := sarama.NewSyncProducer(cfg.Kafka.Brokers, kafkaCfg)
	if err != nil {
		log.Fatalf("connect kafka failed: %v", err)
	}
	defer producer.Close()

	// 审计事件走本地队列 + worker 重试发送，不阻塞请求链路
	auditSem := notify.NewSemaphoreControl()
	audit := notify.NewDispatcher(producer, cfg.Kafka.Topic, auditSem, notify.DispatcherOptions{
		//  Go 允许在数字里用下划线做分隔符，方便阅读
		QueueSize:   10_000,
		Workers:     4,
		MaxRetry:    3,
		BaseBackoff: 50 * time.Millisecond,
		MaxBackoff:  1 * time.Second,
	})

	store := cache.NewStore(rdb)
	presence := cache.NewRedisPresence(rdb)
	bus := events.NewBus(rdb)

	users := mysqldb.NewMySQLUserRepo(db)
	chats := mysqldb.NewMySQLChatRepo(db)
	messages := mysqldb.NewMySQLMessageRepo(db)
	notifications := mysqldb.NewMySQLNotificationRepo(db)
	bookings := mysqldb.NewMySQLBookingRepo(db)

	hub := ws.NewHub()
	gateway := ws.NewGateway(hub, presence, bus, store, users, chats, messages)
	// 订阅广播频道；进程退出时关掉订阅
	pubsub := gateway.Run(context.Background())
	defer pubsub.Close()

	h := &handlers.Handlers{
		Store:         store,
		Bus:           bus,
		Presence:      presence,
		Audit:         audit,
		Users:         users,
		Chats:         chats,
		Messages:      messages,
		Notifications: notifications,
		Bookings:      bookings,
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		// 允许任意来源（包含 file:// 场景的 Origin: null）；比 AllowOrigins:["*"] 更兼容
		AllowOriginFunc: func(origin string) bool { return true },
		AllowMethods:    []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:   []string{"Content-Length"},
		// 如果你不依赖 Cookie（多数 token 都放 Authorization），这里建议 false，避免某些浏览器对 * / null 的限制
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "ok"})
	})

	// 路由
	v1 := router.Group("/v1")
	v1.Use(middleware.AuthMiddleware(cfg.Auth.Secret))
	{
		v1.GET("/ws", gateway.HandleConnect)

		v1.GET("/performers", h.ListPerformers)
		v1.GET("/performers/search", h.SearchPerformers)

		v1.GET("/chats/:chatId/messages", h.ChatHistory)

		v1.GET("/notifications", h.ListNotifications)
		v1.POST("/notifications/:id/read", h.MarkNotificationRead)

		v1.GET("/bookings", h.ListBookings)
		v1.PATCH("/bookings/:id/status", h.UpdateBookingStatus)

		v1.GET("/online_users", h.OnlineUsers)
	}

	_ = router.Run(fmt.Sprintf(":%d", cfg.Running.Port))
}
