package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"social_relay/internal/config"
	dao "social_relay/internal/dao/mysql"
	"social_relay/internal/dao/mysql/repository"
	myredis "social_relay/internal/dao/redis"
	"social_relay/internal/gateway/websocket"
	"social_relay/internal/handler"
	"social_relay/internal/https_server"
	"social_relay/internal/infrastructure/logger"
	"social_relay/internal/service"
	"social_relay/internal/service/chat"
	"social_relay/pkg/util/jwt"
	"social_relay/pkg/util/snowflake"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "", "配置文件路径，为空时按默认路径查找")
	flag.Parse()

	// 1. 加载配置
	conf, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config failed: %v", err)
	}

	// 2. 初始化日志
	if err := logger.Init(&conf.LogConfig, conf.Mode); err != nil {
		log.Fatalf("init logger failed: %v", err)
	}
	defer func() { _ = zap.L().Sync() }()
	zap.L().Info("日志初始化成功")
	gin.SetMode(conf.Mode)

	// 3. 雪花 ID 与 JWT
	if err := snowflake.Init(conf.SnowflakeConfig.MachineID); err != nil {
		zap.L().Fatal("snowflake 初始化失败", zap.Error(err))
	}
	jwt.Init(conf.JWTConfig.Secret, conf.JWTConfig.AccessTokenExpiry)
	if err := handler.InitTrans("zh"); err != nil {
		zap.L().Fatal("validator 翻译器初始化失败", zap.Error(err))
	}

	// 4. 初始化数据库并迁移表结构
	db, err := dao.Open(conf.MysqlConfig)
	if err != nil {
		zap.L().Fatal("数据库初始化失败", zap.Error(err))
	}
	repos := repository.NewRepositories(db)
	zap.L().Info("数据库初始化成功")

	// 5. 初始化 Redis，不可用时会话查询直接读库
	var cache myredis.AsyncCacheService
	if client, err := myredis.NewClient(conf.RedisConfig); err != nil {
		zap.L().Warn("Redis 不可用，关闭会话缓存", zap.Error(err))
	} else {
		redisCache := myredis.NewRedisCache(client, conf.Workers, conf.QueueSize)
		defer redisCache.Close()
		cache = redisCache
		zap.L().Info("Redis 初始化成功")
	}

	// 6. 初始化连接注册表、网关和 ChatServer
	registry := chat.NewConnRegistry()
	gateway := websocket.NewGateway(registry, conf.DeliveryConfig)
	chatServer := chat.NewChatServer(chat.ChatServerConfig{
		Registry: registry,
		Pusher:   gateway,
		Kafka:    conf.KafkaConfig,
		NodeID:   conf.SnowflakeConfig.MachineID,
	})
	chatServer.Start()

	// 7. 初始化 Service 层 (依赖注入)
	svcs := service.NewServices(repos, chatServer.Dispatcher, cache, conf.DeliveryConfig)
	gateway.SetMessageService(svcs.Message)

	// 8. 初始化 HTTP 服务器
	engine := https_server.Init(conf, handler.NewHandlers(svcs, gateway, chatServer))
	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", conf.MainConfig.Host, conf.MainConfig.Port),
		Handler: engine,
	}
	go func() {
		zap.L().Info("服务启动", zap.String("addr", srv.Addr), zap.String("mode", chatServer.Mode()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zap.L().Fatal("server running fault", zap.Error(err))
		}
	}()

	// 等待信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zap.L().Info("关闭服务器...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		zap.L().Error("http server shutdown", zap.Error(err))
	}
	gateway.Shutdown()
	chatServer.Close()

	zap.L().Info("服务器已关闭")
}
