package main

import (
	"github.com/rs/zerolog/log"

	"github.com/fm-yodai/flash-vote/internal/auth"
	"github.com/fm-yodai/flash-vote/internal/config"
	"github.com/fm-yodai/flash-vote/internal/db"
	clog "github.com/fm-yodai/flash-vote/internal/log"
	"github.com/fm-yodai/flash-vote/internal/server"
	"github.com/fm-yodai/flash-vote/internal/ws"
)

func main() {
	// main 负责加载配置、初始化日志、连接数据库并启动 Gin 服务。
	// 配置校验失败（例如缺少 pepper）直接拒绝启动。
	cfg := config.Load()
	clog.Init(cfg.Env)

	if err := config.Validate(cfg); err != nil {
		log.Fatal().Err(err).Msg("config validate")
	}

	authority, err := auth.NewAuthority(cfg.HostTokenPepper)
	if err != nil {
		log.Fatal().Err(err).Msg("token authority")
	}

	gdb, err := db.Connect(cfg.DatabaseDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("db connect")
	}
	if err := db.Migrate(gdb); err != nil {
		log.Fatal().Err(err).Msg("db migrate")
	}

	hub := ws.NewHub()
	r := server.SetupRouter(cfg, gdb, authority, hub)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatal().Err(err).Msg("server run")
	}
}
