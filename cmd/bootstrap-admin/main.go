// bootstrap-admin 给指定邮箱授予 admin 角色（首次部署用）。
// 用户不存在时以 ECOLINK_BOOTSTRAP_PASSWORD 创建，随后吊销其旧令牌。
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/redis/go-redis/v9"

	"github.com/ecolink-dev/ecolink/config"
	"github.com/ecolink-dev/ecolink/internal/auth"
	"github.com/ecolink-dev/ecolink/internal/model"
	"github.com/ecolink-dev/ecolink/internal/repository"
	"github.com/ecolink-dev/ecolink/pkg/database"
)

func must[T any](v T, err error) T { if err != nil { panic(err) }; return v }

func main() {
	email := flag.String("email", "", "target account email")
	flag.Parse()
	if *email == "" {
		fmt.Fprintln(os.Stderr, "usage: bootstrap-admin -email admin@example.com")
		os.Exit(2)
	}

	cfg := must(config.Load())
	db := must(database.Open(cfg.Database.DSN))
	users := must(repository.NewUserRepository(db))

	ctx := context.Background()
	u, err := users.GetByEmail(ctx, *email)
	if err != nil {
		password := os.Getenv("ECOLINK_BOOTSTRAP_PASSWORD")
		if password == "" {
			fmt.Fprintln(os.Stderr, "user not found and ECOLINK_BOOTSTRAP_PASSWORD unset")
			os.Exit(1)
		}
		u = must(users.Create(ctx, *email, password, "Administrator", model.RoleAdmin))
	}

	if err := users.SetRole(ctx, u.ID, model.RoleAdmin); err != nil {
		panic(err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	revocations := auth.NewRevocationStore(rdb, cfg.JWT.TTL)
	if err := revocations.Revoke(ctx, u.ID); err != nil {
		fmt.Fprintf(os.Stderr, "warning: revoke failed: %v\n", err)
	}

	fmt.Printf("done: %s is admin now, sign out and back in\n", *email)
}
