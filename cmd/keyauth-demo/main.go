package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/keyauth-community/keyauth-go/pkg/client"
	"github.com/keyauth-community/keyauth-go/pkg/config"
	"github.com/keyauth-community/keyauth-go/pkg/events"
	"github.com/keyauth-community/keyauth-go/pkg/metrics"
	"github.com/keyauth-community/keyauth-go/pkg/version"
)

func main() {
	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil {
		log.Println("no .env file found, using system environment variables")
	}

	info := version.GetInfo()
	fmt.Printf("%s %s (%s, %s)\n", info.AppName, info.Version, info.GoVersion, info.Platform)

	cfg, err := config.Load(os.Getenv("KEYAUTH_CONFIG_PATH"))
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	registry := prometheus.NewRegistry()
	c, err := client.New(cfg, client.WithMetrics(metrics.NewCollector(registry)))
	if err != nil {
		log.Fatalf("failed to build client: %v", err)
	}

	c.On(events.EventRateLimit, func(evt events.Event) {
		if rl, ok := evt.(events.RateLimitEvent); ok {
			fmt.Printf("rate limited: %s\n", rl.Message)
		}
	})
	c.On(events.EventError, func(evt events.Event) {
		if e, ok := evt.(events.ErrorEvent); ok {
			fmt.Printf("error [%s] %s: %s\n", e.Err.Kind, e.Err.Operation, e.Err.Message)
		}
	})
	c.Once(events.EventMetadata, func(evt events.Event) {
		if m, ok := evt.(events.MetadataEvent); ok {
			fmt.Printf("app version %s, %s users, %s online\n",
				m.AppInfo.Version, m.AppInfo.NumUsers, m.AppInfo.NumOnlineUsers)
		}
	})

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	resp, err := c.Init(ctx)
	if err != nil {
		log.Fatalf("init: %v", err)
	}
	if !resp.Success {
		log.Fatalf("init rejected: %s", resp.Message)
	}
	fmt.Println("initialized, session", c.SessionID())

	username := os.Getenv("KEYAUTH_DEMO_USERNAME")
	password := os.Getenv("KEYAUTH_DEMO_PASSWORD")
	if username == "" || password == "" {
		fmt.Println("set KEYAUTH_DEMO_USERNAME / KEYAUTH_DEMO_PASSWORD to exercise login")
		return
	}

	resp, err = c.Login(ctx, username, password, "")
	if err != nil {
		log.Fatalf("login: %v", err)
	}
	if !resp.Success {
		log.Fatalf("login rejected: %s", resp.Message)
	}
	fmt.Printf("logged in as %s\n", c.User().Username)

	if resp, err = c.Check(ctx); err == nil && resp.Success {
		fmt.Println("session is valid")
	}

	if _, err = c.Log(ctx, "demo session started", username); err != nil {
		log.Printf("log: %v", err)
	}
}
