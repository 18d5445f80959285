package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"syscall"

	"github.com/redis/go-redis/v9"
	"golang.org/x/term"

	httpadapter "github.com/visionstage/diagram-agent/internal/adapters/http"
	"github.com/visionstage/diagram-agent/internal/adapters/snowflake"
	memstore "github.com/visionstage/diagram-agent/internal/adapters/storage/memory"
	redisstore "github.com/visionstage/diagram-agent/internal/adapters/storage/redis"
	"github.com/visionstage/diagram-agent/internal/app/analysis"
	"github.com/visionstage/diagram-agent/internal/config"
	"github.com/visionstage/diagram-agent/internal/domain"
)

func main() {
	ctx := context.Background()
	cfg := config.Load()

	// Choose between mock and Snowflake by ENV (useful for dev)
	var (
		stage     domain.Stage
		completer domain.Completer
	)

	if cfg.UseMockWarehouse {
		log.Println("[WAREHOUSE] Using MOCK stage and completer")
		stage = snowflake.NewMockStage()
		completer = snowflake.NewMockCompleter()
	} else {
		log.Println("[WAREHOUSE] Using Snowflake stage and Cortex completer")
		if err := cfg.Validate(); err != nil {
			log.Fatalf("invalid configuration: %v", err)
		}

		key, err := snowflake.LoadPrivateKey(cfg.PrivateKeyPath, keyPassphrase(cfg))
		if err != nil {
			log.Fatalf("error loading private key: %v", err)
		}

		session := snowflake.NewSession(snowflake.SessionConfig{
			Account:    cfg.Account,
			User:       cfg.User,
			Role:       cfg.Role,
			Warehouse:  cfg.Warehouse,
			Database:   cfg.Database,
			Schema:     cfg.Schema,
			PrivateKey: key,
		})
		defer session.Close()

		uploader, err := snowflake.NewStageUploader(session, cfg.Stage)
		if err != nil {
			log.Fatalf("error initializing stage uploader: %v", err)
		}
		cortex, err := snowflake.NewCortexCompleter(session, cfg.Stage, cfg.Model)
		if err != nil {
			log.Fatalf("error initializing cortex completer: %v", err)
		}

		stage = uploader
		completer = cortex
	}

	// Storage: Redis or Memory
	var sessionStore domain.SessionStore
	var turnStore domain.TurnStore

	switch cfg.StorageBackend {
	case "redis":
		log.Printf("[STORE] Using Redis storage (addr=%s)", cfg.RedisAddr)
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			log.Fatalf("error connecting to Redis: %v", err)
		}

		// 1 store, implements 2 interfaces
		store := redisstore.NewStore(client, 0)
		defer store.Close()
		sessionStore = store
		turnStore = store

	default:
		log.Println("[STORE] Using in-memory storage")
		sessionStore = memstore.NewSessionStore()
		turnStore = memstore.NewTurnStore()
	}

	// Analysis Service
	svc := analysis.NewService(stage, completer, sessionStore, turnStore)

	// HTTP server
	handler := httpadapter.NewServer(svc)

	port := ":" + cfg.Port
	log.Println("Diagram API listening on port:", port)
	if err := http.ListenAndServe(port, handler); err != nil {
		log.Fatal(err)
	}
}

// keyPassphrase returns the configured passphrase, prompting on the
// terminal when the key is encrypted and nothing was configured.
func keyPassphrase(cfg *config.Config) string {
	if cfg.PrivateKeyPassphrase != "" {
		return cfg.PrivateKeyPassphrase
	}

	encrypted, err := snowflake.KeyIsEncrypted(cfg.PrivateKeyPath)
	if err != nil {
		log.Fatalf("error reading private key: %v", err)
	}
	if !encrypted || !term.IsTerminal(int(syscall.Stdin)) {
		return ""
	}

	fmt.Print("Enter private key passphrase: ")
	raw, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		log.Fatalf("error reading passphrase: %v", err)
	}
	return strings.TrimSpace(string(raw))
}
