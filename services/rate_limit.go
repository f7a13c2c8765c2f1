// services/rate_limit.go
package services

import (
	"fmt"
	"sync"
	"time"

	"github.com/alphabatem/common/context"
	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"

	"github.com/lingoleap-app/lingo_api/shared"
)

// RateLimitService throttles the write-heavy endpoints (answer submissions,
// auth) with a fixed-window counter in Redis, falling back to an in-memory
// window when Redis is unavailable.
type RateLimitService struct {
	context.DefaultService

	configs map[string]*RateLimitConfig
	mutex   sync.RWMutex

	redisSvc *RedisService

	memory      map[string]*memoryWindow
	memoryMutex sync.Mutex
}

type RateLimitConfig struct {
	EndpointType string
	MaxRequests  int
	WindowSize   time.Duration
	IsActive     bool
}

type memoryWindow struct {
	count     int
	expiresAt time.Time
}

const RATE_LIMIT_SVC = "rate_limit_svc"

func (svc RateLimitService) Id() string {
	return RATE_LIMIT_SVC
}

func (svc *RateLimitService) Configure(ctx *context.Context) error {
	svc.configs = make(map[string]*RateLimitConfig)
	svc.memory = make(map[string]*memoryWindow)
	return svc.DefaultService.Configure(ctx)
}

func (svc *RateLimitService) Start() error {
	svc.redisSvc = svc.Service(REDIS_SVC).(*RedisService)
	svc.initDefaultConfigs()

	go svc.startMemoryCleanup()

	return nil
}

func (svc *RateLimitService) initDefaultConfigs() {
	svc.mutex.Lock()
	defer svc.mutex.Unlock()

	svc.configs = map[string]*RateLimitConfig{
		"login": {
			EndpointType: "login",
			MaxRequests:  10,
			WindowSize:   15 * time.Minute,
			IsActive:     true,
		},
		"register": {
			EndpointType: "register",
			MaxRequests:  5,
			WindowSize:   15 * time.Minute,
			IsActive:     true,
		},
		"submit": {
			EndpointType: "submit",
			MaxRequests:  120,
			WindowSize:   time.Minute,
			IsActive:     true,
		},
		"refill": {
			EndpointType: "refill",
			MaxRequests:  10,
			WindowSize:   time.Minute,
			IsActive:     true,
		},
	}
}

// Middleware limits per client: by authenticated user id when present,
// otherwise by IP.
func (svc *RateLimitService) Middleware(endpointType string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		svc.mutex.RLock()
		config, ok := svc.configs[endpointType]
		svc.mutex.RUnlock()

		if !ok || !config.IsActive {
			return c.Next()
		}

		client := c.IP()
		if userID, ok := c.Locals(shared.UserID).(string); ok && userID != "" {
			client = userID
		}

		allowed, err := svc.allow(endpointType, client, config)
		if err != nil {
			log.WithError(err).Warn("Rate limit check failed, allowing request")
			return c.Next()
		}
		if !allowed {
			return shared.ResponseJSON(c, fiber.StatusTooManyRequests, "Too Many Requests", nil)
		}

		return c.Next()
	}
}

func (svc *RateLimitService) allow(endpointType, client string, config *RateLimitConfig) (bool, error) {
	key := fmt.Sprintf("ratelimit:%s:%s", endpointType, client)

	if svc.redisSvc != nil && svc.redisSvc.Ready() {
		count, err := svc.redisSvc.IncrWithWindow(key, config.WindowSize)
		if err == nil {
			return count <= int64(config.MaxRequests), nil
		}
		log.WithError(err).Warn("Redis rate limit failed, falling back to memory")
	}

	return svc.allowInMemory(key, config), nil
}

func (svc *RateLimitService) allowInMemory(key string, config *RateLimitConfig) bool {
	svc.memoryMutex.Lock()
	defer svc.memoryMutex.Unlock()

	now := time.Now()
	window, ok := svc.memory[key]
	if !ok || now.After(window.expiresAt) {
		svc.memory[key] = &memoryWindow{count: 1, expiresAt: now.Add(config.WindowSize)}
		return true
	}

	window.count++
	return window.count <= config.MaxRequests
}

func (svc *RateLimitService) startMemoryCleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		now := time.Now()
		svc.memoryMutex.Lock()
		for key, window := range svc.memory {
			if now.After(window.expiresAt) {
				delete(svc.memory, key)
			}
		}
		svc.memoryMutex.Unlock()
	}
}
