package main

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/firmos/backend/internal/api"
	"github.com/firmos/backend/internal/audit"
	"github.com/firmos/backend/internal/autonomy"
	"github.com/firmos/backend/internal/config"
	"github.com/firmos/backend/internal/database"
	"github.com/firmos/backend/internal/events"
	"github.com/firmos/backend/internal/guardian"
	"github.com/firmos/backend/internal/incidents"
	"github.com/firmos/backend/internal/infra"
	"github.com/firmos/backend/internal/metrics"
	"github.com/firmos/backend/internal/permissions"
	"github.com/firmos/backend/internal/release"
)

func main() {
	log.Println("🔥 Starting FirmOS Decision Engine...")

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	// 1. Configuration + catalog
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		log.Printf("⚠️  No config at %s (%v), using defaults", cfgPath, err)
		cfg = &config.Config{}
	}

	catalog, err := config.NewCatalog(cfg.Catalog)
	if err != nil {
		log.Fatalf("Invalid catalog: %v", err)
	}

	m := metrics.New()

	// 2. Event bus: Pub/Sub when configured, else Redis, else in-memory.
	var bus *events.EventBus
	var emitter events.EventEmitter

	switch {
	case cfg.Events.PubSubProject != "" && cfg.Events.PubSubTopic != "":
		pubsubBus, err := events.NewPubSubEventBus(cfg.Events.PubSubProject, cfg.Events.PubSubTopic)
		if err != nil {
			log.Printf("⚠️  Pub/Sub unavailable (%v), falling back to in-memory bus", err)
			bus = events.NewEventBus()
			emitter = bus
		} else {
			defer pubsubBus.Close()
			bus = pubsubBus.EventBus
			emitter = pubsubBus
		}
	case cfg.Events.RedisAddr != "":
		redisClient, err := infra.NewGoRedisAdapter(cfg.Events.RedisAddr, cfg.Events.RedisPassword, cfg.Events.RedisDB)
		if err != nil {
			log.Printf("⚠️  Redis unavailable (%v), falling back to in-memory bus", err)
			bus = events.NewEventBus()
			emitter = bus
		} else {
			redisBus := events.NewRedisEventBus(redisClient, "")
			defer redisBus.Close()
			bus = redisBus.EventBus
			emitter = redisBus
		}
	default:
		bus = events.NewEventBus()
		emitter = bus
	}

	// 3. Audit sink: Postgres when configured, else process log.
	var sink audit.Sink
	if cfg.Audit.PostgresDSN != "" {
		pgSink, err := audit.NewPostgresSink(cfg.Audit.PostgresDSN)
		if err != nil {
			log.Printf("⚠️  Postgres audit sink unavailable (%v), logging audit records instead", err)
			sink = audit.NewLogSink()
		} else {
			defer pgSink.Close()
			sink = pgSink
		}
	} else {
		sink = audit.NewLogSink()
	}

	// 4. Persistence: Supabase when the env is set, else in-memory.
	var releaseStore release.Store = release.NewMemoryStore()
	var incidentStore incidents.Store = incidents.NewMemoryStore()
	var supabaseClient *database.SupabaseClient

	if sb, err := database.NewSupabaseClient(); err != nil {
		log.Printf("⚠️  Supabase not configured (%v), using in-memory stores", err)
	} else {
		supabaseClient = sb
		releaseStore = database.NewSupabaseReleaseStore(sb)
		incidentStore = database.NewSupabaseIncidentStore(sb)
		log.Println("✅ Supabase persistence enabled")
	}
	registry := database.NewWorkstreamRegistry(supabaseClient)

	// 5. Decision engines
	evaluator := autonomy.NewEvaluator()
	checker := guardian.NewEngine(catalog.PackJurisdictions(), catalog.EvidenceMinimums())
	gate := permissions.NewGate(catalog, m)
	incidentLog := incidents.NewLog(incidentStore, sink, emitter, m)
	qc := release.NewGuardianQC(checker, registry)
	releases := release.NewManager(releaseStore, qc, incidentLog, sink, emitter, m)

	// 6. API server
	server := api.NewServer(evaluator, checker, gate, releases, incidentLog, registry, bus, emitter, m)

	port := 8080
	if p := os.Getenv("PORT"); p != "" {
		if n, err := strconv.Atoi(p); err == nil {
			port = n
		}
	} else if cfg.Server.Port != "" {
		if n, err := strconv.Atoi(cfg.Server.Port); err == nil {
			port = n
		}
	}

	if err := server.Start(port); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
