package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"bhsi/pkg/config"
	"bhsi/pkg/core/cache"
	"bhsi/pkg/core/classify"
	"bhsi/pkg/core/llm"
	"bhsi/pkg/core/pipeline"
	"bhsi/pkg/core/retrieval"
	"bhsi/pkg/core/sources"
	"bhsi/pkg/core/vectorstore"
	"bhsi/pkg/core/warehouse"
	"bhsi/pkg/core/writequeue"

	"github.com/joho/godotenv"
)

func main() {
	company := flag.String("company", "", "company name to search and classify")
	ask := flag.String("ask", "", "ask a D&O risk question against the grounded RAG index")
	assess := flag.Bool("assess", false, "produce a full risk assessment for -company after searching")
	daysBack := flag.Int("days", 7, "lookback window in days")
	flag.Parse()

	if err := godotenv.Load(".env"); err != nil {
		log.Println("Warning: .env file not found, assuming environment variables are set.")
	}

	cfg, err := config.Load("", "config/pipeline.yaml")
	if err != nil {
		log.Fatalf("Error loading configuration: %v", err)
	}

	fmt.Println("D&O RISK INTELLIGENCE PIPELINE Starting...")

	ctx := context.Background()

	store, err := warehouse.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Error: could not connect to warehouse: %v", err)
	}
	defer store.Close()

	var l2 cache.L2
	if cfg.RedisURL != "" {
		redisL2, err := cache.NewRedisL2(cfg.RedisURL)
		if err != nil {
			log.Printf("Warning: Redis L2 cache disabled: %v", err)
		} else {
			l2 = redisL2
		}
	}

	tier, err := cache.NewTier(cache.Config{
		L1Size: cfg.CacheL1Size, L1TTL: cfg.CacheL1TTL, L2TTL: cfg.CacheL2TTL, CacheAge: cfg.CacheAge(),
	}, l2, store)
	if err != nil {
		log.Fatalf("Error constructing cache tier: %v", err)
	}

	queue := writequeue.New(store, time.Duration(cfg.WriteQueueTickSecs)*time.Second)
	queue.Start(ctx)
	defer queue.Shutdown()

	gate := classify.NewGate()
	llmClassifier := classify.NewLLMClassifier(cfg.ClassifyURL, nil)
	hybrid := classify.NewHybrid(gate, llmClassifier)

	orchestrator := sources.NewOrchestrator(buildAdapters(cfg), 20*time.Second)

	var vstore *vectorstore.Store
	var embedder *llm.HTTPEmbedder
	if cfg.EnableEmbedding && cfg.EmbedURL != "" {
		embedder = llm.NewHTTPEmbedder(cfg.EmbedURL, nil)
		vstore = buildVectorStore(cfg, store)
	}

	pipelineCfg := pipeline.Config{
		EnableEmbedding: cfg.EnableEmbedding, MaxDocumentsToEmbed: cfg.MaxDocsToEmbed, DaysBackDefault: *daysBack,
	}
	var vectorAdder pipeline.VectorAdder
	if vstore != nil {
		vectorAdder = vstore
	}
	var embedderIface pipeline.Embedder
	if embedder != nil {
		embedderIface = embedder
	}
	pl := pipeline.New(pipelineCfg, tier, orchestrator, hybrid, queue, vectorAdder, embedderIface)

	switch {
	case *ask != "":
		runAsk(ctx, cfg, vstore, *ask, *company)
	case *company != "" && *assess:
		runAssess(ctx, pl, *company, *daysBack)
	case *company != "":
		runSearch(ctx, pl, *company, *daysBack)
	default:
		fmt.Println("Usage: pipeline -company \"Ejemplo SA\" [-assess] [-days 7] | -ask \"question\" [-company ...]")
	}
}

func runSearch(ctx context.Context, pl *pipeline.Pipeline, company string, daysBack int) {
	env := pl.Search(ctx, company, sources.Window{DaysBack: daysBack})
	fmt.Printf("\n[RESULTS] %s: %d documents (%s, %dms)\n", company, len(env.Results), env.CacheInfo.SearchMethod, env.Performance.ElapsedMS)
	for _, r := range env.Results {
		fmt.Printf("  - %s\n", r.Title)
	}
}

func runAssess(ctx context.Context, pl *pipeline.Pipeline, company string, daysBack int) {
	a := pl.Assess(ctx, "cli-operator", company, sources.Window{DaysBack: daysBack})

	fmt.Printf("\n[ASSESSMENT] %s — overall risk: %s (composite %.1f)\n", company, a.OverallRisk, a.CompositeScore)
	for _, f := range a.KeyFindings {
		fmt.Printf("  finding: %s\n", f)
	}
	for _, r := range a.Recommendations {
		fmt.Printf("  recommendation: %s\n", r)
	}
}

func runAsk(ctx context.Context, cfg config.Config, vstore *vectorstore.Store, question, company string) {
	if vstore == nil {
		fmt.Println("RAG is disabled: set EMBED_URL and enable_embedding (config/pipeline.yaml) to use -ask.")
		return
	}
	embedder := llm.NewHTTPEmbedder(cfg.EmbedURL, nil)
	generator := llm.NewHTTPProvider(cfg.GenerateURL, nil)
	retriever := retrieval.NewRetriever(embedder, vstore)
	synth := retrieval.NewRAGSynthesizer(retriever, generator)

	ans := synth.Ask(ctx, question, 5, company, "es")
	fmt.Printf("\n[ANSWER] (confidence %.1f)\n%s\n", ans.Confidence, ans.AnswerText)
}

// buildVectorStore wires the warehouse tier (always present) plus the
// optional local chromem-go index and remote vector service. Each optional
// tier is passed to vectorstore.New only when it actually constructed
// successfully: handing a nil *ChromemLocal/*RemoteHTTP straight to an
// interface-typed parameter would produce a non-nil interface wrapping a
// nil pointer rather than a nil interface, and Store would wrongly believe
// the tier is configured.
func buildVectorStore(cfg config.Config, store *warehouse.Store) *vectorstore.Store {
	warehouseAdapter := vectorstore.NewWarehouseAdapter(store)

	local, err := vectorstore.NewChromemLocal("do-risk-events")
	if err != nil {
		log.Printf("Warning: local ANN index disabled: %v", err)
		local = nil
	}

	var remote *vectorstore.RemoteHTTP
	if cfg.VectorServiceURL != "" {
		remote = vectorstore.NewRemoteHTTP(cfg.VectorServiceURL, nil)
	}

	switch {
	case local != nil && remote != nil:
		return vectorstore.New(warehouseAdapter, local, remote, "default")
	case local != nil:
		return vectorstore.New(warehouseAdapter, local, nil, "default")
	case remote != nil:
		return vectorstore.New(warehouseAdapter, nil, remote, "default")
	default:
		return vectorstore.New(warehouseAdapter, nil, nil, "default")
	}
}

func buildAdapters(cfg config.Config) []sources.Adapter {
	var adapters []sources.Adapter
	if cfg.BOEBaseURL != "" {
		adapters = append(adapters, sources.NewBOEAdapter(cfg.BOEBaseURL, nil))
	}
	if cfg.NewsAPIBaseURL != "" && cfg.NewsAPIKey != "" {
		adapters = append(adapters, sources.NewNewsAPIAdapter(cfg.NewsAPIBaseURL, cfg.NewsAPIKey, nil))
	}
	for _, outlet := range sources.RSSOutlets {
		adapters = append(adapters, sources.NewRSSAdapter(outlet, rssFeedURL(outlet), nil))
	}
	if cfg.YahooChartBaseURL != "" {
		provider := sources.NewHTTPQuoteProvider(cfg.YahooChartBaseURL, nil)
		adapters = append(adapters, sources.NewYahooFinanceAdapter(provider, nil))
	}
	return adapters
}

var rssOutletHosts = map[string]string{
	"elpais": "elpais.com", "elmundo": "elmundo.es", "expansion": "expansion.com",
	"cincodias": "cincodias.elpais.com", "abc": "abc.es", "lavanguardia": "lavanguardia.com",
	"eleconomista": "eleconomista.es", "europapress": "europapress.es",
}

func rssFeedURL(outlet string) string {
	host, ok := rssOutletHosts[outlet]
	if !ok {
		host = strings.ToLower(outlet) + ".com"
	}
	return fmt.Sprintf("https://www.%s/rss/portada.xml", host)
}
