package e2e

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	jwttoken "shebuilds/internal/jwt_token"
	"shebuilds/internal/ledger/events"
	ledgerhandler "shebuilds/internal/ledger/handler"
	ledgerservice "shebuilds/internal/ledger/service"
	ledgerstore "shebuilds/internal/ledger/store"
	"shebuilds/internal/ledger/store/credential"
	"shebuilds/internal/ledger/store/role"
	metadatahandler "shebuilds/internal/metadata/handler"
	metadataservice "shebuilds/internal/metadata/service"
	metadatastore "shebuilds/internal/metadata/store"
	"shebuilds/internal/platform/health"
	httptransport "shebuilds/internal/transport/http"
	"shebuilds/pkg/domain"
	"shebuilds/pkg/platform/middleware/request"
	outboxmemory "shebuilds/pkg/platform/outbox/store/memory"
)

// inProcessEnv is a memory-backed server plus a fake IPFS gateway.
type inProcessEnv struct {
	server  *httptest.Server
	gateway *docGateway
}

func startInProcess(admin domain.Principal, jwt *jwttoken.JWTService) (*inProcessEnv, error) {
	logger := slog.New(slog.DiscardHandler)
	runner := ledgerstore.NewMemoryRunner(role.NewInMemoryStore(), credential.NewInMemoryStore(), outboxmemory.New())
	feed := events.NewRecorder(events.DefaultCapacity)
	ledger := ledgerservice.New(runner, ledgerservice.WithLogger(logger), ledgerservice.WithEventSink(feed))
	if err := ledger.Bootstrap(context.Background(), admin); err != nil {
		return nil, fmt.Errorf("bootstrap admin: %w", err)
	}
	query := ledgerservice.NewQuery(runner)

	gw := newDocGateway()
	metadata := metadataservice.New(query, metadatastore.NewInMemoryCache(time.Minute), metadataservice.Config{
		Gateway:           gw.server.URL + "/ipfs/",
		AllowPrivateHosts: true,
	}, metadataservice.WithLogger(logger))

	reg := prometheus.NewRegistry()
	router := httptransport.NewRouter(httptransport.Config{
		Logger:             logger,
		RateLimitPerMinute: 1000,
		Validator:          jwttoken.NewAdapter(jwt),
		RequestMetrics:     request.NewMetricsWithRegistry(reg),
		Ledger:             ledgerhandler.New(ledger, query, feed, logger),
		Metadata:           metadatahandler.New(metadata, logger),
		Health:             health.New("e2e", "memory"),
		Metrics:            promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	})
	return &inProcessEnv{server: httptest.NewServer(router), gateway: gw}, nil
}

func (e *inProcessEnv) close() {
	e.server.Close()
	e.gateway.server.Close()
}

type docGateway struct {
	mu       sync.Mutex
	docs     map[string][]byte
	requests map[string]int
	server   *httptest.Server
}

func newDocGateway() *docGateway {
	g := &docGateway{docs: map[string][]byte{}, requests: map[string]int{}}
	g.server = httptest.NewServer(http.HandlerFunc(g.serve))
	return g
}

func (g *docGateway) put(cid string, body []byte) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.docs[cid] = body
}

func (g *docGateway) hits(cid string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.requests[cid]
}

func (g *docGateway) serve(w http.ResponseWriter, r *http.Request) {
	cid := strings.TrimPrefix(r.URL.Path, "/ipfs/")
	g.mu.Lock()
	g.requests[cid]++
	body, ok := g.docs[cid]
	g.mu.Unlock()
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(body)
}
