package healthcheck_test

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/greeting-bff/internal/healthcheck"
	"github.com/angeloszaimis/greeting-bff/internal/logtest"
	"github.com/angeloszaimis/greeting-bff/internal/metrics"
)

type backendURL string

func (b backendURL) BackendURL(context.Context) string { return string(b) }

var _ = Describe("Healthcheck", func() {
	var (
		healthy  atomic.Bool
		paths    chan string
		upstream *httptest.Server
		rec      *logtest.Recorder
	)

	BeforeEach(func() {
		healthy.Store(true)
		paths = make(chan string, 100)
		rec = logtest.NewRecorder()

		upstream = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case paths <- r.URL.Path:
			default:
			}
			if healthy.Load() {
				w.WriteHeader(http.StatusOK)
				return
			}
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
	})

	AfterEach(func() {
		upstream.Close()
	})

	It("should start unknown", func() {
		checker := healthcheck.New(backendURL(upstream.URL), "/actuator/health", time.Minute, rec.Logger())
		Expect(checker.Status()).To(Equal(healthcheck.StatusUnknown))
	})

	It("should request the configured path", func() {
		checker := healthcheck.New(backendURL(upstream.URL+"/"), "/actuator/health", time.Minute, rec.Logger())

		Expect(checker.Check(context.Background())).To(Equal(healthcheck.StatusUp))
		Expect(<-paths).To(Equal("/actuator/health"))
	})

	It("should mark a non-200 upstream as down", func() {
		healthy.Store(false)
		checker := healthcheck.New(backendURL(upstream.URL), "/actuator/health", time.Minute, rec.Logger())

		Expect(checker.Check(context.Background())).To(Equal(healthcheck.StatusDown))
		Expect(rec.AtLevel(slog.LevelWarn)).To(HaveLen(1))
	})

	It("should mark an unreachable upstream as down", func() {
		checker := healthcheck.New(backendURL("http://127.0.0.1:1"), "/actuator/health", time.Minute, rec.Logger())
		Expect(checker.Check(context.Background())).To(Equal(healthcheck.StatusDown))
	})

	It("should log and publish only changes", func() {
		collector := metrics.NewCollector(10, slog.New(slog.DiscardHandler))
		checker := healthcheck.New(backendURL(upstream.URL), "/actuator/health", time.Minute, rec.Logger(),
			healthcheck.WithEvents(collector.EventChannel()))

		ctx := context.Background()
		checker.Check(ctx)
		checker.Check(ctx)
		healthy.Store(false)
		checker.Check(ctx)

		Expect(rec.Messages()).To(Equal([]string{"Upstream is up", "Upstream is down"}))

		cctx, cancel := context.WithCancel(ctx)
		collector.Start(cctx)
		cancel()

		Eventually(func() map[string]metrics.UpstreamMetrics {
			return collector.Snapshot().Upstreams
		}).Should(HaveLen(1))
	})

	It("should run until the context is cancelled", func() {
		checker := healthcheck.New(backendURL(upstream.URL), "/actuator/health", 20*time.Millisecond, rec.Logger())

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			checker.Run(ctx)
			close(done)
		}()

		Eventually(checker.Status).Should(Equal(healthcheck.StatusUp))
		healthy.Store(false)
		Eventually(checker.Status).Should(Equal(healthcheck.StatusDown))

		cancel()
		Eventually(done).Should(BeClosed())
	})

	It("should check once and return without an interval", func() {
		checker := healthcheck.New(backendURL(upstream.URL), "/actuator/health", 0, rec.Logger())

		done := make(chan struct{})
		go func() {
			defer GinkgoRecover()
			checker.Run(context.Background())
			close(done)
		}()

		Eventually(done).Should(BeClosed())
		Expect(checker.Status()).To(Equal(healthcheck.StatusUp))
	})
})
