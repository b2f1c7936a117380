package metrics_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/greeting-bff/internal/metrics"
)

var _ = Describe("Collector", func() {
	const upstream = "api.internal:8080"

	var (
		collector *metrics.Collector
		log       *slog.Logger
		ctx       context.Context
		cancel    context.CancelFunc
	)

	BeforeEach(func() {
		log = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelError,
		}))
		ctx, cancel = context.WithCancel(context.Background())
		collector = metrics.NewCollector(100, log)
	})

	AfterEach(func() {
		cancel()
		time.Sleep(10 * time.Millisecond)
	})

	Describe("Publish", func() {
		It("should ignore a nil channel", func() {
			Expect(func() {
				metrics.Publish(nil, metrics.Event{Type: metrics.EventCallStarted})
			}).NotTo(Panic())
		})

		It("should drop events when the buffer is full", func() {
			small := metrics.NewCollector(1, log)
			metrics.Publish(small.EventChannel(), metrics.Event{Type: metrics.EventCallStarted, Upstream: upstream})
			metrics.Publish(small.EventChannel(), metrics.Event{Type: metrics.EventCallStarted, Upstream: upstream})

			small.Start(ctx)
			Eventually(func() int64 {
				return small.Snapshot().TotalCalls
			}).Should(Equal(int64(1)))
			Consistently(func() int64 {
				return small.Snapshot().TotalCalls
			}, 30*time.Millisecond).Should(Equal(int64(1)))
		})
	})

	Describe("event processing", func() {
		BeforeEach(func() {
			collector.Start(ctx)
		})

		It("should fold a retried call", func() {
			events := []metrics.Event{
				{Type: metrics.EventCallStarted, Upstream: upstream},
				{Type: metrics.EventAttemptFailed, Upstream: upstream, Attempt: 0},
				{Type: metrics.EventResponseCompleted, Upstream: upstream, Attempt: 1, Duration: 50 * time.Millisecond, StatusCode: 201},
				{Type: metrics.EventRecovered, Upstream: upstream, Attempt: 1},
			}
			for _, e := range events {
				metrics.Publish(collector.EventChannel(), e)
			}

			Eventually(func() int64 {
				return collector.Snapshot().Upstreams[upstream].Recoveries
			}).Should(Equal(int64(1)))

			um := collector.Snapshot().Upstreams[upstream]
			Expect(um.Calls).To(Equal(int64(1)))
			Expect(um.Attempts).To(Equal(int64(2)))
			Expect(um.Failures).To(Equal(int64(1)))
			Expect(um.AvgResponse).To(Equal(50 * time.Millisecond))
			Expect(um.StatusCodes[201]).To(Equal(int64(1)))
		})

		It("should record exhausted calls", func() {
			metrics.Publish(collector.EventChannel(), metrics.Event{Type: metrics.EventExhausted, Upstream: upstream})

			Eventually(func() int64 {
				return collector.Snapshot().Upstreams[upstream].Exhausted
			}).Should(Equal(int64(1)))
		})

		It("should record health changes", func() {
			metrics.Publish(collector.EventChannel(), metrics.Event{Type: metrics.EventHealthChanged, Upstream: upstream, Healthy: true})

			Eventually(func() bool {
				return collector.Snapshot().Upstreams[upstream].Healthy
			}).Should(BeTrue())
		})
	})

	It("should drain events on context cancellation", func() {
		collector.Start(ctx)

		for i := 0; i < 5; i++ {
			metrics.Publish(collector.EventChannel(), metrics.Event{Type: metrics.EventCallStarted, Upstream: upstream})
		}

		cancel()
		Eventually(func() int64 {
			return collector.Snapshot().TotalCalls
		}).Should(Equal(int64(5)))
	})

	Describe("Handler", func() {
		It("should serve the JSON snapshot", func() {
			rec := httptest.NewRecorder()
			collector.Handler()(rec, httptest.NewRequest(http.MethodGet, "/api/metrics", nil))

			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Header().Get("Content-Type")).To(Equal("application/json"))
			Expect(rec.Body.String()).To(ContainSubstring(`"total_calls":0`))
		})
	})

	Describe("PrometheusHandler", func() {
		It("should expose upstream counters", func() {
			collector.Start(ctx)
			metrics.Publish(collector.EventChannel(), metrics.Event{Type: metrics.EventAttemptFailed, Upstream: upstream})
			Eventually(func() int64 {
				return collector.Snapshot().Upstreams[upstream].Failures
			}).Should(Equal(int64(1)))

			srv := httptest.NewServer(collector.PrometheusHandler())
			defer srv.Close()

			resp, err := http.Get(srv.URL)
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			body, _ := io.ReadAll(resp.Body)
			Expect(string(body)).To(ContainSubstring(`greeting_bff_upstream_attempts_total{outcome="transport_error",upstream="api.internal:8080"} 1`))
		})
	})
})
