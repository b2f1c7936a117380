package metrics_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/greeting-bff/internal/metrics"
)

var _ = Describe("Metrics", func() {
	const upstream = "api.internal:8080"

	var m *metrics.Metrics

	BeforeEach(func() {
		m = metrics.NewMetrics()
	})

	Describe("IncrementCalls", func() {
		It("should count calls per upstream", func() {
			m.IncrementCalls(upstream)
			m.IncrementCalls(upstream)
			m.IncrementCalls("other:80")

			snap := m.Snapshot()
			Expect(snap.TotalCalls).To(Equal(int64(3)))
			Expect(snap.Upstreams[upstream].Calls).To(Equal(int64(2)))
		})
	})

	Describe("RecordAttempt", func() {
		It("should count attempts and transport failures", func() {
			m.RecordAttempt(upstream, true)
			m.RecordAttempt(upstream, true)
			m.RecordAttempt(upstream, false)

			um := m.Snapshot().Upstreams[upstream]
			Expect(um.Attempts).To(Equal(int64(3)))
			Expect(um.Failures).To(Equal(int64(2)))
		})
	})

	Describe("RecordRecovery and RecordExhausted", func() {
		It("should count both outcomes", func() {
			m.RecordRecovery(upstream)
			m.RecordExhausted(upstream)
			m.RecordExhausted(upstream)

			um := m.Snapshot().Upstreams[upstream]
			Expect(um.Recoveries).To(Equal(int64(1)))
			Expect(um.Exhausted).To(Equal(int64(2)))
		})
	})

	Describe("RecordResponse", func() {
		It("should compute latency percentiles", func() {
			for i := 1; i <= 100; i++ {
				m.RecordResponse(upstream, time.Duration(i)*time.Millisecond, 200)
			}

			um := m.Snapshot().Upstreams[upstream]
			Expect(um.P50Response).To(Equal(51 * time.Millisecond))
			Expect(um.P95Response).To(Equal(96 * time.Millisecond))
			Expect(um.P99Response).To(Equal(100 * time.Millisecond))
			Expect(um.StatusCodes[200]).To(Equal(int64(100)))
		})

		It("should keep a bounded number of samples", func() {
			for i := 0; i < 1500; i++ {
				m.RecordResponse(upstream, time.Second, 500)
			}
			m.RecordResponse(upstream, time.Millisecond, 404)

			um := m.Snapshot().Upstreams[upstream]
			Expect(um.StatusCodes[500]).To(Equal(int64(1500)))
			Expect(um.StatusCodes[404]).To(Equal(int64(1)))
		})

		It("should return a copy of the status codes", func() {
			m.RecordResponse(upstream, time.Millisecond, 200)
			snap := m.Snapshot()
			snap.Upstreams[upstream].StatusCodes[200] = 99

			Expect(m.Snapshot().Upstreams[upstream].StatusCodes[200]).To(Equal(int64(1)))
		})
	})

	Describe("UpdateHealthStatus", func() {
		It("should track the latest health", func() {
			m.UpdateHealthStatus(upstream, true)
			Expect(m.Snapshot().Upstreams[upstream].Healthy).To(BeTrue())

			m.UpdateHealthStatus(upstream, false)
			Expect(m.Snapshot().Upstreams[upstream].Healthy).To(BeFalse())
		})
	})
})
