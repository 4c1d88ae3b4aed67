package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func BenchmarkCollector_RecordConstraint(b *testing.B) {
	collector := NewCollector(testConfig(), prometheus.NewRegistry())

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		collector.RecordConstraint("saga", "steps.sum", OutcomePass, "", 40*time.Microsecond)
	}
}

func BenchmarkCollector_RecordConstraint_Parallel(b *testing.B) {
	collector := NewCollector(testConfig(), prometheus.NewRegistry())

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			collector.RecordConstraint("saga", "steps.sum", OutcomePass, "", 40*time.Microsecond)
		}
	})
}
