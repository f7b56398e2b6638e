package catalog

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

type storeMetrics struct {
	added           metric.Int64Counter
	deleted         metric.Int64Counter
	stockToggled    metric.Int64Counter
	persistFailures metric.Int64Counter
	totalGauge      metric.Registration
}

// newStoreMetrics registers the catalog instruments on the global meter provider.
func newStoreMetrics(s *Store) *storeMetrics {
	meter := otel.Meter("inventory-catalog")
	m := &storeMetrics{
		added:           mustCounter(meter, "products_added", "Total number of added products"),
		deleted:         mustCounter(meter, "products_deleted", "Total number of deleted products"),
		stockToggled:    mustCounter(meter, "products_stock_toggled", "Total number of stock status changes"),
		persistFailures: mustCounter(meter, "products_persist_failures", "Total number of failed writes to storage"),
	}
	total, err := meter.Int64ObservableGauge("products_total",
		metric.WithDescription("Number of products in the catalog"),
	)
	if err != nil {
		panic(fmt.Sprintf("failed to create products_total gauge: %v", err))
	}
	m.totalGauge, err = meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		s.mu.RLock()
		defer s.mu.RUnlock()
		o.ObserveInt64(total, int64(len(s.products)))
		return nil
	}, total)
	if err != nil {
		panic(fmt.Sprintf("failed to register products_total callback: %v", err))
	}
	return m
}

// unregister stops observing the store. Counters stay with the meter provider.
func (m *storeMetrics) unregister() error {
	return m.totalGauge.Unregister()
}

func mustCounter(meter metric.Meter, name, description string) metric.Int64Counter {
	counter, err := meter.Int64Counter(name, metric.WithDescription(description))
	if err != nil {
		panic(fmt.Sprintf("failed to create %s counter: %v", name, err))
	}
	return counter
}
