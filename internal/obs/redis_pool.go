package obs

import (
	"github.com/prometheus/client_golang/prometheus"
	redis "github.com/redis/go-redis/v9"
)

// RedisPoolCollector exports go-redis connection pool statistics.
type RedisPoolCollector struct {
	stats    func() *redis.PoolStats
	hits     *prometheus.Desc
	misses   *prometheus.Desc
	timeouts *prometheus.Desc
	total    *prometheus.Desc
	idle     *prometheus.Desc
}

// NewRedisPoolCollector reads pool stats from client on every scrape.
func NewRedisPoolCollector(namespace string, client *redis.Client) *RedisPoolCollector {
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "redis_pool", name), help, nil, nil)
	}
	return &RedisPoolCollector{
		stats:    client.PoolStats,
		hits:     desc("hits_total", "Free connections found in the pool."),
		misses:   desc("misses_total", "Connections that had to be dialled."),
		timeouts: desc("timeouts_total", "Waits for a connection that timed out."),
		total:    desc("connections", "Connections currently in the pool."),
		idle:     desc("idle_connections", "Idle connections in the pool."),
	}
}

// Describe implements prometheus.Collector.
func (c *RedisPoolCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.hits
	ch <- c.misses
	ch <- c.timeouts
	ch <- c.total
	ch <- c.idle
}

// Collect implements prometheus.Collector.
func (c *RedisPoolCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.stats()
	ch <- prometheus.MustNewConstMetric(c.hits, prometheus.CounterValue, float64(s.Hits))
	ch <- prometheus.MustNewConstMetric(c.misses, prometheus.CounterValue, float64(s.Misses))
	ch <- prometheus.MustNewConstMetric(c.timeouts, prometheus.CounterValue, float64(s.Timeouts))
	ch <- prometheus.MustNewConstMetric(c.total, prometheus.GaugeValue, float64(s.TotalConns))
	ch <- prometheus.MustNewConstMetric(c.idle, prometheus.GaugeValue, float64(s.IdleConns))
}
