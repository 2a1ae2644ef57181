package metrics

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/dustplan/core/metrics"
	"github.com/kilianp07/dustplan/infra/logger"
)

// InfluxOptions locate the bucket planning runs are written to.
type InfluxOptions struct {
	URL    string `json:"url"`
	Token  string `json:"token"`
	Org    string `json:"org"`
	Bucket string `json:"bucket"`
}

// InfluxSink writes planning runs to an InfluxDB instance using the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(opts InfluxOptions) *InfluxSink {
	base := strings.TrimSuffix(opts.URL, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, opts.Token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(opts.Org, opts.Bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback pings the InfluxDB instance and returns a NopSink
// when the health check fails so a missing database never blocks planning.
func NewInfluxSinkWithFallback(opts InfluxOptions) coremetrics.MetricsSink {
	sink := NewInfluxSink(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// RecordRun writes one plan_run point and, when a plan is attached, one
// plan_site_period point per site and month.
func (s *InfluxSink) RecordRun(res coremetrics.RunResult) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.writeAPI.WritePoint(ctx, runPoints(res)...)
}

func runPoints(res coremetrics.RunResult) []*write.Point {
	ts := res.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	run := write.NewPointWithMeasurement("plan_run").
		AddTag("run_id", res.RunID).
		AddTag("status", res.Status.String()).
		AddField("bound", round3(res.Bound)).
		AddField("duration_ms", res.Duration.Milliseconds()).
		AddField("nodes", int64(res.Nodes)).
		AddField("objective", round3(res.Objective))
	if res.Plan != nil {
		run = run.AddField("total_cost", round3(res.Plan.TotalCost))
	}
	points := []*write.Point{run.SetTime(ts)}
	if res.Plan == nil {
		return points
	}
	for _, sm := range res.Plan.Sites {
		p := write.NewPointWithMeasurement("plan_site_period").
			AddTag("period", strconv.Itoa(sm.Period)).
			AddTag("run_id", res.RunID).
			AddTag("site", sm.Site).
			AddField("cost", round3(sm.Cost)).
			AddField("cover_water", round3(sm.CoverWater)).
			AddField("pm", round3(sm.PM)).
			AddField("water", round3(sm.Water)).
			SetTime(ts)
		points = append(points, p)
	}
	return points
}

// Close releases the underlying client.
func (s *InfluxSink) Close() { s.client.Close() }

func round3(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return math.Round(f*1000) / 1000
}
