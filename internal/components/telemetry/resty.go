package telemetry

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	report_http_request  = "http.request"
	report_http_response = "http.response"
	report_http_status   = "http.status"
)

var httpMeter = otel.Meter("replaces.http")
var httpDuration, _ = httpMeter.Float64Histogram(
	"http.client.duration",
	metric.WithUnit("ms"),
)
var httpFailures, _ = httpMeter.Int64Counter("http.client.failures")

type requestKeyType int

var requestKey requestKeyType

type requestInfo struct {
	seq     uint64
	started time.Time
}

// InstrumentResty attaches sequence numbers to the requests of client, logs
// them at debug level, records their latency and reports transport failures
// as broken. Non-2xx responses are reported as warnings.
func InstrumentResty(client *resty.Client, tel API) {
	var seq atomic.Uint64

	client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		info := requestInfo{seq: seq.Add(1), started: time.Now()}
		tel.ReportDebug(report_http_request, info.seq, req.Method, req.URL)
		req.SetContext(context.WithValue(req.Context(), requestKey, info))
		return nil
	})

	client.OnAfterResponse(func(_ *resty.Client, res *resty.Response) error {
		info, ok := res.Request.Context().Value(requestKey).(requestInfo)
		if !ok {
			tel.ReportDebug(report_http_response, res.Request.URL, res.Status())
			return nil
		}
		elapsed := time.Since(info.started)
		httpDuration.Record(
			res.Request.Context(),
			float64(elapsed.Milliseconds()),
			metric.WithAttributes(attribute.Int("status", res.StatusCode())),
		)
		tel.ReportDebug(report_http_response, info.seq, elapsed.String(), res.Status())
		if res.IsError() {
			tel.ReportWarning(report_http_status, res.Status(), res.Request.Method, res.Request.URL)
		}
		return nil
	})

	client.OnError(func(req *resty.Request, err error) {
		httpFailures.Add(req.Context(), 1)
		info, ok := req.Context().Value(requestKey).(requestInfo)
		if !ok {
			tel.ReportBroken(report_http_response, err, req.Method, req.URL)
			return
		}
		tel.ReportBroken(
			report_http_response,
			err,
			KV{Key: "seq", Value: info.seq},
			req.Method,
			req.URL,
			time.Since(info.started).String(),
		)
	})
}
