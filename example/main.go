// This is an example program demonstrating wsgi-intercept usage.
// Run with: go run ./example
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"

	"cdr.dev/slog"
	"cdr.dev/slog/sloggers/sloghuman"
	intercept "github.com/concordusapps/wsgi-intercept"
	"github.com/concordusapps/wsgi-intercept/buildinfo"
	"github.com/concordusapps/wsgi-intercept/nethttp"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	ctx := context.Background()
	logger := slog.Make(sloghuman.Sink(os.Stderr)).Leveled(slog.LevelDebug)
	logger.Info(ctx, "wsgi-intercept example", slog.F("version", buildinfo.Version()))

	// Setup metrics.
	reg := prometheus.NewRegistry()
	metrics := intercept.NewMetrics(reg)

	// An ordinary net/http handler, mounted at a host that never resolves.
	mux := http.NewServeMux()
	mux.HandleFunc("/hello", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		fmt.Fprintf(w, "hello from in-process, %s\n", r.URL.Query().Get("name"))
	})
	intercept.Register("app.example.test", 80, intercept.HandlerApp(mux), "")
	defer intercept.UnregisterAll()

	interceptor := intercept.NewInterceptor(intercept.InterceptorOptions{
		Logger:  logger.Named("interceptor"),
		Metrics: metrics,
	})
	nethttp.Install(interceptor)
	defer nethttp.Uninstall()

	// http.Get goes through http.DefaultTransport, which Install replaced.
	resp, err := http.Get("http://app.example.test/hello?name=world")
	if err != nil {
		log.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Fatalf("read body: %v", err)
	}
	logger.Info(ctx, "response received", slog.F("status", resp.Status), slog.F("body", string(body)))

	families, err := reg.Gather()
	if err != nil {
		log.Fatalf("gather metrics: %v", err)
	}
	for _, mf := range families {
		logger.Info(ctx, "metric family", slog.F("name", mf.GetName()), slog.F("series", len(mf.GetMetric())))
	}
}
