package main

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/tally/internal/adapters/http/site"
	"github.com/okian/tally/internal/adapters/repository"
	app "github.com/okian/tally/internal/app"
	"github.com/okian/tally/internal/config"
	"github.com/okian/tally/internal/domain/model"
	"github.com/okian/tally/pkg/logger"
	"github.com/okian/tally/pkg/metrics"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func startMemoryService(t *testing.T) *app.Service {
	t.Helper()
	svc := app.New(app.WithStore(repository.NewMemoryStore(model.NewDocument())))
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("start service: %v", err)
	}
	t.Cleanup(svc.Stop)
	return svc
}

func TestNewHandler(t *testing.T) {
	convey.Convey("Given a handler built from default config", t, func() {
		ctx := context.Background()
		svc := startMemoryService(t)
		cfg := config.New()

		handler, err := newHandler(ctx, cfg, svc)
		convey.So(err, convey.ShouldBeNil)

		serve := func(method, target, body string) *httptest.ResponseRecorder {
			req := httptest.NewRequest(method, target, strings.NewReader(body))
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			return rec
		}

		convey.Convey("Then the data endpoint is mounted", func() {
			rec := serve(http.MethodGet, "/api/data", "")
			convey.So(rec.Code, convey.ShouldEqual, http.StatusOK)
			convey.So(rec.Body.String(), convey.ShouldContainSubstring, `"scores"`)
		})

		convey.Convey("Then score submission is mounted", func() {
			rec := serve(http.MethodPost, "/api/scores/egor/t1", `{"total":7}`)
			convey.So(rec.Code, convey.ShouldEqual, http.StatusOK)

			rec = serve(http.MethodPost, "/api/scores/nobody/t1", `{}`)
			convey.So(rec.Code, convey.ShouldEqual, http.StatusBadRequest)
		})

		convey.Convey("Then the API docs are mounted", func() {
			rec := serve(http.MethodGet, "/openapi.yaml", "")
			convey.So(rec.Code, convey.ShouldEqual, http.StatusOK)
		})

		convey.Convey("Then no static site is served without a public dir", func() {
			rec := serve(http.MethodGet, "/index.html", "")
			convey.So(rec.Code, convey.ShouldEqual, http.StatusNotFound)
		})
	})

	convey.Convey("Given a service whose document was never written", t, func() {
		svc := app.New(app.WithStore(repository.NewEmptyMemoryStore()))
		convey.So(svc.Start(context.Background()), convey.ShouldBeNil)
		defer svc.Stop()

		handler, err := newHandler(context.Background(), config.New(), svc)
		convey.So(err, convey.ShouldBeNil)

		convey.Convey("Then reads and writes fail with a plain 500", func() {
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/data", nil))
			convey.So(rec.Code, convey.ShouldEqual, http.StatusInternalServerError)

			rec = httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/scores/egor/t1", strings.NewReader(`{}`)))
			convey.So(rec.Code, convey.ShouldEqual, http.StatusInternalServerError)
		})
	})

	convey.Convey("Given a public dir", t, func() {
		ctx := context.Background()
		svc := startMemoryService(t)
		cfg := config.New()

		convey.Convey("When it exists", func() {
			dir := t.TempDir()
			convey.So(os.WriteFile(filepath.Join(dir, "dashboard.html"), []byte("<html></html>"), 0o600), convey.ShouldBeNil)
			cfg.PublicDir = dir

			handler, err := newHandler(ctx, cfg, svc)
			convey.So(err, convey.ShouldBeNil)

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dashboard.html", nil))
			convey.So(rec.Code, convey.ShouldEqual, http.StatusOK)
		})

		convey.Convey("When it is missing", func() {
			cfg.PublicDir = filepath.Join(t.TempDir(), "missing")

			_, err := newHandler(ctx, cfg, svc)
			convey.So(err, convey.ShouldNotBeNil)
			convey.So(err.Error(), convey.ShouldContainSubstring, site.ErrServe.Error())
		})
	})
}

func TestRun(t *testing.T) {
	convey.Convey("Given a config with a fresh data file", t, func() {
		cfg := config.New()
		cfg.Host = "127.0.0.1"
		cfg.Port = 0
		cfg.DataFile = filepath.Join(t.TempDir(), "data.json")
		cfg.InitDataFile = true
		cfg.ShutdownTimeout = time.Second

		convey.Convey("When the context is cancelled the server stops cleanly", func() {
			ctx, cancel := context.WithCancel(context.Background())
			done := make(chan error, 1)
			go func() { done <- run(ctx, cfg) }()

			time.Sleep(100 * time.Millisecond)
			cancel()

			select {
			case err := <-done:
				convey.So(err, convey.ShouldBeNil)
			case <-time.After(5 * time.Second):
				t.Fatal("run did not return after cancel")
			}

			_, err := os.Stat(cfg.DataFile)
			convey.So(err, convey.ShouldBeNil)
		})
	})

	convey.Convey("Given a port that is already taken", t, func() {
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		convey.So(err, convey.ShouldBeNil)
		defer ln.Close()

		cfg := config.New()
		cfg.Host = "127.0.0.1"
		cfg.Port = ln.Addr().(*net.TCPAddr).Port
		cfg.DataFile = filepath.Join(t.TempDir(), "data.json")
		cfg.InitDataFile = true

		convey.Convey("Then run returns the listen error", func() {
			convey.So(run(context.Background(), cfg), convey.ShouldNotBeNil)
		})
	})
}

func TestConfigureMetrics(t *testing.T) {
	convey.Convey("Given metrics settings in the config", t, func() {
		cfg := config.New()
		cfg.MetricsNamespace = "venue"
		cfg.MetricsLabels = []string{"event=finals"}
		cfg.MetricsRefreshInterval = 2 * time.Second
		defer func() { _ = configureMetrics(config.New()) }()

		convey.So(configureMetrics(cfg), convey.ShouldBeNil)

		convey.Convey("Then /healthz exports series under the new name and labels", func() {
			svc := startMemoryService(t)
			handler, err := newHandler(context.Background(), cfg, svc)
			convey.So(err, convey.ShouldBeNil)

			sub, err := svc.Subscribe()
			convey.So(err, convey.ShouldBeNil)
			defer svc.Unsubscribe(sub.Handle())

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
			convey.So(rec.Code, convey.ShouldEqual, http.StatusOK)
			convey.So(rec.Body.String(), convey.ShouldContainSubstring, `venue_scoring_subscribers_active{event="finals"} 1`)
			convey.So(metrics.RefreshInterval(), convey.ShouldEqual, 2*time.Second)
		})
	})

	convey.Convey("Given a malformed metrics label", t, func() {
		cfg := config.New()
		cfg.MetricsLabels = []string{"finals"}

		convey.Convey("Then configuration is refused", func() {
			convey.So(configureMetrics(cfg), convey.ShouldNotBeNil)
		})
	})
}

func TestSystemMetrics(t *testing.T) {
	convey.Convey("Given the system metrics updater", t, func() {
		convey.Convey("Then it returns once the context ends", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer cancel()

			convey.So(func() { startSystemMetricsUpdater(ctx) }, convey.ShouldNotPanic)
		})

		convey.Convey("Then a single update does not panic", func() {
			convey.So(updateSystemMetrics, convey.ShouldNotPanic)
		})
	})
}
