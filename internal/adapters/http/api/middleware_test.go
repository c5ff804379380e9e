package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsMiddleware(t *testing.T) {
	Convey("Given a handler wrapped with metrics", t, func() {
		var seen http.ResponseWriter
		h := MetricsMiddleware(func(w http.ResponseWriter, _ *http.Request) {
			seen = w
			w.WriteHeader(http.StatusBadRequest)
			w.WriteHeader(http.StatusOK)
		}, "test")

		rec := httptest.NewRecorder()
		h(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		Convey("Then the first status code is the one recorded", func() {
			rw, ok := seen.(*responseWriter)
			So(ok, ShouldBeTrue)
			So(rw.statusCode, ShouldEqual, http.StatusBadRequest)
		})

		Convey("Then flushing reaches the underlying writer", func() {
			rc := http.NewResponseController(seen)
			So(rc.Flush(), ShouldBeNil)
			So(rec.Flushed, ShouldBeTrue)
		})

		Convey("Then the wrapped writer can be unwrapped", func() {
			So(seen.(*responseWriter).Unwrap(), ShouldEqual, rec)
		})
	})
}

func TestGetErrorType(t *testing.T) {
	Convey("Given HTTP status codes", t, func() {
		So(getErrorType(503), ShouldEqual, "server_error")
		So(getErrorType(404), ShouldEqual, "not_found")
		So(getErrorType(400), ShouldEqual, "client_error")
		So(getErrorType(200), ShouldEqual, "unknown")
	})
}

func TestDecodeScoreBodies(t *testing.T) {
	Convey("Given score bodies", t, func() {
		Convey("Then whitespace decodes to a zero entry", func() {
			e, err := decodeScore(bytesReader("  \n"))
			So(err, ShouldBeNil)
			So(e.Business, ShouldEqual, 0)
		})

		Convey("Then unknown fields are ignored", func() {
			e, err := decodeScore(bytesReader(`{"business":2,"extra":true}`))
			So(err, ShouldBeNil)
			So(e.Business, ShouldEqual, 2)
		})

		Convey("Then non-numeric scores are rejected", func() {
			_, err := decodeScore(bytesReader(`{"business":"high"}`))
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldStartWith, "bad request")
		})
	})
}

func bytesReader(s string) *strings.Reader { return strings.NewReader(s) }
