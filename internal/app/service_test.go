package service_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/tally/internal/adapters/repository"
	service "github.com/okian/tally/internal/app"
	"github.com/okian/tally/internal/domain/model"
	"github.com/okian/tally/internal/domain/scoring"
	"github.com/okian/tally/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func writeDoc(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func nextFrame(t *testing.T, frames <-chan []byte) string {
	t.Helper()
	select {
	case f := <-frames:
		return string(f)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for frame")
		return ""
	}
}

func TestService_Lifecycle(t *testing.T) {
	ctx := context.Background()

	Convey("Given a service that was never started", t, func() {
		svc := service.New()

		Convey("Then operations report ErrNotStarted", func() {
			_, err := svc.Data(ctx)
			So(err, ShouldEqual, service.ErrNotStarted)
			So(svc.SetRevealed(ctx, true), ShouldEqual, service.ErrNotStarted)
			So(svc.IsJudge("egor"), ShouldBeFalse)
			_, err = svc.Subscribe()
			So(err, ShouldEqual, service.ErrNotStarted)
			So(svc.GetStats()["started"], ShouldEqual, false)
			svc.Stop()
		})
	})

	Convey("Given a data file that does not exist", t, func() {
		path := filepath.Join(t.TempDir(), "missing.json")

		Convey("When the service starts without initialization", func() {
			svc := service.New(service.WithDataFile(path))
			So(svc.Start(ctx), ShouldBeNil)
			defer svc.Stop()

			Convey("Then reads fail with a storage error", func() {
				_, err := svc.Data(ctx)
				So(errors.Is(err, repository.ErrStorage), ShouldBeTrue)
			})
		})

		Convey("When the service starts with initialization", func() {
			svc := service.New(service.WithDataFile(path), service.WithInitDataFile(true))
			So(svc.Start(ctx), ShouldBeNil)
			defer svc.Stop()

			Convey("Then an empty document is available", func() {
				doc, err := svc.Data(ctx)
				So(err, ShouldBeNil)
				So(doc.Scores, ShouldBeEmpty)
				So(doc.Revealed, ShouldBeFalse)
			})
		})
	})
}

func TestService_Operations(t *testing.T) {
	ctx := context.Background()

	for _, serialized := range []bool{false, true} {
		Convey("Given a started service", t, func() {
			path := writeDoc(t, `{"scores":{},"revealed":false,"teams":["t1","t2"]}`)
			svc := service.New(
				service.WithDataFile(path),
				service.WithSerializedWrites(serialized),
				service.WithSubscriberBuffer(8),
			)
			So(svc.Start(ctx), ShouldBeNil)
			defer svc.Stop()

			sub, err := svc.Subscribe()
			So(err, ShouldBeNil)
			frames := make(chan []byte, 8)
			go func() {
				for f := range sub.Frames() {
					frames <- f
				}
				close(frames)
			}()

			Convey("When a judge scores a team", func() {
				So(svc.SetScore(ctx, "egor", "t1", model.ScoreEntry{Business: 5, Comment: "ok"}), ShouldBeNil)

				Convey("Then the file holds the entry and the viewer is told", func() {
					doc, err := svc.Data(ctx)
					So(err, ShouldBeNil)
					got, ok := doc.Entry("egor", "t1")
					So(ok, ShouldBeTrue)
					So(got.Comment, ShouldEqual, "ok")
					_, kept := doc.Extra("teams")
					So(kept, ShouldBeTrue)
					So(nextFrame(t, frames), ShouldEqual, "event: scores_updated\ndata: {\"judgeId\":\"egor\",\"teamId\":\"t1\"}\n\n")
				})
			})

			Convey("When an unknown judge scores", func() {
				err := svc.SetScore(ctx, "mallory", "t1", model.ScoreEntry{})

				Convey("Then it is rejected", func() {
					So(errors.Is(err, scoring.ErrInvalidJudge), ShouldBeTrue)
					So(svc.IsJudge("mallory"), ShouldBeFalse)
					So(svc.IsJudge("aleksej"), ShouldBeTrue)
				})
			})

			Convey("When reveal then reset are triggered", func() {
				So(svc.SetRevealed(ctx, true), ShouldBeNil)
				So(svc.SetRevealed(ctx, false), ShouldBeNil)

				Convey("Then viewers see both events in order", func() {
					So(nextFrame(t, frames), ShouldStartWith, "event: reveal\n")
					So(nextFrame(t, frames), ShouldStartWith, "event: reset\n")
				})
			})

			Convey("When the viewer unsubscribes", func() {
				svc.Unsubscribe(sub.Handle())
				svc.Unsubscribe(sub.Handle())

				Convey("Then stats show no subscribers", func() {
					stats := svc.GetStats()
					So(stats["started"], ShouldEqual, true)
					So(stats["subscribers"], ShouldEqual, 0)
					So(stats["serializeWrites"], ShouldEqual, serialized)
				})
			})

			Convey("When the service stops", func() {
				svc.Stop()

				Convey("Then open streams end", func() {
					_, open := <-frames
					So(open, ShouldBeFalse)
				})
			})
		})
	}
}

func TestService_CustomStoreAndJudges(t *testing.T) {
	ctx := context.Background()

	Convey("Given a service over an in-memory store with custom judges", t, func() {
		store := repository.NewMemoryStore(model.NewDocument())
		svc := service.New(service.WithStore(store), service.WithJudges("ann"))
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("Then only the configured judge may score", func() {
			So(svc.SetScore(ctx, "ann", "t", model.ScoreEntry{}), ShouldBeNil)
			So(svc.SetScore(ctx, "egor", "t", model.ScoreEntry{}), ShouldNotBeNil)
			So(store.Saves(), ShouldEqual, 1)
			So(svc.GetStats()["judges"], ShouldResemble, []string{"ann"})
		})
	})
}
