package worker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	worker "github.com/okian/tally/internal/adapters/mq/worker"
	logging "github.com/okian/tally/pkg/logger"
)

func TestWriter(t *testing.T) {
	convey.Convey("Given a running Writer", t, func() {
		_ = logging.Init()

		w := worker.NewWriter(worker.WithName("test-writer"), worker.WithBacklog(16))
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go w.Run(ctx)

		convey.Convey("When a job succeeds", func() {
			ran := false
			err := w.Do(ctx, func(context.Context) error {
				ran = true
				return nil
			})

			convey.Convey("Then Do returns after it ran", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(ran, convey.ShouldBeTrue)
			})
		})

		convey.Convey("When a job fails", func() {
			boom := errors.New("boom")
			err := w.Do(ctx, func(context.Context) error { return boom })

			convey.Convey("Then its error is returned to the caller", func() {
				convey.So(err, convey.ShouldEqual, boom)
			})
		})

		convey.Convey("When many goroutines submit jobs", func() {
			var (
				active, maxActive, total int
				mu                       sync.Mutex
				wg                       sync.WaitGroup
			)
			for i := 0; i < 50; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_ = w.Do(ctx, func(context.Context) error {
						mu.Lock()
						active++
						if active > maxActive {
							maxActive = active
						}
						mu.Unlock()
						time.Sleep(time.Millisecond)
						mu.Lock()
						active--
						total++
						mu.Unlock()
						return nil
					})
				}()
			}
			wg.Wait()

			convey.Convey("Then they run one at a time", func() {
				convey.So(total, convey.ShouldEqual, 50)
				convey.So(maxActive, convey.ShouldEqual, 1)
			})
		})

		convey.Convey("When jobs are submitted in order from one goroutine", func() {
			var order []int
			for i := 0; i < 5; i++ {
				i := i
				_ = w.Do(ctx, func(context.Context) error {
					order = append(order, i)
					return nil
				})
			}

			convey.Convey("Then they run in FIFO order", func() {
				convey.So(order, convey.ShouldResemble, []int{0, 1, 2, 3, 4})
			})
		})

		convey.Convey("When the caller gives up while its job is queued", func() {
			release := make(chan struct{})
			go func() {
				_ = w.Do(ctx, func(context.Context) error {
					<-release
					return nil
				})
			}()
			time.Sleep(10 * time.Millisecond)

			callCtx, callCancel := context.WithTimeout(ctx, 20*time.Millisecond)
			defer callCancel()
			skipped := true
			err := w.Do(callCtx, func(context.Context) error {
				skipped = false
				return nil
			})
			close(release)
			_ = w.Do(ctx, func(context.Context) error { return nil })

			convey.Convey("Then Do returns the context error and the job is skipped", func() {
				convey.So(err, convey.ShouldEqual, context.DeadlineExceeded)
				convey.So(skipped, convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the writer is shut down", func() {
			err := w.Shutdown(context.Background())

			convey.Convey("Then later jobs are refused", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(w.Do(ctx, func(context.Context) error { return nil }), convey.ShouldEqual, worker.ErrStopped)
				convey.So(w.Shutdown(context.Background()), convey.ShouldBeNil)
			})
		})
	})
}

func TestWriterNotStarted(t *testing.T) {
	convey.Convey("Given a Writer that never ran", t, func() {
		_ = logging.Init()
		w := worker.NewWriter()

		convey.Convey("When it is shut down", func() {
			err := w.Shutdown(context.Background())

			convey.Convey("Then shutdown returns immediately and jobs are refused", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(w.Do(context.Background(), func(context.Context) error { return nil }), convey.ShouldEqual, worker.ErrStopped)
			})
		})
	})
}

func TestWriterContextCancelled(t *testing.T) {
	convey.Convey("Given a Writer whose run context ends", t, func() {
		_ = logging.Init()
		w := worker.NewWriter()
		ctx, cancel := context.WithCancel(context.Background())
		finished := make(chan struct{})
		go func() {
			w.Run(ctx)
			close(finished)
		}()
		cancel()
		<-finished

		convey.Convey("Then a job submitted afterwards reports ErrStopped", func() {
			err := w.Do(context.Background(), func(context.Context) error { return nil })
			convey.So(err, convey.ShouldEqual, worker.ErrStopped)
		})
	})
}
