package queue_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/okian/skillboard/internal/adapters/mq/queue"
	"github.com/okian/skillboard/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func match(id string) model.Match {
	return model.Match{ID: id, Teams: []model.Team{{Players: []string{"a"}}, {Players: []string{"b"}}}}
}

func TestInMemoryQueue(t *testing.T) {
	ctx := context.Background()

	Convey("Given a queue with capacity 2", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(2))
		So(q.Len(ctx), ShouldEqual, 0)
		So(q.Cap(), ShouldEqual, 2)

		Convey("When a match is enqueued and dequeued", func() {
			So(q.Enqueue(ctx, match("m-1")), ShouldBeNil)
			So(q.Len(ctx), ShouldEqual, 1)

			got := <-q.Dequeue(ctx)

			Convey("Then the same match comes out", func() {
				So(got.ID, ShouldEqual, "m-1")
				So(q.Len(ctx), ShouldEqual, 0)
			})
		})

		Convey("When the queue is full", func() {
			So(q.Enqueue(ctx, match("m-1")), ShouldBeNil)
			So(q.Enqueue(ctx, match("m-2")), ShouldBeNil)
			err := q.Enqueue(ctx, match("m-3"))

			Convey("Then enqueue reports backpressure", func() {
				So(errors.Is(err, queue.ErrFull), ShouldBeTrue)
				So(q.Len(ctx), ShouldEqual, 2)
			})
		})

		Convey("When the queue is closed", func() {
			So(q.Enqueue(ctx, match("m-1")), ShouldBeNil)
			So(q.Close(), ShouldBeNil)

			Convey("Then enqueue fails", func() {
				So(errors.Is(q.Enqueue(ctx, match("m-2")), queue.ErrClosed), ShouldBeTrue)
			})

			Convey("Then queued matches drain before the channel closes", func() {
				ch := q.Dequeue(ctx)
				first, ok := <-ch
				So(ok, ShouldBeTrue)
				So(first.ID, ShouldEqual, "m-1")

				select {
				case _, ok := <-ch:
					So(ok, ShouldBeFalse)
				case <-time.After(time.Second):
					So("dequeue channel still open", ShouldBeEmpty)
				}
			})

			Convey("Then closing again is a no-op", func() {
				So(q.Close(), ShouldBeNil)
			})
		})
	})
}

func TestInMemoryQueueConcurrency(t *testing.T) {
	ctx := context.Background()

	Convey("Given producers and consumers sharing a queue", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(16))
		const producers, perProducer = 4, 50

		var consumed sync.Map
		var consumers sync.WaitGroup
		for i := 0; i < 3; i++ {
			consumers.Add(1)
			go func() {
				defer consumers.Done()
				for m := range q.Dequeue(ctx) {
					consumed.Store(m.ID, true)
				}
			}()
		}

		var producersWG sync.WaitGroup
		for p := 0; p < producers; p++ {
			producersWG.Add(1)
			go func(p int) {
				defer producersWG.Done()
				for j := 0; j < perProducer; j++ {
					for q.Enqueue(ctx, match(fmt.Sprintf("m-%d-%d", p, j))) != nil {
						time.Sleep(time.Millisecond)
					}
				}
			}(p)
		}
		producersWG.Wait()
		So(q.Close(), ShouldBeNil)
		consumers.Wait()

		Convey("Then every match is consumed exactly once", func() {
			n := 0
			consumed.Range(func(_, _ any) bool { n++; return true })
			So(n, ShouldEqual, producers*perProducer)
			So(q.Len(ctx), ShouldEqual, 0)
		})
	})
}
