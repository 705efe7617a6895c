package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/okian/sideline/internal/adapters/feeds"
	triggerqueue "github.com/okian/sideline/internal/adapters/mq/queue"
	service "github.com/okian/sideline/internal/app"
	"github.com/okian/sideline/internal/domain/assemble"
	"github.com/okian/sideline/internal/domain/model"
	"github.com/okian/sideline/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

type fakeQueueFeed struct {
	mu    sync.Mutex
	state model.QueueState
	err   error
	calls int
}

func (f *fakeQueueFeed) QueueState(_ context.Context, _ string) (model.QueueState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.state, f.err
}

func (f *fakeQueueFeed) set(state model.QueueState, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = state
	f.err = err
}

func (f *fakeQueueFeed) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeResultsFeed struct{}

func (f *fakeResultsFeed) Results(_ context.Context, _ string) ([]model.ResultRecord, error) {
	return nil, nil
}

func (f *fakeResultsFeed) Ranking(_ context.Context, _, _ string) (*model.RankingInfo, error) {
	return nil, feeds.ErrNotFound
}

type fakeTransport struct {
	mu     sync.Mutex
	frames []types.Frame
}

func (t *fakeTransport) Send(frame types.Frame) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.frames = append(t.frames, frame)
	return nil
}

func (t *fakeTransport) Close() error { return nil }

func (t *fakeTransport) sent() []types.Frame {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]types.Frame, len(t.frames))
	copy(out, t.frames)
	return out
}

func queuedState(labels ...string) model.QueueState {
	state := model.QueueState{NowQueuing: "Qualification 1"}
	for _, label := range labels {
		state.Matches = append(state.Matches, model.QueueMatch{
			Label:     label,
			Status:    types.StatusQueued,
			RedTeams:  []string{"340", "1", "2"},
			BlueTeams: []string{"3", "4", "5"},
		})
	}
	return state
}

func TestService(t *testing.T) {
	Convey("Given a service over fake feeds", t, func() {
		ctx := context.Background()
		key := types.NewInterestKey("2025nyro", "340")

		queue := &fakeQueueFeed{state: queuedState("Qualification 1", "Qualification 2")}
		assembler := assemble.New(queue, &fakeResultsFeed{})

		svc := service.New(
			service.WithAssembler(assembler),
			service.WithWorkerCount(1),
			service.WithQueueSize(8),
			service.WithPollInterval(time.Hour),
			service.WithHeartbeatInterval(time.Hour),
		)

		Convey("When started without an assembler", func() {
			bare := service.New()

			Convey("Then Start reports the missing dependency", func() {
				err := bare.Start(ctx)
				So(err, ShouldNotBeNil)
				So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			})
		})

		Convey("When started", func() {
			So(svc.Start(ctx), ShouldBeNil)
			Reset(svc.Stop)

			Convey("Then a second Start is a no-op", func() {
				So(svc.Start(ctx), ShouldBeNil)
			})

			Convey("Then Snapshot assembles on demand without retaining cold keys", func() {
				snapshot, d, err := svc.Snapshot(ctx, key)

				So(err, ShouldBeNil)
				So(snapshot, ShouldNotBeNil)
				So(snapshot.Matches, ShouldHaveLength, 2)
				So(d, ShouldNotBeEmpty)

				before := queue.callCount()
				_, again, err := svc.Snapshot(ctx, key)
				So(err, ShouldBeNil)
				So(again, ShouldEqual, d)
				So(queue.callCount(), ShouldEqual, before+1)
				So(svc.GetStats()["storedSnapshots"], ShouldEqual, 0)
			})

			Convey("Then polling many cold keys leaves no stored state behind", func() {
				for _, team := range []string{"1", "2", "3", "4"} {
					_, _, err := svc.Check(ctx, types.NewInterestKey("2025nyro", team), "")
					So(err, ShouldBeNil)
				}

				So(svc.GetStats()["storedSnapshots"], ShouldEqual, 0)
			})

			Convey("Then Check treats an empty lastUpdate as baseline only", func() {
				changed, d, err := svc.Check(ctx, key, "")

				So(err, ShouldBeNil)
				So(changed, ShouldBeFalse)
				So(d, ShouldNotBeEmpty)

				Convey("And reports no change while the feed is steady", func() {
					changed, again, err := svc.Check(ctx, key, d)
					So(err, ShouldBeNil)
					So(changed, ShouldBeFalse)
					So(again, ShouldEqual, d)
				})

				Convey("And reports change once the queue moves", func() {
					state := queuedState("Qualification 1", "Qualification 2")
					state.Matches[0].Status = types.StatusOnField
					queue.set(state, nil)

					changed, next, err := svc.Check(ctx, key, d)
					So(err, ShouldBeNil)
					So(changed, ShouldBeTrue)
					So(next, ShouldNotEqual, d)
				})
			})

			Convey("Then a push with no subscribers triggers nothing", func() {
				So(svc.TriggerEvent(ctx, "2025nyro"), ShouldEqual, 0)
			})

			Convey("And a subscriber is attached", func() {
				transport := &fakeTransport{}
				sub, err := svc.Attach(ctx, transport, key)
				So(err, ShouldBeNil)
				So(sub, ShouldNotBeNil)

				frames := transport.sent()
				So(frames, ShouldHaveLength, 1)
				So(frames[0].Kind, ShouldEqual, types.FrameConnected)
				baseline := frames[0].Digest
				So(baseline, ShouldNotBeEmpty)

				Convey("Then a refresh with no upstream change stays silent", func() {
					err := svc.Refresh(ctx, triggerqueue.Trigger{Key: key, Source: types.SourcePoll})

					So(err, ShouldBeNil)
					So(transport.sent(), ShouldHaveLength, 1)
				})

				Convey("Then a refresh after an upstream change pushes an update", func() {
					state := queuedState("Qualification 1", "Qualification 2")
					state.Matches[0].Status = types.StatusOnField
					queue.set(state, nil)

					err := svc.Refresh(ctx, triggerqueue.Trigger{Key: key, Source: types.SourceWebhook})

					So(err, ShouldBeNil)
					frames := transport.sent()
					So(frames, ShouldHaveLength, 2)
					So(frames[1].Kind, ShouldEqual, types.FrameUpdate)
					So(frames[1].Source, ShouldEqual, types.SourceWebhook)
					So(frames[1].Digest, ShouldNotEqual, baseline)
				})

				Convey("Then a failed refresh surfaces the upstream error", func() {
					queue.set(model.QueueState{}, feeds.ErrUnavailable)

					err := svc.Refresh(ctx, triggerqueue.Trigger{Key: key, Source: types.SourcePoll})

					So(err, ShouldNotBeNil)
					So(errors.Is(err, feeds.ErrUnavailable), ShouldBeTrue)
					So(transport.sent(), ShouldHaveLength, 1)
				})

				Convey("Then Snapshot serves the stored state without a feed call", func() {
					before := queue.callCount()
					_, d, err := svc.Snapshot(ctx, key)

					So(err, ShouldBeNil)
					So(d, ShouldEqual, baseline)
					So(queue.callCount(), ShouldEqual, before)
				})

				Convey("Then a push reports the live subscriptions it reached", func() {
					So(svc.TriggerEvent(ctx, "2025nyro"), ShouldEqual, 1)
					So(svc.TriggerEvent(ctx, "2025casj"), ShouldEqual, 0)
				})

				Convey("And a second subscriber on the same key doubles the reach", func() {
					second := &fakeTransport{}
					_, err := svc.Attach(ctx, second, key)
					So(err, ShouldBeNil)

					So(svc.TriggerEvent(ctx, "2025nyro"), ShouldEqual, 2)

					stats := svc.GetStats()
					pushes, ok := stats["pushes"].(map[string]interface{})
					So(ok, ShouldBeTrue)
					event, ok := pushes["2025nyro"].(map[string]interface{})
					So(ok, ShouldBeTrue)
					So(event["count"], ShouldEqual, 1)
					So(event["triggeredSubscriptions"], ShouldEqual, 2)
					So(event["lastTriggered"], ShouldEqual, 2)
				})

				Convey("Then stats reflect the running engine", func() {
					stats := svc.GetStats()

					So(stats["started"], ShouldBeTrue)
					So(stats["workerCount"], ShouldEqual, 1)
					So(stats["totalSubscriptions"], ShouldEqual, 1)
					So(stats, ShouldContainKey, "queueDepth")
					So(stats, ShouldContainKey, "storedSnapshots")
				})
			})

			Convey("And the feed dies after a subscriber stored a baseline", func() {
				first := &fakeTransport{}
				_, err := svc.Attach(ctx, first, key)
				So(err, ShouldBeNil)
				stored := first.sent()[0].Digest
				queue.set(model.QueueState{}, feeds.ErrUnavailable)

				Convey("Then a later Attach falls back to the stored digest", func() {
					transport := &fakeTransport{}
					sub, err := svc.Attach(ctx, transport, key)

					So(err, ShouldBeNil)
					So(sub, ShouldNotBeNil)
					frames := transport.sent()
					So(frames, ShouldHaveLength, 1)
					So(frames[0].Digest, ShouldEqual, stored)
				})
			})
		})

		Convey("When never started", func() {
			stats := svc.GetStats()

			Convey("Then stats only carry configuration", func() {
				So(stats["started"], ShouldBeFalse)
				So(stats, ShouldNotContainKey, "queueDepth")
			})
		})
	})
}
