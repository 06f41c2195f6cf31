package waiter_test

import (
	"context"
	"errors"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/imamik/computectl/internal/apierr"
	"github.com/imamik/computectl/internal/waiter"
)

// scripted returns the observations in order and repeats the last one.
type scripted struct {
	mu     sync.Mutex
	states []waiter.Observation
	errs   []error
	calls  int
}

func (s *scripted) poll(context.Context) (waiter.Observation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.calls
	s.calls++
	var err error
	if i < len(s.errs) {
		err = s.errs[i]
	}
	if err != nil {
		return waiter.Observation{}, err
	}
	if i >= len(s.states) {
		i = len(s.states) - 1
	}
	return s.states[i], nil
}

func (s *scripted) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func states(names ...string) []waiter.Observation {
	obs := make([]waiter.Observation, len(names))
	for i, n := range names {
		obs[i] = waiter.Observation{State: n}
	}
	return obs
}

var _ = Describe("Waiter", func() {
	var spec waiter.Spec

	BeforeEach(func() {
		spec = waiter.Spec{
			Operation:     "DescribeImages",
			SuccessStates: []string{"available"},
			FailureStates: []string{"failed", "error"},
			PollInterval:  time.Millisecond,
			MaxAttempts:   5,
		}
	})

	Describe("spec validation", func() {
		DescribeTable("rejects invalid specs",
			func(mutate func(*waiter.Spec), msg string) {
				mutate(&spec)
				_, err := waiter.New(spec)
				Expect(err).To(MatchError(ContainSubstring(msg)))
			},
			Entry("no operation", func(s *waiter.Spec) { s.Operation = "" }, "operation is required"),
			Entry("no success states", func(s *waiter.Spec) { s.SuccessStates = nil }, "success state"),
			Entry("overlapping states", func(s *waiter.Spec) { s.FailureStates = []string{"available"} }, "both success and failure"),
			Entry("zero interval", func(s *waiter.Spec) { s.PollInterval = 0 }, "poll interval"),
			Entry("zero attempts", func(s *waiter.Spec) { s.MaxAttempts = 0 }, "max attempts"),
		)
	})

	Context("when the resource becomes available", func() {
		It("succeeds after exactly three polls", func() {
			stub := &scripted{states: states("pending", "pending", "available")}
			w, err := waiter.New(spec)
			Expect(err).NotTo(HaveOccurred())

			res, err := w.Wait(context.Background(), stub.poll)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.State).To(Equal(waiter.Succeeded))
			Expect(res.Polls).To(Equal(3))
			Expect(res.LastState).To(Equal("available"))
			Expect(stub.count()).To(Equal(3))
		})

		It("issues the initiating call once before polling", func() {
			stub := &scripted{states: states("available")}
			w, err := waiter.New(spec)
			Expect(err).NotTo(HaveOccurred())

			initiated := 0
			res, err := w.Run(context.Background(), func(context.Context) error {
				Expect(stub.count()).To(BeZero())
				initiated++
				return nil
			}, stub.poll)
			Expect(err).NotTo(HaveOccurred())
			Expect(initiated).To(Equal(1))
			Expect(res.Polls).To(Equal(1))
		})
	})

	Context("when the resource stays pending", func() {
		It("times out after MaxAttempts polls", func() {
			stub := &scripted{states: states("pending")}
			w, err := waiter.New(spec)
			Expect(err).NotTo(HaveOccurred())

			res, err := w.Wait(context.Background(), stub.poll)
			Expect(err).To(MatchError(waiter.ErrTimedOut))
			Expect(res.State).To(Equal(waiter.TimedOut))
			Expect(res.Polls).To(Equal(spec.MaxAttempts))
			Expect(stub.count()).To(Equal(spec.MaxAttempts))
			Expect(res.LastState).To(Equal("pending"))
		})
	})

	Context("when the resource fails", func() {
		It("surfaces the resource's own reason", func() {
			stub := &scripted{states: []waiter.Observation{
				{State: "pending"},
				{State: "failed", Reason: "Client.InvalidSnapshot: snapshot is corrupt"},
			}}
			w, err := waiter.New(spec)
			Expect(err).NotTo(HaveOccurred())

			res, err := w.Wait(context.Background(), stub.poll)
			var ferr *waiter.FailureError
			Expect(errors.As(err, &ferr)).To(BeTrue())
			Expect(ferr.State).To(Equal("failed"))
			Expect(ferr.Reason).To(Equal("Client.InvalidSnapshot: snapshot is corrupt"))
			Expect(res.State).To(Equal(waiter.Failed))
			Expect(res.Polls).To(Equal(2))
			_, classified := apierr.As(err)
			Expect(classified).To(BeFalse(), "a resource failure is not a transport error")
		})
	})

	Context("when the describe call fails", func() {
		It("tolerates not-found while AcceptNotFound is set", func() {
			spec.AcceptNotFound = true
			notFound := apierr.New(apierr.KindResourceNotFound, "DescribeImages", "no such image")
			stub := &scripted{
				errs:   []error{notFound, notFound},
				states: states("", "", "available"),
			}
			w, err := waiter.New(spec)
			Expect(err).NotTo(HaveOccurred())

			res, err := w.Wait(context.Background(), stub.poll)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.State).To(Equal(waiter.Succeeded))
			Expect(res.Polls).To(Equal(3))
		})

		It("returns other errors as they are", func() {
			invalid := apierr.New(apierr.KindValidation, "DescribeImages", "bad filter")
			stub := &scripted{errs: []error{invalid}, states: states("pending")}
			w, err := waiter.New(spec)
			Expect(err).NotTo(HaveOccurred())

			res, err := w.Wait(context.Background(), stub.poll)
			Expect(err).To(BeIdenticalTo(invalid))
			Expect(res.State).To(Equal(waiter.Pending))
			Expect(res.Polls).To(Equal(1))
		})

		It("does not poll when the initiating call fails", func() {
			stub := &scripted{states: states("available")}
			w, err := waiter.New(spec)
			Expect(err).NotTo(HaveOccurred())

			boom := errors.New("quota exceeded")
			res, err := w.Run(context.Background(), func(context.Context) error { return boom }, stub.poll)
			Expect(err).To(MatchError(boom))
			Expect(res.Polls).To(BeZero())
			Expect(stub.count()).To(BeZero())
		})
	})

	Context("when the context is cancelled", func() {
		It("stops during the poll sleep", func() {
			spec.PollInterval = time.Hour
			w, err := waiter.New(spec)
			Expect(err).NotTo(HaveOccurred())

			ctx, cancel := context.WithCancel(context.Background())
			go func() {
				time.Sleep(10 * time.Millisecond)
				cancel()
			}()

			start := time.Now()
			res, err := w.Wait(ctx, (&scripted{states: states("pending")}).poll)
			Expect(time.Since(start)).To(BeNumerically("<", time.Second))
			Expect(res.State).To(Equal(waiter.Cancelled))
			Expect(res.Polls).To(BeZero())
			Expect(apierr.IsKind(err, apierr.KindCancelled)).To(BeTrue())
			Expect(errors.Is(err, context.Canceled)).To(BeTrue())
		})

		It("reports Cancelled when a poll is interrupted", func() {
			w, err := waiter.New(spec)
			Expect(err).NotTo(HaveOccurred())

			ctx, cancel := context.WithCancel(context.Background())
			res, err := w.Wait(ctx, func(ctx context.Context) (waiter.Observation, error) {
				cancel()
				return waiter.Observation{}, ctx.Err()
			})
			Expect(res.State).To(Equal(waiter.Cancelled))
			Expect(res.Polls).To(Equal(1))
			Expect(apierr.IsKind(err, apierr.KindCancelled)).To(BeTrue())
		})
	})

	Describe("observers", func() {
		It("receive every poll in order", func() {
			var events []waiter.Event
			w, err := waiter.New(spec, waiter.WithObserver(func(ev waiter.Event) { events = append(events, ev) }))
			Expect(err).NotTo(HaveOccurred())

			_, err = w.Wait(context.Background(), (&scripted{states: states("pending", "available")}).poll)
			Expect(err).NotTo(HaveOccurred())
			Expect(events).To(HaveLen(2))
			Expect(events[0].Poll).To(Equal(1))
			Expect(events[0].State).To(Equal(waiter.Pending))
			Expect(events[0].Observation.State).To(Equal("pending"))
			Expect(events[1].State).To(Equal(waiter.Succeeded))
			Expect(events[1].MaxAttempts).To(Equal(spec.MaxAttempts))
		})
	})

	It("lets independent waiters observe the same resource", func() {
		w, err := waiter.New(spec)
		Expect(err).NotTo(HaveOccurred())

		var wg sync.WaitGroup
		results := make([]waiter.Result, 3)
		for i := range results {
			wg.Add(1)
			go func() {
				defer GinkgoRecover()
				defer wg.Done()
				res, err := w.Wait(context.Background(), (&scripted{states: states("pending", "available")}).poll)
				Expect(err).NotTo(HaveOccurred())
				results[i] = res
			}()
		}
		wg.Wait()
		for _, res := range results {
			Expect(res.State).To(Equal(waiter.Succeeded))
			Expect(res.Polls).To(Equal(2))
		}
	})
})
