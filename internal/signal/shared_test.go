package signal_test

import (
	"context"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/fluidviz/internal/signal"
)

var _ = Describe("Shared", func() {
	var s *signal.Shared

	BeforeEach(func() {
		s = signal.New()
	})

	Describe("Post and Consume", func() {
		It("starts with nothing pending", func() {
			Expect(s.Pending()).To(BeFalse())
			Expect(s.Consume(func() { Fail("consumed an empty mailbox") })).To(BeFalse())
		})

		It("hands one post to one consume", func() {
			s.Post()
			Expect(s.Pending()).To(BeTrue())

			ran := 0
			Expect(s.Consume(func() { ran++ })).To(BeTrue())
			Expect(ran).To(Equal(1))
			Expect(s.Pending()).To(BeFalse())
		})

		It("keeps one overwritten post pending after a consume", func() {
			s.Post()
			s.Post()

			loads := 0
			for s.Consume(func() { loads++ }) {
			}
			Expect(loads).To(Equal(2))
			Expect(s.Stats()).To(Equal(signal.Stats{Posts: 2, Coalesced: 1, Consumed: 2}))
		})

		It("collapses a longer burst into two consumes", func() {
			s.Post()
			s.Post()
			s.Post()

			Expect(s.Consume(func() {})).To(BeTrue())
			Expect(s.Pending()).To(BeTrue())
			Expect(s.Consume(func() {})).To(BeTrue())
			Expect(s.Pending()).To(BeFalse())
			Expect(s.Stats()).To(Equal(signal.Stats{Posts: 3, Coalesced: 2, Consumed: 2}))
		})

		It("keeps one snapshot pending when posts arrive during a consume", func() {
			s.Post()
			s.Consume(func() {
				s.Post()
				s.Post()
				s.Post()
			})
			Expect(s.Pending()).To(BeTrue())

			Expect(s.Consume(func() {})).To(BeTrue())
			Expect(s.Pending()).To(BeFalse())
		})

		It("signals Ready without blocking the producer", func() {
			for i := 0; i < 10; i++ {
				s.Post()
			}
			Eventually(s.Ready()).Should(Receive())
			Consistently(s.Ready(), 20*time.Millisecond).ShouldNot(Receive())
		})
	})

	Describe("pause", func() {
		It("restores the running state after an even number of toggles", func() {
			for i := 0; i < 4; i++ {
				s.TogglePause()
			}
			Expect(s.Paused()).To(BeFalse())
			Expect(s.TogglePause()).To(BeTrue())
		})

		It("leaves a pending snapshot pending", func() {
			s.Post()
			s.TogglePause()
			s.TogglePause()
			s.TogglePause()
			Expect(s.Pending()).To(BeTrue())
			Expect(s.Consume(func() {})).To(BeTrue())
		})
	})

	Describe("WaitProducible", func() {
		It("returns at once when idle", func() {
			Expect(s.WaitProducible(context.Background())).To(BeTrue())
		})

		It("blocks while a snapshot is pending", func() {
			s.Post()
			released := make(chan bool, 1)
			go func() { released <- s.WaitProducible(context.Background()) }()

			Consistently(released, 30*time.Millisecond).ShouldNot(Receive())
			s.Consume(func() {})
			Eventually(released).Should(Receive(BeTrue()))
		})

		It("blocks while paused", func() {
			s.SetPaused(true)
			released := make(chan bool, 1)
			go func() { released <- s.WaitProducible(context.Background()) }()

			Consistently(released, 30*time.Millisecond).ShouldNot(Receive())
			s.TogglePause()
			Eventually(released).Should(Receive(BeTrue()))
		})

		It("returns false on Quit", func() {
			s.Post()
			released := make(chan bool, 1)
			go func() { released <- s.WaitProducible(context.Background()) }()

			s.Quit()
			Eventually(released).Should(Receive(BeFalse()))
		})

		It("returns false when the context ends", func() {
			s.SetPaused(true)
			ctx, cancel := context.WithCancel(context.Background())
			released := make(chan bool, 1)
			go func() { released <- s.WaitProducible(ctx) }()

			cancel()
			Eventually(released).Should(Receive(BeFalse()))
		})
	})

	Describe("Quit", func() {
		It("is monotonic and closes Done once", func() {
			Expect(s.Quitting()).To(BeFalse())
			s.Quit()
			s.Quit()
			Expect(s.Quitting()).To(BeTrue())
			Expect(s.Done()).To(BeClosed())

			s.TogglePause()
			s.Post()
			Expect(s.Quitting()).To(BeTrue())
		})
	})

	It("survives concurrent producers and a consumer", func() {
		var wg sync.WaitGroup
		for p := 0; p < 4; p++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := 0; i < 200; i++ {
					s.Post()
				}
			}()
		}

		stop := make(chan struct{})
		consumed := make(chan int)
		go func() {
			n := 0
			for {
				select {
				case <-stop:
					for s.Consume(func() { n++ }) {
					}
					consumed <- n
					return
				case <-s.Ready():
					s.Consume(func() { n++ })
				}
			}
		}()

		wg.Wait()
		close(stop)
		var n int
		Eventually(consumed).Should(Receive(&n))
		Expect(n).To(BeNumerically(">=", 1))
		Expect(s.Pending()).To(BeFalse())

		st := s.Stats()
		Expect(st.Posts).To(Equal(uint64(800)))
		Expect(st.Consumed).To(Equal(uint64(n)))
	})
})

var _ = Describe("Counters", func() {
	It("accumulates frames, steps and simulated time", func() {
		var c signal.Counters
		var wg sync.WaitGroup
		for g := 0; g < 4; g++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := 0; i < 100; i++ {
					c.AddStep(0.5)
					c.AddFrame()
				}
			}()
		}
		wg.Wait()

		Expect(c.SimFrames()).To(Equal(uint64(400)))
		Expect(c.Frames()).To(Equal(uint64(400)))
		Expect(c.SimTime()).To(BeNumerically("~", 200, 1e-9))
	})
})
