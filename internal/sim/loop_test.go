package sim_test

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/pidsim/internal/control"
	"github.com/san-kum/pidsim/internal/dynamo"
	"github.com/san-kum/pidsim/internal/plants"
	"github.com/san-kum/pidsim/internal/sim"
)

type countingMetric struct {
	n int
}

func (c *countingMetric) Name() string         { return "count" }
func (c *countingMetric) Observe(s sim.Sample) { c.n++ }
func (c *countingMetric) Value() float64       { return float64(c.n) }
func (c *countingMetric) Reset()               { c.n = 0 }

type recordingObserver struct {
	samples []sim.Sample
}

func (r *recordingObserver) OnStep(s sim.Sample) { r.samples = append(r.samples, s) }

// brokenPlant fails on a given step.
type brokenPlant struct {
	plants.Plant
	failAt int
	calls  int
}

func (b *brokenPlant) Advance(u, t, dt float64) (float64, error) {
	b.calls++
	if b.calls > b.failAt {
		return 0, fmt.Errorf("integrate: %w", dynamo.ErrInvalidState)
	}
	return b.Plant.Advance(u, t, dt)
}

func (b *brokenPlant) State() dynamo.State {
	return b.Plant.(interface{ State() dynamo.State }).State()
}

func (b *brokenPlant) Reset() {
	b.calls = 0
	b.Plant.Reset()
}

var elevator = sim.Params{Setpoint: 10, Runtime: 100, Dt: 0.05, Kp: 500, Ki: 500, Kd: 0.01}

var _ = Describe("Grid", func() {
	DescribeTable("point count",
		func(runtime, dt float64, want int) {
			Expect(sim.Steps(runtime, dt)).To(Equal(want))
			Expect(sim.Grid(runtime, dt)).To(HaveLen(want))
		},
		Entry("reactor defaults", 30.0, 0.05, 601),
		Entry("motor defaults", 100.0, 0.05, 2001),
		Entry("tenths", 1.0, 0.1, 11),
		Entry("coarse", 1.0, 0.3, 4),
		Entry("binary rounding", 0.3, 0.1, 4),
		Entry("zero runtime", 0.0, 0.1, 1),
		Entry("negative runtime", -5.0, 0.1, 0),
	)

	It("starts at zero and increases strictly", func() {
		times := sim.Grid(30, 0.05)
		Expect(times[0]).To(Equal(0.0))
		for i := 1; i < len(times); i++ {
			Expect(times[i]).To(BeNumerically(">", times[i-1]))
		}
		Expect(times[len(times)-1]).To(BeNumerically("~", 30, 1e-9))
	})
})

var _ = Describe("Params", func() {
	It("zeroes disabled gains", func() {
		p := sim.Params{Kp: 1, Ki: 2, Kd: 3}
		Expect(p.Disable(true, false, false)).To(Equal(sim.Params{Ki: 2, Kd: 3}))
		Expect(p.Disable(false, true, true)).To(Equal(sim.Params{Kp: 1}))
		Expect(p.Disable(false, false, false)).To(Equal(p))
	})

	DescribeTable("rejects invalid values",
		func(p sim.Params) {
			Expect(p.Validate()).To(MatchError(dynamo.ErrParameterBounds))
		},
		Entry("zero dt", sim.Params{Runtime: 1, Dt: 0}),
		Entry("negative dt", sim.Params{Runtime: 1, Dt: -0.1}),
		Entry("NaN dt", sim.Params{Runtime: 1, Dt: math.NaN()}),
		Entry("infinite runtime", sim.Params{Runtime: math.Inf(1), Dt: 0.1}),
		Entry("NaN setpoint", sim.Params{Setpoint: math.NaN(), Runtime: 1, Dt: 0.1}),
		Entry("infinite gain", sim.Params{Runtime: 1, Dt: 0.1, Kp: math.Inf(-1)}),
	)
})

var _ = Describe("Loop", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	Context("DC Motor elevator scenario", func() {
		var loop *sim.Loop

		BeforeEach(func() {
			loop = sim.New(plants.New(plants.DCMotor), control.NewPID())
		})

		It("produces the full grid", func() {
			res, err := loop.Run(ctx, elevator)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Times).To(HaveLen(2001))
			Expect(res.Feedback).To(HaveLen(2001))
			Expect(res.Control).To(HaveLen(2001))
			Expect(res.Times[0]).To(Equal(0.0))
			Expect(res.Times[len(res.Times)-1]).To(BeNumerically("~", 100, elevator.Dt))
			Expect(res.Plant).To(Equal("DC Motor"))
		})

		It("is deterministic across runs on one loop", func() {
			first, err := loop.Run(ctx, elevator)
			Expect(err).NotTo(HaveOccurred())
			second, err := loop.Run(ctx, elevator)
			Expect(err).NotTo(HaveOccurred())
			Expect(second.Feedback).To(Equal(first.Feedback))
			Expect(second.Control).To(Equal(first.Control))
		})

		It("matches a fresh loop", func() {
			first, err := loop.Run(ctx, elevator)
			Expect(err).NotTo(HaveOccurred())
			fresh, err := sim.Simulate(ctx, "DC Motor", elevator)
			Expect(err).NotTo(HaveOccurred())
			Expect(fresh.Feedback).To(Equal(first.Feedback))
		})

		It("logs one record per step", func() {
			_, err := loop.Run(ctx, elevator)
			Expect(err).NotTo(HaveOccurred())
			Expect(loop.Plant().Log()).To(HaveLen(2001))
		})
	})

	DescribeTable("zero gains reproduce the open-loop response",
		func(kind plants.Kind) {
			p := sim.Params{Setpoint: 10, Runtime: 5, Dt: 0.05}
			res, err := sim.New(plants.New(kind), nil).Run(ctx, p)
			Expect(err).NotTo(HaveOccurred())

			open := plants.New(kind)
			for i, t := range res.Times {
				fb, err := open.Advance(0, t, p.Dt)
				Expect(err).NotTo(HaveOccurred())
				Expect(res.Feedback[i]).To(Equal(fb))
				Expect(res.Control[i]).To(Equal(0.0))
			}
		},
		Entry("reactor", plants.Reactor),
		Entry("DC motor", plants.DCMotor),
		Entry("2nd order", plants.SecondOrder),
	)

	It("keeps the unforced oscillator at rest", func() {
		res, err := sim.Simulate(ctx, "2nd Order ODE", sim.Params{Setpoint: 10, Runtime: 30, Dt: 0.05})
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Feedback).To(HaveLen(601))
		Expect(res.Feedback[0]).To(Equal(0.0))
		for _, y := range res.Feedback {
			Expect(math.Abs(y)).To(BeNumerically("<", 1e-9))
		}
	})

	It("keeps the reactor coolant within its limits", func() {
		loop := sim.New(plants.New(plants.Reactor), nil)
		_, err := loop.Run(ctx, sim.Params{Setpoint: 10, Runtime: 30, Dt: 0.05, Kp: 5, Ki: 5, Kd: 5})
		Expect(err).NotTo(HaveOccurred())
		for _, rec := range loop.Plant().Log() {
			Expect(rec.Values[3]).To(BeNumerically(">=", 0))
			Expect(rec.Values[3]).To(BeNumerically("<=", 300))
		}
	})

	It("falls back to the reactor for unknown plant names", func() {
		res, err := sim.Simulate(ctx, "Pendulum", sim.Params{Setpoint: 10, Runtime: 1, Dt: 0.05})
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Plant).To(Equal("Reactor"))
	})

	It("rejects a zero step size", func() {
		res, err := sim.Simulate(ctx, "Reactor", sim.Params{Setpoint: 10, Runtime: 1, Dt: 0})
		Expect(err).To(MatchError(dynamo.ErrParameterBounds))
		Expect(res).To(BeNil())
	})

	It("stops when the context is canceled", func() {
		canceled, cancel := context.WithCancel(ctx)
		cancel()

		res, err := sim.Simulate(canceled, "Reactor", sim.Params{Setpoint: 10, Runtime: 1, Dt: 0.05})
		Expect(res).To(BeNil())
		Expect(err).To(MatchError(dynamo.ErrContextCanceled))
		Expect(errors.Is(err, context.Canceled)).To(BeTrue())
	})

	It("aborts without a partial result when the plant fails", func() {
		plant := &brokenPlant{Plant: plants.New(plants.SecondOrder), failAt: 3}
		res, err := sim.New(plant, nil).Run(ctx, sim.Params{Setpoint: 1, Runtime: 1, Dt: 0.05, Kp: 1})
		Expect(res).To(BeNil())
		Expect(err).To(MatchError(dynamo.ErrInvalidState))

		var se *dynamo.SimulationError
		Expect(errors.As(err, &se)).To(BeTrue())
		Expect(se.Step).To(Equal(3))
		Expect(se.Time).To(BeNumerically("~", 0.15, 1e-12))
		Expect(se.State).To(HaveLen(2))
	})

	It("feeds metrics and observers every step", func() {
		metric := &countingMetric{}
		obs := &recordingObserver{}
		loop := sim.New(plants.New(plants.SecondOrder), nil, sim.WithMetrics(metric))
		loop.AddObserver(obs)

		p := sim.Params{Setpoint: 1, Runtime: 2, Dt: 0.1, Kp: 1, Ki: 1}
		res, err := loop.Run(ctx, p)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Metrics).To(HaveKeyWithValue("count", 21.0))
		Expect(obs.samples).To(HaveLen(21))
		Expect(obs.samples[5].Feedback).To(Equal(res.Feedback[5]))
		Expect(obs.samples[5].Error()).To(Equal(1 - res.Feedback[5]))

		res, err = loop.Run(ctx, p)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Metrics["count"]).To(Equal(21.0))
	})

	It("serializes concurrent runs on one loop", func() {
		loop := sim.New(plants.New(plants.SecondOrder), nil)
		p := sim.Params{Setpoint: 1, Runtime: 3, Dt: 0.05, Kp: 2, Ki: 1, Kd: 0.1}
		want, err := loop.Run(ctx, p)
		Expect(err).NotTo(HaveOccurred())

		var wg sync.WaitGroup
		results := make([]*sim.Result, 4)
		for i := range results {
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer GinkgoRecover()
				res, err := loop.Run(ctx, p)
				Expect(err).NotTo(HaveOccurred())
				results[i] = res
			}()
		}
		wg.Wait()

		for _, res := range results {
			Expect(res.Feedback).To(Equal(want.Feedback))
		}
	})
})

var _ = Describe("Sweep", func() {
	It("matches sequential runs in order", func() {
		ctx := context.Background()
		factory := func() *sim.Loop { return sim.New(plants.New(plants.SecondOrder), nil) }

		params := make([]sim.Params, 0, 6)
		for _, kp := range []float64{0, 0.5, 1, 2, 4, 8} {
			params = append(params, sim.Params{Setpoint: 1, Runtime: 2, Dt: 0.05, Kp: kp, Ki: 0.5})
		}

		results, err := sim.Sweep(ctx, factory, params, 3)
		Expect(err).NotTo(HaveOccurred())
		Expect(results).To(HaveLen(len(params)))

		for i, p := range params {
			want, err := factory().Run(ctx, p)
			Expect(err).NotTo(HaveOccurred())
			Expect(results[i].Params).To(Equal(p))
			Expect(results[i].Feedback).To(Equal(want.Feedback))
		}
	})

	It("returns the first error", func() {
		factory := func() *sim.Loop { return sim.New(plants.New(plants.Reactor), nil) }
		params := []sim.Params{
			{Setpoint: 1, Runtime: 1, Dt: 0.05},
			{Setpoint: 1, Runtime: 1, Dt: -1},
		}
		results, err := sim.Sweep(context.Background(), factory, params, 0)
		Expect(err).To(MatchError(dynamo.ErrParameterBounds))
		Expect(results).To(BeNil())
	})
})
