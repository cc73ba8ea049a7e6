package rollout_test

import (
	"github.com/go-logr/logr"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/polecart/internal/cartpole"
	"github.com/san-kum/polecart/internal/compute"
	"github.com/san-kum/polecart/internal/metrics"
	"github.com/san-kum/polecart/internal/policy"
	"github.com/san-kum/polecart/internal/rollout"
)

// stopAfter wraps a real stepper and reports termination once the given
// number of steps has been taken.
type stopAfter struct {
	inner *cartpole.Stepper
	limit int
	calls int
}

func (s *stopAfter) Step(state cartpole.BatchState, actions compute.Vector) cartpole.StepResult {
	res := s.inner.Step(state, actions)
	s.calls++
	res.Terminated = s.calls >= s.limit
	return res
}

var _ = Describe("Driver", func() {
	const batch = 8

	var (
		backend compute.Backend
		stepper *cartpole.Stepper
		model   *policy.MLP
	)

	BeforeEach(func() {
		backend = compute.NewCPUBackend(2, 42)
		stepper = cartpole.NewStepper(cartpole.DefaultParams(), backend)
		model = policy.NewMLP(16, 42)
	})

	Context("with a deterministic policy", func() {
		It("records the initial state plus one snapshot per step", func() {
			d := rollout.New(stepper, logr.Discard())
			x0 := cartpole.NewBatchState(batch)

			res := d.Run(x0, model, policy.NewDeterministic(backend), 25)

			Expect(res.StepsTaken).To(Equal(25))
			Expect(res.Snapshots).To(HaveLen(26))
			Expect(res.Actions).To(HaveLen(25))
			Expect(res.Rewards).To(HaveLen(25))
			Expect(res.Snapshots[0]).To(Equal(x0))
			Expect(res.Terminated).To(BeFalse())
			Expect(res.FinalState()).To(Equal(res.Snapshots[25]))
		})

		It("keeps every snapshot at the batch size", func() {
			d := rollout.New(stepper, logr.Discard())
			res := d.Run(cartpole.NewBatchState(batch), model, policy.NewDeterministic(backend), 10)

			for _, s := range res.Snapshots {
				Expect(s.CartPositions).To(HaveLen(batch))
				Expect(s.CartVelocities).To(HaveLen(batch))
				Expect(s.PoleAngles).To(HaveLen(batch))
				Expect(s.PoleAngularVelocities).To(HaveLen(batch))
			}
			for _, a := range res.Actions {
				for _, v := range a {
					Expect(v).To(BeElementOf(-1.0, 0.0, 1.0))
				}
			}
			for _, r := range res.Rewards {
				for _, v := range r {
					Expect(v).To(BeElementOf(0.0, 1.0))
				}
			}
		})

		It("is reproducible from the same start", func() {
			d := rollout.New(stepper, logr.Discard())
			x0 := cartpole.NewBatchState(batch)

			a := d.Run(x0, model, policy.NewDeterministic(backend), 30)
			b := d.Run(x0, model, policy.NewDeterministic(backend), 30)

			Expect(b.Snapshots).To(Equal(a.Snapshots))
			Expect(b.ID).NotTo(Equal(a.ID))
		})

		It("returns only the start state for a zero horizon", func() {
			d := rollout.New(stepper, logr.Discard())
			res := d.Run(cartpole.NewBatchState(batch), model, policy.NewDeterministic(backend), 0)

			Expect(res.Snapshots).To(HaveLen(1))
			Expect(res.StepsTaken).To(BeZero())
		})
	})

	Context("when the stepper terminates", func() {
		It("stops after the terminating step", func() {
			fake := &stopAfter{inner: stepper, limit: 4}
			d := rollout.New(fake, logr.Discard())

			res := d.Run(cartpole.NewBatchState(batch), model, policy.NewDeterministic(backend), 100)

			Expect(res.Terminated).To(BeTrue())
			Expect(res.StepsTaken).To(Equal(4))
			Expect(res.Snapshots).To(HaveLen(5))
			Expect(fake.calls).To(Equal(4))
		})
	})

	Context("with a random policy and no model", func() {
		It("runs without consulting a model", func() {
			d := rollout.New(stepper, logr.Discard())
			x0 := cartpole.RandomBatchState(backend, batch)

			res := d.Run(x0, nil, policy.NewRandom(backend, batch), 20)

			Expect(res.Snapshots).To(HaveLen(21))
			for _, angle := range res.Snapshots[0].PoleAngles {
				Expect(angle).To(BeNumerically(">=", cartpole.StartAngleMin))
				Expect(angle).To(BeNumerically("<", cartpole.StartAngleMax))
			}
		})
	})

	Context("with metrics", func() {
		It("reports every registered metric and resets between runs", func() {
			d := rollout.New(stepper, logr.Discard())
			for _, m := range metrics.Defaults() {
				d.AddMetric(m)
			}
			x0 := cartpole.NewBatchState(batch)

			first := d.Run(x0, model, policy.NewDeterministic(backend), 15)
			second := d.Run(x0, model, policy.NewDeterministic(backend), 15)

			Expect(first.Metrics).To(HaveKey("balance_rate"))
			Expect(first.Metrics).To(HaveKey("action_effort"))
			Expect(first.Metrics).To(HaveKey("max_cart_offset"))
			Expect(first.Metrics["balance_rate"]).To(BeNumerically(">=", 0))
			Expect(first.Metrics["balance_rate"]).To(BeNumerically("<=", 1))
			Expect(second.Metrics).To(Equal(first.Metrics))
		})
	})
})
