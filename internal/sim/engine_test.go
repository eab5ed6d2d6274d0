package sim_test

import (
	"context"
	"io"
	"log/slog"
	"math"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/fluidsim/internal/compute"
	"github.com/san-kum/fluidsim/internal/config"
	"github.com/san-kum/fluidsim/internal/fluid"
	"github.com/san-kum/fluidsim/internal/kernels"
	"github.com/san-kum/fluidsim/internal/metrics"
	"github.com/san-kum/fluidsim/internal/sim"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

// smallScene is a 4x4x4 block centred on the origin inside a 6-unit box.
func smallScene() *config.Config {
	cfg := config.DefaultConfig()
	cfg.ParticleCount = 64
	cfg.Backend = "serial"
	cfg.Steps = 40
	cfg.Domain.Extents = config.Vec3{X: 3, Y: 3, Z: 3}
	cfg.Spawn = config.SpawnConfig{
		Pattern: "grid",
		Min:     config.Vec3{X: -1, Y: -1, Z: -1},
		Max:     config.Vec3{X: 1, Y: 1, Z: 1},
		Spacing: 0.5,
	}
	return cfg
}

func newEngine(cfg *config.Config, opts ...sim.Option) *sim.Engine {
	GinkgoHelper()
	e, err := sim.New(cfg, append([]sim.Option{sim.WithLogger(quiet)}, opts...)...)
	Expect(err).NotTo(HaveOccurred())
	DeferCleanup(e.Close)
	return e
}

var _ = Describe("Engine", func() {
	Describe("construction", func() {
		It("rejects a non-positive time step", func() {
			cfg := smallScene()
			cfg.Dt = 0
			_, err := sim.New(cfg, sim.WithLogger(quiet))
			Expect(err).To(MatchError(fluid.ErrInvalidConfig))
		})

		It("rejects an unpadded bitonic sort over a non power of two count", func() {
			cfg := smallScene()
			cfg.ParticleCount = 60
			_, err := sim.New(cfg, sim.WithLogger(quiet))
			Expect(err).To(MatchError(fluid.ErrInvalidConfig))
		})

		It("accepts the same count when padding is enabled", func() {
			cfg := smallScene()
			cfg.ParticleCount = 60
			cfg.PadSort = true
			e := newEngine(cfg)
			Expect(e.Len()).To(Equal(60))
			_, err := e.Step()
			Expect(err).NotTo(HaveOccurred())
		})

		It("rejects an unknown solver mode", func() {
			cfg := smallScene()
			cfg.Solver = "flip"
			_, err := sim.New(cfg, sim.WithLogger(quiet))
			Expect(err).To(HaveOccurred())
		})

		It("publishes the spawned state as tick zero", func() {
			e := newEngine(smallScene())
			snap := e.Snapshot()
			Expect(snap.Tick).To(BeZero())
			Expect(snap.Particles).To(HaveLen(64))
		})
	})

	Describe("run state", func() {
		var e *sim.Engine

		BeforeEach(func() {
			e = newEngine(smallScene(), sim.StartPaused())
		})

		It("does nothing while paused", func() {
			stepped, err := e.Step()
			Expect(err).NotTo(HaveOccurred())
			Expect(stepped).To(BeFalse())
			Expect(e.Tick()).To(BeZero())
		})

		It("runs exactly one tick per single-step request", func() {
			Expect(e.RequestSingleStep()).To(Succeed())
			Expect(e.RequestSingleStep()).To(Succeed())

			stepped, err := e.Step()
			Expect(err).NotTo(HaveOccurred())
			Expect(stepped).To(BeTrue())

			stepped, err = e.Step()
			Expect(err).NotTo(HaveOccurred())
			Expect(stepped).To(BeFalse())

			Expect(e.Tick()).To(Equal(uint64(1)))
			Expect(e.Paused()).To(BeTrue())
		})

		It("rejects single-step requests while running", func() {
			e.SetPaused(false)
			Expect(e.RequestSingleStep()).To(MatchError(fluid.ErrNotPaused))
		})

		It("drops a pending request on resume", func() {
			Expect(e.RequestSingleStep()).To(Succeed())
			e.SetPaused(false)
			e.SetPaused(true)
			stepped, err := e.Step()
			Expect(err).NotTo(HaveOccurred())
			Expect(stepped).To(BeFalse())
		})

		It("restores the configured time step on resume", func() {
			dt, err := e.AdjustTimestep(0.005)
			Expect(err).NotTo(HaveOccurred())
			Expect(dt).To(BeNumerically("~", 0.015, 1e-12))
			Expect(e.Params().Dt).To(BeNumerically("~", 0.015, 1e-12))

			e.SetPaused(false)
			Expect(e.Params().Dt).To(BeNumerically("~", config.DefaultDt, 1e-12))
		})

		It("refuses to make the time step non-positive", func() {
			_, err := e.AdjustTimestep(-1)
			Expect(err).To(MatchError(fluid.ErrInvalidConfig))
			Expect(e.Params().Dt).To(Equal(config.DefaultDt))
		})

		It("stops Run early while paused", func() {
			res, err := e.Run(context.Background(), 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.StepsTaken).To(BeZero())
		})
	})

	Describe("parameters", func() {
		It("applies valid changes between ticks", func() {
			e := newEngine(smallScene())
			Expect(e.SetParam("viscosity", 1.25)).To(Succeed())
			Expect(e.GetParams()).To(HaveKeyWithValue("viscosity", 1.25))
		})

		It("rejects unknown and invalid values", func() {
			e := newEngine(smallScene())
			Expect(e.SetParam("bogus", 1)).To(HaveOccurred())
			Expect(e.SetParam("damping", 2)).To(MatchError(fluid.ErrInvalidConfig))
			Expect(e.GetParams()).To(HaveKeyWithValue("damping", config.DefaultDamping))
		})

		It("moves the resume time step when dt is set", func() {
			e := newEngine(smallScene(), sim.StartPaused())
			Expect(e.SetParam("dt", 0.02)).To(Succeed())
			_, err := e.AdjustTimestep(0.01)
			Expect(err).NotTo(HaveOccurred())
			e.SetPaused(false)
			Expect(e.Params().Dt).To(BeNumerically("~", 0.02, 1e-12))
		})
	})

	Describe("snapshots", func() {
		It("are isolated from the live state and from each other", func() {
			e := newEngine(smallScene())
			first := e.Snapshot()
			first.Particles[0].Position.X = 999

			Expect(e.Snapshot().Particles[0].Position.X).NotTo(Equal(999.0))

			before := e.Snapshot()
			_, err := e.Step()
			Expect(err).NotTo(HaveOccurred())
			after := e.Snapshot()
			Expect(after.Tick).To(Equal(before.Tick + 1))
			Expect(after.Particles).NotTo(Equal(before.Particles))
		})
	})

	Describe("Close", func() {
		It("is idempotent and fails later steps", func() {
			e, err := sim.New(smallScene(), sim.WithLogger(quiet))
			Expect(err).NotTo(HaveOccurred())
			Expect(e.Close()).To(Succeed())
			Expect(e.Close()).To(Succeed())
			_, err = e.Step()
			Expect(err).To(MatchError(fluid.ErrClosed))
		})
	})

	DescribeTable("keeps particles inside the box with non-negative density",
		func(solver string, boundary string) {
			cfg := smallScene()
			cfg.Solver = solver
			cfg.Domain.Boundary = boundary
			cfg.ValidateState = true
			cfg.Spawn.Pattern = "jittered"
			cfg.Spawn.Jitter = 0.05

			e := newEngine(cfg, sim.WithDefaultMetrics())
			res, err := e.Run(context.Background(), cfg.Steps)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Errors).To(BeEmpty())
			Expect(res.StepsTaken).To(Equal(cfg.Steps))
			Expect(res.History["density_error"]).To(HaveLen(cfg.Steps))
			Expect(res.Metrics["min_density"]).To(BeNumerically(">", 0))
			if boundary == "clamp" {
				Expect(res.Metrics["containment"]).To(Equal(1.0))
			}

			e.View(func(f sim.Frame) {
				for _, p := range f.Particles {
					Expect(p.IsValid()).To(BeTrue())
					Expect(p.Density).To(BeNumerically(">=", 0))
				}
			})
		},
		Entry("SPH with clamped walls", "sph", "clamp"),
		Entry("SPH with penalty walls", "sph", "penalty"),
		Entry("PBF with clamped walls", "pbf", "clamp"),
	)

	It("reports the minimum density of completed ticks only", func() {
		e := newEngine(config.GetPreset("tiny"), sim.WithDefaultMetrics())
		res, err := e.Run(context.Background(), 3)
		Expect(err).NotTo(HaveOccurred())

		finalMin := math.Inf(1)
		e.View(func(f sim.Frame) {
			for _, p := range f.Particles {
				finalMin = math.Min(finalMin, p.Density)
			}
		})
		Expect(finalMin).To(BeNumerically(">", 0))
		Expect(res.Metrics["min_density"]).To(BeNumerically(">", 0))
		Expect(res.Metrics["min_density"]).To(BeNumerically("<=", finalMin))
		Expect(res.History["min_density"]).To(HaveLen(3))
	})

	Describe("determinism", func() {
		It("reproduces a run from the same seed", func() {
			cfg := smallScene()
			cfg.Spawn.Pattern = "jittered"
			cfg.Spawn.Jitter = 0.05

			a := newEngine(cfg)
			b := newEngine(cfg)
			_, err := a.Run(context.Background(), 20)
			Expect(err).NotTo(HaveOccurred())
			_, err = b.Run(context.Background(), 20)
			Expect(err).NotTo(HaveOccurred())
			Expect(a.Snapshot().Particles).To(Equal(b.Snapshot().Particles))
		})

		It("matches between the serial and cpu backends", func() {
			cfg := smallScene()
			cfg.Solver = "pbf"

			serial := newEngine(cfg)
			cpu := newEngine(cfg, sim.WithBackend(compute.NewCPUBackend(4).WithMinChunk(8)))
			for n := 0; n < 20; n++ {
				_, err := serial.Step()
				Expect(err).NotTo(HaveOccurred())
				_, err = cpu.Step()
				Expect(err).NotTo(HaveOccurred())
			}
			Expect(cpu.Snapshot().Particles).To(Equal(serial.Snapshot().Particles))
		})
	})

	It("keeps net momentum near zero for a symmetric block without gravity", func() {
		cfg := smallScene()
		cfg.Physics.Gravity = config.Vec3{}
		params, err := cfg.Params()
		Expect(err).NotTo(HaveOccurred())

		momentum := metrics.NewMomentum(params.Mass)
		e := newEngine(cfg, sim.WithMetrics(momentum))
		_, err = e.Run(context.Background(), 10)
		Expect(err).NotTo(HaveOccurred())
		Expect(momentum.Max()).To(BeNumerically("<", 1e-6))
	})

	It("treats a regular tetrahedron symmetrically", func() {
		cfg := smallScene()
		cfg.Physics.Gravity = config.Vec3{}
		// edge length 0.5h
		s := 0.5 / (2 * math.Sqrt2)
		ps := []fluid.Particle{
			{Position: r3.Vec{X: s, Y: s, Z: s}},
			{Position: r3.Vec{X: s, Y: -s, Z: -s}},
			{Position: r3.Vec{X: -s, Y: s, Z: -s}},
			{Position: r3.Vec{X: -s, Y: -s, Z: s}},
		}
		e := newEngine(cfg, sim.WithParticles(ps))
		Expect(e.Len()).To(Equal(4))
		_, err := e.Step()
		Expect(err).NotTo(HaveOccurred())

		self := cfg.Physics.Mass * kernels.New(cfg.Physics.SmoothingRadius).Poly6(0)
		snap := e.Snapshot()
		var centroid r3.Vec
		for _, p := range snap.Particles {
			Expect(p.Density).To(BeNumerically(">", self))
			Expect(p.Density).To(BeNumerically("~", snap.Particles[0].Density, 1e-9))
			centroid = r3.Add(centroid, p.Position)
		}
		Expect(r3.Norm(centroid)).To(BeNumerically("<", 1e-9))
	})

	It("records PBF residuals for every iteration", func() {
		cfg := smallScene()
		cfg.Solver = "pbf"
		e := newEngine(cfg)
		Expect(e.Residuals()).To(BeEmpty())
		_, err := e.Step()
		Expect(err).NotTo(HaveOccurred())
		Expect(e.Residuals()).To(HaveLen(cfg.Physics.Iterations))
	})

	It("notifies observers once per tick", func() {
		var calls int
		var last uint64
		obs := sim.ObserverFunc(func(f sim.Frame) {
			calls++
			last = f.Tick
		})
		e := newEngine(smallScene(), sim.WithObservers(obs))
		res, err := e.Run(context.Background(), 5)
		Expect(err).NotTo(HaveOccurred())
		Expect(calls).To(Equal(5))
		Expect(last).To(Equal(uint64(5)))
		Expect(res.Times).To(HaveLen(5))
		Expect(res.Time).To(BeNumerically("~", 5*config.DefaultDt, 1e-12))
		Expect(res.Perf.Ticks).To(BeNumerically(">", 0))
	})
})

var _ = Describe("Runner", func() {
	It("publishes frames at the tick rate until cancelled", func() {
		e := newEngine(smallScene())
		r := sim.NewRunner(e, 500)
		var frames atomic.Int64
		r.Subscribe(func(f sim.Frame) { frames.Add(1) })

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- r.Run(ctx) }()

		Eventually(frames.Load).WithTimeout(5 * time.Second).Should(BeNumerically(">=", 3))
		cancel()
		Eventually(done).Should(Receive(BeNil()))
	})

	It("skips ticks while the engine is paused", func() {
		e := newEngine(smallScene(), sim.StartPaused())
		r := sim.NewRunner(e, 500)
		var frames atomic.Int64
		r.Subscribe(func(f sim.Frame) { frames.Add(1) })

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go func() { _ = r.Run(ctx) }()

		Consistently(frames.Load).WithTimeout(50 * time.Millisecond).Should(BeZero())
		Expect(e.RequestSingleStep()).To(Succeed())
		Eventually(frames.Load).WithTimeout(time.Second).Should(Equal(int64(1)))
		Expect(e.Tick()).To(Equal(uint64(1)))
	})
})

var _ = Describe("Ensemble", func() {
	It("runs every member with its own seed", func() {
		cfg := smallScene()
		cfg.Steps = 5
		cfg.Spawn.Pattern = "jittered"
		cfg.Spawn.Jitter = 0.05

		results, err := sim.NewEnsemble(cfg, 3, 7, 2).WithLogger(quiet).Run(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(results).To(HaveLen(3))
		for _, res := range results {
			Expect(res.StepsTaken).To(Equal(5))
			Expect(math.IsNaN(res.Metrics["kinetic_energy"])).To(BeFalse())
		}
		Expect(results[0].Metrics["kinetic_energy"]).NotTo(Equal(results[1].Metrics["kinetic_energy"]))
	})
})
