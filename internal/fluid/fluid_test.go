package fluid

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

func validParams() Params {
	return Params{
		Mode:            SPH,
		SmoothingRadius: 1,
		RestDensity:     1,
		Stiffness:       10,
		Viscosity:       0.1,
		Mass:            1,
		Gravity:         r3.Vec{Y: -9.81},
		Dt:              0.01,
		Damping:         0.3,
		ParticleRadius:  0.1,
		Iterations:      4,
		Relaxation:      100,
	}
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in   string
		want Mode
		err  bool
	}{
		{"sph", SPH, false},
		{"PBF", PBF, false},
		{" pbf ", PBF, false},
		{"flip", 0, true},
	}

	for _, tt := range tests {
		got, err := ParseMode(tt.in)
		if tt.err {
			if !errors.Is(err, ErrUnknownMode) {
				t.Errorf("ParseMode(%q): expected ErrUnknownMode, got %v", tt.in, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ParseMode(%q) = %v, %v; want %v", tt.in, got, err, tt.want)
		}
	}
}

func TestParamsValidate(t *testing.T) {
	tests := []struct {
		name  string
		mut   func(p *Params)
		field string
	}{
		{"zero radius", func(p *Params) { p.SmoothingRadius = 0 }, "smoothing_radius"},
		{"negative radius", func(p *Params) { p.SmoothingRadius = -1 }, "smoothing_radius"},
		{"zero mass", func(p *Params) { p.Mass = 0 }, "mass"},
		{"nan mass", func(p *Params) { p.Mass = math.NaN() }, "mass"},
		{"zero dt", func(p *Params) { p.Dt = 0 }, "dt"},
		{"damping above one", func(p *Params) { p.Damping = 1.5 }, "damping"},
		{"pbf without relaxation", func(p *Params) { p.Mode = PBF; p.Relaxation = 0 }, "relaxation"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validParams()
			tt.mut(&p)
			err := p.Validate()
			if !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("expected ErrInvalidConfig, got %v", err)
			}
			var ce *ConfigError
			if !errors.As(err, &ce) || ce.Field != tt.field {
				t.Errorf("expected field %s, got %v", tt.field, err)
			}
		})
	}

	p := validParams()
	p.Iterations = 0
	if err := p.Validate(); err != nil {
		t.Errorf("zero iterations must be accepted, got %v", err)
	}
}

func TestSetParam(t *testing.T) {
	p := validParams()

	if err := p.SetParam("viscosity", 0.5); err != nil {
		t.Fatal(err)
	}
	if p.Viscosity != 0.5 {
		t.Errorf("expected viscosity 0.5, got %f", p.Viscosity)
	}

	if err := p.SetParam("gravity_y", 0); err != nil {
		t.Fatal(err)
	}
	if p.GetParams()["gravity_y"] != 0 {
		t.Error("expected gravity_y 0")
	}

	if err := p.SetParam("smoothing_radius", 2); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("smoothing radius must be immutable, got %v", err)
	}
	if err := p.SetParam("mass", 0); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected rejection of zero mass, got %v", err)
	}
	if p.Mass != 1 {
		t.Errorf("rejected update must not apply, mass=%f", p.Mass)
	}
	if err := p.SetParam("nope", 1); err == nil {
		t.Error("expected error for unknown parameter")
	}
}

func TestStoreCopyIsolated(t *testing.T) {
	src := []Particle{{Position: r3.Vec{X: 1}}, {Position: r3.Vec{X: 2}}}
	s := NewStore(src)
	src[0].Position.X = 99

	if s.Particles()[0].Position.X != 1 {
		t.Error("store must copy its input")
	}

	snap := s.CopyTo(nil)
	snap[1].Position.X = -5
	if s.Particles()[1].Position.X != 2 {
		t.Error("CopyTo must not alias the store")
	}
	if s.Len() != 2 {
		t.Errorf("expected 2 particles, got %d", s.Len())
	}
}

func TestStoreValidate(t *testing.T) {
	s := NewStore(make([]Particle, 3))
	if err := s.Validate(); err != nil {
		t.Fatal(err)
	}

	s.Particles()[2].Velocity.Z = math.Inf(1)
	err := s.Validate()
	if !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
	var pe *ParticleError
	if !errors.As(err, &pe) || pe.Index != 2 {
		t.Errorf("expected particle 2, got %v", err)
	}
}

func TestDomain(t *testing.T) {
	d := Domain{Extents: r3.Vec{X: 1, Y: 2, Z: 1}}

	if !d.Contains(r3.Vec{X: 0.9, Y: -1.9}, 0.1) {
		t.Error("expected point inside")
	}
	if d.Contains(r3.Vec{X: 0.95}, 0.1) {
		t.Error("expected point outside shrunk box")
	}
	if err := d.Validate(1.5); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected extents error, got %v", err)
	}

	box := d.Box()
	if box.Min.Y != -2 || box.Max.Y != 2 {
		t.Errorf("unexpected box %v", box)
	}
}
