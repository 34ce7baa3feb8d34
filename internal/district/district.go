package district

import (
	"fmt"
	"sync"

	"github.com/Agrid-Dev/docalc/internal/overlap"
)

// Observer is notified after every evaluation attempt.
type Observer interface {
	Observe(Report)
	ObserveError(error)
}

type Option func(*District)

func WithObserver(o Observer) Option {
	return func(d *District) {
		d.observers = append(d.observers, o)
	}
}

// District keeps the current buildings and COP and the report computed from
// them. Updates are all-or-nothing: a rejected update keeps the old state.
type District struct {
	mu        sync.RWMutex
	id        string
	cop       overlap.COP
	buildings []Building
	report    Report

	observers []Observer
}

func New(id string, cop overlap.COP, buildings []Building, opts ...Option) (*District, error) {
	d := &District{}
	for _, opt := range opts {
		opt(d)
	}
	rep, err := d.evaluate(id, cop, buildings)
	if err != nil {
		return nil, err
	}
	d.id = id
	d.cop = cop
	d.buildings = cloneBuildings(buildings)
	d.report = rep
	return d, nil
}

func (d *District) ID() string {
	return d.id
}

func (d *District) Report() Report {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.report
}

func (d *District) Buildings() []Building {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return cloneBuildings(d.buildings)
}

func (d *District) COP() overlap.COP {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.cop
}

func (d *District) SetBuildings(buildings []Building) (Report, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	rep, err := d.evaluate(d.id, d.cop, buildings)
	if err != nil {
		return Report{}, fmt.Errorf("set buildings: %w", err)
	}
	d.buildings = cloneBuildings(buildings)
	d.report = rep
	return rep, nil
}

func (d *District) SetCOP(cop overlap.COP) (Report, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	rep, err := d.evaluate(d.id, cop, d.buildings)
	if err != nil {
		return Report{}, fmt.Errorf("set cop: %w", err)
	}
	d.cop = cop
	d.report = rep
	return rep, nil
}

// UpdateCOP applies fn to the current COP and re-evaluates, holding the
// lock across the read and the write. Used for partial updates.
func (d *District) UpdateCOP(fn func(overlap.COP) overlap.COP) (Report, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	cop := fn(d.cop)
	rep, err := d.evaluate(d.id, cop, d.buildings)
	if err != nil {
		return Report{}, fmt.Errorf("update cop: %w", err)
	}
	d.cop = cop
	d.report = rep
	return rep, nil
}

func (d *District) evaluate(id string, cop overlap.COP, buildings []Building) (Report, error) {
	rep, err := Evaluate(id, cop, buildings)
	for _, o := range d.observers {
		if err != nil {
			o.ObserveError(err)
			continue
		}
		o.Observe(rep)
	}
	return rep, err
}

func cloneBuildings(in []Building) []Building {
	out := make([]Building, len(in))
	for i, b := range in {
		out[i] = Building{Name: b.Name, Heat: b.Heat.Clone(), Cool: b.Cool.Clone()}
	}
	return out
}
