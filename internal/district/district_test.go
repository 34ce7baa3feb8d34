package district

import (
	"bytes"
	"errors"
	"math"
	"strings"
	"sync"
	"testing"

	"github.com/Agrid-Dev/docalc/internal/overlap"
)

var testCOP = overlap.COP{HeatPump: 4, Chiller: 5}

func almostEqual(a, b, tolerance float64) bool {
	return math.Abs(a-b) <= tolerance
}

func assertErrorIs(t *testing.T, err, want error) {
	t.Helper()
	if !errors.Is(err, want) {
		t.Fatalf("expected %v, got %v", want, err)
	}
}

// sineAndConstant builds one seasonal building and one with flat demand.
func sineAndConstant(steps int) []Building {
	heat1 := make(overlap.Profile, steps)
	cool1 := make(overlap.Profile, steps)
	heat2 := make(overlap.Profile, steps)
	cool2 := make(overlap.Profile, steps)
	for i := 0; i < steps; i++ {
		x := float64(i) / float64(steps) * 2 * math.Pi
		heat1[i] = math.Sin(x+math.Pi/2) + 1
		cool1[i] = math.Sin(x-math.Pi/2) + 1
		heat2[i] = 1
		cool2[i] = 2
	}
	return []Building{
		{Name: "building-1", Heat: heat1, Cool: cool1},
		{Name: "building-2", Heat: heat2, Cool: cool2},
	}
}

func TestEvaluateExampleDistrict(t *testing.T) {
	rep, err := Evaluate("district", testCOP, sineAndConstant(8760))
	if err != nil {
		t.Fatalf("Evaluate() failed: %v", err)
	}

	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"district", rep.DistrictDOC, 0.712802},
		{"duration", rep.DurationDOC, 0.8},
		{"mean bes", rep.MeanBESDOC, 0.426546},
		{"network", rep.NetworkDOC, 0.281956},
		{"bes building-1", rep.Buildings[0].BESDOC, 0.346352},
		{"bes building-2", rep.Buildings[1].BESDOC, 0.476190},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !almostEqual(tt.got, tt.want, 1e-5) {
				t.Errorf("%s DOC = %v, want %v", tt.name, tt.got, tt.want)
			}
		})
	}

	if rep.Steps != 8760 || len(rep.Heat) != 8760 || len(rep.Balanced) != 8760 {
		t.Fatalf("unexpected series length: steps=%d heat=%d balanced=%d", rep.Steps, len(rep.Heat), len(rep.Balanced))
	}
	if rep.HeatCurve.Len() != 8760 || rep.CoolCurve.Len() != 8760 {
		t.Fatalf("unexpected duration curve length")
	}
	if rep.Buildings[0].Name != "building-1" {
		t.Fatalf("unexpected building order: %v", rep.Buildings)
	}
}

func TestEvaluateSingleBuilding(t *testing.T) {
	b := Building{Name: "solo", Heat: overlap.Profile{4, 4}, Cool: overlap.Profile{5, 5}}
	rep, err := Evaluate("d", testCOP, []Building{b})
	if err != nil {
		t.Fatal(err)
	}
	if !almostEqual(rep.MeanBESDOC, rep.Buildings[0].BESDOC, 1e-12) {
		t.Fatalf("mean BES DOC %v differs from single BES DOC %v", rep.MeanBESDOC, rep.Buildings[0].BESDOC)
	}
	// a lone building already balanced itself, nothing is left for the network
	if rep.NetworkDOC != 0 {
		t.Fatalf("NetworkDOC = %v, want 0", rep.NetworkDOC)
	}
}

func TestEvaluateBuildingWithoutDemand(t *testing.T) {
	active := Building{Name: "a", Heat: overlap.Profile{4, 2}, Cool: overlap.Profile{2, 4}}

	tests := []struct {
		name     string
		cop      overlap.COP
		building Building
	}{
		{"idle", testCOP, Building{Name: "idle", Heat: overlap.Profile{0, 0}, Cool: overlap.Profile{0, 0}}},
		// a heat pump with COP 1 draws nothing from the network
		{"heat only at cop 1", overlap.COP{HeatPump: 1, Chiller: 5}, Building{Name: "hot", Heat: overlap.Profile{3, 3}, Cool: overlap.Profile{0, 0}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rep, err := Evaluate("d", tt.cop, []Building{active, tt.building})
			if err != nil {
				t.Fatalf("Evaluate() failed: %v", err)
			}
			if rep.Buildings[1].BESDOC != 0 {
				t.Fatalf("BES DOC of %s = %v, want 0", tt.building.Name, rep.Buildings[1].BESDOC)
			}
			if rep.Buildings[0].BESDOC <= 0 {
				t.Fatalf("BES DOC of active building = %v", rep.Buildings[0].BESDOC)
			}
			// the empty building adds nothing to the demand-weighted mean
			if !almostEqual(rep.MeanBESDOC, rep.Buildings[0].BESDOC, 1e-12) {
				t.Fatalf("MeanBESDOC = %v, want %v", rep.MeanBESDOC, rep.Buildings[0].BESDOC)
			}
			if rep.DistrictDOC <= 0 || rep.DistrictDOC > 1 {
				t.Fatalf("DistrictDOC = %v", rep.DistrictDOC)
			}
		})
	}

	rep, err := Evaluate("d", testCOP, []Building{active, tests[0].building})
	if err != nil {
		t.Fatal(err)
	}
	if !almostEqual(rep.DistrictDOC, 2.0/3.0, 1e-12) {
		t.Fatalf("DistrictDOC = %v, want 2/3", rep.DistrictDOC)
	}
}

func TestEvaluateValidation(t *testing.T) {
	valid := Building{Name: "a", Heat: overlap.Profile{1}, Cool: overlap.Profile{1}}
	tests := []struct {
		name      string
		id        string
		cop       overlap.COP
		buildings []Building
		want      error
	}{
		{"empty id", "", testCOP, []Building{valid}, ErrEmptyID},
		{"no buildings", "d", testCOP, nil, overlap.ErrNoBuildings},
		{"invalid cop", "d", overlap.COP{HeatPump: 0.5, Chiller: 5}, []Building{valid}, overlap.ErrInvalidCOP},
		{"duplicate names", "d", testCOP, []Building{valid, valid}, ErrDuplicateBuilding},
		{"unnamed", "d", testCOP, []Building{{Heat: overlap.Profile{1}, Cool: overlap.Profile{1}}}, ErrUnnamedBuilding},
		{"length mismatch", "d", testCOP, []Building{{Name: "a", Heat: overlap.Profile{1, 2}, Cool: overlap.Profile{1}}}, overlap.ErrLengthMismatch},
		{"negative demand", "d", testCOP, []Building{{Name: "a", Heat: overlap.Profile{-1}, Cool: overlap.Profile{1}}}, overlap.ErrNegativeDemand},
		{"different horizons", "d", testCOP, []Building{valid, {Name: "b", Heat: overlap.Profile{1, 1}, Cool: overlap.Profile{1, 1}}}, overlap.ErrLengthMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Evaluate(tt.id, tt.cop, tt.buildings)
			assertErrorIs(t, err, tt.want)
		})
	}
}

type spyObserver struct {
	reports []Report
	errs    []error
}

func (s *spyObserver) Observe(r Report)       { s.reports = append(s.reports, r) }
func (s *spyObserver) ObserveError(err error) { s.errs = append(s.errs, err) }

func newTestDistrict(t *testing.T, opts ...Option) *District {
	t.Helper()
	d, err := New("district", testCOP, sineAndConstant(24), opts...)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	return d
}

func TestNewEvaluatesImmediately(t *testing.T) {
	obs := &spyObserver{}
	d := newTestDistrict(t, WithObserver(obs))

	if d.ID() != "district" {
		t.Fatalf("ID() = %q", d.ID())
	}
	if len(obs.reports) != 1 {
		t.Fatalf("expected 1 observed report, got %d", len(obs.reports))
	}
	if d.Report().DistrictDOC != obs.reports[0].DistrictDOC {
		t.Fatalf("stored report differs from observed one")
	}
	if d.COP() != testCOP {
		t.Fatalf("COP() = %v, want %v", d.COP(), testCOP)
	}
}

func TestNewRejectsInvalidBuildings(t *testing.T) {
	obs := &spyObserver{}
	_, err := New("district", testCOP, nil, WithObserver(obs))
	assertErrorIs(t, err, overlap.ErrNoBuildings)
	if len(obs.errs) != 1 {
		t.Fatalf("expected error to be observed, got %d", len(obs.errs))
	}
}

func TestSetBuildings(t *testing.T) {
	d := newTestDistrict(t)

	rep, err := d.SetBuildings([]Building{
		{Name: "a", Heat: overlap.Profile{10, 10, 10, 10}, Cool: overlap.Profile{10, 10, 10, 10}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if rep.DistrictDOC != 1 {
		t.Fatalf("DistrictDOC = %v, want 1", rep.DistrictDOC)
	}
	if got := d.Buildings(); len(got) != 1 || got[0].Name != "a" {
		t.Fatalf("Buildings() = %v", got)
	}
	if d.Report().Steps != 4 {
		t.Fatalf("report not replaced, steps=%d", d.Report().Steps)
	}
}

func TestSetBuildingsFailureKeepsState(t *testing.T) {
	d := newTestDistrict(t)
	before := d.Report()

	_, err := d.SetBuildings([]Building{{Name: "a", Heat: overlap.Profile{1}, Cool: overlap.Profile{1, 2}}})
	assertErrorIs(t, err, overlap.ErrLengthMismatch)

	if d.Report().DistrictDOC != before.DistrictDOC || len(d.Buildings()) != 2 {
		t.Fatalf("state changed after rejected update")
	}
}

func TestSetCOP(t *testing.T) {
	d := newTestDistrict(t)
	before := d.Report()

	rep, err := d.SetCOP(overlap.COP{HeatPump: 3, Chiller: 3})
	if err != nil {
		t.Fatal(err)
	}
	if rep.MeanBESDOC == before.MeanBESDOC {
		t.Fatalf("mean BES DOC unchanged after COP update")
	}
	// raw district demand does not depend on COP
	if rep.DistrictDOC != before.DistrictDOC {
		t.Fatalf("district DOC changed: %v vs %v", rep.DistrictDOC, before.DistrictDOC)
	}

	_, err = d.SetCOP(overlap.COP{HeatPump: 0, Chiller: 3})
	assertErrorIs(t, err, overlap.ErrInvalidCOP)
	if d.COP().HeatPump != 3 {
		t.Fatalf("COP changed after rejected update: %v", d.COP())
	}
}

func TestUpdateCOP(t *testing.T) {
	d := newTestDistrict(t)

	rep, err := d.UpdateCOP(func(c overlap.COP) overlap.COP {
		c.Chiller = 3
		return c
	})
	if err != nil {
		t.Fatal(err)
	}
	if got := d.COP(); got != (overlap.COP{HeatPump: testCOP.HeatPump, Chiller: 3}) {
		t.Fatalf("COP = %v", got)
	}
	if rep.MeanBESDOC != d.Report().MeanBESDOC {
		t.Fatal("returned report is not the stored one")
	}

	_, err = d.UpdateCOP(func(c overlap.COP) overlap.COP {
		c.HeatPump = 0.5
		return c
	})
	assertErrorIs(t, err, overlap.ErrInvalidCOP)
	if d.COP().HeatPump != testCOP.HeatPump {
		t.Fatalf("COP changed after rejected update: %v", d.COP())
	}
}

func TestUpdateCOPConcurrentFieldsKeepBothWrites(t *testing.T) {
	d := newTestDistrict(t)

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = d.UpdateCOP(func(c overlap.COP) overlap.COP {
				c.HeatPump += 0.5
				return c
			})
		}()
		go func() {
			defer wg.Done()
			_, _ = d.UpdateCOP(func(c overlap.COP) overlap.COP {
				c.Chiller += 0.5
				return c
			})
		}()
	}
	wg.Wait()

	want := overlap.COP{HeatPump: testCOP.HeatPump + n*0.5, Chiller: testCOP.Chiller + n*0.5}
	if got := d.COP(); got != want {
		t.Fatalf("COP = %v, want %v", got, want)
	}
}

func TestBuildingsReturnsCopies(t *testing.T) {
	d := newTestDistrict(t)
	got := d.Buildings()
	got[0].Heat[0] = 1e6

	if d.Buildings()[0].Heat[0] == 1e6 {
		t.Fatal("Buildings() exposes internal slices")
	}
}

func TestWriteYAML(t *testing.T) {
	rep, err := Evaluate("district", testCOP, sineAndConstant(48))
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := WriteYAML(&buf, rep); err != nil {
		t.Fatalf("WriteYAML() failed: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"district_id: district", "steps: 48", "district_doc:", "network_doc:", "- name: building-1", "bes_doc:"} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "heat:") {
		t.Errorf("report should not contain series:\n%s", out)
	}
}
