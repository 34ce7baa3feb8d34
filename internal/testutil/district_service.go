package testutil

import (
	"github.com/Agrid-Dev/docalc/internal/district"
	"github.com/Agrid-Dev/docalc/internal/overlap"
)

// FakeDistrictService is a reusable fake implementing ports.DistrictService.
// Put ONLY what multiple test packages need here.
type FakeDistrictService struct {
	R district.Report
	B []district.Building
	C overlap.COP

	SetBuildingsCalled bool
	SetBuildingsArg    []district.Building
	SetBuildingsErr    error

	SetCOPCalled bool
	SetCOPArg    overlap.COP
	SetCOPErr    error

	UpdateCOPCalled bool
}

func NewFakeDistrictService() *FakeDistrictService {
	return &FakeDistrictService{
		R: district.Report{
			DistrictID:  "default",
			Steps:       2,
			DistrictDOC: 0.5,
			DurationDOC: 0.75,
			MeanBESDOC:  0.25,
			NetworkDOC:  0.125,
			Buildings: []district.BuildingReport{
				{Name: "building-1", BESDOC: 0.25},
			},
		},
		B: []district.Building{
			{Name: "building-1", Heat: overlap.Profile{2, 0}, Cool: overlap.Profile{1, 1}},
		},
		C: overlap.COP{HeatPump: 4, Chiller: 5},
	}
}

func (f *FakeDistrictService) Report() district.Report        { return f.R }
func (f *FakeDistrictService) Buildings() []district.Building { return f.B }
func (f *FakeDistrictService) COP() overlap.COP               { return f.C }

func (f *FakeDistrictService) SetBuildings(b []district.Building) (district.Report, error) {
	f.SetBuildingsCalled = true
	f.SetBuildingsArg = b
	if f.SetBuildingsErr != nil {
		return district.Report{}, f.SetBuildingsErr
	}
	f.B = b
	f.R.Buildings = make([]district.BuildingReport, len(b))
	for i, bb := range b {
		f.R.Buildings[i] = district.BuildingReport{Name: bb.Name}
	}
	return f.R, nil
}

func (f *FakeDistrictService) SetCOP(c overlap.COP) (district.Report, error) {
	f.SetCOPCalled = true
	f.SetCOPArg = c
	if f.SetCOPErr != nil {
		return district.Report{}, f.SetCOPErr
	}
	f.C = c
	return f.R, nil
}

func (f *FakeDistrictService) UpdateCOP(fn func(overlap.COP) overlap.COP) (district.Report, error) {
	f.UpdateCOPCalled = true
	return f.SetCOP(fn(f.C))
}
