package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/Agrid-Dev/docalc/internal/district"
	"github.com/Agrid-Dev/docalc/internal/profile"
)

// WriteExampleProfiles dumps the synthetic example buildings as CSV files
// that can be listed under profiles.buildings in the config.
func WriteExampleProfiles(dir string, steps int) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output dir: %v", err)
	}
	for _, b := range profile.ExampleBuildings(steps) {
		if err := writeBuilding(filepath.Join(dir, b.Name+".csv"), b); err != nil {
			return err
		}
	}
	return nil
}

func writeBuilding(path string, b district.Building) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %v", err)
	}
	defer file.Close()

	if err := profile.WriteCSV(file, b); err != nil {
		return fmt.Errorf("failed to write %s: %v", b.Name, err)
	}
	return nil
}

func main() {
	dir := flag.String("out", "profiles", "output directory")
	steps := flag.Int("steps", profile.HoursPerYear, "timesteps per profile")
	flag.Parse()

	if err := WriteExampleProfiles(*dir, *steps); err != nil {
		log.Fatal(err)
	}
}
