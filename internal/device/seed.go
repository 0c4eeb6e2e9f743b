package device

import (
	"context"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// seedFile is the YAML shape of a device seed file.
type seedFile struct {
	Devices []Device `yaml:"devices"`
}

// SeedFromFile loads device definitions from a YAML file and creates any
// that are not already registered. Devices already in the registry win:
// the seed file is a bootstrap convenience, not a source of truth, so a
// definition edited through the API is never clobbered on restart.
//
// Returns the number of devices created.
func (r *Registry) SeedFromFile(ctx context.Context, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("reading seed file: %w", err)
	}

	var seed seedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return 0, fmt.Errorf("parsing seed file %s: %w", path, err)
	}

	created := 0
	for i := range seed.Devices {
		d := seed.Devices[i]
		if err := r.CreateDevice(ctx, &d); err != nil {
			if errors.Is(err, ErrDeviceExists) {
				continue
			}
			return created, fmt.Errorf("seeding device %q: %w", d.ID, err)
		}
		created++
	}

	return created, nil
}
