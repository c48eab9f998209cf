package persist

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/gogpu/rescache"
)

const (
	globalFile = "global.yaml"
	devicesDir = "devices"

	manifestVersion = 1
)

// ErrUnknownCacher is returned by Verify when a manifest names a cacher
// that is not registered in the running system.
var ErrUnknownCacher = errors.New("persist: manifest names an unregistered cacher")

// CacherManifest records the observable state of one cacher instance.
type CacherManifest struct {
	Name      string `yaml:"name"`
	Entries   int    `yaml:"entries"`
	Hits      uint64 `yaml:"hits"`
	Misses    uint64 `yaml:"misses"`
	Creations uint64 `yaml:"creations"`
	Evictions uint64 `yaml:"evictions"`
}

// DeviceManifest records the cachers scoped to one device.
type DeviceManifest struct {
	DeviceID    uint64           `yaml:"device_id"`
	Description string           `yaml:"description"`
	Cachers     []CacherManifest `yaml:"cachers"`
}

// Manifest is a point-in-time snapshot of a whole caching system.
type Manifest struct {
	Version int              `yaml:"version"`
	SavedAt time.Time        `yaml:"saved_at"`
	Global  []CacherManifest `yaml:"global"`
	Devices []DeviceManifest `yaml:"devices"`
}

// scopeFile is the on-disk shape of global.yaml.
type scopeFile struct {
	Version int              `yaml:"version"`
	SavedAt time.Time        `yaml:"saved_at"`
	Cachers []CacherManifest `yaml:"cachers"`
}

// deviceFile is the on-disk shape of devices/device-<id>.yaml.
type deviceFile struct {
	Version     int              `yaml:"version"`
	SavedAt     time.Time        `yaml:"saved_at"`
	DeviceID    uint64           `yaml:"device_id"`
	Description string           `yaml:"description"`
	Cachers     []CacherManifest `yaml:"cachers"`
}

// Snapshot captures the current state of mc as a Manifest.
func Snapshot(mc *rescache.MainCacher) *Manifest {
	m := &Manifest{
		Version: manifestVersion,
		SavedAt: time.Now().UTC(),
		Global:  cacherManifests(mc.GlobalSnapshot()),
	}
	for _, dr := range mc.DeviceSnapshots() {
		m.Devices = append(m.Devices, DeviceManifest{
			DeviceID:    dr.Device().ID(),
			Description: dr.Device().Description(),
			Cachers:     cacherManifests(dr.Instances()),
		})
	}
	sort.Slice(m.Devices, func(i, j int) bool {
		return m.Devices[i].DeviceID < m.Devices[j].DeviceID
	})
	return m
}

func cacherManifests(instances []rescache.Instance) []CacherManifest {
	out := make([]CacherManifest, 0, len(instances))
	for _, inst := range instances {
		s := inst.Stats()
		out = append(out, CacherManifest{
			Name:      inst.Name(),
			Entries:   s.Len,
			Hits:      s.Hits,
			Misses:    s.Misses,
			Creations: s.Creations,
			Evictions: s.Evictions,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Save snapshots mc and writes its manifest files under dir: global.yaml
// for process-wide cachers and devices/device-<id>.yaml per device. All
// files are written in parallel; the first failure cancels the rest.
func Save(ctx context.Context, dir string, mc *rescache.MainCacher) error {
	m := Snapshot(mc)

	if err := os.MkdirAll(filepath.Join(dir, devicesDir), 0o755); err != nil {
		return fmt.Errorf("persist: create manifest dir: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return writeYAML(ctx, filepath.Join(dir, globalFile), scopeFile{
			Version: m.Version,
			SavedAt: m.SavedAt,
			Cachers: m.Global,
		})
	})

	for _, dm := range m.Devices {
		g.Go(func() error {
			return writeYAML(ctx, deviceFilePath(dir, dm.DeviceID), deviceFile{
				Version:     m.Version,
				SavedAt:     m.SavedAt,
				DeviceID:    dm.DeviceID,
				Description: dm.Description,
				Cachers:     dm.Cachers,
			})
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	rescache.Logger().Info("manifest saved",
		"dir", dir, "global", len(m.Global), "devices", len(m.Devices))
	return nil
}

func deviceFilePath(dir string, id uint64) string {
	return filepath.Join(dir, devicesDir, fmt.Sprintf("device-%d.yaml", id))
}

func writeYAML(ctx context.Context, path string, v any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("persist: marshal %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("persist: write %s: %w", filepath.Base(path), err)
	}
	return nil
}

// Load reads a manifest previously written by Save. A missing devices
// directory is treated as a system with no device registries.
func Load(dir string) (*Manifest, error) {
	var scope scopeFile
	if err := readYAML(filepath.Join(dir, globalFile), &scope); err != nil {
		return nil, err
	}

	m := &Manifest{
		Version: scope.Version,
		SavedAt: scope.SavedAt,
		Global:  scope.Cachers,
	}

	entries, err := os.ReadDir(filepath.Join(dir, devicesDir))
	if err != nil {
		if os.IsNotExist(err) {
			return m, nil
		}
		return nil, fmt.Errorf("persist: read devices dir: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		var df deviceFile
		if err := readYAML(filepath.Join(dir, devicesDir, entry.Name()), &df); err != nil {
			return nil, err
		}
		m.Devices = append(m.Devices, DeviceManifest{
			DeviceID:    df.DeviceID,
			Description: df.Description,
			Cachers:     df.Cachers,
		})
	}
	sort.Slice(m.Devices, func(i, j int) bool {
		return m.Devices[i].DeviceID < m.Devices[j].DeviceID
	})
	return m, nil
}

func readYAML(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("persist: read %s: %w", filepath.Base(path), err)
	}
	if err := yaml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("persist: parse %s: %w", filepath.Base(path), err)
	}
	return nil
}

// Verify checks a loaded manifest against a running system: every cacher
// name the manifest records must correspond to a current registration.
// It reports all unknown names in one error.
func Verify(m *Manifest, mc *rescache.MainCacher) error {
	registered := make(map[string]struct{})
	for _, name := range mc.RegisteredTypes() {
		registered[name] = struct{}{}
	}

	var unknown []string
	seen := make(map[string]struct{})
	check := func(cm CacherManifest) {
		if _, ok := registered[cm.Name]; ok {
			return
		}
		if _, dup := seen[cm.Name]; dup {
			return
		}
		seen[cm.Name] = struct{}{}
		unknown = append(unknown, cm.Name)
	}

	for _, cm := range m.Global {
		check(cm)
	}
	for _, dm := range m.Devices {
		for _, cm := range dm.Cachers {
			check(cm)
		}
	}

	if len(unknown) > 0 {
		sort.Strings(unknown)
		return fmt.Errorf("%w: %s", ErrUnknownCacher, strings.Join(unknown, ", "))
	}
	return nil
}
