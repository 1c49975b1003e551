package store

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"time"

	"github.com/i474232898/solar-report/internal/common"
	"github.com/i474232898/solar-report/internal/irradiance"
	"github.com/i474232898/solar-report/internal/site"
)

var fileNamePattern = regexp.MustCompile(`^(\d+)_(forecast|actuals)_(\d{4})_(\d{1,2})_(\d{1,2})_(\d{1,2})\.csv$`)

// FileStore keeps one CSV per fetch in each site's directory. Files are
// never pruned; a second fetch within the same hour replaces the first.
type FileStore struct{}

// NewFileStore creates a new FileStore.
func NewFileStore() *FileStore {
	return &FileStore{}
}

// FileName returns {id}_{kind}_{year}_{month}_{day}_{hour}.csv for at's wall clock.
func FileName(id int, kind irradiance.Kind, at time.Time) string {
	return fmt.Sprintf("%d_%s_%d_%d_%d_%d.csv", id, kind, at.Year(), int(at.Month()), at.Day(), at.Hour())
}

// ParseFileName reverses FileName. The returned time carries no zone information.
func ParseFileName(name string) (id int, kind irradiance.Kind, at time.Time, ok bool) {
	m := fileNamePattern.FindStringSubmatch(name)
	if m == nil {
		return 0, "", time.Time{}, false
	}
	nums := make([]int, 0, 5)
	for _, s := range []string{m[1], m[3], m[4], m[5], m[6]} {
		n, err := strconv.Atoi(s)
		if err != nil {
			return 0, "", time.Time{}, false
		}
		nums = append(nums, n)
	}
	month, day, hour := nums[2], nums[3], nums[4]
	if month < 1 || month > 12 || day < 1 || day > 31 || hour > 23 {
		return 0, "", time.Time{}, false
	}
	at = time.Date(nums[1], time.Month(month), day, hour, 0, 0, 0, time.UTC)
	return nums[0], irradiance.Kind(m[2]), at, true
}

// SaveForecasts writes recs to the site's forecast file for the hour of at.
func (s *FileStore) SaveForecasts(st site.Site, at time.Time, recs []irradiance.Forecast) (string, error) {
	path := filepath.Join(st.Dir, FileName(st.ID, irradiance.KindForecast, at))
	return path, writeAtomic(path, func(w io.Writer) error {
		return irradiance.WriteForecastsCSV(w, recs)
	})
}

// SaveActuals writes recs to the site's actuals file for the hour of at.
func (s *FileStore) SaveActuals(st site.Site, at time.Time, recs []irradiance.Actual) (string, error) {
	path := filepath.Join(st.Dir, FileName(st.ID, irradiance.KindActuals, at))
	return path, writeAtomic(path, func(w io.Writer) error {
		return irradiance.WriteActualsCSV(w, recs)
	})
}

// LatestForecasts loads the newest forecast snapshot of the site.
func (s *FileStore) LatestForecasts(st site.Site) (string, []irradiance.Forecast, error) {
	path, err := s.Latest(st, irradiance.KindForecast)
	if err != nil {
		return "", nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return "", nil, err
	}
	defer f.Close()

	recs, err := irradiance.ReadForecastsCSV(f)
	if err != nil {
		return "", nil, fmt.Errorf("read %s: %w", path, err)
	}
	return path, recs, nil
}

// LatestActuals loads the newest actuals snapshot of the site.
func (s *FileStore) LatestActuals(st site.Site) (string, []irradiance.Actual, error) {
	path, err := s.Latest(st, irradiance.KindActuals)
	if err != nil {
		return "", nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return "", nil, err
	}
	defer f.Close()

	recs, err := irradiance.ReadActualsCSV(f)
	if err != nil {
		return "", nil, fmt.Errorf("read %s: %w", path, err)
	}
	return path, recs, nil
}

// Latest returns the path of the newest snapshot of kind, ordered by the
// timestamp encoded in the file name. Names that do not parse are skipped.
func (s *FileStore) Latest(st site.Site, kind irradiance.Kind) (string, error) {
	entries, err := os.ReadDir(st.Dir)
	if err != nil && !os.IsNotExist(err) {
		return "", err
	}

	var (
		best   string
		bestAt time.Time
	)
	for _, e := range entries {
		if e.IsDir() || !common.HasAny(e.Name(), string(kind)) {
			continue
		}
		id, k, at, ok := ParseFileName(e.Name())
		if !ok || k != kind || id != st.ID {
			continue
		}
		if best == "" || at.After(bestAt) {
			best, bestAt = e.Name(), at
		}
	}

	if best == "" {
		return "", fmt.Errorf("site %d %s: %w", st.ID, kind, irradiance.ErrNoData)
	}
	return filepath.Join(st.Dir, best), nil
}

// writeAtomic writes through a temp file in the same directory and renames it into place.
func writeAtomic(path string, write func(io.Writer) error) error {
	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create file failed: %w", err)
	}

	if err := write(f); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write failed: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close failed: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename failed: %w", err)
	}
	return nil
}
