package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/san-kum/mechctl/internal/telemetry"
)

const metadataFile = "metadata.json"

var ErrNotFound = errors.New("storage: run not found")

var baseColumns = []string{"tick", "time", "position", "setpoint", "output", "state", "fault", "state_ticks"}

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID         string             `json:"id"`
	Scenario   string             `json:"scenario"`
	Preset     string             `json:"preset,omitempty"`
	Timestamp  time.Time          `json:"timestamp"`
	Period     float64            `json:"period"`
	Ticks      int                `json:"ticks"`
	Overruns   int                `json:"overruns"`
	Mechanisms []string           `json:"mechanisms"`
	Metrics    map[string]float64 `json:"metrics"`
}

// Save writes meta and one CSV per mechanism series. The ID is assigned
// here and returned.
func (s *Store) Save(meta RunMetadata, series map[string][]telemetry.Snapshot) (string, error) {
	now := time.Now()
	meta.ID = fmt.Sprintf("%s_%d", meta.Scenario, now.UnixNano())
	meta.Timestamp = now
	meta.Metrics = finiteMetrics(meta.Metrics)
	meta.Mechanisms = meta.Mechanisms[:0:0]
	for name := range series {
		meta.Mechanisms = append(meta.Mechanisms, name)
	}
	sort.Strings(meta.Mechanisms)

	runDir := filepath.Join(s.baseDir, meta.ID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", fmt.Errorf("create run dir: %w", err)
	}

	metaFile, err := os.Create(filepath.Join(runDir, metadataFile))
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", fmt.Errorf("write metadata: %w", err)
	}

	for _, name := range meta.Mechanisms {
		if err := writeSeries(filepath.Join(runDir, name+".csv"), series[name]); err != nil {
			return "", fmt.Errorf("write %s series: %w", name, err)
		}
	}
	return meta.ID, nil
}

func channelNames(series []telemetry.Snapshot) []string {
	seen := make(map[string]bool)
	for _, snap := range series {
		for k := range snap.Values {
			seen[k] = true
		}
	}
	names := make([]string, 0, len(seen))
	for k := range seen {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// finiteMetrics drops values JSON cannot carry, such as the infinite
// tracking error of a mechanism that never produced a valid reading.
func finiteMetrics(in map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(in))
	for k, v := range in {
		if finite(v) {
			out[k] = v
		}
	}
	return out
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}

func writeSeries(path string, series []telemetry.Snapshot) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	channels := channelNames(series)
	if err := w.Write(append(append([]string{}, baseColumns...), channels...)); err != nil {
		return err
	}

	for _, snap := range series {
		row := []string{
			strconv.Itoa(snap.Tick),
			formatFloat(snap.Time),
			formatFloat(snap.Position),
			formatFloat(snap.Setpoint),
			formatFloat(snap.Output),
			snap.State,
			snap.Fault,
			strconv.Itoa(snap.StateTicks),
		}
		for _, ch := range channels {
			row = append(row, formatFloat(snap.Values[ch]))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.Before(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, runID)
		}
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("parse metadata %s: %w", runID, err)
	}
	return &meta, nil
}

// LoadSeries reads one mechanism's snapshots back from a run.
func (s *Store) LoadSeries(runID, mechanism string) ([]telemetry.Snapshot, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, mechanism+".csv"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, runID, mechanism)
		}
		return nil, err
	}
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s series: %w", mechanism, err)
	}
	if len(records) < 2 {
		return []telemetry.Snapshot{}, nil
	}

	header := records[0]
	if len(header) < len(baseColumns) || strings.Join(header[:len(baseColumns)], ",") != strings.Join(baseColumns, ",") {
		return nil, fmt.Errorf("%s series: unexpected header %v", mechanism, header)
	}
	channels := header[len(baseColumns):]

	series := make([]telemetry.Snapshot, 0, len(records)-1)
	for i, rec := range records[1:] {
		snap, err := parseRow(rec, channels)
		if err != nil {
			return nil, fmt.Errorf("%s series row %d: %w", mechanism, i+1, err)
		}
		snap.Mechanism = mechanism
		series = append(series, snap)
	}
	return series, nil
}

func parseRow(rec []string, channels []string) (telemetry.Snapshot, error) {
	var snap telemetry.Snapshot
	var err error
	floats := make([]float64, 4)
	for i := range floats {
		if floats[i], err = strconv.ParseFloat(rec[i+1], 64); err != nil {
			return snap, err
		}
	}
	if snap.Tick, err = strconv.Atoi(rec[0]); err != nil {
		return snap, err
	}
	if snap.StateTicks, err = strconv.Atoi(rec[7]); err != nil {
		return snap, err
	}
	snap.Time, snap.Position, snap.Setpoint, snap.Output = floats[0], floats[1], floats[2], floats[3]
	snap.State = rec[5]
	snap.Fault = rec[6]

	if len(channels) > 0 {
		snap.Values = make(map[string]float64, len(channels))
		for j, ch := range channels {
			v, err := strconv.ParseFloat(rec[len(baseColumns)+j], 64)
			if err != nil {
				return snap, err
			}
			snap.Values[ch] = v
		}
	}
	return snap, nil
}

// ExportData is a whole run in one document.
type ExportData struct {
	RunMetadata
	Series map[string][]telemetry.Snapshot `json:"series"`
}

// Export writes the run's metadata and every series as indented JSON.
func (s *Store) Export(w io.Writer, runID string) error {
	meta, err := s.Load(runID)
	if err != nil {
		return err
	}
	data := ExportData{RunMetadata: *meta, Series: make(map[string][]telemetry.Snapshot)}
	for _, mech := range meta.Mechanisms {
		series, err := s.LoadSeries(runID, mech)
		if err != nil {
			return err
		}
		for i := range series {
			series[i] = exportable(series[i])
		}
		data.Series[mech] = series
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

// exportable zeroes non-finite readings; a faulted sensor is still visible
// through the Fault column.
func exportable(s telemetry.Snapshot) telemetry.Snapshot {
	for _, v := range []*float64{&s.Position, &s.Setpoint, &s.Output} {
		if !finite(*v) {
			*v = 0
		}
	}
	for k, v := range s.Values {
		if !finite(v) {
			s.Values[k] = 0
		}
	}
	return s
}
