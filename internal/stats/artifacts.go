package stats

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gocarina/gocsv"

	"biogenesis/internal/model"
)

const runIndexFile = "run_index.json"

// RunConfig records the parameters a run was started with.
type RunConfig struct {
	RunID          string  `json:"run_id"`
	Environment    string  `json:"environment"`
	PopulationSize int     `json:"population_size"`
	Generations    int     `json:"generations"`
	BroodSize      int     `json:"brood_size"`
	SequenceLength int     `json:"sequence_length"`
	Sexual         bool    `json:"sexual"`
	FitnessGoal    float64 `json:"fitness_goal,omitempty"`
	Seed           int64   `json:"seed"`
	StoreBackend   string  `json:"store_backend,omitempty"`
}

// RunArtifacts bundles everything a finished run writes to disk.
type RunArtifacts struct {
	Config                RunConfig                     `json:"config"`
	BestByGeneration      []float64                     `json:"best_by_generation"`
	GenerationDiagnostics []model.GenerationDiagnostics `json:"generation_diagnostics,omitempty"`
	FinalBestFitness      float64                       `json:"final_best_fitness"`
	Lineage               []model.LineageRecord         `json:"lineage"`
}

// DiagnosticsRow is the CSV projection of one generation's diagnostics.
type DiagnosticsRow struct {
	Generation  int     `csv:"generation"`
	BestFitness float64 `csv:"best_fitness"`
	MeanFitness float64 `csv:"mean_fitness"`
	MinFitness  float64 `csv:"min_fitness"`
	StdDev      float64 `csv:"std_dev"`
	Population  int     `csv:"population"`
	Survivors   int     `csv:"survivors"`
	Casualties  int     `csv:"casualties"`
	Seeded      int     `csv:"seeded"`
}

// LineageRow is the CSV projection of one lineage record.
type LineageRow struct {
	OrganismID string `csv:"organism_id"`
	ParentID   string `csv:"parent_id"`
	Generation int    `csv:"generation"`
	Operation  string `csv:"operation"`
}

type RunIndexEntry struct {
	RunID            string  `json:"run_id"`
	Environment      string  `json:"environment"`
	PopulationSize   int     `json:"population_size"`
	Generations      int     `json:"generations"`
	Seed             int64   `json:"seed"`
	FinalBestFitness float64 `json:"final_best_fitness"`
	CreatedAtUTC     string  `json:"created_at_utc"`
}

func WriteRunArtifacts(baseDir string, artifacts RunArtifacts) (string, error) {
	if artifacts.Config.RunID == "" {
		return "", fmt.Errorf("run id is required")
	}

	runDir := filepath.Join(baseDir, artifacts.Config.RunID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return "", err
	}

	if err := writeJSON(filepath.Join(runDir, "config.json"), artifacts.Config); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, "fitness_history.json"), map[string]any{"best_by_generation": artifacts.BestByGeneration, "final_best_fitness": artifacts.FinalBestFitness}); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, "lineage.json"), artifacts.Lineage); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, "generation_diagnostics.json"), artifacts.GenerationDiagnostics); err != nil {
		return "", err
	}
	if err := writeDiagnosticsCSV(filepath.Join(runDir, "diagnostics.csv"), artifacts.GenerationDiagnostics); err != nil {
		return "", err
	}
	if err := writeLineageCSV(filepath.Join(runDir, "lineage.csv"), artifacts.Lineage); err != nil {
		return "", err
	}

	return runDir, nil
}

func AppendRunIndex(baseDir string, entry RunIndexEntry) error {
	if entry.RunID == "" {
		return fmt.Errorf("run id is required")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return err
	}

	index, err := ListRunIndex(baseDir)
	if err != nil {
		return err
	}

	for i := range index {
		if index[i].RunID == entry.RunID {
			index[i] = entry
			return writeJSON(filepath.Join(baseDir, runIndexFile), index)
		}
	}

	index = append(index, entry)
	return writeJSON(filepath.Join(baseDir, runIndexFile), index)
}

func ListRunIndex(baseDir string) ([]RunIndexEntry, error) {
	path := filepath.Join(baseDir, runIndexFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunIndexEntry{}, nil
		}
		return nil, err
	}

	var entries []RunIndexEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}

	type indexedEntry struct {
		entry RunIndexEntry
		idx   int
	}
	indexed := make([]indexedEntry, len(entries))
	for i := range entries {
		indexed[i] = indexedEntry{entry: entries[i], idx: i}
	}
	sort.Slice(indexed, func(i, j int) bool {
		if indexed[i].entry.CreatedAtUTC == indexed[j].entry.CreatedAtUTC {
			// Prefer later appended entries for equal timestamps.
			return indexed[i].idx > indexed[j].idx
		}
		return indexed[i].entry.CreatedAtUTC > indexed[j].entry.CreatedAtUTC
	})

	sorted := make([]RunIndexEntry, 0, len(indexed))
	for _, item := range indexed {
		sorted = append(sorted, item.entry)
	}
	return sorted, nil
}

func ExportRunArtifacts(baseDir, runID, outDir string) (string, error) {
	if runID == "" {
		return "", fmt.Errorf("run id is required")
	}

	src := filepath.Join(baseDir, runID)
	if _, err := os.Stat(src); err != nil {
		return "", err
	}

	dst := filepath.Join(outDir, runID)
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return "", err
	}

	files := []string{"config.json", "fitness_history.json", "lineage.json", "generation_diagnostics.json"}
	for _, file := range files {
		if err := copyFile(filepath.Join(src, file), filepath.Join(dst, file)); err != nil {
			return "", err
		}
	}
	for _, file := range []string{"diagnostics.csv", "lineage.csv"} {
		path := filepath.Join(src, file)
		if _, err := os.Stat(path); err == nil {
			if err := copyFile(path, filepath.Join(dst, file)); err != nil {
				return "", err
			}
		} else if !os.IsNotExist(err) {
			return "", err
		}
	}

	return dst, nil
}

func ReadRunConfig(baseDir, runID string) (RunConfig, bool, error) {
	path := filepath.Join(baseDir, runID, "config.json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return RunConfig{}, false, nil
		}
		return RunConfig{}, false, err
	}

	var cfg RunConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return RunConfig{}, false, err
	}
	return cfg, true, nil
}

func WriteRunConfig(baseDir, runID string, cfg RunConfig) error {
	if strings.TrimSpace(runID) == "" {
		return fmt.Errorf("run id is required")
	}
	if strings.TrimSpace(cfg.RunID) == "" {
		cfg.RunID = strings.TrimSpace(runID)
	}
	if cfg.RunID != strings.TrimSpace(runID) {
		return fmt.Errorf("run config run id mismatch: got=%s want=%s", cfg.RunID, strings.TrimSpace(runID))
	}
	runDir := filepath.Join(baseDir, runID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return err
	}
	return writeJSON(filepath.Join(runDir, "config.json"), cfg)
}

func ReadDiagnosticsCSV(baseDir, runID string) ([]DiagnosticsRow, bool, error) {
	path := filepath.Join(baseDir, runID, "diagnostics.csv")
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer file.Close()

	var rows []DiagnosticsRow
	if err := gocsv.Unmarshal(file, &rows); err != nil {
		return nil, false, err
	}
	return rows, true, nil
}

func writeDiagnosticsCSV(path string, diagnostics []model.GenerationDiagnostics) error {
	rows := make([]DiagnosticsRow, 0, len(diagnostics))
	for _, d := range diagnostics {
		rows = append(rows, DiagnosticsRow{
			Generation:  d.Generation,
			BestFitness: d.BestFitness,
			MeanFitness: d.MeanFitness,
			MinFitness:  d.MinFitness,
			StdDev:      d.StdDev,
			Population:  d.Population,
			Survivors:   d.Survivors,
			Casualties:  d.Casualties,
			Seeded:      d.Seeded,
		})
	}
	return writeCSV(path, rows)
}

func writeLineageCSV(path string, lineage []model.LineageRecord) error {
	rows := make([]LineageRow, 0, len(lineage))
	for _, record := range lineage {
		rows = append(rows, LineageRow{
			OrganismID: record.OrganismID,
			ParentID:   record.ParentID,
			Generation: record.Generation,
			Operation:  record.Operation,
		})
	}
	return writeCSV(path, rows)
}

func writeCSV[Row any](path string, rows []Row) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return gocsv.Marshal(rows, file)
}

func writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o644)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
