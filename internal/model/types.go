package model

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// OrganismRecord is the persisted view of one organism: identity,
// generation tag, expressed traits, and last known fitness.
type OrganismRecord struct {
	VersionedRecord
	ID         string             `json:"id"`
	ParentID   string             `json:"parent_id,omitempty"`
	Generation int                `json:"generation"`
	Fitness    float64            `json:"fitness"`
	Traits     map[string]float64 `json:"traits,omitempty"`
}

// ColonyRecord is the persisted snapshot of one generation's population.
type ColonyRecord struct {
	VersionedRecord
	ID          string   `json:"id"`
	Generation  int      `json:"generation"`
	OrganismIDs []string `json:"organism_ids"`
}

// EnvironmentSummary tracks the best fitness ever observed in an
// environment.
type EnvironmentSummary struct {
	VersionedRecord
	Name        string  `json:"name"`
	Description string  `json:"description"`
	BestFitness float64 `json:"best_fitness"`
}

// GenerationDiagnostics aggregates one generation's fitness distribution
// and population flow.
type GenerationDiagnostics struct {
	Generation  int     `json:"generation"`
	BestFitness float64 `json:"best_fitness"`
	MeanFitness float64 `json:"mean_fitness"`
	MinFitness  float64 `json:"min_fitness"`
	StdDev      float64 `json:"std_dev"`
	Population  int     `json:"population"`
	Survivors   int     `json:"survivors"`
	Casualties  int     `json:"casualties"`
	Seeded      int     `json:"seeded"`
}

// LineageRecord tracks where one organism came from. Operation is
// "seed" for founders and "clone" for asexual offspring.
type LineageRecord struct {
	VersionedRecord
	OrganismID string `json:"organism_id"`
	ParentID   string `json:"parent_id,omitempty"`
	Generation int    `json:"generation"`
	Operation  string `json:"operation"`
}
