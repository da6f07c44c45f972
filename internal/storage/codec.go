package storage

import (
	"encoding/json"
	"errors"

	"biogenesis/internal/model"
)

const (
	CurrentSchemaVersion = 1
	CurrentCodecVersion  = 1
)

var ErrVersionMismatch = errors.New("record version mismatch")

func EncodeOrganism(o model.OrganismRecord) ([]byte, error) {
	return json.Marshal(o)
}

func DecodeOrganism(data []byte) (model.OrganismRecord, error) {
	var organism model.OrganismRecord
	if err := json.Unmarshal(data, &organism); err != nil {
		return model.OrganismRecord{}, err
	}
	if err := checkVersion(organism.VersionedRecord); err != nil {
		return model.OrganismRecord{}, err
	}
	return organism, nil
}

func EncodeColony(c model.ColonyRecord) ([]byte, error) {
	return json.Marshal(c)
}

func DecodeColony(data []byte) (model.ColonyRecord, error) {
	var colony model.ColonyRecord
	if err := json.Unmarshal(data, &colony); err != nil {
		return model.ColonyRecord{}, err
	}
	if err := checkVersion(colony.VersionedRecord); err != nil {
		return model.ColonyRecord{}, err
	}
	return colony, nil
}

func EncodeEnvironmentSummary(s model.EnvironmentSummary) ([]byte, error) {
	return json.Marshal(s)
}

func DecodeEnvironmentSummary(data []byte) (model.EnvironmentSummary, error) {
	var summary model.EnvironmentSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		return model.EnvironmentSummary{}, err
	}
	if err := checkVersion(summary.VersionedRecord); err != nil {
		return model.EnvironmentSummary{}, err
	}
	return summary, nil
}

func EncodeLineage(records []model.LineageRecord) ([]byte, error) {
	return json.Marshal(records)
}

func DecodeLineage(data []byte) ([]model.LineageRecord, error) {
	var records []model.LineageRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, err
	}
	for _, record := range records {
		if err := checkVersion(record.VersionedRecord); err != nil {
			return nil, err
		}
	}
	return records, nil
}

func EncodeFitnessHistory(history []float64) ([]byte, error) {
	return json.Marshal(history)
}

func DecodeFitnessHistory(data []byte) ([]float64, error) {
	var history []float64
	if err := json.Unmarshal(data, &history); err != nil {
		return nil, err
	}
	return history, nil
}

func EncodeGenerationDiagnostics(diagnostics []model.GenerationDiagnostics) ([]byte, error) {
	return json.Marshal(diagnostics)
}

func DecodeGenerationDiagnostics(data []byte) ([]model.GenerationDiagnostics, error) {
	var diagnostics []model.GenerationDiagnostics
	if err := json.Unmarshal(data, &diagnostics); err != nil {
		return nil, err
	}
	return diagnostics, nil
}

func checkVersion(v model.VersionedRecord) error {
	if v.SchemaVersion != CurrentSchemaVersion || v.CodecVersion != CurrentCodecVersion {
		return ErrVersionMismatch
	}
	return nil
}
