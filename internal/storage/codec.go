package storage

import (
	"encoding/json"
	"errors"

	"ecdnaabc/internal/model"
)

const (
	CurrentSchemaVersion = 1
	CurrentCodecVersion  = 1
)

var ErrVersionMismatch = errors.New("record version mismatch")

// StampVersion sets the current schema and codec versions on a table.
func StampVersion(table model.SummaryTable) model.SummaryTable {
	table.SchemaVersion = CurrentSchemaVersion
	table.CodecVersion = CurrentCodecVersion
	return table
}

func EncodeSummaryTable(table model.SummaryTable) ([]byte, error) {
	return json.Marshal(table)
}

func DecodeSummaryTable(data []byte) (model.SummaryTable, error) {
	var table model.SummaryTable
	if err := json.Unmarshal(data, &table); err != nil {
		return model.SummaryTable{}, err
	}
	if err := checkVersion(table.VersionedRecord); err != nil {
		return model.SummaryTable{}, err
	}
	return table, nil
}

func checkVersion(v model.VersionedRecord) error {
	if v.SchemaVersion != CurrentSchemaVersion || v.CodecVersion != CurrentCodecVersion {
		return ErrVersionMismatch
	}
	return nil
}
