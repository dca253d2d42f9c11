package checks

import (
	"fmt"
	"strings"

	"character-sync/core/database"

	"gorm.io/gorm"
)

// SchemaReport strictly types the result of a schema integrity check.
type SchemaReport struct {
	Table          string   `json:"table"`
	Matched        bool     `json:"matched"`
	MissingColumns []string `json:"missing_columns"`
	TypeMismatches []string `json:"type_mismatches"`
}

// CheckSchema verifies the table behind model using its GORM schema as the source of truth.
func CheckSchema(db *gorm.DB, model any) (*SchemaReport, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}

	stmt := &gorm.Statement{DB: db}
	if err := stmt.Parse(model); err != nil {
		return nil, fmt.Errorf("failed to parse model schema: %w", err)
	}

	report := &SchemaReport{
		Table:          stmt.Schema.Table,
		Matched:        true,
		MissingColumns: []string{},
		TypeMismatches: []string{},
	}

	actualCols, err := database.GetTableColumns(db, stmt.Schema.Table)
	if err != nil {
		return nil, err
	}
	actual := make(map[string]string, len(actualCols))
	for _, col := range actualCols {
		actual[col.Field] = col.Type
	}

	for _, field := range stmt.Schema.Fields {
		if field.DBName == "" {
			continue
		}
		actType, exists := actual[strings.ToLower(field.DBName)]
		if !exists {
			report.MissingColumns = append(report.MissingColumns, field.DBName)
			report.Matched = false
			continue
		}

		// Only fields with an explicit type tag are type checked
		expType := strings.ToLower(field.TagSettings["TYPE"])
		if expType != "" && !strings.Contains(actType, expType) {
			report.TypeMismatches = append(report.TypeMismatches,
				fmt.Sprintf("%s: expected %s, got %s", field.DBName, expType, actType))
			report.Matched = false
		}
	}
	return report, nil
}
