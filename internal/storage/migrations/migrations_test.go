package migrations

import (
	"strings"
	"testing"
)

func TestSQLFilesOrdered(t *testing.T) {
	files, err := sqlFiles(PostgresFS, "postgres")
	if err != nil {
		t.Fatalf("sqlFiles: %v", err)
	}
	want := []string{"001_scenarios.sql", "002_stake_actions.sql", "003_reward_claims.sql"}
	if len(files) != len(want) {
		t.Fatalf("expected %d files, got %v", len(want), files)
	}
	for i := range want {
		if files[i] != want[i] {
			t.Errorf("file %d: expected %s, got %s", i, want[i], files[i])
		}
	}
}

func TestClickhouseStatements(t *testing.T) {
	stmts, err := ClickhouseStatements()
	if err != nil {
		t.Fatalf("ClickhouseStatements: %v", err)
	}
	if len(stmts) != 1 {
		t.Fatalf("expected 1 statement, got %d", len(stmts))
	}
	if !strings.Contains(stmts[0], "reward_expectations") {
		t.Errorf("unexpected statement: %s", stmts[0])
	}
	if strings.Contains(stmts[0], "--") {
		t.Error("comments should be stripped")
	}
}

func TestSplitStatements(t *testing.T) {
	input := "-- header\nCREATE TABLE a (x String);\n\nCREATE TABLE b (y String);\n"
	stmts := splitStatements(input)
	if len(stmts) != 2 {
		t.Fatalf("expected 2 statements, got %d: %v", len(stmts), stmts)
	}
	if stmts[0] != "CREATE TABLE a (x String)" {
		t.Errorf("unexpected first statement %q", stmts[0])
	}
}

func TestCheckSplittable(t *testing.T) {
	tests := []struct {
		name    string
		sql     string
		wantErr bool
	}{
		{"plain", "SELECT 1;", false},
		{"quoted without semicolon", "SELECT 'a';", false},
		{"escaped quote", "SELECT 'it''s';", false},
		{"semicolon in literal", "SELECT 'a;b';", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkSplittable(tt.sql)
			if (err != nil) != tt.wantErr {
				t.Errorf("checkSplittable(%q) error = %v, wantErr %v", tt.sql, err, tt.wantErr)
			}
		})
	}
}

func TestDatabaseFromDSN(t *testing.T) {
	db, err := databaseFromDSN("clickhouse://default@localhost:9000/rewards")
	if err != nil {
		t.Fatalf("databaseFromDSN: %v", err)
	}
	if db != "rewards" {
		t.Errorf("expected rewards, got %s", db)
	}
	if _, err := databaseFromDSN("clickhouse://localhost:9000"); err == nil {
		t.Error("expected error for missing database")
	}
}
