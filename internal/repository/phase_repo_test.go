package repository

import (
	"os"
	"regexp"
	"strings"
	"testing"
)

// The assignment check is the one query the fakes in the service tests
// cannot cover, so pin its column names to the schema here.
func TestEngineerAssignedQueryMatchesSchema(t *testing.T) {
	ddl, err := os.ReadFile("../../migrations/001_init.sql")
	if err != nil {
		t.Fatalf("read migration: %v", err)
	}

	block := regexp.MustCompile(`(?s)CREATE TABLE project_engineers \((.*?)\);`).
		FindSubmatch(ddl)
	if block == nil {
		t.Fatal("project_engineers table not found in migration")
	}
	table := string(block[1])

	refs := regexp.MustCompile(`\bpe\.(\w+)`).
		FindAllStringSubmatch(engineerAssignedQuery, -1)
	if len(refs) == 0 {
		t.Fatal("query references no project_engineers columns")
	}
	for _, ref := range refs {
		col := ref[1]
		if !regexp.MustCompile(`(?m)^\s*` + col + `\s`).MatchString(table) {
			t.Errorf("query references project_engineers.%s, not in schema:\n%s", col, table)
		}
	}

	if strings.Contains(engineerAssignedQuery, "pe.user_id") {
		t.Error("roster column is engineer_id, not user_id")
	}
}
