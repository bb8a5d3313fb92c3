package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestInventoryMigrationContainsConstraints(t *testing.T) {
	content := readMigration(t, "*_create_inventory_rows.sql")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS inventory_rows",
		"CHECK (quantity >= 0)",
		"CHECK (serial_number IS NULL OR quantity = 1)",
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_inventory_rows_serial",
		"WHERE serial_number IS NULL AND status <> 'Retirado'",
		"DROP TABLE IF EXISTS inventory_rows",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestOutboxMigrationGuardsOverdueEvents(t *testing.T) {
	content := readMigration(t, "*_create_outbox.sql")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS outbox_events",
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_outbox_events_once",
		"WHERE event_type = 'loan_overdue'",
		"CREATE TABLE IF NOT EXISTS outbox_dlq",
		"DROP TABLE IF EXISTS outbox_events",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestSequenceMigrationSeedsInventoryCounter(t *testing.T) {
	content := readMigration(t, "*_create_id_sequences.sql")
	if !strings.Contains(content, "('inventory_rows', 0)") {
		t.Fatalf("inventory_rows sequence not seeded")
	}
}

func readMigration(t *testing.T, pattern string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", pattern))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no migration file matches %s", pattern)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}
