package migrate

import (
	"os"
	"strings"
	"testing"
)

func TestMigrationsDirIsValid(t *testing.T) {
	if err := ValidateDir("migrations"); err != nil {
		t.Fatalf("migrations dir failed validation: %v", err)
	}
}

func TestMigrationsCoverCoreTables(t *testing.T) {
	entries, err := os.ReadDir("migrations")
	if err != nil {
		t.Fatalf("read migrations dir: %v", err)
	}

	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	joined := strings.Join(names, "\n")

	for _, table := range []string{
		"vendors",
		"users",
		"invoices",
		"invoice_line_items",
		"activities",
		"rules",
	} {
		if !strings.Contains(joined, table) {
			t.Fatalf("no migration found for table %q", table)
		}
	}
}
