package models

// All lists every persisted model in dependency order. SQLite databases are
// migrated from this list; Postgres uses the goose migrations.
func All() []any {
	return []any{
		&IDSequence{},
		&InventoryRow{},
		&Loan{},
		&Assignment{},
		&ActivityEntry{},
		&PendingTask{},
		&OutboxEvent{},
		&OutboxDLQ{},
	}
}
