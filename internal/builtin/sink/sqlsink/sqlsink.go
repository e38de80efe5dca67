// Package sqlsink reimagines original_source/output/pgsql/ulogd_output_PGSQL.c:
// a SINK plugin that writes each event's resolved input keys as one row
// insert into a SQL database. The original queries pg_attribute for the
// target table's columns during configure() and rewrites its own
// input-key table to match; this reimplementation does the same with
// SQLite's PRAGMA table_info through database/sql, wired to
// modernc.org/sqlite (pure Go, no cgo) as its driver.
package sqlsink

import (
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/netlogd/netlogd/internal/confschema"
	"github.com/netlogd/netlogd/internal/key"
	"github.com/netlogd/netlogd/internal/plugin"
)

const pluginName = "SQL"

type state struct {
	db      *sql.DB
	table   string
	columns []string
}

// Descriptor returns a fresh plugin.Descriptor for "SQL". Input is left
// empty here; Configure derives it from the target table's columns, the
// same "plugin rewrites its own input table in configure" technique the
// original uses (spec.md §4.3 step 2a).
func Descriptor() *plugin.Descriptor {
	return &plugin.Descriptor{
		Name:       pluginName,
		Version:    plugin.CoreABIVersion,
		InputType:  plugin.DataPacket | plugin.DataFlow,
		OutputType: plugin.DataSink,
		ConfigSchema: &confschema.Schema{Entries: []*confschema.Entry{
			{Key: "dsn", Type: confschema.TypeString, Options: confschema.OptMandatory},
			{Key: "table", Type: confschema.TypeString, Options: confschema.OptMandatory},
		}},
		Hooks: plugin.Hooks{
			Configure: configure,
			Start:     start,
			Stop:      stop,
			Interpret: interpret,
		},
	}
}

// configure opens the database early enough to introspect the target
// table's columns and rewrite the instance's input-key table to match
// them, one key per column (underscore-to-dot renaming is skipped here
// since Go column names don't carry the original's C-identifier
// restriction).
func configure(inst plugin.Instance) error {
	dsn := inst.Config().ByKey("dsn").StringValue
	table := inst.Config().ByKey("table").StringValue

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("sqlsink: opening %q: %w", dsn, err)
	}

	cols, err := columnsOf(db, table)
	if err != nil {
		db.Close()
		return fmt.Errorf("sqlsink: introspecting table %q: %w", table, err)
	}
	if len(cols) == 0 {
		db.Close()
		return fmt.Errorf("sqlsink: table %q has no columns or does not exist", table)
	}

	input := make(key.Table, len(cols))
	for i, c := range cols {
		input[i] = key.Key{Name: c, Type: key.TypeString, Flags: key.FlagOptional}
	}
	inst.SetInput(input)
	inst.SetState(&state{db: db, table: table, columns: cols})
	return nil
}

func columnsOf(db *sql.DB, table string) ([]string, error) {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", quoteIdent(table)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var (
			cid        int
			name, typ  string
			notnull    int
			dflt       sql.NullString
			pk         int
		)
		if err := rows.Scan(&cid, &name, &typ, &notnull, &dflt, &pk); err != nil {
			return nil, err
		}
		cols = append(cols, name)
	}
	return cols, rows.Err()
}

func quoteIdent(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

func start(inst plugin.Instance) error {
	st, ok := inst.State().(*state)
	if !ok || st == nil {
		return fmt.Errorf("sqlsink: instance not configured")
	}
	return st.db.Ping()
}

func stop(inst plugin.Instance) error {
	st, ok := inst.State().(*state)
	if !ok || st == nil {
		return nil
	}
	return st.db.Close()
}

func interpret(inst plugin.Instance) (plugin.Result, error) {
	st, ok := inst.State().(*state)
	if !ok || st == nil {
		return plugin.ResultErr, fmt.Errorf("sqlsink: instance not configured")
	}

	in := inst.Input()
	placeholders := make([]string, 0, len(in))
	args := make([]any, 0, len(in))
	cols := make([]string, 0, len(in))
	for _, k := range in {
		if !k.Flags.Has(key.FlagValid) {
			continue
		}
		cols = append(cols, quoteIdent(k.Name))
		placeholders = append(placeholders, "?")
		args = append(args, k.Value.Str)
	}
	if len(cols) == 0 {
		return plugin.ResultStop, nil
	}

	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteIdent(st.table), strings.Join(cols, ", "), strings.Join(placeholders, ", "))
	if _, err := st.db.Exec(stmt, args...); err != nil {
		return plugin.ResultErr, fmt.Errorf("sqlsink: insert into %q: %w", st.table, err)
	}
	return plugin.ResultOK, nil
}
