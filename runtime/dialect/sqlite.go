package dialect

import "database/sql"

// SQLite has no stored procedures and no identity function usable inside a
// multi-statement batch, so identities are read with a second query on the
// same connection.
func newSQLiteAdapter(driver string) *Adapter {
	return &Adapter{
		Variant:                  Embedded,
		DriverName:               driver,
		IdentityFunction:         "LAST_INSERT_ROWID()",
		IdentityQuery:            "SELECT last_insert_rowid()",
		IdentityStrategy:         SecondRoundTrip,
		SupportsStoredProcedures: false,
		classify:                 isSQLiteError,
		arg:                      namedArg,
	}
}

func namedArg(p *NativeParameter) any {
	if p.Name == "" {
		return p.Value
	}
	return sql.Named(p.Name, p.Value)
}
