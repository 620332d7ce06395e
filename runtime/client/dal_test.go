package client

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/satishbabariya/coconutdal/runtime/binder"
	"github.com/satishbabariya/coconutdal/runtime/dalerr"
	"github.com/satishbabariya/coconutdal/runtime/dialect"
	"github.com/satishbabariya/coconutdal/runtime/guard"
	"github.com/satishbabariya/coconutdal/runtime/param"
	"github.com/satishbabariya/coconutdal/runtime/sigcache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

var dbCounter atomic.Int64

// DalSuite runs the engine against a shared in-memory SQLite database. The
// keeper connection holds the database open between operations.
type DalSuite struct {
	suite.Suite
	dsn    string
	db     *sql.DB
	keeper *sql.Conn
	dal    *Dal
}

func TestDalSuite(t *testing.T) {
	suite.Run(t, new(DalSuite))
}

func (suite *DalSuite) SetupTest() {
	ctx := context.Background()
	suite.dsn = fmt.Sprintf("file:coconutdal_%d?mode=memory&cache=shared", dbCounter.Add(1))

	db, err := sql.Open("sqlite3", suite.dsn)
	require.NoError(suite.T(), err)
	suite.db = db

	suite.keeper, err = db.Conn(ctx)
	require.NoError(suite.T(), err)

	for _, stmt := range []string{
		`CREATE TABLE Person (Id INTEGER PRIMARY KEY, LastName TEXT NOT NULL, FirstName TEXT)`,
		`INSERT INTO Person (Id, LastName, FirstName) VALUES (1, 'Holmes', 'Sherlock'), (2, 'Watson', 'John'), (3, 'Hudson', NULL)`,
		`CREATE TABLE Cases (CaseId INTEGER PRIMARY KEY AUTOINCREMENT, CaseName TEXT NOT NULL)`,
	} {
		_, err := suite.keeper.ExecContext(ctx, stmt)
		require.NoError(suite.T(), err)
	}

	suite.dal, err = New(dialect.Embedded, suite.dsn)
	require.NoError(suite.T(), err)
}

func (suite *DalSuite) TearDownTest() {
	suite.keeper.Close()
	suite.db.Close()
}

// text normalizes a scanned TEXT value.
func text(v any) string {
	switch s := v.(type) {
	case []byte:
		return string(s)
	case string:
		return s
	}
	return fmt.Sprint(v)
}

func (suite *DalSuite) TestTextQueryFlagIsResetAfterEachOperation() {
	ctx := context.Background()

	suite.dal.IsTextQuery = true
	v, err := suite.dal.GetSingleValue(ctx, "SELECT 10 - 2")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(8), v)
	assert.False(suite.T(), suite.dal.IsTextQuery)

	_, err = suite.dal.GetSingleValue(ctx, "SELECT 10 - 2")
	require.Error(suite.T(), err)
	assert.ErrorIs(suite.T(), err, dialect.ErrNoCommandType)
	assert.Equal(suite.T(), dalerr.Capability, dalerr.KindOf(err))
}

func (suite *DalSuite) TestAlwaysTextQuery() {
	ctx := context.Background()
	suite.dal.IsAlwaysTextQuery = true

	for i := 0; i < 2; i++ {
		v, err := suite.dal.GetSingleValue(ctx, "SELECT COUNT(*) FROM Person")
		require.NoError(suite.T(), err)
		assert.Equal(suite.T(), int64(3), v)
	}
}

func (suite *DalSuite) TestTextQueryFlagResetOnFailure() {
	suite.dal.IsTextQuery = true
	_, err := suite.dal.GetSingleValue(context.Background(), "SELECT 'x'")
	assert.ErrorIs(suite.T(), err, guard.ErrUnsafeCommand)
	assert.False(suite.T(), suite.dal.IsTextQuery)
}

func (suite *DalSuite) TestNoConnection() {
	dal, err := New(dialect.Embedded, "")
	require.NoError(suite.T(), err)
	dal.IsAlwaysTextQuery = true
	dal.CatchDbExceptions = true

	_, err = dal.ExecuteNonQuery(context.Background(), "SELECT 1")
	require.Error(suite.T(), err)
	assert.ErrorIs(suite.T(), err, ErrNoConnection)
	assert.Equal(suite.T(), dalerr.Validation, dalerr.KindOf(err))
	assert.NoError(suite.T(), dal.LastError())
}

func (suite *DalSuite) TestGuardRunsBeforeExecution() {
	ctx := context.Background()
	suite.dal.IsAlwaysTextQuery = true
	suite.dal.CatchDbExceptions = true

	_, err := suite.dal.ExecuteNonQuery(ctx, "DELETE FROM Person -- all of it")
	assert.Equal(suite.T(), dalerr.Validation, dalerr.KindOf(err))

	_, err = suite.dal.ExecuteNonQuery(ctx, "SELECT 1; SHUTDOWN")
	assert.ErrorIs(suite.T(), err, guard.ErrShutdownAttempt)
	assert.Equal(suite.T(), dalerr.FatalIntent, dalerr.KindOf(err))

	n, err := suite.dal.GetSingleValue(ctx, "SELECT COUNT(*) FROM Person")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(3), n)
}

func (suite *DalSuite) TestEmbeddedStoredProcedureNeedsNoConnection() {
	dal, err := New(dialect.Embedded, "file:/nonexistent/dir/x.db")
	require.NoError(suite.T(), err)

	_, err = dal.ExecuteNonQuery(context.Background(), "usp_DoesNotMatter", 1, 2)
	assert.ErrorIs(suite.T(), err, dialect.ErrNoCommandType)
}

func (suite *DalSuite) TestCapturedErrors() {
	ctx := context.Background()
	suite.dal.IsAlwaysTextQuery = true
	suite.dal.CatchDbExceptions = true

	ok, err := suite.dal.ExecuteNonQuery(ctx, "SELECT nonsense FROM rubbish")
	require.NoError(suite.T(), err)
	assert.False(suite.T(), ok)
	require.Error(suite.T(), suite.dal.LastError())
	assert.Equal(suite.T(), dalerr.Database, dalerr.KindOf(suite.dal.LastError()))
	assert.Contains(suite.T(), suite.dal.LastError().Error(), "rubbish")

	v, err := suite.dal.GetSingleValue(ctx, "SELECT nonsense FROM rubbish")
	require.NoError(suite.T(), err)
	assert.Nil(suite.T(), v)

	row, err := suite.dal.GetRow(ctx, "SELECT nonsense FROM rubbish")
	require.NoError(suite.T(), err)
	assert.True(suite.T(), row.Empty())

	table, err := suite.dal.GetTable(ctx, "SELECT nonsense FROM rubbish")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), 0, table.Len())

	column, err := suite.dal.GetColumn(ctx, "SELECT nonsense FROM rubbish")
	require.NoError(suite.T(), err)
	assert.Empty(suite.T(), column)
	assert.NotNil(suite.T(), column)

	ok, err = suite.dal.ExecuteNonQuery(ctx, "UPDATE Person SET FirstName = FirstName")
	require.NoError(suite.T(), err)
	assert.True(suite.T(), ok)
	assert.NoError(suite.T(), suite.dal.LastError())
}

func (suite *DalSuite) TestUncapturedErrors() {
	ctx := context.Background()
	suite.dal.IsAlwaysTextQuery = true

	ok, err := suite.dal.ExecuteNonQuery(ctx, "SELECT nonsense FROM rubbish")
	require.Error(suite.T(), err)
	assert.False(suite.T(), ok)
	assert.Equal(suite.T(), dalerr.Database, dalerr.KindOf(err))
	assert.Equal(suite.T(), err, suite.dal.LastError())
}

func (suite *DalSuite) TestTypedParameters() {
	ctx := context.Background()
	suite.dal.IsAlwaysTextQuery = true

	v, err := suite.dal.GetSingleValue(ctx, "SELECT LastName FROM Person WHERE Id = @Id", param.New("@Id", 2))
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "Watson", text(v))

	v, err = suite.dal.GetSingleValue(ctx, "SELECT FirstName FROM Person WHERE Id = @Id", param.New("@Id", 3))
	require.NoError(suite.T(), err)
	assert.Nil(suite.T(), v)

	v, err = suite.dal.GetSingleValue(ctx, "SELECT FirstName FROM Person WHERE Id = @Id", param.New("@Id", 99))
	require.NoError(suite.T(), err)
	assert.Nil(suite.T(), v)
}

func (suite *DalSuite) TestRawParametersRejectedForText() {
	ctx := context.Background()
	suite.dal.IsAlwaysTextQuery = true
	suite.dal.CatchDbExceptions = true

	_, err := suite.dal.GetSingleValue(ctx, "SELECT LastName FROM Person WHERE Id = @Id", 2)
	assert.ErrorIs(suite.T(), err, binder.ErrUntypedTextParameters)

	_, err = suite.dal.GetSingleValue(ctx, "SELECT LastName FROM Person WHERE Id = @Id", param.New("@Id", 2), 3)
	assert.ErrorIs(suite.T(), err, binder.ErrUntypedTextParameters)
	assert.NoError(suite.T(), suite.dal.LastError())
}

func (suite *DalSuite) TestIdentity() {
	ctx := context.Background()
	suite.dal.IsAlwaysTextQuery = true

	id, err := suite.dal.GetSingleValueIdentity(ctx, "INSERT INTO Cases (CaseName) VALUES (@Case)", true,
		param.New("@Case", "A Study in Scarlet"))
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(1), id)

	second, err := GetSingleValueAs[int32](ctx, suite.dal, "INSERT INTO Cases (CaseName) VALUES (@Case)", true,
		param.New("@Case", "The Sign of the Four"))
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), int32(2), second)

	// The query already selects the identity; it runs unchanged.
	name, err := suite.dal.GetSingleValueIdentity(ctx, "SELECT CaseName FROM Cases WHERE CaseId = last_insert_rowid()", true)
	require.NoError(suite.T(), err)
	assert.Nil(suite.T(), name)
}

func (suite *DalSuite) TestGetSingleValueAs() {
	ctx := context.Background()
	suite.dal.IsAlwaysTextQuery = true

	n, err := GetSingleValueAs[int32](ctx, suite.dal, "SELECT COUNT(*) FROM Person", false)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), int32(3), n)

	small, err := GetSingleValueAs[int16](ctx, suite.dal, "SELECT 40000", false)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), int16(0), small)

	first, err := GetSingleValueAs[string](ctx, suite.dal, "SELECT FirstName FROM Person WHERE Id = 3", false)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "", first)

	last, err := GetSingleValueAs[string](ctx, suite.dal, "SELECT LastName FROM Person WHERE Id = 1", false)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "Holmes", last)

	f, err := GetSingleValueAs[float64](ctx, suite.dal, "SELECT 2.5", false)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), 2.5, f)
}

func (suite *DalSuite) TestGetRow() {
	ctx := context.Background()
	suite.dal.IsAlwaysTextQuery = true

	row, err := suite.dal.GetRow(ctx, "SELECT Id, LastName, FirstName FROM Person ORDER BY Id DESC")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), []string{"Id", "LastName", "FirstName"}, row.Columns)
	assert.Equal(suite.T(), 3, row.Len())
	assert.Equal(suite.T(), int64(3), row.Values[0])
	assert.Nil(suite.T(), row.Values[2])

	last, ok := row.Get("LastName")
	assert.True(suite.T(), ok)
	assert.Equal(suite.T(), "Hudson", text(last))
	assert.Len(suite.T(), row.Map(), 3)

	row, err = suite.dal.GetRow(ctx, "SELECT Id FROM Person WHERE Id > 100")
	require.NoError(suite.T(), err)
	assert.True(suite.T(), row.Empty())
}

func (suite *DalSuite) TestGetTable() {
	ctx := context.Background()
	suite.dal.IsAlwaysTextQuery = true

	table, err := suite.dal.GetTable(ctx, "SELECT Id, LastName, FirstName FROM Person ORDER BY Id")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), 3, table.Len())
	assert.Equal(suite.T(), []string{"Id", "LastName", "FirstName"}, table.ColumnNames())
	assert.Equal(suite.T(), "INTEGER", strings.ToUpper(table.Columns[0].DatabaseType))

	formatted := table.Format()
	require.Len(suite.T(), formatted, 4)
	assert.Equal(suite.T(), []string{"1", "Holmes", "Sherlock"}, formatted[1])
	assert.Equal(suite.T(), []string{"3", "Hudson", ""}, formatted[3])
	assert.Equal(suite.T(), "Watson", text(table.Row(1).Values[1]))

	empty, err := suite.dal.GetTable(ctx, "SELECT Id FROM Person WHERE Id > 100")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), 0, empty.Len())
	assert.Equal(suite.T(), []string{"Id"}, empty.ColumnNames())
}

func (suite *DalSuite) TestGetColumn() {
	ctx := context.Background()
	suite.dal.IsAlwaysTextQuery = true

	column, err := suite.dal.GetColumn(ctx, "SELECT Id, LastName FROM Person")
	require.NoError(suite.T(), err)
	require.Len(suite.T(), column, 3)
	assert.Equal(suite.T(), "Holmes", text(column[1]))
	assert.Equal(suite.T(), "Watson", text(column[2]))

	column, err = suite.dal.GetColumn(ctx, "SELECT LastName FROM Person ORDER BY Id DESC")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "Hudson", text(column[1]))
	assert.Equal(suite.T(), "Holmes", text(column[3]))

	column, err = suite.dal.GetColumnByIdentity(ctx, "SELECT Id, LastName FROM Person", "Id", []int{1, 3})
	require.NoError(suite.T(), err)
	require.Len(suite.T(), column, 2)
	assert.Equal(suite.T(), "Hudson", text(column[3]))

	column, err = suite.dal.GetColumnByIdentity(ctx, "SELECT Id, LastName FROM Person WHERE Id > 1", "Id", []int{1, 2})
	require.NoError(suite.T(), err)
	require.Len(suite.T(), column, 1)
	assert.Equal(suite.T(), "Watson", text(column[2]))

	column, err = suite.dal.GetColumnByIdentity(ctx, "SELECT Id, LastName FROM Person", "Id", nil)
	require.NoError(suite.T(), err)
	assert.Len(suite.T(), column, 3)
}

func (suite *DalSuite) TestGetColumnShape() {
	ctx := context.Background()
	suite.dal.IsAlwaysTextQuery = true
	suite.dal.CatchDbExceptions = true

	_, err := suite.dal.GetColumn(ctx, "SELECT LastName, Id FROM Person")
	require.Error(suite.T(), err)
	assert.ErrorIs(suite.T(), err, ErrColumnShape)
	assert.Equal(suite.T(), dalerr.Validation, dalerr.KindOf(err))

	_, err = suite.dal.GetColumn(ctx, "SELECT 1, LastName FROM Person")
	assert.ErrorIs(suite.T(), err, ErrColumnShape)
	assert.NoError(suite.T(), suite.dal.LastError())
}

func (suite *DalSuite) TestMiddlewareEvents() {
	ctx := context.Background()
	var events []QueryEvent
	var order []string

	suite.dal.Use(func(ctx context.Context, event *QueryEvent, next func() error) error {
		order = append(order, "outer")
		err := next()
		events = append(events, *event)
		return err
	})
	suite.dal.Use(func(ctx context.Context, event *QueryEvent, next func() error) error {
		order = append(order, "inner")
		return next()
	})
	suite.dal.IsAlwaysTextQuery = true
	suite.dal.CatchDbExceptions = true

	_, err := suite.dal.GetSingleValue(ctx, "SELECT LastName FROM Person WHERE Id = @Id", param.New("@Id", 1))
	require.NoError(suite.T(), err)
	_, err = suite.dal.ExecuteNonQuery(ctx, "SELECT nonsense FROM rubbish")
	require.NoError(suite.T(), err)

	require.Len(suite.T(), events, 2)
	assert.Equal(suite.T(), []string{"outer", "inner", "outer", "inner"}, order)

	first := events[0]
	assert.NotEmpty(suite.T(), first.ID)
	assert.Equal(suite.T(), OpGetSingleValue, first.Operation)
	assert.Equal(suite.T(), dialect.Text, first.Mode)
	assert.Equal(suite.T(), dialect.Embedded, first.Variant)
	assert.Equal(suite.T(), []any{1}, first.Args)
	assert.NoError(suite.T(), first.Error)
	assert.False(suite.T(), first.End.Before(first.Start))

	second := events[1]
	assert.NotEqual(suite.T(), first.ID, second.ID)
	assert.Equal(suite.T(), OpExecuteNonQuery, second.Operation)
	assert.Error(suite.T(), second.Error)
	assert.True(suite.T(), second.Classified)
}

func (suite *DalSuite) TestTimingAndErrorMiddleware() {
	ctx := context.Background()
	var timed []string
	var failed []string

	dal, err := New(dialect.Embedded, suite.dsn,
		WithAlwaysTextQuery(true),
		WithMiddleware(
			TimingMiddleware(func(query string, d time.Duration) { timed = append(timed, query) }),
			ErrorMiddleware(func(query string, err error) { failed = append(failed, query) }),
		),
	)
	require.NoError(suite.T(), err)

	_, err = dal.GetSingleValue(ctx, "SELECT 1")
	require.NoError(suite.T(), err)
	_, err = dal.GetSingleValue(ctx, "SELECT nonsense FROM rubbish")
	require.Error(suite.T(), err)

	assert.Equal(suite.T(), []string{"SELECT 1", "SELECT nonsense FROM rubbish"}, timed)
	assert.Equal(suite.T(), []string{"SELECT nonsense FROM rubbish"}, failed)
}

func (suite *DalSuite) TestAmbientTransaction() {
	ctx := context.Background()
	suite.dal.IsAlwaysTextQuery = true

	tx, err := suite.keeper.BeginTx(ctx, nil)
	require.NoError(suite.T(), err)
	txCtx := WithTransaction(ctx, tx)
	assert.Same(suite.T(), tx, TransactionFrom(txCtx))
	assert.Nil(suite.T(), TransactionFrom(ctx))

	id, err := suite.dal.GetSingleValueIdentity(txCtx, "INSERT INTO Cases (CaseName) VALUES (@Case)", true,
		param.New("@Case", "The Hound of the Baskervilles"))
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(1), id)

	n, err := suite.dal.GetSingleValue(txCtx, "SELECT COUNT(*) FROM Cases")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(1), n)

	require.NoError(suite.T(), tx.Rollback())

	n, err = suite.dal.GetSingleValue(ctx, "SELECT COUNT(*) FROM Cases")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(0), n)
}

func (suite *DalSuite) TestSetConnection() {
	ctx := context.Background()
	dal, err := New(dialect.Embedded, "", WithAlwaysTextQuery(true), WithCatchDbExceptions(true))
	require.NoError(suite.T(), err)
	assert.True(suite.T(), dal.CatchDbExceptions)
	assert.Equal(suite.T(), "sqlite3", dal.Driver())
	assert.Equal(suite.T(), dialect.Embedded, dal.Variant())

	_, err = dal.GetSingleValue(ctx, "SELECT 1")
	assert.ErrorIs(suite.T(), err, ErrNoConnection)

	dal.SetConnection(suite.dsn)
	assert.Equal(suite.T(), suite.dsn, dal.Connection())
	n, err := dal.GetSingleValue(ctx, "SELECT COUNT(*) FROM Person")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(3), n)
}

func (suite *DalSuite) TestSignatureCacheOption() {
	cache := sigcache.NewMemoryCache(0)
	defer cache.Close()

	dal, err := New(dialect.FullServer, "postgres://localhost/none", WithSignatureCache(cache, time.Minute), WithDriver("pgx"))
	require.NoError(suite.T(), err)
	require.NotNil(suite.T(), dal.signatures)
	assert.Equal(suite.T(), "pgx", dal.Driver())

	key := sigcache.Key(dialect.FullServer, dal.Connection(), "usp_person")
	require.NoError(suite.T(), dal.signatures.Save(context.Background(), key, &dialect.Signature{
		Procedure: "usp_person",
		Kind:      dialect.Function,
		Parameters: []dialect.SignatureParameter{
			{Name: "id", Direction: param.Input, Position: 1},
		},
	}))

	// The cached signature is used without touching the catalog.
	sig, err := dal.deriver(nil)(context.Background(), "usp_person")
	require.NoError(suite.T(), err)
	assert.Len(suite.T(), sig.Parameters, 1)
}

func TestNewRejectsUnknownDriver(t *testing.T) {
	_, err := New(dialect.Embedded, "file:x.db", WithDriver("mysql"))
	assert.ErrorIs(t, err, dialect.ErrUnsupportedVariant)
}

func TestRestrictToIdentities(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		column string
		ids    []int
		want   string
	}{
		{"no column", "SELECT Id FROM T", "", []int{1}, "SELECT Id FROM T"},
		{"nil ids", "SELECT Id FROM T", "Id", nil, "SELECT Id FROM T"},
		{"where", "SELECT Id FROM T", "Id", []int{1, 2}, "SELECT Id FROM T WHERE Id IN ( 1,2 )"},
		{"and", "SELECT Id FROM T where X = 1", "Id", []int{5}, "SELECT Id FROM T where X = 1 AND Id IN ( 5 )"},
		{"empty ids", "SELECT Id FROM T", "Id", []int{}, "SELECT Id FROM T WHERE Id IN (  )"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, restrictToIdentities(tt.text, tt.column, tt.ids))
		})
	}
}

type person struct {
	ID        int64   `db:"Id"`
	LastName  string
	FirstName *string `db:"FirstName"`
}

func (suite *DalSuite) TestGetTableAs() {
	ctx := context.Background()
	suite.dal.IsAlwaysTextQuery = true

	people, err := GetTableAs[person](ctx, suite.dal, "SELECT Id, LastName, FirstName, 1 AS Extra FROM Person ORDER BY Id")
	require.NoError(suite.T(), err)
	require.Len(suite.T(), people, 3)
	assert.Equal(suite.T(), int64(1), people[0].ID)
	assert.Equal(suite.T(), "Holmes", people[0].LastName)
	require.NotNil(suite.T(), people[0].FirstName)
	assert.Equal(suite.T(), "Sherlock", *people[0].FirstName)
	assert.Nil(suite.T(), people[2].FirstName)

	none, err := GetTableAs[person](ctx, suite.dal, "SELECT Id FROM Person WHERE Id > 100")
	require.NoError(suite.T(), err)
	assert.Empty(suite.T(), none)

	_, err = GetTableAs[int](ctx, suite.dal, "SELECT Id FROM Person")
	assert.Error(suite.T(), err)

	suite.dal.CatchDbExceptions = true
	captured, err := GetTableAs[person](ctx, suite.dal, "SELECT nonsense FROM rubbish")
	require.NoError(suite.T(), err)
	assert.NotNil(suite.T(), captured)
	assert.Empty(suite.T(), captured)
}
