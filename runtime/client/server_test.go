package client

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	"github.com/satishbabariya/coconutdal/runtime/dalerr"
	"github.com/satishbabariya/coconutdal/runtime/dialect"
	"github.com/satishbabariya/coconutdal/runtime/identity"
	"github.com/satishbabariya/coconutdal/runtime/param"
	"github.com/satishbabariya/coconutdal/runtime/sigcache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// ServerSuite runs stored-procedure and identity scenarios against a live
// server. It is skipped unless the matching *_TEST_URL variable is set.
type ServerSuite struct {
	suite.Suite
	variant dialect.Variant
	driver  string
	dsn     string
	setup   []string
	db      *sql.DB
	dal     *Dal
}

func TestPostgresSuite(t *testing.T) {
	dsn := os.Getenv("POSTGRESQL_TEST_URL")
	if dsn == "" {
		t.Skip("POSTGRESQL_TEST_URL not set")
	}
	for _, driver := range dialect.Drivers(dialect.FullServer) {
		t.Run(driver, func(t *testing.T) {
			suite.Run(t, &ServerSuite{
				variant: dialect.FullServer,
				driver:  driver,
				dsn:     dsn,
				setup: []string{
					`DROP TABLE IF EXISTS coconut_cases`,
					`DROP TABLE IF EXISTS coconut_person`,
					`CREATE TABLE coconut_person (id integer PRIMARY KEY, last_name text NOT NULL)`,
					`INSERT INTO coconut_person VALUES (1, 'Holmes'), (2, 'Watson')`,
					`CREATE TABLE coconut_cases (case_id serial PRIMARY KEY, case_name text NOT NULL)`,
					`CREATE OR REPLACE FUNCTION coconut_person_name(p_id integer) RETURNS text
						AS $$ SELECT last_name FROM coconut_person WHERE id = p_id $$ LANGUAGE sql`,
					`CREATE OR REPLACE FUNCTION coconut_person_count() RETURNS bigint
						AS $$ SELECT count(*) FROM coconut_person $$ LANGUAGE sql`,
					`CREATE OR REPLACE PROCEDURE coconut_rename(p_id integer, p_name text)
						LANGUAGE sql AS $$ UPDATE coconut_person SET last_name = p_name WHERE id = p_id $$`,
					`CREATE OR REPLACE PROCEDURE coconut_reset()
						LANGUAGE sql AS $$ UPDATE coconut_person SET last_name = 'Watson' WHERE id = 2 $$`,
					`CREATE OR REPLACE PROCEDURE coconut_open_case(p_name text)
						LANGUAGE sql AS $$ INSERT INTO coconut_cases (case_name) VALUES (p_name) $$`,
				},
			})
		})
	}
}

func TestMySQLSuite(t *testing.T) {
	dsn := os.Getenv("MYSQL_TEST_URL")
	if dsn == "" {
		t.Skip("MYSQL_TEST_URL not set")
	}
	suite.Run(t, &ServerSuite{
		variant: dialect.EnterpriseAlt,
		driver:  "mysql",
		dsn:     dsn,
		setup: []string{
			`DROP TABLE IF EXISTS coconut_cases`,
			`DROP TABLE IF EXISTS coconut_person`,
			`DROP PROCEDURE IF EXISTS coconut_person_name`,
			`DROP PROCEDURE IF EXISTS coconut_rename`,
			`DROP PROCEDURE IF EXISTS coconut_reset`,
			`DROP FUNCTION IF EXISTS coconut_person_count`,
			`CREATE TABLE coconut_person (id INT PRIMARY KEY, last_name VARCHAR(64) NOT NULL)`,
			`INSERT INTO coconut_person VALUES (1, 'Holmes'), (2, 'Watson')`,
			`CREATE TABLE coconut_cases (case_id INT AUTO_INCREMENT PRIMARY KEY, case_name VARCHAR(64) NOT NULL)`,
			`CREATE PROCEDURE coconut_person_name(IN p_id INT) SELECT last_name FROM coconut_person WHERE id = p_id`,
			`CREATE PROCEDURE coconut_rename(IN p_id INT, IN p_name VARCHAR(64))
				UPDATE coconut_person SET last_name = p_name WHERE id = p_id`,
			`CREATE PROCEDURE coconut_reset() UPDATE coconut_person SET last_name = 'Watson' WHERE id = 2`,
			`CREATE FUNCTION coconut_person_count() RETURNS BIGINT READS SQL DATA
				RETURN (SELECT COUNT(*) FROM coconut_person)`,
		},
	})
}

func (suite *ServerSuite) SetupSuite() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := sql.Open(suite.driver, suite.dsn)
	require.NoError(suite.T(), err)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		suite.T().Skipf("database not reachable: %v", err)
	}
	suite.db = db

	for _, stmt := range suite.setup {
		_, err := db.ExecContext(ctx, stmt)
		require.NoError(suite.T(), err, stmt)
	}
}

func (suite *ServerSuite) TearDownSuite() {
	if suite.db != nil {
		suite.db.Close()
	}
}

func (suite *ServerSuite) SetupTest() {
	dal, err := New(suite.variant, suite.dsn,
		WithDriver(suite.driver),
		WithSignatureCache(sigcache.NewMemoryCache(0), time.Minute))
	require.NoError(suite.T(), err)
	suite.dal = dal
}

func (suite *ServerSuite) TestStoredProcedureWithRawValues() {
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		v, err := suite.dal.GetSingleValue(ctx, "coconut_person_name", 2)
		require.NoError(suite.T(), err)
		assert.Equal(suite.T(), "Watson", text(v))
	}
}

func (suite *ServerSuite) TestStoredProcedureWithCarriers() {
	ctx := context.Background()

	ok, err := suite.dal.ExecuteNonQuery(ctx, "coconut_rename",
		param.New("@p_id", 2), param.New("@p_name", "Hudson"))
	require.NoError(suite.T(), err)
	assert.True(suite.T(), ok)

	v, err := suite.dal.GetSingleValue(ctx, "coconut_person_name", param.New("@p_id", 2))
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "Hudson", text(v))

	ok, err = suite.dal.ExecuteNonQuery(ctx, "coconut_rename",
		param.New("@p_id", 2), param.New("@p_name", "Watson"))
	require.NoError(suite.T(), err)
	assert.True(suite.T(), ok)
}

func (suite *ServerSuite) TestStoredProcedureWithoutInputs() {
	ctx := context.Background()

	ok, err := suite.dal.ExecuteNonQuery(ctx, "coconut_reset")
	require.NoError(suite.T(), err)
	assert.True(suite.T(), ok)

	count, err := GetSingleValueAs[int64](ctx, suite.dal, "coconut_person_count", false)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(2), count)

	name, err := suite.dal.GetSingleValue(ctx, "coconut_person_name", 2)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "Watson", text(name))
}

func (suite *ServerSuite) TestUnknownProcedure() {
	_, err := suite.dal.GetSingleValue(context.Background(), "coconut_no_such_routine", 1)
	require.Error(suite.T(), err)
	assert.ErrorIs(suite.T(), err, dialect.ErrProcedureNotFound)
}

func (suite *ServerSuite) TestCapturedServerError() {
	ctx := context.Background()
	suite.dal.IsAlwaysTextQuery = true
	suite.dal.CatchDbExceptions = true

	ok, err := suite.dal.ExecuteNonQuery(ctx, "SELECT nonsense FROM rubbish")
	require.NoError(suite.T(), err)
	assert.False(suite.T(), ok)
	assert.Equal(suite.T(), dalerr.Database, dalerr.KindOf(suite.dal.LastError()))
}

func (suite *ServerSuite) TestIdentity() {
	ctx := context.Background()
	suite.dal.IsAlwaysTextQuery = true

	insert := "INSERT INTO coconut_cases (case_name) VALUES (?)"
	if suite.variant == dialect.FullServer {
		insert = "INSERT INTO coconut_cases (case_name) VALUES ($1)"
	}
	id, err := suite.dal.GetSingleValueIdentity(ctx, insert, true, param.New("case", "A Study in Scarlet"))

	if suite.variant == dialect.EnterpriseAlt {
		assert.ErrorIs(suite.T(), err, identity.ErrUnsupported)
		assert.Equal(suite.T(), dalerr.Capability, dalerr.KindOf(err))
		return
	}
	require.NoError(suite.T(), err)
	n, ok := identity.Narrow(id, identity.Int64)
	require.True(suite.T(), ok)
	assert.Greater(suite.T(), n.(int64), int64(0))
}

func (suite *ServerSuite) TestStoredProcedureIdentity() {
	id, err := suite.dal.GetSingleValueIdentity(context.Background(), "coconut_open_case", true,
		param.New("@p_name", "The Sign of Four"))

	if suite.variant == dialect.EnterpriseAlt {
		assert.ErrorIs(suite.T(), err, identity.ErrUnsupported)
		return
	}
	require.NoError(suite.T(), err)
	n, ok := identity.Narrow(id, identity.Int64)
	require.True(suite.T(), ok)
	assert.Greater(suite.T(), n.(int64), int64(0))
}
