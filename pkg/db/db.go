package db

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/enamaryn/XNova-reforged-sub000/pkg/logger"
	"github.com/google/uuid"
	"github.com/jackc/pgx"
	"github.com/jackc/pgx/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/viper"
	_ "modernc.org/sqlite"
)

// Drivers supported to connect to a database.
const (
	Postgres = "postgres"
	SQLite   = "sqlite"
)

func init() {
	// The modernc driver registers itself as `sqlite` which
	// is not part of the names known by sqlx.
	sqlx.BindDriver(SQLite, sqlx.QUESTION)
}

// configuration :
// Defines the possible options to define the way this DB
// object should try to connect to the underlying database.
//
// The `driver` selects the database engine, either of the
// `Postgres` or `SQLite` values.
// The default value is `postgres`.
//
// The `host` references the address at which the database
// is hosted and thus where we should try to connect to it.
// The default value is "localhost".
//
// The `port` describes the exposed port to connect to the
// database.
// The default value is 5432.
//
// The `name` defines the name of the database. This value
// should be set as we cannot assume anything regarding its
// value in general.
//
// The `user` defines the role that this object should use
// to connect to the DB. It should be specified from the
// configuration file.
//
// The `password` defines the password to use to access to
// the DB given the specified username. No default value is
// provided for this value.
//
// The `path` is the file holding a SQLite database. An empty
// path creates a database living in memory.
//
// The `timeout` which separates two successive connection
// attemps to the DB. In case an attempt fails we will wait
// for this amount of time before trying again. This time
// is expressed in seconds.
// The default value is `5` seconds.
//
// The `attempts` is the number of connection attempts
// before giving up.
// The default value is `5`.
//
// The `connectionsPool` defines the number of concurrent
// connections that can be issued on the underlying DB. The
// larger this value the more stress will be put on the DB
// but the more clients will be able to concurrently access
// it.
// The default value is `5`.
type configuration struct {
	driver          string
	host            string
	port            int
	name            string
	user            string
	password        string
	path            string
	timeout         int
	attempts        int
	connectionsPool int
}

// DB :
// Describes a database object to provides a wrapper on the
// sqlx handler. This is used as a convenience way to hide a
// part of the DB implementation to be used in other parts
// of an application.
// For postgres the connections are managed by a pgx pool
// which is exposed through the `database/sql` interface.
//
// The `handle` is the object used to run queries.
//
// The `pool` holds the pgx pool when the driver is postgres
// and is `nil` otherwise.
//
// The `lock` protects the `pool` while it is checked by the
// health monitoring.
//
// The `logger` allows to notify information and errors.
//
// The `config` describes the connection properties to use
// to perform the connection to the DB object.
type DB struct {
	handle *sqlx.DB
	pool   *pgx.ConnPool
	lock   sync.Mutex
	logger logger.Logger
	config configuration
	done   chan struct{}
}

// parseConfiguration :
// Attempt to parse the configuration provided to this app
// to extract connection parameters to use for the DB. It
// relies on default value in case some values are not set.
//
// Returns the built-in configuration object along with any
// error in case mandatory values are missing.
func parseConfiguration() (configuration, error) {
	config := configuration{
		driver:          Postgres,
		host:            "localhost",
		port:            5432,
		timeout:         5,
		attempts:        5,
		connectionsPool: 5,
	}

	if viper.IsSet("Database.Driver") {
		config.driver = strings.ToLower(viper.GetString("Database.Driver"))
	}
	if viper.IsSet("Database.Host") {
		config.host = viper.GetString("Database.Host")
	}
	if viper.IsSet("Database.Port") {
		config.port = viper.GetInt("Database.Port")
	}
	if viper.IsSet("Database.Name") {
		config.name = viper.GetString("Database.Name")
	}
	if viper.IsSet("Database.User") {
		config.user = viper.GetString("Database.User")
	}
	if viper.IsSet("Database.Password") {
		config.password = viper.GetString("Database.Password")
	}
	if viper.IsSet("Database.Path") {
		config.path = viper.GetString("Database.Path")
	}
	if viper.IsSet("Database.Timeout") {
		config.timeout = viper.GetInt("Database.Timeout")
	}
	if viper.IsSet("Database.Attempts") {
		config.attempts = viper.GetInt("Database.Attempts")
	}
	if viper.IsSet("Database.ConnectionsPool") {
		config.connectionsPool = viper.GetInt("Database.ConnectionsPool")
	}

	if config.connectionsPool <= 0 {
		return config, fmt.Errorf("invalid DB connections pool %d", config.connectionsPool)
	}

	switch config.driver {
	case SQLite:
		return config, nil
	case Postgres:
	default:
		return config, fmt.Errorf("unsupported DB driver \"%s\"", config.driver)
	}

	// Check whether we could find all the mandatory
	// configuration properties to reach the server.
	if len(config.name) == 0 {
		return config, fmt.Errorf("invalid DB name \"%s\"", config.name)
	}
	if len(config.user) == 0 {
		return config, fmt.Errorf("invalid DB user \"%s\"", config.user)
	}
	if len(config.password) == 0 {
		return config, fmt.Errorf("missing password for DB user \"%s\"", config.user)
	}
	if config.port < 0 || config.port >= 1<<16 {
		return config, fmt.Errorf("cannot use port %d to connect to DB \"%s\"", config.port, config.name)
	}
	if config.timeout <= 0 {
		config.timeout = 1
	}
	if config.attempts <= 0 {
		config.attempts = 1
	}

	return config, nil
}

// NewPool :
// Performs the creation of a new database object from the
// configuration. For postgres the connection is attempted
// until it succeeds or the number of attempts is reached,
// after which the pool is monitored in the background and
// reconnected when needed.
//
// The `logger` allows to specify the logging device to use.
//
// Returns the created database object along with any error.
func NewPool(log logger.Logger) (*DB, error) {
	config, err := parseConfiguration()
	if err != nil {
		return nil, err
	}

	if config.driver == SQLite {
		return OpenSQLite(config.path, log)
	}

	dbase := &DB{
		logger: log,
		config: config,
		done:   make(chan struct{}),
	}

	for attempt := 1; !dbase.createPoolAttempt(); attempt++ {
		if attempt >= config.attempts {
			return nil, fmt.Errorf("could not connect to DB \"%s\" after %d attempt(s)", config.name, attempt)
		}

		time.Sleep(time.Second * time.Duration(config.timeout))
	}

	sqlDB, err := stdlib.OpenFromConnPool(dbase.pool)
	if err != nil {
		dbase.pool.Close()
		return nil, fmt.Errorf("wrapping pool of DB \"%s\": %w", config.name, err)
	}
	dbase.handle = sqlx.NewDb(sqlDB, "pgx")

	// Create a ticker to maintain the connection with the
	// DB healthy in case of a disconnection later on.
	ticker := time.NewTicker(time.Second * time.Duration(config.timeout))
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-dbase.done:
				return
			case <-ticker.C:
				dbase.Healthcheck()
			}
		}
	}()

	return dbase, nil
}

// OpenSQLite :
// Opens the SQLite database stored in the file. An empty
// path creates a private database in memory which lives
// as long as the returned object: in this case a single
// connection is used.
//
// Returns the created database object along with any error.
func OpenSQLite(path string, log logger.Logger) (*DB, error) {
	memory := len(path) == 0 || path == ":memory:"

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)&_txlock=immediate", path)
	if memory {
		dsn = fmt.Sprintf("file:%s?mode=memory&cache=shared&_pragma=foreign_keys(ON)&_txlock=immediate", uuid.New().String())
	}

	handle, err := sqlx.Open(SQLite, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database \"%s\": %w", path, err)
	}

	if memory {
		handle.SetMaxOpenConns(1)
		handle.SetConnMaxLifetime(0)
		handle.SetConnMaxIdleTime(0)
	}

	if err := handle.Ping(); err != nil {
		handle.Close()
		return nil, fmt.Errorf("opening sqlite database \"%s\": %w", path, err)
	}

	log.Trace(logger.Info, "db", fmt.Sprintf("Opened sqlite database \"%s\"", path))

	return &DB{
		handle: handle,
		logger: log,
		config: configuration{driver: SQLite, path: path},
	}, nil
}

// createPoolAttempt :
// Used to try to connect to the database described in the configuration
// file. The connection is assigned to the internal attribute only if it
// has succeeded.
//
// Returns `true` if the attempt succeeded (i.e. if we are successfully
// connected to the DB) and `false` otherwise.
func (dbase *DB) createPoolAttempt() bool {
	config := dbase.config
	dbase.logger.Trace(logger.Info, "db", fmt.Sprintf("Attempting to connect to \"%s\" (user: \"%s\", host: \"%s:%d\")", config.name, config.user, config.host, config.port))

	pool, err := pgx.NewConnPool(pgx.ConnPoolConfig{
		ConnConfig: pgx.ConnConfig{
			Host:     config.host,
			Database: config.name,
			Port:     uint16(config.port),
			User:     config.user,
			Password: config.password,
		},
		MaxConnections: config.connectionsPool,
		AcquireTimeout: 0,
	})

	if err != nil {
		dbase.logger.Trace(logger.Warning, "db", fmt.Sprintf("Failed to connect to DB \"%s\" (err: %v)", config.name, err))
		return false
	}

	dbase.logger.Trace(logger.Info, "db", fmt.Sprintf("Connection to DB \"%s\" with username \"%s\" succeeded", config.name, config.user))

	dbase.lock.Lock()
	defer dbase.lock.Unlock()
	dbase.pool = pool

	return true
}

// Healthcheck :
// Used to check the health of the connection to the DB. The
// pool reconnects by itself when a connection is acquired so
// this only reports an unreachable server: the queries fail
// with a transient error in the meantime.
func (dbase *DB) Healthcheck() {
	dbase.lock.Lock()
	pool := dbase.pool
	dbase.lock.Unlock()

	if pool == nil {
		return
	}

	if err := dbase.handle.Ping(); err != nil {
		stat := pool.Stat()
		dbase.logger.Trace(logger.Warning, "db", fmt.Sprintf("DB \"%s\" is unhealthy with %d connection(s) (err: %v)", dbase.config.name, stat.CurrentConnections, err))
	}
}

// Handle :
// Returns the object to use to run queries.
func (dbase *DB) Handle() *sqlx.DB {
	return dbase.handle
}

// Driver :
// Returns the name of the database engine.
func (dbase *DB) Driver() string {
	return dbase.config.driver
}

// Close :
// Releases the connections to the database.
func (dbase *DB) Close() error {
	if dbase.done != nil {
		close(dbase.done)
		dbase.done = nil
	}

	err := dbase.handle.Close()

	dbase.lock.Lock()
	defer dbase.lock.Unlock()
	if dbase.pool != nil {
		dbase.pool.Close()
		dbase.pool = nil
	}

	return err
}
