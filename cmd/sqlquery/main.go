package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/docopt/docopt-go"
	"github.com/elum-utils/sqlsession"
	"github.com/elum-utils/sqlsession/flightsql"
	"github.com/elum-utils/sqlsession/sqldriver"
	"github.com/olekukonko/tablewriter"
)

const usage = `SQL Session Query.
Usage:
  sqlquery -h | --help
  sqlquery [--user=USER] [--password=PASSWORD] [--timeout=DUR] [--verbose]
           [--param=VALUE...] <url> <query>
Options:
  -h --help              Show this screen.
  --user=USER            User name, overrides the one in the url.
  --password=PASSWORD    Password, overrides the one in the url.
  --timeout=DUR          Query timeout [default: 30s].
  --param=VALUE          Value for the next ? placeholder, bound as text.
  --verbose              Log connection and statement events.

Examples:
  sqlquery grpc://localhost:31337 "SELECT 1, 2, 3 FROM homes LIMIT 5"
  sqlquery --param=active mysql://root@localhost:3306/shop "SELECT id, name FROM your_table WHERE status = ?"`

type options struct {
	User     string
	Password string
	Timeout  string
	Verbose  bool
	Param    []string
	URL      string `docopt:"<url>"`
	Query    string `docopt:"<query>"`
}

// parseArgs reads argv against usage. Help exits 0 and bad usage exits 2,
// both through exit.
func parseArgs(argv []string, exit func(int)) (options, error) {
	parser := &docopt.Parser{
		HelpHandler: func(err error, usage string) {
			if err != nil {
				fmt.Fprintln(os.Stderr, usage)
				exit(2)
				return
			}
			fmt.Println(usage)
			exit(0)
		},
	}

	var config options
	opts, err := parser.ParseArgs(usage, argv, "")
	if err != nil {
		return config, err
	}
	if err := opts.Bind(&config); err != nil {
		return config, err
	}
	return config, nil
}

func main() {
	config, err := parseArgs(os.Args[1:], os.Exit)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(2)
	}

	timeout, err := time.ParseDuration(config.Timeout)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error: --timeout:", err)
		os.Exit(2)
	}

	level := slog.LevelWarn
	if config.Verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if err := run(config.URL, config.User, config.Password, config.Query, config.Param, timeout, log); err != nil {
		var se *sqlsession.Error
		if errors.As(err, &se) {
			log.Error("query failed", slog.String("kind", se.Code.String()), slog.Any("error", err))
		} else {
			log.Error("query failed", slog.Any("error", err))
		}
		os.Exit(1)
	}
}

// driverFor picks the driver serving the scheme of url.
func driverFor(url string) (sqlsession.Driver, error) {
	cfg, err := sqlsession.ParseURL(url)
	if err != nil {
		return nil, err
	}
	switch cfg.Scheme {
	case "mysql":
		return sqldriver.MySQL(), nil
	case "sqlite":
		return sqldriver.SQLite(), nil
	}
	return flightsql.New(), nil
}

func run(url, user, password, query string, params []string, timeout time.Duration, log *slog.Logger) error {
	drv, err := driverFor(url)
	if err != nil {
		return err
	}

	ctx := context.Background()
	conn, err := sqlsession.Open(ctx, drv, url, user, password, sqlsession.Options{
		QueryTimeout: timeout,
		Logger:       log,
	})
	if err != nil {
		return err
	}
	defer conn.Close()

	stmt, err := conn.Prepare(ctx, query)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, p := range params {
		if err := stmt.Bind(i+1, p); err != nil {
			return err
		}
	}

	cur, err := stmt.ExecuteQuery(ctx)
	if err != nil {
		return err
	}
	defer cur.Close()

	table := tablewriter.NewWriter(os.Stdout)
	table.SetAutoFormatHeaders(false)
	table.SetBorder(false)
	table.SetAutoWrapText(true)

	cols := cur.Columns()
	header := make([]string, len(cols))
	for i, c := range cols {
		header[i] = c.Name
	}
	table.SetHeader(header)

	var n int
	for cur.Next() {
		row := make([]string, len(cols))
		for i := range cols {
			v, err := cur.Get(i + 1)
			if err != nil {
				return err
			}
			row[i] = v.String()
		}
		table.Append(row)
		n++
	}
	if err := cur.Err(); err != nil {
		return err
	}

	table.Render()
	fmt.Printf("(%d rows)\n", n)
	return nil
}
