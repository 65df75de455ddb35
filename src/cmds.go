package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"msidb/src/dberror"
	"msidb/src/directors"
	"msidb/src/engine"
	"msidb/src/helpers"
	"msidb/src/record"
	"msidb/src/settings"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var logger = zap.NewNop().Sugar()

func fatal(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintf(os.Stderr, "Error: %s\n", msg)
	os.Exit(1)
}

// loadSettings fills the shared settings from the flags and the config
// file. Flags given on the command line win over the config file.
func loadSettings(cmd *cobra.Command, _ []string) error {
	args := settings.GetSettings()
	flags := cmd.Flags()

	apply := func(all bool) {
		if all || flags.Changed("file") {
			args.DataFile, _ = flags.GetString("file")
		}
		if all || flags.Changed("format") {
			args.Format, _ = flags.GetString("format")
		}
		if all || flags.Changed("log-dir") {
			args.LogDir, _ = flags.GetString("log-dir")
		}
		if all || flags.Changed("code-page") {
			args.CodePage, _ = flags.GetInt("code-page")
		}
		if all || flags.Changed("read-only") {
			args.ReadOnly, _ = flags.GetBool("read-only")
		}
		if all || flags.Changed("debug") {
			args.Debug, _ = flags.GetBool("debug")
		}
		if all || flags.Changed("verbose") {
			args.Verbose, _ = flags.GetBool("verbose")
		}
	}
	apply(true)

	args.Profile, _ = flags.GetString("profile")
	args.ConfigFile, _ = flags.GetString("config")
	configFile := args.ConfigFile
	if configFile == "" {
		if fname, err := settings.ExpandUser(settings.DefaultConfigFile); err == nil && helpers.FileExists(fname, logger) {
			configFile = fname
		}
	}
	if configFile != "" {
		if err := settings.LoadConfigFile(configFile, args.Profile, args); err != nil {
			return err
		}
		apply(false)
	}

	if args.Format != settings.FormatPretty && args.Format != settings.FormatJSON {
		return errors.Errorf("unknown format '%s'", args.Format)
	}

	l, err := newLogger(args)
	if err != nil {
		return err
	}
	logger = l
	return nil
}

func newLogger(args *settings.Arguments) (*zap.SugaredLogger, error) {
	var z zap.Config
	if args.Debug || args.Verbose {
		z = zap.NewDevelopmentConfig()
	} else {
		z = zap.NewProductionConfig()
		z.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	}
	z.OutputPaths = []string{"stderr"}

	if args.LogDir != "" {
		if err := os.MkdirAll(args.LogDir, 0755); err != nil {
			return nil, errors.Wrapf(err, "failed to create log directory")
		}
		timestamp := time.Now().Format("2006-01-02_15-04-05")
		z.OutputPaths = append(z.OutputPaths, filepath.Join(args.LogDir, fmt.Sprintf("%s_msidb.log", timestamp)))
	}

	l, err := z.Build()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to initialize logger")
	}
	zap.ReplaceGlobals(l)
	return l.Sugar(), nil
}

// Represents the state used when processing a command.
type Action struct {
	cmd   *cobra.Command
	args  *settings.Arguments
	svc   *directors.DatabaseService
	start time.Time
}

func newAction(cmd *cobra.Command) *Action {
	return &Action{cmd: cmd, args: settings.GetSettings(), start: time.Now()}
}

func (a *Action) getBool(name string) bool {
	v, _ := a.cmd.Flags().GetBool(name)
	return v
}

func (a *Action) getString(name string) string {
	v, _ := a.cmd.Flags().GetString(name)
	return v
}

func (a *Action) getStringSlice(name string) []string {
	v, _ := a.cmd.Flags().GetStringSlice(name)
	return v
}

// Open the database named by the settings, exiting on failure.
func (a *Action) open(create bool) *directors.DatabaseService {
	if a.args.DataFile == "" {
		fatal("no database file, use --file")
	}
	svc, err := directors.NewDatabaseService(a.args, create, logger)
	if err != nil {
		fatal("%s", err)
	}
	a.svc = svc
	return svc
}

func (a *Action) run(stmt directors.Statement, params *record.Record) (*directors.CommandResponse, error) {
	return a.svc.Run(stmt, params)
}

// Close the database and exit.
func (a *Action) Exit(result interface{}, err error) {
	if a.svc != nil {
		a.svc.Close()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s (%s)\n", rtrimEol(err.Error()), dberror.KindOf(err))
		logger.Debugw("Command failed", "command", a.cmd.Name(), "error", err)
		logger.Sync()
		os.Exit(1)
	}
	logger.Debugw("Command done", "command", a.cmd.Name(), "elapsed", time.Since(a.start))
	a.showValue(result)
	logger.Sync()
	os.Exit(0)
}

func rtrimEol(value string) string {
	return strings.TrimRight(value, "\r\n")
}

// rowSet is the printable form of a query result.
type rowSet struct {
	Columns []string        `json:"columns"`
	Rows    [][]interface{} `json:"rows"`
}

func newRowSet(resp *directors.CommandResponse) *rowSet {
	rs := &rowSet{Rows: [][]interface{}{}}
	for _, c := range resp.Columns {
		rs.Columns = append(rs.Columns, c.Name)
	}
	for _, rec := range resp.Result {
		rs.Rows = append(rs.Rows, rec.Values())
	}
	return rs
}

func formatCell(v interface{}) string {
	switch vv := v.(type) {
	case nil:
		return ""
	case []byte:
		return fmt.Sprintf("[stream %d bytes]", len(vv))
	}
	return fmt.Sprint(v)
}

func (rs *rowSet) show(w io.Writer) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(rs.Columns, "\t"))
	for _, row := range rs.Rows {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = formatCell(v)
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	tw.Flush()
}

func showJSON(v interface{}) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fatal("%s", err)
	}
	fmt.Println(string(data))
}

func (a *Action) showValue(v interface{}) {
	if v == nil {
		return
	}
	if a.args.Format == settings.FormatJSON {
		showJSON(v)
		return
	}
	switch vv := v.(type) {
	case string:
		fmt.Println(rtrimEol(vv))
	case []string:
		for _, s := range vv {
			fmt.Println(s)
		}
	case *rowSet:
		vv.show(os.Stdout)
	default:
		showJSON(v)
	}
}

// parseWhere splits column=value. The value is passed as a parameter so
// that integer columns accept it too.
func parseWhere(where string) (*directors.Condition, *record.Record, error) {
	if where == "" {
		return nil, nil, nil
	}
	column, value, ok := strings.Cut(where, "=")
	column = strings.TrimSpace(column)
	if !ok || column == "" {
		return nil, nil, errors.Wrapf(dberror.ErrBadQuerySyntax, "bad condition '%s', want column=value", where)
	}
	params := record.New(1)
	params.SetString(1, strings.TrimSpace(value))
	return &directors.Condition{Column: column, Value: engine.Wildcard()}, params, nil
}

func columnRefs(names []string) []engine.ColumnRef {
	refs := make([]engine.ColumnRef, 0, len(names))
	for _, n := range names {
		refs = append(refs, engine.ColumnRef{Column: strings.TrimSpace(n)})
	}
	return refs
}

func commitResult(svc *directors.DatabaseService, msg string) (interface{}, error) {
	if err := svc.Commit(); err != nil {
		return nil, err
	}
	return msg, nil
}

//
// Database
//

func initDatabase(cmd *cobra.Command, args []string) {
	action := newAction(cmd)
	svc := action.open(true)
	action.Exit(commitResult(svc, fmt.Sprintf("Created %s", action.args.DataFile)))
}

//
// Tables
//

func listTables(cmd *cobra.Command, args []string) {
	action := newAction(cmd)
	svc := action.open(false)
	action.Exit(svc.Database().TableNames(), nil)
}

func listColumns(cmd *cobra.Command, args []string) {
	action := newAction(cmd)
	svc := action.open(false)

	q, err := directors.Open(svc.Database(), &directors.Select{Table: args[0]}, logger)
	if err != nil {
		action.Exit(nil, err)
	}
	infos, err := q.Columns()
	q.Close()
	if err != nil {
		action.Exit(nil, err)
	}

	rs := &rowSet{
		Columns: []string{"Number", "Name", "Type", "Size", "Key", "Nullable", "Temporary"},
		Rows:    [][]interface{}{},
	}
	for i, info := range infos {
		ct := info.Type
		rs.Rows = append(rs.Rows, []interface{}{i + 1, info.Name, ct.Kind.String(), ct.Size, ct.Key, ct.Nullable, ct.Temporary})
	}
	action.Exit(rs, nil)
}

func dumpTable(cmd *cobra.Command, args []string) {
	action := newAction(cmd)
	action.open(false)

	where, params, err := parseWhere(action.getString("where"))
	if err != nil {
		action.Exit(nil, err)
	}
	resp, err := action.run(&directors.Select{
		Table:    args[0],
		Columns:  columnRefs(action.getStringSlice("columns")),
		Distinct: action.getBool("distinct"),
		Where:    where,
	}, params)
	if err != nil {
		action.Exit(nil, err)
	}
	action.Exit(newRowSet(resp), nil)
}

func deleteRows(cmd *cobra.Command, args []string) {
	action := newAction(cmd)
	svc := action.open(false)

	where, params, err := parseWhere(action.getString("where"))
	if err != nil {
		action.Exit(nil, err)
	}
	if _, err := action.run(&directors.Delete{Table: args[0], Where: where}, params); err != nil {
		action.Exit(nil, err)
	}
	action.Exit(commitResult(svc, fmt.Sprintf("Deleted rows from %s", args[0])))
}

func dropTable(cmd *cobra.Command, args []string) {
	action := newAction(cmd)
	svc := action.open(false)

	if _, err := action.run(&directors.DropTable{Table: args[0]}, nil); err != nil {
		action.Exit(nil, err)
	}
	action.Exit(commitResult(svc, fmt.Sprintf("Dropped %s", args[0])))
}

//
// Streams and storages
//

func listNames(cmd *cobra.Command, table string) {
	action := newAction(cmd)
	action.open(false)

	resp, err := action.run(&directors.Select{Table: table, Columns: columnRefs([]string{"Name"})}, nil)
	if err != nil {
		action.Exit(nil, err)
	}
	names := make([]string, 0, resp.ResultCount)
	for _, rec := range resp.Result {
		if s, ok := rec.GetString(1); ok {
			names = append(names, s)
		}
	}
	action.Exit(names, nil)
}

func listStreams(cmd *cobra.Command, args []string) {
	listNames(cmd, engine.StreamsTable)
}

func listStorages(cmd *cobra.Command, args []string) {
	listNames(cmd, engine.StoragesTable)
}

func exportStream(cmd *cobra.Command, args []string) {
	action := newAction(cmd)
	action.open(false)

	params := record.New(1)
	params.SetString(1, args[0])
	resp, err := action.run(&directors.Select{
		Table: engine.StreamsTable,
		Where: &directors.Condition{Column: "Name", Value: engine.Wildcard()},
	}, params)
	if err != nil {
		action.Exit(nil, err)
	}
	if resp.ResultCount == 0 {
		action.Exit(nil, errors.Wrapf(dberror.ErrNotFound, "stream %s", args[0]))
	}

	stm, err := resp.Result[0].GetStream(2)
	if err != nil {
		action.Exit(nil, err)
	}
	data, err := io.ReadAll(stm)
	if err != nil {
		action.Exit(nil, err)
	}
	if err := os.WriteFile(args[1], data, 0644); err != nil {
		action.Exit(nil, errors.Wrapf(err, "error writing %s", args[1]))
	}
	action.Exit(fmt.Sprintf("Wrote %d bytes to %s", len(data), args[1]), nil)
}

func importStream(cmd *cobra.Command, args []string) {
	action := newAction(cmd)
	svc := action.open(false)

	data, err := os.ReadFile(args[1])
	if err != nil {
		action.Exit(nil, errors.Wrapf(err, "error reading %s", args[1]))
	}
	params := record.New(2)
	params.SetString(1, args[0])
	params.SetStreamBytes(2, data)

	if _, err := action.run(&directors.Insert{
		Table:   engine.StreamsTable,
		Columns: columnRefs([]string{"Name", "Data"}),
		Values:  []engine.Value{engine.Wildcard(), engine.Wildcard()},
	}, params); err != nil {
		action.Exit(nil, err)
	}
	action.Exit(commitResult(svc, fmt.Sprintf("Stored %d bytes as %s", len(data), args[0])))
}
