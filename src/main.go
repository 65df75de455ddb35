package main

import (
	"github.com/spf13/cobra"
)

func addCommands(root *cobra.Command) {
	// Database
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create an empty database file",
		Args:  cobra.NoArgs,
		Run:   initDatabase}
	root.AddCommand(cmd)

	// Tables
	cmd = &cobra.Command{
		Use:   "tables",
		Short: "List the tables of the database",
		Args:  cobra.NoArgs,
		Run:   listTables}
	root.AddCommand(cmd)

	cmd = &cobra.Command{
		Use:   "columns table",
		Short: "Describe the columns of a table",
		Args:  cobra.ExactArgs(1),
		Run:   listColumns}
	root.AddCommand(cmd)

	cmd = &cobra.Command{
		Use:   "dump table",
		Short: "Print the rows of a table",
		Args:  cobra.ExactArgs(1),
		Run:   dumpTable}
	cmd.Flags().StringSlice("columns", nil, "columns to print (default: all)")
	cmd.Flags().String("where", "", "only rows where column=value")
	cmd.Flags().Bool("distinct", false, "drop duplicate rows")
	root.AddCommand(cmd)

	cmd = &cobra.Command{
		Use:   "delete-rows table",
		Short: "Delete rows from a table",
		Args:  cobra.ExactArgs(1),
		Run:   deleteRows}
	cmd.Flags().String("where", "", "only rows where column=value")
	root.AddCommand(cmd)

	cmd = &cobra.Command{
		Use:   "drop-table table",
		Short: "Drop a table",
		Args:  cobra.ExactArgs(1),
		Run:   dropTable}
	root.AddCommand(cmd)

	// Streams and storages
	cmd = &cobra.Command{
		Use:   "streams",
		Short: "List the streams of the database file",
		Args:  cobra.NoArgs,
		Run:   listStreams}
	root.AddCommand(cmd)

	cmd = &cobra.Command{
		Use:   "storages",
		Short: "List the storages of the database file",
		Args:  cobra.NoArgs,
		Run:   listStorages}
	root.AddCommand(cmd)

	cmd = &cobra.Command{
		Use:   "export-stream stream file",
		Short: "Write the contents of a stream to a file",
		Args:  cobra.ExactArgs(2),
		Run:   exportStream}
	root.AddCommand(cmd)

	cmd = &cobra.Command{
		Use:   "import-stream stream file",
		Short: "Store a file as a new stream",
		Args:  cobra.ExactArgs(2),
		Run:   importStream}
	root.AddCommand(cmd)
}

func main() {
	var root = &cobra.Command{
		Use:               "msidb",
		Short:             "Inspect and edit installer databases",
		PersistentPreRunE: loadSettings}
	root.PersistentFlags().StringP("file", "f", "", "database file")
	root.PersistentFlags().String("config", "", "config file (default: ~/.msidb/config if present)")
	root.PersistentFlags().String("profile", "default", "config profile")
	root.PersistentFlags().String("format", "pretty", "format results, 'json' or 'pretty'")
	root.PersistentFlags().String("log-dir", "", "directory for log files")
	root.PersistentFlags().Int("code-page", 0, "code page of a new database")
	root.PersistentFlags().Bool("read-only", false, "open the database read-only")
	root.PersistentFlags().Bool("debug", false, "trace failing operations")
	root.PersistentFlags().BoolP("verbose", "v", false, "verbose logging")
	addCommands(root)
	root.Execute()
}
