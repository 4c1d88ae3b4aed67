/*
Package cli provides helpers shared by the covenant commands: output
formatters, progress reporting, signal handling and the error types that
decide the process exit code.

Exit codes:

	0  success
	1  a constraint or expression failed, or a replay mismatched (ViolationError)
	2  anything else: bad input, I/O, configuration

Output Formatting:

	formatter := cli.NewFormatter(cli.FormatJSON)
	if err := formatter.FormatTo(os.Stdout, report); err != nil {
		return err
	}

CSV output requires the value to implement Table.

Signal Handling:

	ctx, cancel := cli.SetupSignalHandler(context.Background())
	defer cancel()
*/
package cli
