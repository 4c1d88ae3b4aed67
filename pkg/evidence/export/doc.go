// Package export writes evidence records as JSON or CSV.
//
// JSON output is an array of records with the documents included and is
// the format the replay command reads back. CSV output is one row per
// record without the documents, for spreadsheets and log pipelines.
//
// Both exporters can stream from Storage.QueryStream:
//
//	recordsCh, errCh, err := store.QueryStream(ctx, q)
//	if err != nil {
//	    return err
//	}
//	if err := exporter.ExportStream(ctx, recordsCh, os.Stdout); err != nil {
//	    return err
//	}
//	return <-errCh
package export
