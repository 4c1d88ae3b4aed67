// Package recorder turns constraint outcomes into evidence records.
//
// One Evaluation (a constraint file applied to a document) with N outcomes
// yields N records sharing an evaluation ID, document hash and frozen
// timestamp. Records are queued on a buffered channel and written by a
// background worker; Close drains the queue. With AsyncBuffer set to 0 the
// write happens inside Record and its error is returned.
//
//	rec := recorder.New(store, recorder.ConfigFrom(&cfg.Evidence), logger,
//	    recorder.WithMetrics(collector))
//	defer rec.Close()
//
//	records, err := rec.Record(ctx, &recorder.Evaluation{
//	    EvaluationID:        id,
//	    SchemaID:            file.SchemaID,
//	    ContractVersion:     file.ContractVersion,
//	    EvaluationTimestamp: ts,
//	    Document:            doc,
//	}, outcomes)
//
// The document is stored in canonical form (sorted keys, exact big
// integers) so that HashDocument of a replayed document matches the stored
// hash.
package recorder
