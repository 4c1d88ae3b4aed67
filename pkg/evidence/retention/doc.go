// Package retention prunes evidence by age and by count.
//
// Age-based pruning deletes records whose RecordedAt is older than
// RetentionDays. Count-based pruning then deletes the oldest records until
// at most MaxRecords remain. With ArchivePath set, each batch is exported
// as JSON before deletion.
//
//	pruner := retention.NewPruner(store, retention.ConfigFrom(&cfg.Evidence.Retention), logger)
//	if err := pruner.Start(ctx); err != nil { // cron schedule
//	    return err
//	}
//	defer pruner.Stop()
//
// Prune can also be called directly, as the "evidence prune" command does.
package retention
