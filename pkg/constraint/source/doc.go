// Package source loads constraint files into an immutable Set and keeps
// it current.
//
// A Reloader reads a Source, vets each file (typically with
// engine.Prepare) and swaps the resulting Set in atomically. A reload that
// fails for any file leaves the previous Set in service:
//
//	r := source.NewReloader(source.NewFileSource(cfg.Constraints.Paths, nil), logger,
//	    source.WithValidator(eng.Prepare),
//	    source.WithReloadMetrics(collector),
//	)
//	if _, err := r.Load(ctx); err != nil {
//	    return err
//	}
//	go r.Watch(ctx, &source.WatcherConfig{Debounce: cfg.Constraints.Debounce})
//
//	file, ok := r.Current().Get("payment-saga")
//
// The Watcher uses fsnotify and debounces bursts of events, so an editor
// saving several files triggers one reload.
package source
