// Package eslog writes application logs to an Elasticsearch-compatible
// document store over its REST API.
//
// Records of one stream go to one index per calendar day, named
// "<prefix>-<stream>-<day>-<month>-<year>". Before every write the Logger
// makes sure the index template and the day's index exist; failures there
// are reported to Options.Diagnostics and the write is attempted anyway.
//
//	l, err := eslog.New(eslog.DefaultOptions())
//	if err != nil {
//		return err
//	}
//	res, err := l.Info(ctx, map[string]any{"user": "bob", "action": "login"})
//
// Writes and reads return an error marked with one of ErrWrite, ErrRead or
// ErrNotFound; test with errors.Is.
package eslog
