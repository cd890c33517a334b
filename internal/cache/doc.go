// Package cache persists serialized computation results, such as model
// artifacts and query results, by name within a category, on either the local
// filesystem or Redis, and keeps every category to a bounded number of entries.
//
// A Provider selects the backend once from Config:
//
//	p, err := cache.Open(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer p.Close()
//
//	models, err := p.Category("models")
//	if err != nil {
//		return err
//	}
//	if err := models.Set(ctx, "churn-v3", artifact); err != nil {
//		return err
//	}
//	got, err := cache.GetAs[Artifact](ctx, models, "churn-v3")
//
// Eviction runs synchronously at the end of Set. Once a category holds more
// than max_size+eviction_buffer entries, the oldest are removed until exactly
// max_size remain. On the filesystem the file modification time orders
// entries; on Redis a per-category hash of write timestamps does, so no key
// scan is ever needed.
//
// Keys on Redis:
//
//	<category>_<name>   value bytes
//	<category>          hash: name -> last write time (Unix ns)
package cache
