// Package store 提供 core.Store / core.KeyValueStore 以及 core.FeatureStore、core.PrecomputedStore 的实现。
//
// 注意：接口定义在 core 包。
//
// 示例：
//
//	var kv core.KeyValueStore = store.NewMemoryStore()
//	var fs core.FeatureStore = store.NewKVFeatureStore(kv, "art")
//	var pc core.PrecomputedStore = store.NewKVRecommendationStore(kv, "rec")
package store

import "github.com/rushteam/artrec/core"

// ErrNotFound 是 core.ErrStoreNotFound 的包内别名。
var ErrNotFound = core.ErrStoreNotFound
