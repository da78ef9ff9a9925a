package core

import "context"

// FeatureStore 是推荐引擎的只读数据访问接口（特征存储适配层）。
//
// 设计原则：
//   - 定义在领域层（core），由基础设施层（store、store/postgres）实现
//   - 适配层本身不持有状态，只是读边界
//   - 记录在边界处完成校验/修正（评分截断到 [0,1]、作品记录 Normalize）
//
// 约定：
//   - 未找到时返回空集合（或 nil 指针），不返回错误
//   - 真正的存储故障返回错误（建议用 NewStoreFailure 包装），由编排层降级处理
//
// 实现：
//   - store.MemoryFeatureStore（测试/开发）
//   - store.KVFeatureStore（基于 core.Store，Redis/内存）
//   - postgres.FeatureStore（关系库）
type FeatureStore interface {
	// GetUserInteractions 获取用户的全部交互
	GetUserInteractions(ctx context.Context, userID string) ([]Interaction, error)

	// GetArtworkInteractions 获取作品的全部交互
	GetArtworkInteractions(ctx context.Context, artworkID string) ([]Interaction, error)

	// GetUserHighRatedArtworks 获取用户评分 >= minRating 的作品（按评分降序）
	GetUserHighRatedArtworks(ctx context.Context, userID string, minRating float64) ([]RatedArtwork, error)

	// GetUserInteractedArtworkIDs 获取用户交互过的作品 ID
	GetUserInteractedArtworkIDs(ctx context.Context, userID string) ([]string, error)

	// GetArtworkByID 获取单个作品，不存在时返回 (nil, nil)
	GetArtworkByID(ctx context.Context, artworkID string) (*Artwork, error)

	// GetAllArtworks 获取全部在售作品（按存储的列表顺序，通常为热度降序）
	GetAllArtworks(ctx context.Context) ([]Artwork, error)

	// GetAllActiveUsers 获取全部活跃用户 ID
	GetAllActiveUsers(ctx context.Context) ([]string, error)

	// GetArtworkAnalysis 获取作品分析结果，不存在时返回 (nil, nil)
	GetArtworkAnalysis(ctx context.Context, artworkID string) (*ArtworkAnalysis, error)

	// GetUserPreferenceVector 获取用户偏好画像，不存在时返回 (nil, nil)
	GetUserPreferenceVector(ctx context.Context, userID string) (*UserPreferenceVector, error)
}
