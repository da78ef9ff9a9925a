// Package feature 提供作品内容特征抽取，以及 core.FeatureStore 的装饰器（熔断、监控）。
//
// 内容特征（ContentFeature）是临时派生数据，由作品元数据和离线分析结果抽取：
//
//	字段          来源
//	Category     Artwork.Category
//	Styles       Artwork.Styles
//	StyleVector  ArtworkAnalysis.StyleVector，没有分析结果时为空
//	ColorPalette ArtworkAnalysis.ColorPalette（JSON 数组，解析失败视为空）
//	Complexity   ArtworkAnalysis.QualityScore，缺失时 0.5
//	ArtistStyle  Artwork.ArtistID（作为风格代理）
//	Tags         Artwork.Tags
//
// 装饰器可以叠加：
//
//	fs := feature.NewInstrumentedStore(feature.NewBreakerStore(pg, feature.BreakerConfig{}), m)
package feature
