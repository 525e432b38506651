// Package util provides helpers shared by the dStore storage engines.
//
// The package contains:
//   - statistics: Stats, DistributionStats and a SizeHistogram used by Container.Info
//     to describe value sizes and the spread of entries across shards
//   - functions: Seed generation and the seeded FNV-1a hash used for sharding
package util
