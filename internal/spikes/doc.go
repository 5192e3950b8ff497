// Package spikes removes outliers ("spikes") from a numeric series.
//
// A sample is a spike when its distance from the series median exceeds a
// multiple of the quartile deviation (half the interquartile range).
// Spikes are replaced with NaN, which marks a missing sample, and the
// statistics are recomputed until a pass finds nothing left to remove.
// NaN samples are ignored by every statistic and are never flagged.
//
// Percentiles interpolate linearly between the two closest ranks of the
// sorted valid samples, so for n samples the p-th percentile sits at rank
// (n-1)*p/100. The median is the 50th percentile.
package spikes
