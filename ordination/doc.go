// Package ordination computes between-sample dissimilarities, projects them
// into a few dimensions and tests group separation.
//
// Distance builds a symmetric DistanceMatrix from the abundance table of a
// dataset. PCoA and NMDS embed a DistanceMatrix in k dimensions; Permanova
// tests whether a grouping of the samples explains the dissimilarities
// better than random groupings.
//
// Stochastic operations (NMDS starts, PERMANOVA permutations) own a PCG
// generator seeded through WithSeed, so a call is reproducible for a given
// seed.
//
// Example:
//
//	dm, err := ordination.Distance(ds, ordination.BrayCurtis, ordination.WithRelative())
//	if err != nil {
//	    return err
//	}
//	ord, err := ordination.PCoA(dm, 2)
//	if err != nil {
//	    return err
//	}
//	groups, _ := ds.Labels("treatment")
//	res, err := ordination.Permanova(dm, groups, ordination.WithSeed(42))
package ordination
