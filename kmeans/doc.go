// Package kmeans implements the k-means engine behind the visualization:
// centroid initialization (random, k-means++, farthest-point, manual), label
// assignment, centroid recomputation, the convergence check and a Session
// that advances the algorithm one half-iteration at a time.
//
// Everything operates on small in-memory 2D data sets and is synchronous.
package kmeans
