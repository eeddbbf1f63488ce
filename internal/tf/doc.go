// Package tf keeps the recent history of rigid transforms between named
// coordinate frames and answers "where is frame X relative to frame Y at
// time T".
//
// Every ingested transform is stored twice, as observed and inverted, so a
// lookup can walk any relationship in either direction. Lookups find a
// chain of relationships with a breadth-first search over the frame graph,
// sample each relationship at the query time (interpolating dynamic ones,
// taking the newest sample of static ones) and compose the results.
//
// The graph is expected to be a tree. The search terminates on cyclic
// input but the path it returns is then unspecified; Buffer.HasCycle can
// check a graph after the fact.
package tf
