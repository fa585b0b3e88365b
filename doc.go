// Package fabric defines the data model for multi-modal generative
// workflows: typed tools and ports, workflow nodes and connections, the
// workflow aggregate, and immutable generation run records.
//
// The model is pure data. Scheduling lives in the graph package and
// execution in the engine package.
package fabric
