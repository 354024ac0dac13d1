/*
Package patch implements a real-time audio processing graph.

A patch is a directed acyclic set of processing nodes. The engine walks
the committed topological order once per block, lending each node its
input and output buffers from a fixed pool. Topology and parameters are
mutated from a control goroutine through a bounded lock-free queue, and
the mutations are applied by the audio goroutine at block boundaries.
The audio goroutine is the only mutator of live scheduling state, so the
hot path needs no locks and performs no allocation after the engine is
built.

Faults inside an accepted node never abort a block: the node's output is
silenced, the fault is reported through a lossy diagnostics queue, and
audio keeps flowing.
*/
package patch
