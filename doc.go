/*Package mrchain is an embedded DSL for composing chains of MapReduce jobs.

A chain is a lazily-built, immutable linked list of stage descriptors. Nothing
runs while a chain is being composed; an Executor walks the finished chain from
its root and submits one job per stage to an execution engine, feeding each
stage's output to the next stage as its implicit input.

Chains are typed at the descriptor level: the key/value schema of each stage
must line up with the schema of its predecessor, and mismatched compositions
are rejected at compile time. The data plane stays loosely typed -- records
flow through mappers and reducers as strings, the way most streaming-style
MapReduce frameworks treat them.

All real work (scheduling, task distribution, shuffle, fault recovery) belongs
to the engine behind the Engine interface. The LocalEngine included here runs
jobs in-process against a local or S3 file system and is intended for
development, testing, and modest single-machine workloads.
*/
package mrchain
