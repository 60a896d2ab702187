// Package schema is the model layer of larder.
//
// Applications register model declarations with an Engine. Each declaration
// returns an Implementation whose Schema method lists the model's fields as
// FieldType values built from the Types factory. Engine.Start builds one
// ModelType per declaration (plus one per scalar kind), injects owner
// linkage fields into every type that is the target of a relation, and locks
// the registry. From then on the registry is read-only and safe for
// concurrent use.
//
// A ModelType turns a live instance graph into normalized rows
// (Decompose), checks it (Validate), and builds new instances
// (Instantiate). Rows travel to storage through a Connector; Engine.Load
// reads them back and recomposes relation fields through owner linkage.
//
// Schemas can be serialized to a RawSchema, compared across engines, and
// rebuilt without the declaration code that produced it. Connectors use the
// comparison to decide which migrations are needed.
package schema
