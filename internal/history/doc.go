// Package history records broadcast cycles and their segment outcomes in
// SQLite.
//
// Each cycle row is opened when the orchestrator starts fetching and closed
// once the publisher has returned (or the cycle turned out empty). Segment
// rows capture which items rendered and which were dropped, with the failing
// stage and error text. Rows left in the running state by a killed process
// are marked interrupted at the next startup.
//
// The database is an operator aid, not pipeline state: nothing in a cycle
// reads it back. Schema changes bump schemaVersion in schema.go; operators
// delete the database to adopt the new schema.
package history
