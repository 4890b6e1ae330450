// Command acsqe is a CLI front end over the Access Control & Safe Query
// Engine: it reflects a datastore's schema, builds and runs PostgREST-style
// queries, authorizes raw SQL, and renders DDL for schema changes.
package main

func main() {
	Execute()
}
