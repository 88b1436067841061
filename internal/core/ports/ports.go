// Package ports declares the inbound contracts offered by the query engine
// and the outbound contracts it expects from infrastructure. Concrete
// strategies (AI provider, SQL dialect, session backend, vector backend) are
// bound to these interfaces once at configuration time.
package ports
