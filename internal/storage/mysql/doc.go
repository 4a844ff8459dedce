// Package mysql stores contract deployment records in MySQL. It embeds the
// schema migrations from deploy/migrations and applies them on open.
package mysql
