// Package testutil contains helpers used across tests to build conversation
// threads without repeating event construction boilerplate. It is not
// intended for production usage.
package testutil
