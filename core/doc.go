// Package core defines the domain types and collaborator contracts shared by
// the go-webhooks packages: webhook configurations, dispatch events, the
// transport and store interfaces, the error taxonomy, and configuration
// resolution.
package core
