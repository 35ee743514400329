// Package dispatch decides whether a webhook should fire for a set of
// triggers, renders its configured template fields, and hands the payload to
// a connector. The dispatch cycle is advisory about rate limits: the store
// records the fire timestamp after a successful delivery.
package dispatch
