/*
Package session implements per-phone session management.

A Manager serializes dispatches for the same phone number (in process with a
reference-counted lock map, across replicas with an optional DistributedLocker)
and owns the layout of the ephemeral keys:

	state:{phone}        current dialogue state
	interaction:{phone}  interaction awaiting feedback
	urls:{phone}         candidate URLs offered for selection

Every key is written with the configured TTL so abandoned conversations
return to the start state on their own.
*/
package session
