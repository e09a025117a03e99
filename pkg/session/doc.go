/*
Package session keeps track of the live conversation of every player.

It enforces one active conversation per player, serializes access to a
player's conversation with reference-counted local locks (and an optional
distributed lock across replicas), and mirrors every change into a
SnapshotStore so conversations can be resumed after a restart.
*/
package session
