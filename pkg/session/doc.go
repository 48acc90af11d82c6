/*
Package session implements run management and snapshot persistence orchestration.

A run is one performance of a show, identified by a UUID. The Manager serialises access
to each run's stored snapshot, records the engine's status while the show plays and
rebuilds the commands that put a freshly started engine back on the stored cue.
*/
package session
